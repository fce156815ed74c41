package identity

// usStateCodes lists the postal codes accepted for USA addresses: the 50
// states, DC, the inhabited territories, and the minor outlying islands.
var usStateCodes = map[string]struct{}{
	"AL": {}, "AK": {}, "AZ": {}, "AR": {}, "CA": {}, "CO": {}, "CT": {},
	"DE": {}, "FL": {}, "GA": {}, "HI": {}, "ID": {}, "IL": {}, "IN": {},
	"IA": {}, "KS": {}, "KY": {}, "LA": {}, "ME": {}, "MD": {}, "MA": {},
	"MI": {}, "MN": {}, "MS": {}, "MO": {}, "MT": {}, "NE": {}, "NV": {},
	"NH": {}, "NJ": {}, "NM": {}, "NY": {}, "NC": {}, "ND": {}, "OH": {},
	"OK": {}, "OR": {}, "PA": {}, "RI": {}, "SC": {}, "SD": {}, "TN": {},
	"TX": {}, "UT": {}, "VT": {}, "VA": {}, "WA": {}, "WV": {}, "WI": {},
	"WY": {},
	"DC": {},
	"AS": {}, "GU": {}, "MP": {}, "PR": {}, "VI": {}, "UM": {},
}

// fundingSources lists accepted funding source values.
var fundingSources = map[string]struct{}{
	"employment_income": {},
	"investments":       {},
	"inheritance":       {},
	"business_income":   {},
	"savings":           {},
	"family":            {},
}

// agreementKinds lists accepted agreement values.
var agreementKinds = map[string]struct{}{
	"account_agreement":  {},
	"customer_agreement": {},
	"margin_agreement":   {},
}

// bannedTaxIDs are well-known placeholder identifiers rejected outright.
var bannedTaxIDs = map[string]struct{}{
	"123-45-6789": {},
	"987-65-4321": {},
	"123456789":   {},
	"987654321":   {},
}
