package alpaca

import (
	"bytes"
	"encoding/json"
	"testing"
)

const accountDoc = `{
	"id": "0d969814-40d6-492d-b4a2-250b969dbb87",
	"account_number": "808971365",
	"status": "ACTIVE",
	"crypto_status": "ACTIVE",
	"currency": "USD",
	"buying_power_multiplier": "4",
	"identity": {
		"given_name": "Jane",
		"family_name": "Doe",
		"tax_id": "534-21-8765",
		"tax_id_type": "USA_SSN",
		"country_of_tax_residence": "USA",
		"visa_type": "E3",
		"funding_source": ["employment_income"]
	},
	"contact": {
		"email_address": "jane.doe@example.com",
		"phone_number": "+15556667788",
		"city": "San Mateo",
		"state": "CA"
	}
}`

func TestSplitAccountExtractsWhitelistedFields(t *testing.T) {
	result, err := SplitAccount([]byte(accountDoc))
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	fields := result.Fields
	if fields.AlpacaID != "0d969814-40d6-492d-b4a2-250b969dbb87" {
		t.Fatalf("alpaca id %q", fields.AlpacaID)
	}
	if fields.AccountNumber != "808971365" || fields.Status != "ACTIVE" {
		t.Fatalf("root fields: %q %q", fields.AccountNumber, fields.Status)
	}
	if fields.GivenName != "Jane" || fields.FamilyName != "Doe" {
		t.Fatalf("identity fields: %q %q", fields.GivenName, fields.FamilyName)
	}
	if fields.TaxID != "534-21-8765" || fields.TaxIDType != "USA_SSN" || fields.CountryOfTaxResidence != "USA" {
		t.Fatalf("tax fields: %q %q %q", fields.TaxID, fields.TaxIDType, fields.CountryOfTaxResidence)
	}
	if fields.EmailAddress != "jane.doe@example.com" || fields.PhoneNumber != "+15556667788" {
		t.Fatalf("contact fields: %q %q", fields.EmailAddress, fields.PhoneNumber)
	}
}

func TestSplitAccountMirrorKeepsUnknownFields(t *testing.T) {
	result, err := SplitAccount([]byte(accountDoc))
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	var mirror map[string]any
	if err := json.Unmarshal(result.Mirror, &mirror); err != nil {
		t.Fatalf("decode mirror: %v", err)
	}

	// Extracted values never appear on the mirror side.
	for _, key := range []string{"id", "account_number", "status"} {
		if _, present := mirror[key]; present {
			t.Fatalf("extracted key %q still in mirror", key)
		}
	}
	identity := mirror["identity"].(map[string]any)
	if _, present := identity["tax_id"]; present {
		t.Fatal("extracted identity.tax_id still in mirror")
	}

	// Fields this service has never modeled survive.
	if mirror["buying_power_multiplier"] != "4" {
		t.Fatal("unknown root field lost")
	}
	if identity["visa_type"] != "E3" {
		t.Fatal("unknown identity field lost")
	}
	contact := mirror["contact"].(map[string]any)
	if contact["city"] != "San Mateo" {
		t.Fatal("unextracted contact field lost")
	}
}

func TestSplitAccountLeavesInputIntact(t *testing.T) {
	raw := []byte(accountDoc)
	original := bytes.Clone(raw)
	if _, err := SplitAccount(raw); err != nil {
		t.Fatalf("split: %v", err)
	}
	if !bytes.Equal(raw, original) {
		t.Fatal("input bytes were modified")
	}
}

func TestSplitAccountRejectsMalformedInput(t *testing.T) {
	if _, err := SplitAccount([]byte("{not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestMergeAccountRoundTrip(t *testing.T) {
	result, err := SplitAccount([]byte(accountDoc))
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	merged, err := MergeAccount(result.Fields, result.Mirror)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	var got, want map[string]any
	if err := json.Unmarshal(merged, &got); err != nil {
		t.Fatalf("decode merged: %v", err)
	}
	if err := json.Unmarshal([]byte(accountDoc), &want); err != nil {
		t.Fatalf("decode original: %v", err)
	}

	gotJSON, _ := json.Marshal(got)
	wantJSON, _ := json.Marshal(want)
	if !bytes.Equal(gotJSON, wantJSON) {
		t.Fatalf("round trip diverged:\n%s\n%s", gotJSON, wantJSON)
	}
}

func TestOrderRequestNormalize(t *testing.T) {
	tests := []struct {
		orderType string
		wantLimit string
		wantStop  string
	}{
		{"market", "", ""},
		{"limit", "10.50", ""},
		{"stop", "", "9.75"},
		{"stop_limit", "10.50", "9.75"},
	}
	for _, tt := range tests {
		t.Run(tt.orderType, func(t *testing.T) {
			req := OrderRequest{
				Symbol:     "AAPL",
				Type:       tt.orderType,
				LimitPrice: "10.50",
				StopPrice:  "9.75",
			}
			got := req.Normalize()
			if got.LimitPrice != tt.wantLimit || got.StopPrice != tt.wantStop {
				t.Fatalf("normalize %s: limit=%q stop=%q", tt.orderType, got.LimitPrice, got.StopPrice)
			}
			if req.LimitPrice != "10.50" || req.StopPrice != "9.75" {
				t.Fatal("normalize modified the receiver")
			}
		})
	}
}
