// Package alpaca wraps the third-party brokerage HTTP API for account
// lifecycle, ACH funding, trading, and market data. The wire format is the
// broker's; nothing here is invented.
package alpaca

import (
	"context"
	"encoding/json"
)

// Tax ID types accepted by the brokerage.
const (
	TaxIDTypeUSASSN     = "USA_SSN"
	TaxIDTypeOtherGovID = "OTHER_GOV_ID"
)

// Identity is the KYC identity block of an account payload.
type Identity struct {
	GivenName             string   `json:"given_name"`
	FamilyName            string   `json:"family_name"`
	DateOfBirth           string   `json:"date_of_birth,omitempty"`
	CountryOfTaxResidence string   `json:"country_of_tax_residence"`
	TaxIDType             string   `json:"tax_id_type"`
	TaxID                 string   `json:"tax_id"`
	FundingSource         []string `json:"funding_source"`
}

// Contact is the contact block of an account payload.
type Contact struct {
	EmailAddress  string   `json:"email_address"`
	PhoneNumber   string   `json:"phone_number"`
	StreetAddress []string `json:"street_address,omitempty"`
	Unit          string   `json:"unit,omitempty"`
	City          string   `json:"city"`
	State         string   `json:"state"`
	PostalCode    string   `json:"postal_code"`
}

// Disclosures is the regulatory disclosure block of an account payload.
type Disclosures struct {
	IsControlPerson             bool `json:"is_control_person"`
	IsAffiliatedExchangeOrFinra bool `json:"is_affiliated_exchange_or_finra"`
	IsPoliticallyExposed        bool `json:"is_politically_exposed"`
	ImmediateFamilyExposed      bool `json:"immediate_family_exposed"`
}

// Agreement is a signed account agreement entry.
type Agreement struct {
	Agreement string `json:"agreement"`
	SignedAt  string `json:"signed_at"`
	IPAddress string `json:"ip_address"`
}

// AccountPayload is the create/update request body for a brokerage account.
type AccountPayload struct {
	Identity    Identity    `json:"identity"`
	Contact     Contact     `json:"contact"`
	Disclosures Disclosures `json:"disclosures"`
	Agreements  []Agreement `json:"agreements,omitempty"`
}

// UserFields are the identity fields pulled out of a gateway account document
// into the local user record. They are held locally only; the residual mirror
// never duplicates them.
type UserFields struct {
	AlpacaID              string
	AccountNumber         string
	Status                string
	GivenName             string
	FamilyName            string
	EmailAddress          string
	TaxID                 string
	TaxIDType             string
	CountryOfTaxResidence string
	PhoneNumber           string
}

// AccountResult is a gateway account document split into local user fields
// and the residual broker mirror. Mirror preserves fields this service does
// not model.
type AccountResult struct {
	Fields UserFields
	Mirror json.RawMessage
}

// ACHRelationship is the broker's view of a linked bank account.
type ACHRelationship struct {
	RelationID        string `json:"relation_id"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	Status            string `json:"status"`
	AccountOwnerName  string `json:"account_owner_name"`
	BankAccountType   string `json:"bank_account_type"`
	BankAccountNumber string `json:"bank_account_number"`
	BankRoutingNumber string `json:"bank_routing_number"`
	Nickname          string `json:"nickname,omitempty"`
}

// ACHRelationshipRequest creates a new bank link.
type ACHRelationshipRequest struct {
	AccountOwnerName  string `json:"account_owner_name"`
	BankAccountType   string `json:"bank_account_type"`
	BankAccountNumber string `json:"bank_account_number"`
	BankRoutingNumber string `json:"bank_routing_number"`
	Nickname          string `json:"nickname,omitempty"`
}

// Transfer is an ACH funding transfer.
type Transfer struct {
	TransferID     string `json:"transfer_id"`
	RelationshipID string `json:"relationship_id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	Direction      string `json:"direction"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// TransferRequest initiates an ACH funding transfer.
type TransferRequest struct {
	TransferType   string `json:"transfer_type"`
	RelationshipID string `json:"relationship_id"`
	Amount         string `json:"amount"`
	Direction      string `json:"direction"`
}

// TradingDetails is the trimmed trading-account summary returned to callers.
type TradingDetails struct {
	Currency             string `json:"currency"`
	PortfolioValue       string `json:"portfolio_value"`
	BuyingPower          string `json:"buying_power"`
	Cash                 string `json:"cash"`
	LongMarketValue      string `json:"long_market_value"`
	ShortMarketValue     string `json:"short_market_value"`
	LastPortfolioValue   string `json:"last_portfolio_value"`
	LastBuyingPower      string `json:"last_buying_power"`
	LastCash             string `json:"last_cash"`
	LastLongMarketValue  string `json:"last_long_market_value"`
	LastShortMarketValue string `json:"last_short_market_value"`
}

// Position is the trimmed open-position projection.
type Position struct {
	Symbol                 string `json:"symbol"`
	Exchange               string `json:"exchange"`
	AvgEntryPrice          string `json:"avg_entry_price"`
	Qty                    string `json:"qty"`
	Side                   string `json:"side"`
	CostBasis              string `json:"cost_basis"`
	MarketValue            string `json:"market_value"`
	UnrealizedPL           string `json:"unrealized_pl"`
	UnrealizedPLPC         string `json:"unrealized_plpc"`
	UnrealizedIntradayPL   string `json:"unrealized_intraday_pl"`
	UnrealizedIntradayPLPC string `json:"unrealized_intraday_plpc"`
	CurrentPrice           string `json:"current_price"`
	ChangeToday            string `json:"change_today"`
}

// Order is the trimmed order projection.
type Order struct {
	OrderID        string `json:"order_id"`
	Symbol         string `json:"symbol"`
	FilledAt       string `json:"filled_at,omitempty"`
	CreatedAt      string `json:"created_at"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price,omitempty"`
	Type           string `json:"type"`
	Side           string `json:"side"`
	LimitPrice     string `json:"limit_price,omitempty"`
	StopPrice      string `json:"stop_price,omitempty"`
	Commission     string `json:"commission"`
}

// OrderRequest places a new order.
type OrderRequest struct {
	Symbol      string `json:"symbol"`
	Qty         string `json:"qty"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
	LimitPrice  string `json:"limit_price,omitempty"`
	StopPrice   string `json:"stop_price,omitempty"`
}

// Normalize returns a copy of the request with price fields that do not apply
// to the order type cleared. Market and limit orders carry no stop price;
// market and stop orders carry no limit price.
func (r OrderRequest) Normalize() OrderRequest {
	out := r
	if r.Type == "market" || r.Type == "limit" {
		out.StopPrice = ""
	}
	if r.Type == "market" || r.Type == "stop" {
		out.LimitPrice = ""
	}
	return out
}

// Asset is the trimmed asset projection.
type Asset struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Class    string `json:"class"`
	Status   string `json:"status"`
}

// Bar is the trimmed OHLCV bar projection.
type Bar struct {
	Time          string  `json:"time"`
	Opening       float64 `json:"opening"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Closing       float64 `json:"closing"`
	BarVolume     int64   `json:"bar_volume"`
	BarTradeCount int64   `json:"bar_trade_count"`
	Average       float64 `json:"average"`
	Symbol        string  `json:"symbol"`
}

// BarsQuery selects a historical bar range.
type BarsQuery struct {
	Timeframe  string
	Limit      int
	Adjustment string
	Start      string
}

// Gateway is the narrow interface the rest of the service uses to reach the
// brokerage API. Live and stub implementations are selected by configuration.
type Gateway interface {
	CreateAccount(ctx context.Context, payload AccountPayload) (*AccountResult, error)
	UpdateAccount(ctx context.Context, alpacaID string, payload AccountPayload) (*AccountResult, error)
	CloseAccount(ctx context.Context, alpacaID string) error
	ReopenAccount(ctx context.Context, alpacaID string) error
	GetAccount(ctx context.Context, alpacaID string) (*AccountResult, error)

	ACHRelationships(ctx context.Context, alpacaID string) ([]ACHRelationship, error)
	CreateACHRelationship(ctx context.Context, alpacaID string, req ACHRelationshipRequest) (*ACHRelationship, error)
	DeleteACHRelationship(ctx context.Context, alpacaID, relationshipID string) error

	Transfers(ctx context.Context, alpacaID string) ([]Transfer, error)
	CreateTransfer(ctx context.Context, alpacaID string, req TransferRequest) (*Transfer, error)

	TradingDetails(ctx context.Context, alpacaID string) (*TradingDetails, error)
	Positions(ctx context.Context, alpacaID string) ([]Position, error)
	Orders(ctx context.Context, alpacaID string) ([]Order, error)
	CreateOrder(ctx context.Context, alpacaID string, req OrderRequest) (*Order, error)
	PortfolioHistory(ctx context.Context, alpacaID, timeframe string) (json.RawMessage, error)

	Asset(ctx context.Context, symbol string) (*Asset, error)
	LatestBar(ctx context.Context, symbol string) (*Bar, error)
	HistoricalBars(ctx context.Context, symbol string, q BarsQuery) (json.RawMessage, error)
}
