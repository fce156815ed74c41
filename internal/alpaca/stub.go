package alpaca

import (
	"context"
	"encoding/json"
	"fmt"
)

var _ Gateway = (*Stub)(nil)

// Stub is a deterministic offline implementation of Gateway used for demos
// and tests. Account documents echo the submitted payload; identifiers derive
// from the payload's tax id so repeated runs produce identical records.
type Stub struct{}

// NewStub constructs a stub gateway.
func NewStub() *Stub {
	return &Stub{}
}

func stubAccountDoc(id, accountNumber, status string, payload AccountPayload) map[string]any {
	identity := map[string]any{
		"given_name":               payload.Identity.GivenName,
		"family_name":              payload.Identity.FamilyName,
		"date_of_birth":            payload.Identity.DateOfBirth,
		"tax_id":                   payload.Identity.TaxID,
		"tax_id_type":              payload.Identity.TaxIDType,
		"country_of_citizenship":   "USA",
		"country_of_birth":         "USA",
		"country_of_tax_residence": payload.Identity.CountryOfTaxResidence,
		"funding_source":           payload.Identity.FundingSource,
	}
	contact := map[string]any{
		"email_address":  payload.Contact.EmailAddress,
		"phone_number":   payload.Contact.PhoneNumber,
		"street_address": payload.Contact.StreetAddress,
		"unit":           payload.Contact.Unit,
		"city":           payload.Contact.City,
		"state":          payload.Contact.State,
		"postal_code":    payload.Contact.PostalCode,
	}
	disclosures := map[string]any{
		"is_control_person":               payload.Disclosures.IsControlPerson,
		"is_affiliated_exchange_or_finra": payload.Disclosures.IsAffiliatedExchangeOrFinra,
		"is_politically_exposed":          payload.Disclosures.IsPoliticallyExposed,
		"immediate_family_exposed":        payload.Disclosures.ImmediateFamilyExposed,
	}
	agreements := make([]map[string]any, 0, len(payload.Agreements))
	for _, agreement := range payload.Agreements {
		agreements = append(agreements, map[string]any{
			"agreement":  agreement.Agreement,
			"signed_at":  agreement.SignedAt,
			"ip_address": agreement.IPAddress,
			"revision":   "19.2022.02",
		})
	}
	return map[string]any{
		"id":             id,
		"account_number": accountNumber,
		"account_type":   "trading",
		"status":         status,
		"crypto_status":  status,
		"currency":       "USD",
		"created_at":     "2024-05-07T08:07:14.464Z",
		"last_equity":    "0",
		"enabled_assets": []string{"us_equity"},
		"identity":       identity,
		"contact":        contact,
		"disclosures":    disclosures,
		"agreements":     agreements,
	}
}

func splitStubDoc(doc map[string]any) (*AccountResult, error) {
	raw, errMarshal := json.Marshal(doc)
	if errMarshal != nil {
		return nil, fmt.Errorf("stub gateway: encode account: %w", errMarshal)
	}
	return SplitAccount(raw)
}

// CreateAccount returns an ACTIVE account whose identifiers derive from the
// submitted tax id.
func (s *Stub) CreateAccount(_ context.Context, payload AccountPayload) (*AccountResult, error) {
	return splitStubDoc(stubAccountDoc(payload.Identity.TaxID, payload.Identity.TaxID, "ACTIVE", payload))
}

// UpdateAccount echoes the submitted payload under the existing identifiers.
func (s *Stub) UpdateAccount(_ context.Context, alpacaID string, payload AccountPayload) (*AccountResult, error) {
	return splitStubDoc(stubAccountDoc(alpacaID, alpacaID, "ACTIVE", payload))
}

// CloseAccount always succeeds.
func (s *Stub) CloseAccount(context.Context, string) error { return nil }

// ReopenAccount always succeeds.
func (s *Stub) ReopenAccount(context.Context, string) error { return nil }

// GetAccount returns a minimal ACTIVE account document.
func (s *Stub) GetAccount(_ context.Context, alpacaID string) (*AccountResult, error) {
	return splitStubDoc(stubAccountDoc(alpacaID, alpacaID, "ACTIVE", AccountPayload{}))
}

var stubRelationship = ACHRelationship{
	RelationID:        "61e69015-8549-4bfd-b9c3-01e75843f47d",
	CreatedAt:         "2021-03-16T18:38:01.942282Z",
	UpdatedAt:         "2021-03-16T18:38:01.942282Z",
	Status:            "QUEUED",
	AccountOwnerName:  "John Doe",
	BankAccountType:   "CHECKING",
	BankAccountNumber: "32131231abc",
	BankRoutingNumber: "121000358",
	Nickname:          "Bank of America Checking",
}

// ACHRelationships returns a single queued relationship.
func (s *Stub) ACHRelationships(context.Context, string) ([]ACHRelationship, error) {
	return []ACHRelationship{stubRelationship}, nil
}

// CreateACHRelationship echoes the request as a queued relationship.
func (s *Stub) CreateACHRelationship(_ context.Context, _ string, req ACHRelationshipRequest) (*ACHRelationship, error) {
	rel := stubRelationship
	rel.AccountOwnerName = req.AccountOwnerName
	rel.BankAccountType = req.BankAccountType
	rel.BankAccountNumber = req.BankAccountNumber
	rel.BankRoutingNumber = req.BankRoutingNumber
	rel.Nickname = req.Nickname
	return &rel, nil
}

// DeleteACHRelationship always succeeds.
func (s *Stub) DeleteACHRelationship(context.Context, string, string) error { return nil }

var stubTransfer = Transfer{
	TransferID:     "be3c368a-4c7c-4384-808e-f02c9f5a8afe",
	RelationshipID: stubRelationship.RelationID,
	Type:           "ach",
	Status:         "COMPLETE",
	Amount:         "498",
	Direction:      "INCOMING",
	CreatedAt:      "2021-05-05T07:55:31.190788Z",
	UpdatedAt:      "2021-05-05T08:13:33.029539Z",
}

// Transfers returns a single completed incoming transfer.
func (s *Stub) Transfers(context.Context, string) ([]Transfer, error) {
	return []Transfer{stubTransfer}, nil
}

// CreateTransfer echoes the request as a queued transfer.
func (s *Stub) CreateTransfer(_ context.Context, _ string, req TransferRequest) (*Transfer, error) {
	transfer := stubTransfer
	transfer.Status = "QUEUED"
	transfer.RelationshipID = req.RelationshipID
	transfer.Amount = req.Amount
	transfer.Direction = req.Direction
	return &transfer, nil
}

// TradingDetails returns a fixed trading summary.
func (s *Stub) TradingDetails(context.Context, string) (*TradingDetails, error) {
	return &TradingDetails{
		Currency:             "USD",
		PortfolioValue:       "275.00",
		BuyingPower:          "12345.67",
		Cash:                 "200.00",
		LongMarketValue:      "75.00",
		ShortMarketValue:     "0",
		LastPortfolioValue:   "200.00",
		LastBuyingPower:      "12345.67",
		LastCash:             "100.00",
		LastLongMarketValue:  "100.00",
		LastShortMarketValue: "0",
	}, nil
}

// Positions returns a single long AAPL position.
func (s *Stub) Positions(context.Context, string) ([]Position, error) {
	return []Position{{
		Symbol:                 "AAPL",
		Exchange:               "NASDAQ",
		AvgEntryPrice:          "100.0",
		Qty:                    "5",
		Side:                   "long",
		CostBasis:              "500.0",
		MarketValue:            "600.0",
		UnrealizedPL:           "100.0",
		UnrealizedPLPC:         "0.20",
		UnrealizedIntradayPL:   "10.0",
		UnrealizedIntradayPLPC: "0.0084",
		CurrentPrice:           "120.0",
		ChangeToday:            "0.0084",
	}}, nil
}

var stubOrder = Order{
	OrderID:        "5042d121-f9d3-4e64-a680-3e1faadc2114",
	Symbol:         "AAPL",
	FilledAt:       "2024-04-04T14:56:29.272053Z",
	CreatedAt:      "2024-04-04T14:56:29.216131Z",
	Qty:            "1",
	FilledQty:      "1",
	FilledAvgPrice: "170.98",
	Type:           "market",
	Side:           "buy",
	Commission:     "0",
}

// Orders returns a single filled order.
func (s *Stub) Orders(context.Context, string) ([]Order, error) {
	return []Order{stubOrder}, nil
}

// CreateOrder echoes the request as a filled order.
func (s *Stub) CreateOrder(_ context.Context, _ string, req OrderRequest) (*Order, error) {
	req = req.Normalize()
	order := stubOrder
	order.Symbol = req.Symbol
	order.Qty = req.Qty
	order.FilledQty = req.Qty
	order.Type = req.Type
	order.Side = req.Side
	order.LimitPrice = req.LimitPrice
	order.StopPrice = req.StopPrice
	return &order, nil
}

// PortfolioHistory returns a fixed single-sample history.
func (s *Stub) PortfolioHistory(_ context.Context, _ string, timeframe string) (json.RawMessage, error) {
	if timeframe == "" {
		timeframe = "1D"
	}
	doc := map[string]any{
		"timestamp":       []int64{1580826600000},
		"equity":          []float64{27423.73},
		"profit_loss":     []float64{11.8},
		"profit_loss_pct": []float64{0.000430469507254},
		"base_value":      27411.93,
		"timeframe":       timeframe,
	}
	return json.Marshal(doc)
}

// Asset returns fixed AAPL-style metadata for the requested symbol.
func (s *Stub) Asset(_ context.Context, symbol string) (*Asset, error) {
	return &Asset{
		Exchange: "NASDAQ",
		Symbol:   symbol,
		Name:     "Apple Inc. Common Stock",
		Class:    "us_equity",
		Status:   "active",
	}, nil
}

// LatestBar returns a fixed minute bar for the requested symbol.
func (s *Stub) LatestBar(_ context.Context, symbol string) (*Bar, error) {
	return &Bar{
		Time:          "2022-08-17T09:07:00Z",
		Opening:       172.98,
		High:          173.04,
		Low:           172.98,
		Closing:       173,
		BarVolume:     2748,
		BarTradeCount: 49,
		Average:       173.007817,
		Symbol:        symbol,
	}, nil
}

// HistoricalBars returns a fixed single-bar series for the requested symbol.
func (s *Stub) HistoricalBars(_ context.Context, symbol string, q BarsQuery) (json.RawMessage, error) {
	doc := map[string]any{
		"bars": []map[string]any{{
			"t":  "2022-08-17T09:07:00Z",
			"o":  172.98,
			"h":  173.04,
			"l":  172.98,
			"c":  173,
			"v":  2748,
			"n":  49,
			"vw": 173.007817,
		}},
		"symbol":    symbol,
		"timeframe": q.Timeframe,
	}
	return json.Marshal(doc)
}
