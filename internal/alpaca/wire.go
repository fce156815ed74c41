package alpaca

// Wire structs decode the broker's full response documents; extract methods
// trim them to the projections this service exposes.

type achRelationshipWire struct {
	ID                string `json:"id"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
	Status            string `json:"status"`
	AccountOwnerName  string `json:"account_owner_name"`
	BankAccountType   string `json:"bank_account_type"`
	BankAccountNumber string `json:"bank_account_number"`
	BankRoutingNumber string `json:"bank_routing_number"`
	Nickname          string `json:"nickname"`
}

func (w achRelationshipWire) extract() ACHRelationship {
	return ACHRelationship{
		RelationID:        w.ID,
		CreatedAt:         w.CreatedAt,
		UpdatedAt:         w.UpdatedAt,
		Status:            w.Status,
		AccountOwnerName:  w.AccountOwnerName,
		BankAccountType:   w.BankAccountType,
		BankAccountNumber: w.BankAccountNumber,
		BankRoutingNumber: w.BankRoutingNumber,
		Nickname:          w.Nickname,
	}
}

type transferWire struct {
	ID             string `json:"id"`
	RelationshipID string `json:"relationship_id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	Direction      string `json:"direction"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

func (w transferWire) extract() Transfer {
	return Transfer{
		TransferID:     w.ID,
		RelationshipID: w.RelationshipID,
		Type:           w.Type,
		Status:         w.Status,
		Amount:         w.Amount,
		Direction:      w.Direction,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

type tradingDetailsWire struct {
	Currency             string `json:"currency"`
	Equity               string `json:"equity"`
	BuyingPower          string `json:"buying_power"`
	Cash                 string `json:"cash"`
	LongMarketValue      string `json:"long_market_value"`
	ShortMarketValue     string `json:"short_market_value"`
	LastEquity           string `json:"last_equity"`
	LastBuyingPower      string `json:"last_buying_power"`
	LastCash             string `json:"last_cash"`
	LastLongMarketValue  string `json:"last_long_market_value"`
	LastShortMarketValue string `json:"last_short_market_value"`
}

func (w tradingDetailsWire) extract() TradingDetails {
	return TradingDetails{
		Currency:             w.Currency,
		PortfolioValue:       w.Equity,
		BuyingPower:          w.BuyingPower,
		Cash:                 w.Cash,
		LongMarketValue:      w.LongMarketValue,
		ShortMarketValue:     w.ShortMarketValue,
		LastPortfolioValue:   w.LastEquity,
		LastBuyingPower:      w.LastBuyingPower,
		LastCash:             w.LastCash,
		LastLongMarketValue:  w.LastLongMarketValue,
		LastShortMarketValue: w.LastShortMarketValue,
	}
}

type positionWire struct {
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

func (w positionWire) extract() Position {
	return Position{
		Symbol:                 w.Symbol,
		Exchange:               w.Exchange,
		AvgEntryPrice:          w.AvgEntryPrice,
		Qty:                    w.Qty,
		Side:                   w.Side,
		CostBasis:              w.CostBasis,
		MarketValue:            w.MarketValue,
		UnrealizedPL:           w.UnrealizedPL,
		UnrealizedPLPC:         w.UnrealizedPLPC,
		UnrealizedIntradayPL:   w.UnrealizedIntradayPL,
		UnrealizedIntradayPLPC: w.UnrealizedIntradayPLPC,
		CurrentPrice:           w.CurrentPrice,
		ChangeToday:            w.ChangeToday,
	}
}

type orderWire struct {
	ID             string `json:"id"`
	Symbol         string `json:"symbol"`
	FilledAt       string `json:"filled_at"`
	CreatedAt      string `json:"created_at"`
	Qty            string `json:"qty"`
	FilledQty      string `json:"filled_qty"`
	FilledAvgPrice string `json:"filled_avg_price"`
	Type           string `json:"type"`
	Side           string `json:"side"`
	LimitPrice     string `json:"limit_price"`
	StopPrice      string `json:"stop_price"`
	Commission     string `json:"commission"`
}

func (w orderWire) extract() Order {
	return Order{
		OrderID:        w.ID,
		Symbol:         w.Symbol,
		FilledAt:       w.FilledAt,
		CreatedAt:      w.CreatedAt,
		Qty:            w.Qty,
		FilledQty:      w.FilledQty,
		FilledAvgPrice: w.FilledAvgPrice,
		Type:           w.Type,
		Side:           w.Side,
		LimitPrice:     w.LimitPrice,
		StopPrice:      w.StopPrice,
		Commission:     w.Commission,
	}
}

type assetWire struct {
	Exchange string `json:"exchange"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Class    string `json:"class"`
	Status   string `json:"status"`
}

func (w assetWire) extract() Asset {
	return Asset{
		Exchange: w.Exchange,
		Symbol:   w.Symbol,
		Name:     w.Name,
		Class:    w.Class,
		Status:   w.Status,
	}
}

type latestBarWire struct {
	Bar struct {
		T  string  `json:"t"`
		O  float64 `json:"o"`
		H  float64 `json:"h"`
		L  float64 `json:"l"`
		C  float64 `json:"c"`
		V  int64   `json:"v"`
		N  int64   `json:"n"`
		VW float64 `json:"vw"`
	} `json:"bar"`
	Symbol string `json:"symbol"`
}

func (w latestBarWire) extract() Bar {
	return Bar{
		Time:          w.Bar.T,
		Opening:       w.Bar.O,
		High:          w.Bar.H,
		Low:           w.Bar.L,
		Closing:       w.Bar.C,
		BarVolume:     w.Bar.V,
		BarTradeCount: w.Bar.N,
		Average:       w.Bar.VW,
		Symbol:        w.Symbol,
	}
}
