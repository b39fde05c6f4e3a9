package dto

// Amounts and rates stay decimal strings as the backend sends them.

// ExchangeRates is the GET /exchange-rates response. With a quote it is a
// single rate; without one Rates maps each quote code to its rate.
type ExchangeRates struct {
	Base          string               `json:"base"`
	Quote         string               `json:"quote,omitempty"`
	Date          string               `json:"date"`
	Rate          string               `json:"rate,omitempty"`
	EffectiveDate string               `json:"effective_date,omitempty"`
	Rates         map[string]RateEntry `json:"rates,omitempty"`
}

type RateEntry struct {
	Rate          string `json:"rate"`
	EffectiveDate string `json:"effective_date"`
}

// Single reports whether the response carries one base/quote rate.
func (r *ExchangeRates) Single() bool {
	return r.Quote != "" && len(r.Rates) == 0
}

type ConvertRequest struct {
	Amount string `json:"amount"`
	From   string `json:"from"`
	To     string `json:"to"`
	Date   string `json:"date,omitempty"`
}

type ConvertResponse struct {
	Amount        string `json:"amount"`
	FromCurrency  string `json:"from_currency"`
	ToCurrency    string `json:"to_currency"`
	Rate          string `json:"rate"`
	Converted     string `json:"converted"`
	EffectiveDate string `json:"effective_date"`
}
