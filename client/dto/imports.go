package dto

type ImportSectionResult struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Exists  int `json:"exists"`
	Failed  int `json:"failed"`
}

type ImportInstitutionResult struct {
	InstitutionKey string  `json:"institution_key"`
	InstitutionID  *int64  `json:"institution_id"`
	Status         string  `json:"status"`
	Error          *string `json:"error,omitempty"`
}

type ImportProductResult struct {
	ProductKey     string  `json:"product_key"`
	InstitutionKey string  `json:"institution_key"`
	ProductID      *int64  `json:"product_id"`
	Status         string  `json:"status"`
	Error          *string `json:"error,omitempty"`
}

type ImportBalanceResult struct {
	ProductKey string  `json:"product_key"`
	AsOf       string  `json:"as_of"`
	Status     string  `json:"status"`
	Error      *string `json:"error,omitempty"`
}

// DepositImportResult is the payload of a finished deposit bulk import.
type DepositImportResult struct {
	Institutions     ImportSectionResult       `json:"institutions"`
	Products         ImportSectionResult       `json:"products"`
	ProductBalances  ImportSectionResult       `json:"product_balances"`
	InstitutionItems []ImportInstitutionResult `json:"institution_items"`
	ProductItems     []ImportProductResult     `json:"product_items"`
	BalanceItems     []ImportBalanceResult     `json:"balance_items"`
}

type ExchangeRateImportItem struct {
	Base     string `json:"base"`
	Quote    string `json:"quote"`
	RateDate string `json:"rate_date"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// ExchangeRateImportResult is the payload of a finished exchange-rate import.
type ExchangeRateImportResult struct {
	Total   int                      `json:"total"`
	Created int                      `json:"created"`
	Updated int                      `json:"updated"`
	Failed  int                      `json:"failed"`
	Items   []ExchangeRateImportItem `json:"items"`
}

type ReceiptItem struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type"`
}

// ReceiptRecognition is the OCR output for an uploaded receipt.
type ReceiptRecognition struct {
	Merchant   string        `json:"merchant"`
	OccurredAt string        `json:"occurred_at"`
	Currency   string        `json:"currency,omitempty"`
	FileID     string        `json:"file_id,omitempty"`
	Items      []ReceiptItem `json:"items"`
}

// Total sums the recognized line items.
func (r *ReceiptRecognition) Total() float64 {
	var total float64
	for _, item := range r.Items {
		total += item.Amount
	}
	return total
}
