package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"flowLedger/client/dto"
)

const IdempotencyHeader = "Idempotency-Key"

type RateQuery struct {
	Base  string
	Quote string
	Date  string
}

// GetExchangeRates calls GET /exchange-rates. Leaving Quote empty returns
// every quote for the base.
func (c *Client) GetExchangeRates(ctx context.Context, query RateQuery) (*dto.ExchangeRates, error) {
	base := strings.ToUpper(strings.TrimSpace(query.Base))
	if base == "" {
		return nil, ErrMissingBase
	}

	q := url.Values{}
	q.Set("base", base)
	if quote := strings.ToUpper(strings.TrimSpace(query.Quote)); quote != "" {
		q.Set("quote", quote)
	}
	if query.Date != "" {
		q.Set("date", query.Date)
	}

	var out dto.ExchangeRates
	if err := c.do(ctx, http.MethodGet, c.endpoint(q, "exchange-rates"), nil, "", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Convert calls POST /convert. A non-empty idempotencyKey is sent so a
// retried request is not counted twice.
func (c *Client) Convert(ctx context.Context, req dto.ConvertRequest, idempotencyKey string) (*dto.ConvertResponse, error) {
	req.From = strings.ToUpper(strings.TrimSpace(req.From))
	req.To = strings.ToUpper(strings.TrimSpace(req.To))
	if req.Amount == "" || req.From == "" || req.To == "" {
		return nil, errors.New("convert needs an amount and both currencies")
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var header http.Header
	if idempotencyKey != "" {
		header = http.Header{}
		header.Set(IdempotencyHeader, idempotencyKey)
	}

	var out dto.ConvertResponse
	if err := c.do(ctx, http.MethodPost, c.endpoint(nil, "convert"), bytes.NewReader(payload), "application/json", header, &out); err != nil {
		return nil, err
	}

	c.logger.Debug("Amount converted",
		zap.String("from", out.FromCurrency),
		zap.String("to", out.ToCurrency),
		zap.String("rate", out.Rate),
	)
	return &out, nil
}
