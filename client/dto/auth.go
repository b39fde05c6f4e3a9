package dto

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken string         `json:"access_token"`
	ExpiresIn   int64          `json:"expires_in"`
	User        map[string]any `json:"user"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol,omitempty"`
	Scale  int    `json:"scale"`
}

type CurrencyPage struct {
	Items    []Currency `json:"items"`
	Page     int        `json:"page"`
	PageSize int        `json:"page_size"`
	Total    int        `json:"total"`
	HasNext  bool       `json:"has_next"`
}
