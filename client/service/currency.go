package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"flowLedger/client/dto"
	"flowLedger/client/session"
)

const (
	currencyPageSize = 200
	maxCurrencyPages = 100
)

type CurrencyLister interface {
	ListCurrencies(ctx context.Context, page, pageSize int) (*dto.CurrencyPage, error)
}

// CurrencyCatalog caches the backend currency list for the current session.
// Watch keeps it in step with sign-in and sign-out.
type CurrencyCatalog struct {
	api    CurrencyLister
	logger *zap.Logger

	// refreshMu keeps concurrent refreshes from fetching the list twice.
	refreshMu sync.Mutex

	mu     sync.RWMutex
	items  []dto.Currency
	byCode map[string]dto.Currency
	loaded bool
}

func NewCurrencyCatalog(api CurrencyLister, logger *zap.Logger) *CurrencyCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CurrencyCatalog{api: api, logger: logger}
}

// Refresh loads every page. A loaded catalog is kept unless force is set.
func (c *CurrencyCatalog) Refresh(ctx context.Context, force bool) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if c.Loaded() && !force {
		return nil
	}

	var items []dto.Currency
	for page := 1; page <= maxCurrencyPages; page++ {
		resp, err := c.api.ListCurrencies(ctx, page, currencyPageSize)
		if err != nil {
			return fmt.Errorf("list currencies page %d: %w", page, err)
		}

		items = append(items, resp.Items...)
		if !resp.HasNext || len(resp.Items) == 0 {
			break
		}
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Code < items[j].Code })

	byCode := make(map[string]dto.Currency, len(items))
	for _, cur := range items {
		byCode[strings.ToUpper(cur.Code)] = cur
	}

	c.mu.Lock()
	c.items = items
	c.byCode = byCode
	c.loaded = true
	c.mu.Unlock()

	c.logger.Debug("Currency catalog loaded", zap.Int("currencies", len(items)))
	return nil
}

func (c *CurrencyCatalog) Get(code string) (dto.Currency, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cur, ok := c.byCode[strings.ToUpper(code)]
	return cur, ok
}

func (c *CurrencyCatalog) List() []dto.Currency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]dto.Currency(nil), c.items...)
}

func (c *CurrencyCatalog) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

func (c *CurrencyCatalog) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.byCode = nil
	c.loaded = false
}

// Watch loads the catalog on sign-in and clears it on sign-out. The
// subscription is in place when Watch returns; the returned channel closes
// once ctx is done or the manager closes. A session that is already
// authenticated is not preloaded, callers read it lazily with Refresh.
func (c *CurrencyCatalog) Watch(ctx context.Context, sessions *session.Manager) <-chan struct{} {
	sub := sessions.Subscribe()
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer sessions.Unsubscribe(sub)

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				switch event.Type {
				case session.EventAuthenticated:
					c.refresh(ctx)
				case session.EventSignedOut:
					c.Clear()
					c.logger.Debug("Currency catalog cleared")
				}
			}
		}
	}()

	return done
}

func (c *CurrencyCatalog) refresh(ctx context.Context) {
	if err := c.Refresh(ctx, false); err != nil {
		c.logger.Warn("Failed to refresh currencies", zap.Error(err))
	}
}
