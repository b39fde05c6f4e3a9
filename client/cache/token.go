package cache

import (
	"context"
	"errors"
	"time"

	"flowLedger/client/database"
)

const tokenKey = "flowledger:access_token"

// TokenStore persists the access token between CLI runs.
type TokenStore struct {
	store Store
}

func NewTokenStore(store Store) *TokenStore {
	return &TokenStore{store: store}
}

// Load returns "" with no error when no token is stored.
func (ts *TokenStore) Load(ctx context.Context) (string, error) {
	token, err := ts.store.Get(ctx, tokenKey)
	if errors.Is(err, database.ErrCacheMiss) {
		return "", nil
	}
	return token, err
}

// Save stores token until ttl elapses; zero ttl keeps it indefinitely.
func (ts *TokenStore) Save(ctx context.Context, token string, ttl time.Duration) error {
	return ts.store.Set(ctx, tokenKey, token, ttl)
}

func (ts *TokenStore) Clear(ctx context.Context) error {
	return ts.store.Del(ctx, tokenKey)
}
