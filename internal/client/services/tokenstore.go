package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/writedesk/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/writedesk/internal/common"
	"github.com/dmitrijs2005/writedesk/internal/dbx"
)

// TokenStore persists the token pair between runs. Load returns empty
// strings when nothing is stored.
type TokenStore interface {
	Load(ctx context.Context) (access, refresh string, err error)
	Save(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error
}

// SQLiteTokenStore keeps the tokens in the local metadata table.
type SQLiteTokenStore struct {
	db *sql.DB
}

func NewSQLiteTokenStore(db *sql.DB) *SQLiteTokenStore {
	return &SQLiteTokenStore{db: db}
}

func (s *SQLiteTokenStore) Load(ctx context.Context) (string, string, error) {
	repo := metadata.NewSQLiteRepository(s.db)

	access, err := repo.Get(ctx, common.AccessTokenKey)
	if err != nil {
		return "", "", fmt.Errorf("load access token: %w", err)
	}
	refresh, err := repo.Get(ctx, common.RefreshTokenKey)
	if err != nil {
		return "", "", fmt.Errorf("load refresh token: %w", err)
	}
	return string(access), string(refresh), nil
}

// Save writes both tokens in one transaction.
func (s *SQLiteTokenStore) Save(ctx context.Context, access, refresh string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := repo.Set(ctx, common.AccessTokenKey, []byte(access)); err != nil {
			return err
		}
		return repo.Set(ctx, common.RefreshTokenKey, []byte(refresh))
	})
}

func (s *SQLiteTokenStore) Clear(ctx context.Context) error {
	repo := metadata.NewSQLiteRepository(s.db)
	return repo.Delete(ctx, common.AccessTokenKey, common.RefreshTokenKey)
}

// MemoryTokenStore is a process-local TokenStore.
type MemoryTokenStore struct {
	mu      sync.Mutex
	access  string
	refresh string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{}
}

func (s *MemoryTokenStore) Load(context.Context) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = access, refresh
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access, s.refresh = "", ""
	return nil
}
