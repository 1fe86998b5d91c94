package testutil

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/netbill/netbill/internal/postgres"
)

// MockPostgresClient satisfies postgres.IClient for service tests running
// against in-memory stores. WithTx simply runs the function; the in-memory
// stores apply their writes immediately.
type MockPostgresClient struct{}

func NewMockPostgresClient() postgres.IClient {
	return &MockPostgresClient{}
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(context.Context) error) error {
	return fn(ctx)
}

func (c *MockPostgresClient) TxFromContext(ctx context.Context) *sqlx.Tx {
	return nil
}

func (c *MockPostgresClient) Querier(ctx context.Context) postgres.Querier {
	return nil
}
