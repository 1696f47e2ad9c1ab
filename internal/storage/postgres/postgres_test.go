package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"fintrack/internal/storage"
	"fintrack/internal/storage/storagetest"
)

// The suite needs a disposable database; it truncates both tables before every subtest.
func TestRepository(t *testing.T) {
	url := os.Getenv("FINTRACK_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FINTRACK_TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	repo, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	storagetest.Run(t, func(t *testing.T) storage.Ledger {
		_, err := repo.pool.Exec(ctx, `TRUNCATE transactions, budgets RESTART IDENTITY`)
		require.NoError(t, err)
		return repo
	})
}
