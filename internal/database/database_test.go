package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"salonbook/internal/pkg/sqlitedb"
)

func TestMigrateCreatesAllTables(t *testing.T) {
	db, err := sqlitedb.OpenInMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	for _, table := range []string{"users", "salons", "salon_services", "bookings", "wallets", "wallet_transactions", "cancellation_penalties", "payments", "notifications"} {
		require.True(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}
