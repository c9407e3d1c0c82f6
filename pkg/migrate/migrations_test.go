package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/agricdeck/agricdeck-backend/pkg/migrate"
)

func TestMigrationsDirValidates(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migration dir failed validation: %v", err)
	}
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE orders",
		"order_number text NOT NULL UNIQUE",
		"payment_reference text UNIQUE",
		"CREATE TABLE order_items",
		"REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE orders",
	}
	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestGuardColumnsCarryCheckConstraints(t *testing.T) {
	products := readMigration(t, "*_create_products.sql")
	if !strings.Contains(products, "CHECK (available_quantity >= 0)") {
		t.Error("products migration missing available_quantity check")
	}

	users := readMigration(t, "*_create_users.sql")
	if !strings.Contains(users, "CHECK (wallet_balance >= 0)") {
		t.Error("users migration missing wallet_balance check")
	}
}

func TestPaymentTransactionsReferenceIsUnique(t *testing.T) {
	content := readMigration(t, "*_create_payment_transactions.sql")
	if !strings.Contains(content, "gateway_reference text UNIQUE") {
		t.Error("payment_transactions migration missing unique gateway_reference")
	}
}

func TestDisputesOrderIsUnique(t *testing.T) {
	content := readMigration(t, "*_create_disputes.sql")
	if !strings.Contains(content, "order_id uuid NOT NULL UNIQUE") {
		t.Error("disputes migration missing one-dispute-per-order constraint")
	}
}

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matching %s", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}
