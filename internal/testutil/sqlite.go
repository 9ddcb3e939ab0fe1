// Package testutil provides an in-memory sqlite database carrying the
// storefront schema for repository and service tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var schema = []string{
	`CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_ref TEXT NOT NULL UNIQUE,
  amount TEXT NOT NULL CHECK (CAST(amount AS REAL) >= 0),
  currency TEXT NOT NULL,
  status TEXT NOT NULL,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL,
  is_guest_order BOOLEAN NOT NULL,
  payment_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE guest_customers (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL UNIQUE REFERENCES orders(id) ON DELETE CASCADE,
  first_name TEXT NOT NULL,
  last_name TEXT,
  email TEXT NOT NULL,
  phone TEXT,
  company TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE customer_orders (
  order_id TEXT PRIMARY KEY REFERENCES orders(id) ON DELETE CASCADE,
  customer_id TEXT NOT NULL,
  email TEXT,
  created_at DATETIME
);`,
	`CREATE TABLE order_addresses (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  street1 TEXT NOT NULL,
  street2 TEXT,
  city TEXT NOT NULL,
  state TEXT,
  postal_code TEXT,
  country TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (order_id, type)
);`,
	`CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  quantity INTEGER NOT NULL CHECK (quantity > 0),
  created_at DATETIME
);`,
	`CREATE TABLE payment_sessions (
  order_ref TEXT PRIMARY KEY,
  payload TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE payment_logs (
  id TEXT PRIMARY KEY,
  order_ref TEXT NOT NULL,
  status TEXT NOT NULL,
  status_code TEXT NOT NULL,
  payment_id TEXT,
  gateway_amount TEXT,
  gateway_currency TEXT,
  raw_payload TEXT NOT NULL,
  created_at DATETIME
);`,
	`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price TEXT NOT NULL,
  weight TEXT NOT NULL,
  subtotal TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (customer_id, product_id)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload BLOB NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json BLOB NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// OpenSQLite returns a private in-memory database with every table created.
// A single connection is used so transactions never contend for locks.
func OpenSQLite(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=1", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

// FailInsertWhen installs a trigger aborting inserts into table whose column
// equals value. Used to simulate a storage failure mid-transaction.
func FailInsertWhen(t *testing.T, db *gorm.DB, table, column, value string) {
	t.Helper()
	stmt := fmt.Sprintf(
		`CREATE TRIGGER fail_%s_%s BEFORE INSERT ON %s WHEN NEW.%s = '%s' BEGIN SELECT RAISE(ABORT, 'injected failure'); END;`,
		table, column, table, column, strings.ReplaceAll(value, "'", "''"),
	)
	if err := db.Exec(stmt).Error; err != nil {
		t.Fatalf("install trigger: %v", err)
	}
}

// Count returns the number of rows in table matching the optional where clause.
func Count(t *testing.T, db *gorm.DB, table string, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := db.Table(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	if err := q.Count(&n).Error; err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
