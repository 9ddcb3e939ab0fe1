package migrate

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "migration %s", suffix)
	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestEmbeddedMigrationsMatchDisk(t *testing.T) {
	require.NoError(t, Validate(Embedded()))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	embeddedNames, err := fs.Glob(Embedded(), "*.sql")
	require.NoError(t, err)
	assert.Len(t, embeddedNames, len(onDisk))
}

func TestValidateRejectsDuplicateVersions(t *testing.T) {
	body := []byte("-- +goose Up\n-- +goose Down\n")
	fsys := fstest.MapFS{
		"20260101000000_first.sql":  {Data: body},
		"20260101000000_second.sql": {Data: body},
	}
	err := Validate(fsys)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "share version 20260101000000")
}

func TestSourceFallsBackToEmbedded(t *testing.T) {
	names, err := fs.Glob(Source(""), "*_create_orders.sql")
	require.NoError(t, err)
	assert.Len(t, names, 1)
}

func TestNewMigratorRequiresDB(t *testing.T) {
	_, err := NewMigrator(nil, Embedded())
	assert.Error(t, err)
}

func TestOrderMigrationConstraints(t *testing.T) {
	content := readMigration(t, "create_orders")
	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_ref ON orders (order_ref)",
		"CHECK (status IN ('pending', 'paid', 'canceled', 'charged_back'))",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_guest_customers_order_id",
		"order_id uuid PRIMARY KEY REFERENCES orders(id) ON DELETE CASCADE",
		"DROP TABLE IF EXISTS orders",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestOrderAmountAllowsZero(t *testing.T) {
	content := readMigration(t, "allow_zero_order_amount")
	up, down, ok := strings.Cut(content, "-- +goose Down")
	require.True(t, ok)
	assert.Contains(t, up, "CHECK (amount >= 0)")
	assert.Contains(t, down, "CHECK (amount > 0)")
}

func TestCartMigrationEnforcesOneLinePerProduct(t *testing.T) {
	content := readMigration(t, "create_cart_items")
	assert.Contains(t, content, "ux_cart_items_customer_product ON cart_items (customer_id, product_id)")
	assert.Contains(t, content, "CHECK (quantity > 0)")
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	cases := map[string]string{
		"bad-name.sql":             "-- +goose Up\n-- +goose Down\n",
		"20260101000000_no_up.sql": "-- +goose Down\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
			assert.Error(t, ValidateDir(dir))
		})
	}

	assert.Error(t, ValidateDir(t.TempDir()), "empty dir")
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Order Notes!")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_order_notes.sql"))
	require.NoError(t, ValidateDir(dir))

	_, err = CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}
