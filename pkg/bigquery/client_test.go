package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"cloud.google.com/go/bigquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type auditRow struct {
	ID string `bigquery:"event_id"`
}

func (r auditRow) InsertID() string { return r.ID }

func TestConfiguredTablesTrimsAuditTable(t *testing.T) {
	assert.Equal(t, []string{"order_audit"}, configuredTables(config.BigQueryConfig{OrderAuditTable: " order_audit "}))
	assert.Empty(t, configuredTables(config.BigQueryConfig{}))
}

func TestNewClientValidatesConfig(t *testing.T) {
	ctx := context.Background()
	_, err := NewClient(ctx, config.GCPConfig{}, config.BigQueryConfig{Dataset: "d", OrderAuditTable: "t"}, nil)
	assert.ErrorIs(t, err, errProjectIDRequired)
	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{OrderAuditTable: "t"}, nil)
	assert.ErrorIs(t, err, errDatasetRequired)
	_, err = NewClient(ctx, config.GCPConfig{ProjectID: "p"}, config.BigQueryConfig{Dataset: "d"}, nil)
	assert.ErrorIs(t, err, errTableNameRequired)
}

func TestNilClientOperations(t *testing.T) {
	var c *Client
	require.ErrorIs(t, c.InsertRows(context.Background(), "order_audit", []any{1}), errClientNotInitialized)
	require.ErrorIs(t, c.Ping(context.Background()), errClientNotInitialized)
	require.NoError(t, c.Close())
}

func TestSaversAttachInsertIDs(t *testing.T) {
	plain := map[string]any{"x": 1}
	out := savers([]any{auditRow{ID: "evt-1"}, auditRow{}, plain})
	require.Len(t, out, 3)

	saver, ok := out[0].(*bigquery.StructSaver)
	require.True(t, ok)
	assert.Equal(t, "evt-1", saver.InsertID)
	assert.Equal(t, auditRow{ID: "evt-1"}, saver.Struct)

	assert.Equal(t, auditRow{}, out[1])
	assert.Equal(t, plain, out[2])
}

func TestDescribeLookup(t *testing.T) {
	missing := describeLookup("table", "order_audit", fmt.Errorf("wrapped: %w", &googleapi.Error{Code: http.StatusNotFound}))
	assert.EqualError(t, missing, `table "order_audit" does not exist`)

	boom := errors.New("boom")
	assert.ErrorIs(t, describeLookup("dataset", "shop", boom), boom)
	assert.False(t, isNotFound(&googleapi.Error{Code: http.StatusForbidden}))
}
