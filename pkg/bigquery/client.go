// Package bigquery streams order audit rows into a BigQuery dataset.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/gcp"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const metadataCheckTimeout = 10 * time.Second

var (
	errProjectIDRequired    = errors.New("gcp project id is required")
	errDatasetRequired      = errors.New("bigquery dataset is required")
	errTableNameRequired    = errors.New("bigquery table name is required")
	errClientNotInitialized = errors.New("bigquery client not initialized")
)

// InsertIdentifier is implemented by rows that carry their own streaming
// insert id. BigQuery drops retried rows with an id it has already seen.
type InsertIdentifier interface {
	InsertID() string
}

// Client appends rows to tables of one dataset.
type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []string
}

// NewClient opens a BigQuery client and fails fast when the dataset or one
// of the configured tables is missing.
func NewClient(ctx context.Context, gcpCfg config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID, ok := gcp.ProjectID(gcpCfg)
	if !ok {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables := configuredTables(cfg)
	if len(tables) == 0 {
		return nil, errTableNameRequired
	}

	bq, err := bigquery.NewClient(ctx, projectID, gcp.ClientOptions(gcpCfg)...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(datasetID), tables: tables}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"bq_dataset": datasetID,
		"bq_tables":  strings.Join(tables, ","),
	}), "bigquery client ready")
	return c, nil
}

func configuredTables(cfg config.BigQueryConfig) []string {
	if name := strings.TrimSpace(cfg.OrderAuditTable); name != "" {
		return []string{name}
	}
	return nil
}

// Ping reads dataset and table metadata.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	ctx, cancel := context.WithTimeout(ctx, metadataCheckTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		return describeLookup("dataset", c.dataset.DatasetID, err)
	}
	for _, name := range c.tables {
		if _, err := c.dataset.Table(name).Metadata(ctx); err != nil {
			return describeLookup("table", name, err)
		}
	}
	return nil
}

// InsertRows streams rows into table. Rows implementing InsertIdentifier are
// sent with their insert id so redelivered messages do not duplicate rows.
func (c *Client) InsertRows(ctx context.Context, table string, rows []any) error {
	if c == nil || c.dataset == nil {
		return errClientNotInitialized
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}

	err := c.dataset.Table(table).Inserter().Put(ctx, savers(rows))
	var rejected bigquery.PutMultiError
	if errors.As(err, &rejected) {
		return fmt.Errorf("bigquery rejected %d of %d rows in %s: %w", len(rejected), len(rows), table, err)
	}
	return err
}

func savers(rows []any) []any {
	out := make([]any, len(rows))
	for i, row := range rows {
		id, ok := row.(InsertIdentifier)
		if !ok || id.InsertID() == "" {
			out[i] = row
			continue
		}
		out[i] = &bigquery.StructSaver{Struct: row, InsertID: id.InsertID()}
	}
	return out
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func describeLookup(kind, name string, err error) error {
	if isNotFound(err) {
		return fmt.Errorf("%s %q does not exist", kind, name)
	}
	return fmt.Errorf("check %s %q: %w", kind, name, err)
}

func isNotFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
