// Package gcp holds the pieces shared by the Google Cloud clients.
package gcp

import (
	"strings"

	"google.golang.org/api/option"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

// ClientOptions picks credentials for a Google Cloud client. Inline JSON wins
// over a credentials file; with neither set the client falls back to
// application default credentials or an emulator host.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(cfg.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(cfg.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// ProjectID returns the trimmed project id and whether one is set.
func ProjectID(cfg config.GCPConfig) (string, bool) {
	id := strings.TrimSpace(cfg.ProjectID)
	return id, id != ""
}
