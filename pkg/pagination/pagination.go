// Package pagination implements keyset pages ordered newest first by
// (created_at, id). Cursors are opaque, URL-safe strings.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var errMalformedCursor = errors.New("malformed cursor")

type Params struct {
	Limit  int
	Cursor string
}

// Size is the page size after applying the default and the cap.
func (p Params) Size() int {
	switch {
	case p.Limit <= 0:
		return DefaultLimit
	case p.Limit > MaxLimit:
		return MaxLimit
	default:
		return p.Limit
	}
}

// Cursor points at the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt.UnixNano(), 10) + "." + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a cursor produced by Encode. A blank value means the first
// page and yields nil.
func Decode(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errMalformedCursor
	}
	nanos, id, ok := strings.Cut(string(raw), ".")
	if !ok {
		return nil, errMalformedCursor
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp", errMalformedCursor)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: id", errMalformedCursor)
	}
	return &Cursor{CreatedAt: time.Unix(0, ts).UTC(), ID: parsed}, nil
}

// Keyset restricts and orders a query on table so it returns the page after
// c, plus one extra row used to detect whether another page exists.
func Keyset(table string, c *Cursor, size int) func(*gorm.DB) *gorm.DB {
	createdAt, id := table+".created_at", table+".id"
	return func(q *gorm.DB) *gorm.DB {
		if c != nil {
			q = q.Where("("+createdAt+" < ?) OR ("+createdAt+" = ? AND "+id+" < ?)", c.CreatedAt, c.CreatedAt, c.ID)
		}
		return q.Order(createdAt + " DESC").Order(id + " DESC").Limit(size + 1)
	}
}

// Split drops the probe row fetched by Keyset and returns the cursor for the
// following page, or nil on the last page.
func Split[T any](rows []T, size int, key func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= size {
		return rows, nil
	}
	next := key(rows[size-1])
	return rows[:size], &next
}
