// Package rowsource describes read-only query execution against the
// relational store.
package rowsource

import (
	"context"
	"errors"
)

// Row maps column names to decoded values. Text columns holding a JSON array
// or object are decoded into []any or map[string]any.
type Row map[string]any

var ErrInvalidIdentifier = errors.New("invalid sql identifier")

type Source interface {
	QueryReadOnly(ctx context.Context, query string, args ...any) ([]Row, error)
}
