// Package search manages the per-dataset search index.
package search

import "context"

// Index creates and drops the search index backing one dataset.
type Index interface {
	Create(ctx context.Context, dataset string) error
	Delete(ctx context.Context, dataset string) error
}
