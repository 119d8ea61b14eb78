package object

import (
	"context"
	"io"
)

// Store defines the contract for saving and retrieving blobs at
// caller-chosen keys. Keys are deterministic per analysis
// (raw_csvs/{analysisId}/..., cleaned_csvs/{analysisId}/...), so a
// re-run overwrites rather than accumulates.
type Store interface {
	Save(ctx context.Context, storageKey string, contentType string, r io.Reader) (sizeBytes int64, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}
