// Package storage provides access to the S3-compatible object store holding
// source uploads and published streaming outputs.
package storage

import "context"

// ObjectStore is the narrow object storage contract the pipeline needs:
// downloads read a single key, uploads write one key per artifact.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key, localPath string) error
	Upload(ctx context.Context, localPath, bucket, key string) error
}
