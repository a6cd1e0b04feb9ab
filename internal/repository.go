package internal

import (
	"context"
	"io"
)

// Repository is an archive destination for finished report files.
type Repository interface {
	Write(ctx context.Context, key string, reader io.Reader) error
}
