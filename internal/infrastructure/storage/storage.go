// Package storage provides attachment stores for entry documents.
package storage

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/clinic-ledger/backend/internal/domain/ledger"
	"github.com/clinic-ledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// MaxAttachmentSize bounds a single uploaded document
const MaxAttachmentSize int64 = 20 << 20

var (
	// ErrEmptyKey is returned when an object key is empty
	ErrEmptyKey = errors.New("storage key is required")

	// ErrTooLarge is returned when a body exceeds MaxAttachmentSize
	ErrTooLarge = fmt.Errorf("attachment exceeds %d bytes", MaxAttachmentSize)

	// ErrInvalidRef is returned when a reference was not produced by the store
	ErrInvalidRef = errors.New("invalid attachment reference")

	// ErrNotFound is returned when a reference points to nothing
	ErrNotFound = errors.New("attachment not found")
)

// New returns the attachment store selected by cfg.Driver
func New(cfg config.StorageConfig, logger *zap.Logger) (ledger.AttachmentStore, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3Store(cfg, WithLogger(logger))
	case "memory", "":
		logger.Warn("Using in-memory attachment store; documents are lost on restart")
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// readBounded reads body fully, refusing more than MaxAttachmentSize bytes
func readBounded(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxAttachmentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > MaxAttachmentSize {
		return nil, ErrTooLarge
	}
	return data, nil
}

// splitRef parses "<scheme>://<bucket>/<key>"
func splitRef(ref, scheme string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, scheme+"://")
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return bucket, key, nil
}
