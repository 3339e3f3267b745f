package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned for unknown or expired file ids
var ErrNotFound = errors.New("file not found")

// DefaultTTL is how long uploads are kept when no TTL is configured
const DefaultTTL = 24 * time.Hour

// Upload is a stored upload. Content holds the bytes as received, so a
// gzip upload stays compressed at rest.
type Upload struct {
	FileID     string    `json:"file_id"`
	Filename   string    `json:"filename"`
	Content    []byte    `json:"content"`
	Compressed bool      `json:"compressed"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the upload has expired at now
func (u *Upload) Expired(now time.Time) bool {
	return !u.ExpiresAt.IsZero() && !now.Before(u.ExpiresAt)
}

// Store keeps uploads addressable by file id until they expire
type Store interface {
	Put(ctx context.Context, upload *Upload) error
	Get(ctx context.Context, fileID string) (*Upload, error)
	Delete(ctx context.Context, fileID string) error
	Ping(ctx context.Context) error
}

// Sweeper is implemented by stores that must delete expired uploads themselves
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// NewFileID derives a content-addressed id: the first 16 hex digits of the
// SHA-256 of content, an underscore and the base filename
func NewFileID(filename string, content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])[:16] + "_" + cleanFilename(filename)
}

func cleanFilename(filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" {
		return "upload"
	}
	return name
}

// stamp fills CreatedAt and ExpiresAt when unset
func stamp(u *Upload, now time.Time, ttl time.Duration) {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	if u.ExpiresAt.IsZero() && ttl > 0 {
		u.ExpiresAt = u.CreatedAt.Add(ttl)
	}
}
