package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

var ErrBlobNotFound = errors.New("blob not found")

// 5 MiB, matches the largest profile or story image the client sends.
const maxBlobSize = 5 << 20

// BlobStorage persists uploaded binary objects keyed by path.
type BlobStorage interface {
	Put(ctx context.Context, path string, data []byte) error
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// PGBlobs keeps blobs in Postgres.
type PGBlobs struct {
	db *sqlx.DB
}

var _ BlobStorage = (*PGBlobs)(nil)

func NewPGBlobs(db *sqlx.DB) *PGBlobs {
	return &PGBlobs{db: db}
}

func (b *PGBlobs) Put(ctx context.Context, path string, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO blobs (path, data, created_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data`,
		path, data)
	if err != nil {
		return fmt.Errorf("store blob %s: %w", path, err)
	}
	return nil
}

func (b *PGBlobs) Fetch(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := b.db.GetContext(ctx, &data, "SELECT data FROM blobs WHERE path = $1", path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load blob %s: %w", path, err)
	}
	return data, nil
}

// MemBlobs keeps blobs in memory. Used when no database is configured,
// and in tests.
type MemBlobs struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

var _ BlobStorage = (*MemBlobs)(nil)

func NewMemBlobs() *MemBlobs {
	return &MemBlobs{objects: make(map[string][]byte)}
}

func (b *MemBlobs) Put(ctx context.Context, path string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)
	b.mu.Lock()
	b.objects[path] = buf
	b.mu.Unlock()
	return nil
}

func (b *MemBlobs) Fetch(ctx context.Context, path string) ([]byte, error) {
	b.mu.RLock()
	data, ok := b.objects[path]
	b.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return data, nil
}

// handleUploadBlob stores the raw request body under the path query
// parameter and echoes the handle back.
func (s *Server) handleUploadBlob(c *gin.Context) {
	path := c.Query("path")
	if path == "" || strings.Contains(path, "..") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid blob path"})
		return
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBlobSize+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return
	}
	if len(data) > maxBlobSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "blob too large"})
		return
	}

	if err := s.blobs.Put(c.Request.Context(), path, data); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store blob"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"handle": path})
}

func (s *Server) handleFetchBlob(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")

	data, err := s.blobs.Fetch(c.Request.Context(), path)
	if errors.Is(err, ErrBlobNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "blob not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load blob"})
		return
	}

	c.Data(http.StatusOK, http.DetectContentType(data), data)
}
