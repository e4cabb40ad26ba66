// Package artifact stores compiled capsule bundles. Content is digest
// addressed and held zstd-compressed; identical bundles dedupe to one
// artifact.
package artifact

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/klauspost/compress/zstd"

	"github.com/capsulehq/capsuled/internal/shared/digest"
	"github.com/capsulehq/capsuled/internal/shared/id"
)

var (
	// ErrNotFound is returned when no artifact exists for the id.
	ErrNotFound = errors.New("artifact not found")

	// ErrEmpty is returned for zero-byte bundles.
	ErrEmpty = errors.New("bundle is empty")

	// ErrTooLarge is returned when a bundle exceeds the store ceiling.
	ErrTooLarge = errors.New("bundle exceeds size ceiling")
)

// Meta describes one stored artifact.
type Meta struct {
	ID             id.ArtifactID `json:"id"`
	Digest         string        `json:"digest"`
	Size           int64         `json:"size"`
	CompressedSize int64         `json:"compressedSize"`
	ContentType    string        `json:"contentType"`
	CreatedAt      time.Time     `json:"createdAt"`
}

type entry struct {
	meta       Meta
	compressed []byte
}

// Store is an in-memory artifact store.
type Store struct {
	mu       sync.RWMutex
	byID     map[id.ArtifactID]*entry
	byDigest map[string]id.ArtifactID
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
	hasher   *digest.Hasher
	maxBytes int64
}

// NewStore creates a store that rejects bundles larger than maxBytes.
func NewStore(maxBytes int64) (*Store, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Store{
		byID:     make(map[id.ArtifactID]*entry),
		byDigest: make(map[string]id.ArtifactID),
		encoder:  encoder,
		decoder:  decoder,
		hasher:   digest.DefaultHasher(),
		maxBytes: maxBytes,
	}, nil
}

// Put stores a bundle and returns its metadata. Storing content already
// present returns the existing artifact's metadata unchanged.
func (s *Store) Put(data []byte) (Meta, error) {
	if len(data) == 0 {
		return Meta{}, ErrEmpty
	}
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return Meta{}, fmt.Errorf("%w: %d bytes, ceiling %d", ErrTooLarge, len(data), s.maxBytes)
	}

	sum := s.hasher.Sum(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byDigest[sum]; ok {
		return s.byID[existing].meta, nil
	}

	compressed := s.encoder.EncodeAll(data, make([]byte, 0, len(data)/2))
	meta := Meta{
		ID:             id.NewArtifactID(),
		Digest:         sum,
		Size:           int64(len(data)),
		CompressedSize: int64(len(compressed)),
		ContentType:    mimetype.Detect(data).String(),
		CreatedAt:      time.Now(),
	}
	s.byID[meta.ID] = &entry{meta: meta, compressed: compressed}
	s.byDigest[sum] = meta.ID
	return meta, nil
}

// Get returns the decompressed bundle and its metadata.
func (s *Store) Get(artifactID id.ArtifactID) ([]byte, Meta, error) {
	s.mu.RLock()
	e, ok := s.byID[artifactID]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, ErrNotFound
	}

	data, err := s.decoder.DecodeAll(e.compressed, nil)
	if err != nil {
		return nil, Meta{}, fmt.Errorf("failed to decompress artifact %s: %w", artifactID, err)
	}
	if !s.hasher.Verify(data, e.meta.Digest) {
		return nil, Meta{}, fmt.Errorf("artifact %s failed digest verification (%s)", artifactID, digest.Short(e.meta.Digest))
	}
	return data, e.meta, nil
}

// Head returns metadata without decompressing the content.
func (s *Store) Head(artifactID id.ArtifactID) (Meta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[artifactID]
	if !ok {
		return Meta{}, false
	}
	return e.meta, true
}

// Delete removes an artifact. Unknown ids are a no-op.
func (s *Store) Delete(artifactID id.ArtifactID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.byID[artifactID]; ok {
		delete(s.byDigest, e.meta.Digest)
		delete(s.byID, artifactID)
	}
}

// Stats returns store statistics for monitoring.
func (s *Store) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var raw, compressed int64
	for _, e := range s.byID {
		raw += e.meta.Size
		compressed += e.meta.CompressedSize
	}
	return map[string]interface{}{
		"artifacts":        len(s.byID),
		"raw_bytes":        raw,
		"compressed_bytes": compressed,
		"max_bundle_bytes": s.maxBytes,
	}
}
