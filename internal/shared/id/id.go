// Package id provides centralized ID generation for the capsule engine.
//
// IDs are prefixed ULIDs: lexicographically sortable, unique across services,
// and readable in logs (cap_*, art_*, run_*, sess_*).
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// CapsuleID identifies a published capsule
type CapsuleID string

// ArtifactID identifies one compiled artifact version
type ArtifactID string

// RunID identifies one boot attempt of a session
type RunID string

// SessionID identifies a runtime session
type SessionID string

const (
	CapsulePrefix  = "cap"
	ArtifactPrefix = "art"
	RunPrefix      = "run"
	SessionPrefix  = "sess"
)

// Generator generates ULIDs with optional prefixes
type Generator struct {
	entropy   io.Reader
	entropyMu sync.Mutex // Protects entropy reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the singleton generator instance
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a new ULID generator
func NewGenerator() *Generator {
	return &Generator{entropy: rand.Reader}
}

// NewGeneratorWithEntropy creates a generator with custom entropy source,
// useful for deterministic tests
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new ULID
func (g *Generator) Generate() ulid.ULID {
	g.entropyMu.Lock()
	defer g.entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// GenerateString creates a new ULID as a string
func (g *Generator) GenerateString() string {
	return g.Generate().String()
}

// GenerateWithPrefix creates a prefixed ULID string
func (g *Generator) GenerateWithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.GenerateString())
}

// NewCapsuleID generates a new capsule ID
func NewCapsuleID() CapsuleID {
	return CapsuleID(Default().GenerateWithPrefix(CapsulePrefix))
}

// NewArtifactID generates a new artifact ID
func NewArtifactID() ArtifactID {
	return ArtifactID(Default().GenerateWithPrefix(ArtifactPrefix))
}

// NewRunID generates a new run ID
func NewRunID() RunID {
	return RunID(Default().GenerateWithPrefix(RunPrefix))
}

// NewSessionID generates a new session ID
func NewSessionID() SessionID {
	return SessionID(Default().GenerateWithPrefix(SessionPrefix))
}

func (id CapsuleID) String() string  { return string(id) }
func (id ArtifactID) String() string { return string(id) }
func (id RunID) String() string      { return string(id) }
func (id SessionID) String() string  { return string(id) }

// IsValid checks if an ID string is a valid ULID
func IsValid(id string) bool {
	_, err := ulid.Parse(id)
	return err == nil
}

// Timestamp extracts the creation time from a ULID string
func Timestamp(id string) (time.Time, error) {
	parsed, err := ulid.Parse(id)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(parsed.Time()), nil
}
