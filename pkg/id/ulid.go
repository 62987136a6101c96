package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator generates Universally Unique Lexicographically Sortable
// Identifiers backed by oklog/ulid with monotonic entropy, so IDs produced
// within the same millisecond still sort in generation order.
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// ULIDOption is a functional option for ULIDGenerator.
type ULIDOption func(*ULIDGenerator)

// WithULIDReader sets a custom random reader for ULID generation.
func WithULIDReader(r io.Reader) ULIDOption {
	return func(g *ULIDGenerator) {
		g.entropy = ulid.Monotonic(r, 0)
	}
}

// NewULIDGenerator creates a ULID generator with cryptographic randomness.
func NewULIDGenerator(opts ...ULIDOption) *ULIDGenerator {
	g := &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate creates a new ULID string (26 characters, Crockford Base32).
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateN creates n ULID strings.
func (g *ULIDGenerator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := 0; i < n; i++ {
		ids[i] = g.Generate()
	}
	return ids
}

// ULID represents a parsed ULID.
type ULID struct {
	raw ulid.ULID
}

// ParseULID parses a ULID string.
func ParseULID(s string) (ULID, error) {
	raw, err := ulid.ParseStrict(s)
	if err != nil {
		return ULID{}, ErrInvalidULID
	}
	return ULID{raw: raw}, nil
}

// String returns the ULID string.
func (u ULID) String() string {
	return u.raw.String()
}

// Time returns the time when this ULID was generated.
func (u ULID) Time() time.Time {
	return time.UnixMilli(int64(u.raw.Time()))
}

// Timestamp returns the Unix timestamp in milliseconds.
func (u ULID) Timestamp() int64 {
	return int64(u.raw.Time())
}

// IsValidULID checks if a string is a valid ULID format.
func IsValidULID(s string) bool {
	_, err := ParseULID(s)
	return err == nil
}
