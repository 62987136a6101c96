package id

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// UUIDGenerator produces random (version 4) UUID strings.
type UUIDGenerator struct {
	reader io.Reader
}

// UUIDOption configures a UUIDGenerator.
type UUIDOption func(*UUIDGenerator)

// WithReader overrides the entropy source, mainly for deterministic tests.
func WithReader(r io.Reader) UUIDOption {
	return func(g *UUIDGenerator) { g.reader = r }
}

// NewUUIDGenerator returns a generator backed by crypto/rand.
func NewUUIDGenerator(opts ...UUIDOption) *UUIDGenerator {
	g := &UUIDGenerator{reader: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns a UUID v4 string. It panics only if the entropy source
// fails, which crypto/rand does not do in practice.
func (g *UUIDGenerator) Generate() string {
	s, err := g.GenerateE()
	if err != nil {
		panic("id: failed to generate UUID: " + err.Error())
	}
	return s
}

// GenerateE is the error-returning variant of Generate.
func (g *UUIDGenerator) GenerateE() (string, error) {
	var raw [16]byte
	if _, err := io.ReadFull(g.reader, raw[:]); err != nil {
		return "", err
	}

	raw[6] = (raw[6] & 0x0f) | 0x40 // version 4
	raw[8] = (raw[8] & 0x3f) | 0x80 // RFC 4122 variant

	return formatUUID(raw), nil
}

// GenerateN returns n fresh UUIDs.
func (g *UUIDGenerator) GenerateN(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = g.Generate()
	}
	return ids
}

// uuidDashes marks the dash positions in the canonical 36-char form.
var uuidDashes = [4]int{8, 13, 18, 23}

func formatUUID(raw [16]byte) string {
	buf := make([]byte, 36)
	hex.Encode(buf[0:8], raw[0:4])
	hex.Encode(buf[9:13], raw[4:6])
	hex.Encode(buf[14:18], raw[6:8])
	hex.Encode(buf[19:23], raw[8:10])
	hex.Encode(buf[24:36], raw[10:16])
	for _, i := range uuidDashes {
		buf[i] = '-'
	}
	return string(buf)
}

// ParseUUID decodes a canonical UUID string into its 16 bytes.
func ParseUUID(s string) ([16]byte, error) {
	var raw [16]byte
	if len(s) != 36 {
		return raw, ErrInvalidUUID
	}
	for _, i := range uuidDashes {
		if s[i] != '-' {
			return raw, ErrInvalidUUID
		}
	}
	b, err := hex.DecodeString(s[0:8] + s[9:13] + s[14:18] + s[19:23] + s[24:36])
	if err != nil {
		return raw, ErrInvalidUUID
	}
	copy(raw[:], b)
	return raw, nil
}

// IsValidUUID reports whether s is a canonical UUID string.
func IsValidUUID(s string) bool {
	_, err := ParseUUID(s)
	return err == nil
}
