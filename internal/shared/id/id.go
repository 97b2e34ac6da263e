// Package id generates the identifiers the device-session layer attaches to
// its own artifacts.
//
// Identifiers are prefixed ULIDs so they sort by creation time and read well
// in logs:
//
//	round_01HZY3...   one tracker poll round
//	sub_01HZY3...     one event subscription
//	conn_01HZY3...    one inspection stream connection
package id

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RoundID identifies one poll round of an application tracker.
type RoundID string

// SubscriptionID identifies an event subscription.
type SubscriptionID string

// ConnectionID identifies a stream client connection.
type ConnectionID string

const (
	RoundPrefix        = "round"
	SubscriptionPrefix = "sub"
	ConnectionPrefix   = "conn"
)

func (id RoundID) String() string        { return string(id) }
func (id SubscriptionID) String() string { return string(id) }
func (id ConnectionID) String() string   { return string(id) }

// Generator produces monotonic ULIDs.
type Generator struct {
	mu      sync.Mutex
	entropy io.Reader
}

var (
	defaultGenerator *Generator
	once             sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	once.Do(func() {
		defaultGenerator = NewGenerator()
	})
	return defaultGenerator
}

// NewGenerator creates a generator backed by crypto/rand with monotonic
// ordering inside the same millisecond.
func NewGenerator() *Generator {
	return NewGeneratorWithEntropy(ulid.Monotonic(rand.Reader, 0))
}

// NewGeneratorWithEntropy creates a generator with a caller supplied entropy
// source, for deterministic tests.
func NewGeneratorWithEntropy(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate returns a new ULID.
func (g *Generator) Generate() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
}

// WithPrefix returns "<prefix>_<ulid>".
func (g *Generator) WithPrefix(prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, g.Generate().String())
}

// NewRoundID generates a poll round ID.
func NewRoundID() RoundID {
	return RoundID(Default().WithPrefix(RoundPrefix))
}

// NewSubscriptionID generates a subscription ID.
func NewSubscriptionID() SubscriptionID {
	return SubscriptionID(Default().WithPrefix(SubscriptionPrefix))
}

// NewConnectionID generates a stream connection ID.
func NewConnectionID() ConnectionID {
	return ConnectionID(Default().WithPrefix(ConnectionPrefix))
}

// Split separates a prefixed ID into its prefix and ULID parts.
func Split(prefixed string) (prefix string, value ulid.ULID, err error) {
	prefix, raw, ok := strings.Cut(prefixed, "_")
	if !ok {
		return "", ulid.ULID{}, fmt.Errorf("missing prefix separator: %q", prefixed)
	}
	value, err = ulid.Parse(raw)
	if err != nil {
		return "", ulid.ULID{}, fmt.Errorf("invalid ulid in %q: %w", prefixed, err)
	}
	return prefix, value, nil
}

// Timestamp extracts the creation time of a prefixed ID.
func Timestamp(prefixed string) (time.Time, error) {
	_, value, err := Split(prefixed)
	if err != nil {
		return time.Time{}, err
	}
	return ulid.Time(value.Time()), nil
}
