package order

import (
	"crypto/rand"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
)

const (
	numberPrefix    = "LUX-"
	numberSuffixLen = 5
	numberAlphabet  = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	// DefaultNumberAttempts bounds regeneration after a local collision.
	DefaultNumberAttempts = 8

	// numberFilterCapacity is how many numbers the filter holds before it is
	// cleared. Numbers embed the issue millisecond, so forgetting old ones
	// only drops protection against repeats that can no longer happen.
	numberFilterCapacity = 100_000
	numberFilterFPRate   = 0.001
)

// NumberGenerator issues human-readable order numbers of the form
// LUX-<unix millis>-<5 base36 chars>. Numbers already issued by this process
// are tracked in a bloom filter so a local repeat is regenerated before it
// reaches the database. The filter is cleared every numberFilterCapacity
// numbers to keep its false-positive rate bounded. The unique index remains
// the source of truth.
type NumberGenerator struct {
	mu       sync.Mutex
	issued   *bloom.BloomFilter
	count    uint
	capacity uint
	now      func() time.Time
	rand     io.Reader
	attempts int
}

// NewNumberGenerator creates a generator.
func NewNumberGenerator() *NumberGenerator {
	return newNumberGenerator(numberFilterCapacity)
}

func newNumberGenerator(capacity uint) *NumberGenerator {
	return &NumberGenerator{
		issued:   bloom.NewWithEstimates(capacity, numberFilterFPRate),
		capacity: capacity,
		now:      time.Now,
		rand:     rand.Reader,
		attempts: DefaultNumberAttempts,
	}
}

// Next returns a number not previously issued by this generator.
func (g *NumberGenerator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.count >= g.capacity {
		g.issued.ClearAll()
		g.count = 0
	}
	for range g.attempts {
		n, err := g.candidate()
		if err != nil {
			return "", err
		}
		if !g.issued.TestAndAddString(n) {
			g.count++
			return n, nil
		}
	}
	return "", errors.Wrap(ErrDuplicateNumber, "generator exhausted")
}

func (g *NumberGenerator) candidate() (string, error) {
	var buf [numberSuffixLen]byte
	if _, err := io.ReadFull(g.rand, buf[:]); err != nil {
		return "", errors.Wrap(err, "read random")
	}
	for i, b := range buf {
		buf[i] = numberAlphabet[int(b)%len(numberAlphabet)]
	}
	return numberPrefix + strconv.FormatInt(g.now().UnixMilli(), 10) + "-" + string(buf[:]), nil
}
