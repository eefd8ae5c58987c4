package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Monotonic entropy keeps IDs created in the same millisecond ordered.
	mono = ulid.Monotonic(rand.New(rand.NewSource(seedFrom(cryptoRand.Reader))), 0)
}

// seedFrom reads a non-zero seed from r, falling back to the clock when r
// fails.
func seedFrom(r io.Reader) int64 {
	var seed int64
	if err := binary.Read(r, binary.LittleEndian, &seed); err != nil || seed == 0 {
		return time.Now().UnixNano()
	}
	return seed
}

// NewPositionID returns a time-sortable ULID string. Open positions keyed by
// these IDs sort in opening order.
func NewPositionID(at time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(at.UTC()), mono)
	if err != nil {
		// Only possible when the clock moves backwards past the monotonic window.
		id = ulid.MustNew(ulid.Now(), mono)
	}
	return id.String()
}

// NewSessionID returns a random identifier for one run of the control loop.
func NewSessionID() string {
	return uuid.NewString()
}
