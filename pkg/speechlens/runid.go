package speechlens

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// runIDs issues sortable run identifiers.
type runIDs struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newRunIDs() *runIDs {
	return &runIDs{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (r *runIDs) next(at time.Time) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), r.entropy).String()
}
