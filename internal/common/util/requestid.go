package util

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"
)

var (
	requestIdMu      sync.Mutex
	requestIdEntropy = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// NewRequestId returns the value sent as X-Request-Id. Ids are ULIDs, so the requests of one
// invocation sort in the order they were sent when backend logs are searched.
func NewRequestId() string {
	requestIdMu.Lock()
	defer requestIdMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), requestIdEntropy).String())
}
