package outbox

import (
	"errors"
	"time"

	"github.com/goccy/go-json"
)

// ErrSnapshotNotPrefix reports that the live queue no longer starts with what
// is left of the delivered snapshot. The outbox keeps the queue as is and the
// delivered events will be sent again.
var ErrSnapshotNotPrefix = errors.New("flushed snapshot is not a prefix of the queue")

// Reason explains why a flush did not deliver.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonInProgress     Reason = "in-progress"
	ReasonOffline        Reason = "offline"
	ReasonMissingConfig  Reason = "missing-config"
	ReasonDeliveryFailed Reason = "delivery-failed"
)

// EnqueueResult describes the queue after an Enqueue. PersistErr is set when
// the durable mirror could not be written; the event is still queued.
type EnqueueResult struct {
	Size       int
	Evicted    int
	PersistErr error
}

// FlushResult is the outcome of one Flush call.
type FlushResult struct {
	OK     bool
	Count  int
	Reason Reason
	Err    error
	At     time.Time
}

// Outcome is the metric label for the result.
func (r FlushResult) Outcome() string {
	if r.OK {
		return "ok"
	}
	return string(r.Reason)
}

func (r FlushResult) MarshalJSON() ([]byte, error) {
	out := struct {
		OK     bool      `json:"ok"`
		Count  int       `json:"count"`
		Reason Reason    `json:"reason,omitempty"`
		Error  string    `json:"error,omitempty"`
		At     time.Time `json:"at"`
	}{OK: r.OK, Count: r.Count, Reason: r.Reason, At: r.At}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// ClearResult reports how many events Clear dropped.
type ClearResult struct {
	Cleared    int
	PersistErr error
}
