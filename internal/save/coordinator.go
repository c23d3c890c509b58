package save

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/httpapi"
)

const (
	DefaultCooldown = 3 * time.Second
	DefaultTimeout  = 5 * time.Second
)

// Snapshot is everything needed to persist the player once.
type Snapshot struct {
	PlayerID string
	Token    string
	// Record is marshalled off the update goroutine, so it must not be
	// shared with live state.
	Record any
}

// SnapshotSource reports the current save snapshot; ok is false when there is
// nothing to save (not authenticated).
type SnapshotSource interface {
	SaveSnapshot() (Snapshot, bool)
}

// Requester runs a request in the background and posts done to the update goroutine.
type Requester interface {
	Go(req httpapi.Request, done func(httpapi.Result))
}

type pendingSave struct {
	id      uint64
	started time.Time
	done    func(bool)
}

// Coordinator serializes save requests. At most one save is in flight, and a
// new save is only accepted once the cooldown since the previous accepted
// start has elapsed. All methods run on the update goroutine.
type Coordinator struct {
	requester Requester
	source    SnapshotSource
	poster    dispatch.Poster

	now      func() time.Time
	cooldown time.Duration
	timeout  time.Duration

	lastStart time.Time
	attempts  uint64
	pending   *pendingSave
}

func NewCoordinator(requester Requester, source SnapshotSource, poster dispatch.Poster, opts ...CoordinatorOpt) *Coordinator {
	c := &Coordinator{
		requester: requester,
		source:    source,
		poster:    poster,
		now:       time.Now,
		cooldown:  DefaultCooldown,
		timeout:   DefaultTimeout,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Save requests a save. It returns whether the save was accepted; done is
// called exactly once on a later tick with the outcome. false means retry
// later, never a fatal error.
func (c *Coordinator) Save(done func(bool)) bool {
	now := c.now()

	if reason := c.rejectReason(now); reason != "" {
		slog.Debug("save rejected", "reason", reason)
		c.reject(done)
		return false
	}

	snap, ok := c.source.SaveSnapshot()
	if !ok {
		slog.Debug("save rejected", "reason", "not authenticated")
		c.reject(done)
		return false
	}

	c.attempts++
	id := c.attempts
	c.lastStart = now
	c.pending = &pendingSave{id: id, started: now, done: done}

	c.requester.Go(httpapi.Request{
		Method: http.MethodPost,
		Path:   httpapi.PlayerSavePath(snap.PlayerID),
		Body:   snap.Record,
		Token:  snap.Token,
	}, func(res httpapi.Result) {
		c.complete(id, res)
	})

	return true
}

// CanSave reports whether Save would currently be accepted, ignoring the
// snapshot source.
func (c *Coordinator) CanSave() bool {
	return c.rejectReason(c.now()) == ""
}

// InFlight reports whether a save is waiting for its outcome.
func (c *Coordinator) InFlight() bool {
	return c.pending != nil
}

// LastStart is when the most recent accepted save began.
func (c *Coordinator) LastStart() time.Time {
	return c.lastStart
}

// Tick enforces the save time budget. A save that exceeded it is reported as
// failed and abandoned; its eventual response is ignored.
func (c *Coordinator) Tick(ctx context.Context) error {
	if c.pending == nil {
		return nil
	}
	if c.now().Sub(c.pending.started) < c.timeout {
		return nil
	}

	p := c.pending
	c.pending = nil
	slog.WarnContext(ctx, "save timed out", "attempt", p.id, "timeout", c.timeout)
	if p.done != nil {
		p.done(false)
	}
	return nil
}

func (c *Coordinator) rejectReason(now time.Time) string {
	if c.pending != nil {
		return "save in flight"
	}
	if !c.lastStart.IsZero() && now.Sub(c.lastStart) < c.cooldown {
		return "cooldown"
	}
	return ""
}

func (c *Coordinator) reject(done func(bool)) {
	if done == nil {
		return
	}
	c.poster.Post(func() { done(false) })
}

func (c *Coordinator) complete(id uint64, res httpapi.Result) {
	if c.pending == nil || c.pending.id != id {
		slog.Debug("ignoring late save response", "attempt", id, "success", res.Success)
		return
	}

	p := c.pending
	c.pending = nil

	if !res.Success {
		slog.Warn("save failed", "attempt", id, "kind", res.Kind.String(), "detail", res.Payload())
	}
	if p.done != nil {
		p.done(res.Success)
	}
}
