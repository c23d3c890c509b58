package session

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/realtime"
	"github.com/pixil98/go-gamesync/internal/save"
	"github.com/pixil98/go-gamesync/internal/storage"
)

const (
	DefaultPositionInterval = 100 * time.Millisecond
	DefaultPingInterval     = 5 * time.Second
)

var (
	ErrSessionExists    = errors.New("a session is already live in this process")
	ErrNotAuthenticated = errors.New("not authenticated")
)

var live atomic.Bool

type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Requester is the request pipeline as seen by the session.
type Requester interface {
	Do(ctx context.Context, req httpapi.Request) httpapi.Result
	Go(req httpapi.Request, done func(httpapi.Result))
}

// Channel is the real-time connection as seen by the session.
type Channel interface {
	Open(token, playerID string)
	Close()
	On(event string, h realtime.Handler)
	HandleConnect(fn func())
	HandleDisconnect(fn func(error))
	Emit(event string, payload any) bool
}

type CredentialStore interface {
	Save(storage.Credentials) error
	Load() (storage.Credentials, bool, error)
	Clear() error
}

type RecordCache interface {
	Save(id string, r *game.PlayerRecord) error
	Get(id string) (*game.PlayerRecord, bool)
}

// Session owns credentials, identity and the cached player record, and drives
// the real-time channel. Apart from New and Close, every method must be called
// on the update goroutine.
type Session struct {
	requester Requester
	channel   Channel
	poster    dispatch.Poster
	saves     *save.Coordinator
	saveOpts  []save.CoordinatorOpt
	creds     CredentialStore
	records   RecordCache
	fetches   singleflight.Group
	events    Events

	now              func() time.Time
	positionInterval time.Duration
	pingInterval     time.Duration

	state State
	// epoch changes whenever the identity is established or torn down.
	// Completions carrying an older epoch are dropped.
	epoch     uint64
	token     string
	playerID  string
	record    *game.PlayerRecord
	connected bool
	suspended bool
	ping      time.Duration

	localPosition protocol.Vector3
	lastPosition  time.Time
	lastPing      time.Time

	xpDirty bool
	xpSeq   uint64

	closed atomic.Bool
}

// New builds the process-wide session. Only one may be live at a time; Close
// releases it.
func New(requester Requester, channel Channel, poster dispatch.Poster, opts ...SessionOpt) (*Session, error) {
	if requester == nil || channel == nil || poster == nil {
		return nil, fmt.Errorf("requester, channel and poster are required")
	}
	if !live.CompareAndSwap(false, true) {
		return nil, ErrSessionExists
	}

	s := &Session{
		requester:        requester,
		channel:          channel,
		poster:           poster,
		now:              time.Now,
		positionInterval: DefaultPositionInterval,
		pingInterval:     DefaultPingInterval,
	}

	for _, opt := range opts {
		opt(s)
	}

	saveOpts := append([]save.CoordinatorOpt{save.WithClock(s.now)}, s.saveOpts...)
	s.saves = save.NewCoordinator(requester, s, poster, saveOpts...)

	s.registerHandlers()

	return s, nil
}

// Close drops the connection and releases the process-wide slot. Stored
// credentials are kept so the next process can restore the session.
func (s *Session) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	s.channel.Close()
	s.epoch++
	s.connected = false
	live.Store(false)
}

func (s *Session) Events() *Events {
	return &s.events
}

// Saves is the save coordinator; the frame driver ticks it.
func (s *Session) Saves() *save.Coordinator {
	return s.saves
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) IsAuthenticated() bool {
	return s.state == StateAuthenticated
}

func (s *Session) IsConnected() bool {
	return s.connected
}

func (s *Session) Token() string {
	return s.token
}

func (s *Session) PlayerID() string {
	return s.playerID
}

// Record returns the live record or nil. Callers must not keep it past the
// current tick.
func (s *Session) Record() *game.PlayerRecord {
	return s.record
}

// Ping is the last measured round trip time.
func (s *Session) Ping() time.Duration {
	return s.ping
}

func (s *Session) LocalPosition() protocol.Vector3 {
	return s.localPosition
}

// Tick runs once per frame while the process is alive.
func (s *Session) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.state != StateAuthenticated {
		return nil
	}

	now := s.now()
	if s.connected {
		if now.Sub(s.lastPosition) >= s.positionInterval {
			s.SendPositionUpdate()
		}
		if now.Sub(s.lastPing) >= s.pingInterval {
			s.sendPing(now)
		}
	}

	if s.xpDirty && s.saves.CanSave() {
		s.syncXP()
	}

	return nil
}

// reject delivers a failure on a later tick.
func (s *Session) reject(cb httpapi.Callback, msg string) {
	if cb == nil {
		return
	}
	s.poster.Post(func() { cb(false, msg) })
}

func failureMessage(res httpapi.Result) string {
	if res.Kind == httpapi.KindProtocol {
		return httpapi.ErrorMessage(res.Payload())
	}
	return res.Payload()
}
