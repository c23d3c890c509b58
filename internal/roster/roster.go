package roster

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/session"
)

const (
	// DefaultSmoothing is the exponential approach rate per second.
	DefaultSmoothing = 10.0
	snapDistance     = 0.001
)

// Source is the session as seen by the roster.
type Source interface {
	Events() *session.Events
	PlayerID() string
}

// Player is a remote player as last reported by the backend. Position is the
// smoothed rendering position; Target is the last reported one.
type Player struct {
	ID        string
	Username  string
	House     string
	Position  protocol.Vector3
	Target    protocol.Vector3
	Health    int
	MaxHealth int
	LastSeen  time.Time
}

// Roster tracks the other players sharing the world. It lives on the update
// goroutine.
type Roster struct {
	source    Source
	now       func() time.Time
	smoothing float64

	players  map[string]*Player
	lastTick time.Time
	unsubs   []func()
}

func New(source Source, opts ...RosterOpt) *Roster {
	r := &Roster{
		source:    source,
		now:       time.Now,
		smoothing: DefaultSmoothing,
		players:   map[string]*Player{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Start subscribes to the session's presence events.
func (r *Roster) Start() {
	if len(r.unsubs) > 0 {
		return
	}
	ev := r.source.Events()
	r.unsubs = []func(){
		ev.PlayersList.Subscribe(r.Replace),
		ev.PlayerJoined.Subscribe(r.Upsert),
		ev.PlayerMoved.Subscribe(r.Move),
		ev.PlayerLeft.Subscribe(func(m protocol.PlayerLeft) { r.Remove(m.PlayerID) }),
		ev.AuthStateChanged.Subscribe(func(authed bool) {
			if !authed {
				r.Clear()
			}
		}),
	}
}

func (r *Roster) Stop() {
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}

// Replace swaps the roster for a full snapshot.
func (r *Roster) Replace(list protocol.PlayersList) {
	r.players = map[string]*Player{}
	for _, p := range list.Players {
		r.Upsert(p)
	}
}

// Upsert adds or refreshes a player. The local player is never tracked.
func (r *Roster) Upsert(p protocol.RemotePlayer) {
	if p.PlayerID == "" || p.PlayerID == r.source.PlayerID() {
		return
	}

	now := r.now()
	existing, ok := r.players[p.PlayerID]
	if !ok {
		r.players[p.PlayerID] = &Player{
			ID:        p.PlayerID,
			Username:  p.Username,
			House:     p.House,
			Position:  p.Position,
			Target:    p.Position,
			Health:    p.Health,
			MaxHealth: p.MaxHealth,
			LastSeen:  now,
		}
		return
	}

	if p.Username != "" {
		existing.Username = p.Username
	}
	if p.House != "" {
		existing.House = p.House
	}
	if p.MaxHealth > 0 {
		existing.Health = p.Health
		existing.MaxHealth = p.MaxHealth
	}
	existing.Target = p.Position
	existing.LastSeen = now
}

// Move updates a player's target position.
func (r *Roster) Move(m protocol.PlayerMoved) {
	if m.PlayerID == "" || m.PlayerID == r.source.PlayerID() {
		return
	}
	p, ok := r.players[m.PlayerID]
	if !ok {
		slog.Debug("move for unknown player, adding", "player", m.PlayerID)
		r.Upsert(protocol.RemotePlayer{PlayerID: m.PlayerID, Position: m.Position})
		return
	}
	p.Target = m.Position
	p.LastSeen = r.now()
}

func (r *Roster) Remove(playerID string) bool {
	if _, ok := r.players[playerID]; !ok {
		return false
	}
	delete(r.players, playerID)
	return true
}

func (r *Roster) Clear() {
	r.players = map[string]*Player{}
}

func (r *Roster) Get(playerID string) (Player, bool) {
	p, ok := r.players[playerID]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// Players returns a copy of the roster ordered by id.
func (r *Roster) Players() []Player {
	out := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Roster) Len() int {
	return len(r.players)
}

// Tick eases every rendered position toward its target.
func (r *Roster) Tick(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := r.now()
	if r.lastTick.IsZero() {
		r.lastTick = now
		return nil
	}
	dt := now.Sub(r.lastTick).Seconds()
	r.lastTick = now
	if dt <= 0 {
		return nil
	}

	alpha := 1 - math.Exp(-r.smoothing*dt)
	for _, p := range r.players {
		p.Position = p.Position.Lerp(p.Target, alpha)
		if p.Position.Distance(p.Target) < snapDistance {
			p.Position = p.Target
		}
	}

	return nil
}
