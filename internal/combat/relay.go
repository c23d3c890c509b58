package combat

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/roster"
	"github.com/pixil98/go-gamesync/internal/session"
)

// Session is the part of the session the relay consumes.
type Session interface {
	Events() *session.Events
	PlayerID() string
	IsAuthenticated() bool
	Record() *game.PlayerRecord
	Emit(event string, payload any) bool
	ApplyLocalDamage(amount int) int
}

// Roster is where remote players are looked up and removed.
type Roster interface {
	Get(playerID string) (roster.Player, bool)
	Remove(playerID string) bool
}

// Effects materializes combat events locally (visuals, sounds, UI).
type Effects interface {
	SpawnRemoteSpell(cast protocol.SpellCast)
	LocalDamaged(hit protocol.DamageReceived, health int)
	LocalDied(death protocol.PlayerDied)
	RemoteDied(death protocol.PlayerDied)
}

// NopEffects ignores everything.
type NopEffects struct{}

func (NopEffects) SpawnRemoteSpell(protocol.SpellCast)       {}
func (NopEffects) LocalDamaged(protocol.DamageReceived, int) {}
func (NopEffects) LocalDied(protocol.PlayerDied)             {}
func (NopEffects) RemoteDied(protocol.PlayerDied)            {}

// Relay turns inbound combat events into local effects and local combat
// actions into outbound events. Events the local player originated are
// filtered out. It runs on the update goroutine.
type Relay struct {
	sess    Session
	roster  Roster
	effects Effects
	newID   func() string

	unsubs []func()
}

func NewRelay(sess Session, r Roster, effects Effects, opts ...RelayOpt) *Relay {
	if effects == nil {
		effects = NopEffects{}
	}

	relay := &Relay{
		sess:    sess,
		roster:  r,
		effects: effects,
		newID:   uuid.NewString,
	}

	for _, opt := range opts {
		opt(relay)
	}

	return relay
}

// Start subscribes to the session's combat events.
func (r *Relay) Start() {
	if len(r.unsubs) > 0 {
		return
	}
	ev := r.sess.Events()
	r.unsubs = []func(){
		ev.SpellCasted.Subscribe(r.onSpellCasted),
		ev.DamageReceived.Subscribe(r.onDamageReceived),
		ev.PlayerDied.Subscribe(r.onPlayerDied),
	}
}

func (r *Relay) Stop() {
	for _, u := range r.unsubs {
		u()
	}
	r.unsubs = nil
}

func (r *Relay) onSpellCasted(cast protocol.SpellCast) {
	if cast.CasterID == r.sess.PlayerID() {
		slog.Debug("ignoring echo of local spell", "spell", cast.SpellName, "cast", cast.CastID)
		return
	}
	r.effects.SpawnRemoteSpell(cast)
}

func (r *Relay) onDamageReceived(hit protocol.DamageReceived) {
	if hit.TargetID != r.sess.PlayerID() {
		return
	}

	health := r.sess.ApplyLocalDamage(hit.Damage)
	slog.Info(DescribeDamage(r.nameOf(hit.AttackerID), "you", hit.Damage, hit.Source), "health", health)
	r.effects.LocalDamaged(hit, health)
}

func (r *Relay) onPlayerDied(death protocol.PlayerDied) {
	if death.PlayerID == r.sess.PlayerID() {
		slog.Info("local player died", "killer", r.nameOf(death.KillerID))
		r.effects.LocalDied(death)
		return
	}

	if r.roster != nil {
		r.roster.Remove(death.PlayerID)
	}
	r.effects.RemoteDied(death)
}

// BroadcastSpell emits a local spell cast. It does nothing without a session.
func (r *Relay) BroadcastSpell(cast protocol.SpellCast) bool {
	if !r.sess.IsAuthenticated() {
		slog.Warn("not broadcasting spell without a session", "spell", cast.SpellName)
		return false
	}

	cast.CasterID = r.sess.PlayerID()
	if cast.CasterName == "" {
		if rec := r.sess.Record(); rec != nil {
			cast.CasterName = rec.Username
		}
	}
	if cast.CastID == "" {
		cast.CastID = r.newID()
	}

	return r.sess.Emit(protocol.EventSpellCast, cast)
}

// SendAttack reports damage the local player dealt. It does nothing without a
// session.
func (r *Relay) SendAttack(targetID string, damage int, source string) bool {
	if !r.sess.IsAuthenticated() {
		slog.Warn("not sending attack without a session", "target", targetID)
		return false
	}

	return r.sess.Emit(protocol.EventDamageDealt, protocol.DamageDealt{
		AttackerID: r.sess.PlayerID(),
		TargetID:   targetID,
		Damage:     damage,
		Source:     source,
	})
}

func (r *Relay) nameOf(playerID string) string {
	if r.roster != nil {
		if p, ok := r.roster.Get(playerID); ok && p.Username != "" {
			return p.Username
		}
	}
	return playerID
}
