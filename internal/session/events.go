package session

import (
	"sync"
	"time"

	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/protocol"
)

// Topic is a typed publish/subscribe registry. Publish is only called on the
// update goroutine, so handlers run there too.
type Topic[T any] struct {
	mu   sync.Mutex
	next uint64
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn and returns the func that removes it.
func (t *Topic[T]) Subscribe(fn func(T)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	id := t.next
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { t.remove(id) })
	}
}

func (t *Topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.subs {
		if s.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := t.subs
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Subscribers returns the number of registered handlers.
func (t *Topic[T]) Subscribers() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Events are the application-facing notifications of a Session.
type Events struct {
	AuthStateChanged Topic[bool]
	Connected        Topic[struct{}]
	Disconnected     Topic[error]
	// PlayerDataUpdated carries the live record; handlers must not keep it.
	PlayerDataUpdated Topic[*game.PlayerRecord]
	PlayersList       Topic[protocol.PlayersList]
	PlayerJoined      Topic[protocol.PlayerJoined]
	PlayerMoved       Topic[protocol.PlayerMoved]
	PlayerLeft        Topic[protocol.PlayerLeft]
	SpellCasted       Topic[protocol.SpellCast]
	DamageReceived    Topic[protocol.DamageReceived]
	PlayerDied        Topic[protocol.PlayerDied]
	PingUpdated       Topic[time.Duration]
}

// SubscribeAll forwards every event to fn under a stable name. The returned
// func removes all of the subscriptions.
func (e *Events) SubscribeAll(fn func(name string, payload any)) func() {
	unsubs := []func(){
		forward(&e.AuthStateChanged, "auth_state_changed", fn),
		forward(&e.Connected, "connected", fn),
		e.Disconnected.Subscribe(func(err error) {
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			fn("disconnected", map[string]string{"error": msg})
		}),
		e.PlayerDataUpdated.Subscribe(func(r *game.PlayerRecord) {
			fn("player_data_updated", r.Clone())
		}),
		forward(&e.PlayersList, "players_list", fn),
		forward(&e.PlayerJoined, "player_joined", fn),
		forward(&e.PlayerMoved, "player_moved", fn),
		forward(&e.PlayerLeft, "player_left", fn),
		forward(&e.SpellCasted, "spell_casted", fn),
		forward(&e.DamageReceived, "damage_received", fn),
		forward(&e.PlayerDied, "player_died", fn),
		e.PingUpdated.Subscribe(func(d time.Duration) {
			fn("ping_updated", map[string]int64{"ms": d.Milliseconds()})
		}),
	}

	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func forward[T any](t *Topic[T], name string, fn func(string, any)) func() {
	return t.Subscribe(func(v T) { fn(name, v) })
}
