package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/protocol"
)

func TestNew_OneLiveSession(t *testing.T) {
	h := newHarness(t)

	_, err := New(h.req, newFakeChannel(), dispatch.NewQueue())
	if !errors.Is(err, ErrSessionExists) {
		t.Fatalf("expected ErrSessionExists, got %v", err)
	}

	h.s.Close()
	h.s.Close()

	again, err := New(h.req, newFakeChannel(), dispatch.NewQueue())
	if err != nil {
		t.Fatalf("unexpected error after close: %v", err)
	}
	again.Close()
}

func TestLogin_Scenario(t *testing.T) {
	h := newHarness(t)
	h.req.respond(http.MethodPost, httpapi.PathLogin, ok(loginBody))
	h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"), ok(recordBody))

	var order []string
	h.s.Events().AuthStateChanged.Subscribe(func(authed bool) {
		if authed {
			order = append(order, "authenticated")
		}
	})
	h.s.Events().PlayerDataUpdated.Subscribe(func(*game.PlayerRecord) {
		order = append(order, "record")
	})
	h.s.Events().Connected.Subscribe(func(struct{}) {
		order = append(order, "connected")
	})

	var gotOK bool
	var gotMsg string
	called := false
	h.s.Login("harry", "hunter2", func(success bool, msg string) {
		called, gotOK, gotMsg = true, success, msg
		order = append(order, "callback")
	})

	testutil.AssertEqual(t, "state while waiting", h.s.State(), StateAuthenticating)

	h.drainUntil(func() bool { return called })
	testutil.AssertEqual(t, "ok", gotOK, true)
	testutil.AssertEqual(t, "message", gotMsg, "Login successful")
	testutil.AssertEqual(t, "token", h.s.Token(), "tok1")
	testutil.AssertEqual(t, "player id", h.s.PlayerID(), "p1")
	testutil.AssertEqual(t, "house", h.s.Record().House, "Gryffindor")
	testutil.AssertEqual(t, "experience", h.s.Record().Experience, 0)

	if len(h.ch.opens) != 1 || h.ch.opens[0] != "tok1/p1" {
		t.Fatalf("expected one channel open with tok1/p1, got %v", h.ch.opens)
	}

	h.ch.connect()
	testutil.AssertEqual(t, "connected", h.s.IsConnected(), true)

	joins := h.ch.emittedNamed(protocol.EventPlayerJoin)
	if len(joins) != 1 {
		t.Fatalf("expected one join, got %d", len(joins))
	}
	join := joins[0].payload.(protocol.PlayerJoin)
	testutil.AssertEqual(t, "join player", join.PlayerID, "p1")
	testutil.AssertEqual(t, "join username", join.Username, "harry")
	testutil.AssertEqual(t, "join house", join.House, "Gryffindor")

	testutil.AssertEqual(t, "event order", strings.Join(order, ","), "authenticated,record,callback,connected")

	stored, found, err := h.creds.Load()
	if err != nil {
		t.Fatalf("loading credentials: %v", err)
	}
	testutil.AssertEqual(t, "stored", found, true)
	testutil.AssertEqual(t, "stored token", stored.Token, "tok1")

	cached, found := h.records.Get("p1")
	testutil.AssertEqual(t, "record cached", found, true)
	testutil.AssertEqual(t, "cached house", cached.House, "Gryffindor")
}

func TestLogin_FailureLeavesStateClean(t *testing.T) {
	tests := map[string]struct {
		res    httpapi.Result
		expMsg string
	}{
		"bad credentials": {
			res:    status(http.StatusUnauthorized, `{"message":"Invalid credentials"}`),
			expMsg: "Invalid credentials",
		},
		"rate limited": {
			res:    httpapi.Result{StatusCode: http.StatusTooManyRequests, Kind: httpapi.KindRateLimited},
			expMsg: httpapi.RateLimitedMessage,
		},
		"transport": {
			res:    httpapi.Result{Kind: httpapi.KindTransport, Detail: "Network error: connection refused"},
			expMsg: "Network error: connection refused",
		},
		"missing token": {
			res:    ok(`{"playerId":"p1"}`),
			expMsg: "missing token",
		},
		"not json": {
			res:    ok(`<html>`),
			expMsg: "decoding login response",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.req.respond(http.MethodPost, httpapi.PathLogin, tt.res)

			authEvents := 0
			h.s.Events().AuthStateChanged.Subscribe(func(bool) { authEvents++ })

			called := false
			var gotOK bool
			var gotMsg string
			h.s.Login("harry", "wrong", func(success bool, msg string) {
				called, gotOK, gotMsg = true, success, msg
			})
			h.drainUntil(func() bool { return called })

			testutil.AssertEqual(t, "ok", gotOK, false)
			if !strings.Contains(gotMsg, tt.expMsg) {
				t.Errorf("message %q does not contain %q", gotMsg, tt.expMsg)
			}
			testutil.AssertEqual(t, "state", h.s.State(), StateDisconnected)
			testutil.AssertEqual(t, "token", h.s.Token(), "")
			testutil.AssertEqual(t, "player id", h.s.PlayerID(), "")
			testutil.AssertEqual(t, "authenticated", h.s.IsAuthenticated(), false)
			testutil.AssertEqual(t, "has record", h.s.Record() == nil, true)
			testutil.AssertEqual(t, "channel opens", len(h.ch.opens), 0)
			testutil.AssertEqual(t, "auth events", authEvents, 0)
		})
	}
}

func TestLogin_Rejections(t *testing.T) {
	h := newHarness(t)
	h.req.hold(http.MethodPost, httpapi.PathLogin)

	h.s.Login("harry", "hunter2", nil)

	var msgs []string
	h.s.Login("harry", "hunter2", func(success bool, msg string) {
		testutil.AssertEqual(t, "ok", success, false)
		msgs = append(msgs, msg)
	})
	testutil.AssertEqual(t, "not synchronous", len(msgs), 0)

	h.drainUntil(func() bool { return len(msgs) == 1 })
	testutil.AssertEqual(t, "message", msgs[0], "login already in progress")
	testutil.AssertEqual(t, "login requests", h.req.count(http.MethodPost, httpapi.PathLogin), 1)
}

func TestLogin_LogoutCancelsPendingLogin(t *testing.T) {
	h := newHarness(t)
	h.req.respond(http.MethodPost, httpapi.PathLogin, ok(loginBody))

	var gotMsg string
	called := false
	h.s.Login("harry", "hunter2", func(success bool, msg string) {
		called = true
		gotMsg = msg
		testutil.AssertEqual(t, "ok", success, false)
	})
	h.s.Logout()

	h.drainUntil(func() bool { return called })
	testutil.AssertEqual(t, "message", gotMsg, "login cancelled")
	testutil.AssertEqual(t, "state", h.s.State(), StateDisconnected)
	testutil.AssertEqual(t, "token", h.s.Token(), "")
}

func TestRegister(t *testing.T) {
	tests := map[string]struct {
		registerRes httpapi.Result
		expOK       bool
		expLogins   int
	}{
		"registration fails": {
			registerRes: status(http.StatusConflict, `{"error":"username taken"}`),
			expLogins:   0,
		},
		"registration then login": {
			registerRes: ok(`{"success":true}`),
			expOK:       true,
			expLogins:   1,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.req.respond(http.MethodPost, httpapi.PathRegister, tt.registerRes)
			h.req.respond(http.MethodPost, httpapi.PathLogin, ok(loginBody))
			h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"), ok(recordBody))

			called := false
			var gotOK bool
			h.s.Register("harry", "hunter2", "harry@hogwarts.edu", "gryffindor", func(success bool, _ string) {
				called, gotOK = true, success
			})
			h.drainUntil(func() bool { return called })

			testutil.AssertEqual(t, "ok", gotOK, tt.expOK)
			testutil.AssertEqual(t, "login requests", h.req.count(http.MethodPost, httpapi.PathLogin), tt.expLogins)
			testutil.AssertEqual(t, "authenticated", h.s.IsAuthenticated(), tt.expOK)
		})
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login()

	var events []string
	h.s.Events().Disconnected.Subscribe(func(error) { events = append(events, "disconnected") })
	h.s.Events().AuthStateChanged.Subscribe(func(authed bool) {
		if !authed {
			events = append(events, "logged out")
		}
	})

	h.s.Logout()
	h.s.Logout()

	testutil.AssertEqual(t, "state", h.s.State(), StateDisconnected)
	testutil.AssertEqual(t, "token", h.s.Token(), "")
	testutil.AssertEqual(t, "player id", h.s.PlayerID(), "")
	testutil.AssertEqual(t, "record cleared", h.s.Record() == nil, true)
	testutil.AssertEqual(t, "connected", h.s.IsConnected(), false)
	testutil.AssertEqual(t, "channel closes", h.ch.closes, 1)
	testutil.AssertEqual(t, "events", strings.Join(events, ","), "disconnected,logged out")

	_, found, err := h.creds.Load()
	if err != nil {
		t.Fatalf("loading credentials: %v", err)
	}
	testutil.AssertEqual(t, "credentials cleared", found, false)
}

func TestRestoreSession(t *testing.T) {
	tests := map[string]struct {
		fetch        httpapi.Result
		expOK        bool
		expAuthed    bool
		expOpens     int
		expCredsKept bool
	}{
		"valid token": {
			fetch:        ok(recordBody),
			expOK:        true,
			expAuthed:    true,
			expOpens:     1,
			expCredsKept: true,
		},
		"expired token": {
			fetch: status(http.StatusUnauthorized, `{"message":"token expired"}`),
		},
		"backend down keeps session": {
			fetch:        httpapi.Result{Kind: httpapi.KindTransport, Detail: "Network error: refused"},
			expOK:        true,
			expAuthed:    true,
			expOpens:     1,
			expCredsKept: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			if err := h.creds.Save(storageCreds("tok1", "p1")); err != nil {
				t.Fatalf("saving credentials: %v", err)
			}
			h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"), tt.fetch)

			called := false
			var gotOK bool
			h.s.RestoreSession(func(success bool, _ string) {
				called, gotOK = true, success
			})
			h.drainUntil(func() bool { return called })

			testutil.AssertEqual(t, "ok", gotOK, tt.expOK)
			testutil.AssertEqual(t, "authenticated", h.s.IsAuthenticated(), tt.expAuthed)
			testutil.AssertEqual(t, "opens", len(h.ch.opens), tt.expOpens)

			_, found, err := h.creds.Load()
			if err != nil {
				t.Fatalf("loading credentials: %v", err)
			}
			testutil.AssertEqual(t, "credentials kept", found, tt.expCredsKept)
		})
	}
}

func TestRestoreSession_NothingStored(t *testing.T) {
	h := newHarness(t)

	called := false
	h.s.RestoreSession(func(success bool, msg string) {
		called = true
		testutil.AssertEqual(t, "ok", success, false)
		testutil.AssertEqual(t, "message", msg, "no stored session")
	})
	h.drainUntil(func() bool { return called })
	testutil.AssertEqual(t, "opens", len(h.ch.opens), 0)
}

func TestLoadPlayerRecord(t *testing.T) {
	tests := map[string]struct {
		fetch      httpapi.Result
		expOK      bool
		expXP      int
		expUpdates int
	}{
		"replaces cache": {
			fetch:      ok(`{"id":"p1","username":"harry","house":"Gryffindor","experience":300}`),
			expOK:      true,
			expXP:      300,
			expUpdates: 1,
		},
		"schema violation keeps cache": {
			fetch: ok(`{"player":{"username":"harry","experience":"lots"}}`),
			expXP: 0,
		},
		"garbage keeps cache": {
			fetch: ok(`{not json`),
			expXP: 0,
		},
		"other player's record is refused": {
			fetch: ok(`{"id":"p2","username":"ron"}`),
			expXP: 0,
		},
		"server error keeps cache": {
			fetch: status(http.StatusInternalServerError, ""),
			expXP: 0,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			h.login()
			h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"), tt.fetch)

			updates := 0
			h.s.Events().PlayerDataUpdated.Subscribe(func(*game.PlayerRecord) { updates++ })

			called := false
			var gotOK bool
			h.s.LoadPlayerRecord(func(success bool, _ string) {
				called, gotOK = true, success
			})
			h.drainUntil(func() bool { return called })

			testutil.AssertEqual(t, "ok", gotOK, tt.expOK)
			testutil.AssertEqual(t, "experience", h.s.Record().Experience, tt.expXP)
			testutil.AssertEqual(t, "updates", updates, tt.expUpdates)
			testutil.AssertEqual(t, "username kept", h.s.Record().Username, "harry")
			if h.s.Record().Inventory == nil || h.s.Record().Flags == nil {
				t.Error("expected collections to be initialized")
			}
		})
	}
}

func TestLoadPlayerRecord_Unauthenticated(t *testing.T) {
	h := newHarness(t)

	called := false
	h.s.LoadPlayerRecord(func(success bool, msg string) {
		called = true
		testutil.AssertEqual(t, "ok", success, false)
		testutil.AssertEqual(t, "message", msg, ErrNotAuthenticated.Error())
	})
	testutil.AssertEqual(t, "not synchronous", called, false)

	h.drainUntil(func() bool { return called })
	testutil.AssertEqual(t, "requests", len(h.req.calls), 0)
}

func TestLoadPlayerRecord_FillsMissingID(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"),
		ok(`{"player":{"username":"harry","house":"Gryffindor","level":3,"experience":250}}`))

	called := false
	var gotOK bool
	var gotMsg string
	h.s.LoadPlayerRecord(func(success bool, msg string) {
		called, gotOK, gotMsg = true, success, msg
	})
	h.drainUntil(func() bool { return called })

	testutil.AssertEqual(t, "ok", gotOK, true)
	testutil.AssertEqual(t, "message", gotMsg, "Player record loaded")
	testutil.AssertEqual(t, "id", h.s.Record().ID, "p1")
	testutil.AssertEqual(t, "level", h.s.Record().Level, 3)
	testutil.AssertEqual(t, "experience", h.s.Record().Experience, 250)

	cached, found := h.records.Get("p1")
	if !found {
		t.Fatal("expected record to be cached")
	}
	testutil.AssertEqual(t, "cached id", cached.ID, "p1")
	testutil.AssertEqual(t, "cached experience", cached.Experience, 250)
}

func TestLoadPlayerRecord_ReloginStartsFreshFetch(t *testing.T) {
	h := newHarness(t)
	h.login()

	release := h.req.gate("tok1")
	staleCalled := false
	var staleOK bool
	h.s.LoadPlayerRecord(func(success bool, _ string) {
		staleCalled, staleOK = true, success
	})
	h.s.Logout()

	h.req.respond(http.MethodPost, httpapi.PathLogin, ok(`{"token":"tok2","playerId":"p1","username":"harry"}`))
	h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"),
		ok(`{"player":{"id":"p1","username":"harry","level":3,"experience":250}}`))

	loggedIn := false
	h.s.Login("harry", "hunter2", func(success bool, msg string) {
		if !success {
			t.Errorf("login failed: %s", msg)
		}
		loggedIn = true
	})
	h.drainUntil(func() bool { return loggedIn })

	testutil.AssertEqual(t, "token", h.s.Token(), "tok2")
	testutil.AssertEqual(t, "experience", h.s.Record().Experience, 250)

	release()
	h.drainUntil(func() bool { return staleCalled })
	testutil.AssertEqual(t, "stale fetch ok", staleOK, false)
	testutil.AssertEqual(t, "experience after stale fetch", h.s.Record().Experience, 250)
}

func TestAddXP_Scenario(t *testing.T) {
	h := newHarness(t)
	h.login()
	savePath := httpapi.PlayerSavePath("p1")

	h.s.AddXP(25)
	h.tick()
	h.clock.Advance(time.Second)
	h.s.AddXP(25)
	h.tick()
	h.clock.Advance(900 * time.Millisecond)
	h.tick()

	testutil.AssertEqual(t, "experience", h.s.Record().Experience, 50)
	testutil.AssertEqual(t, "save requests within 2s", h.req.count(http.MethodPost, savePath), 1)
	testutil.AssertEqual(t, "still dirty", h.s.XPDirty(), true)

	h.clock.Advance(1200 * time.Millisecond)
	h.tick()
	h.tick()

	testutil.AssertEqual(t, "save requests after cooldown", h.req.count(http.MethodPost, savePath), 2)
	testutil.AssertEqual(t, "synced", h.s.XPDirty(), false)
	testutil.AssertEqual(t, "experience kept", h.s.Record().Experience, 50)
}

func TestAddXP_FailedSaveKeepsLocalValue(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.req.respond(http.MethodPost, httpapi.PlayerSavePath("p1"), status(http.StatusInternalServerError, `{"error":"db down"}`))

	h.s.AddXP(120)
	h.tick()
	h.tick()

	testutil.AssertEqual(t, "experience", h.s.Record().Experience, 120)
	testutil.AssertEqual(t, "level", h.s.Record().Level, 2)
	testutil.AssertEqual(t, "dirty", h.s.XPDirty(), true)
}

func TestSavePlayerData_TimeoutScenario(t *testing.T) {
	h := newHarness(t)
	h.login()
	savePath := httpapi.PlayerSavePath("p1")
	h.req.hold(http.MethodPost, savePath)

	var outcomes []bool
	accepted := h.s.SavePlayerData(func(success bool) { outcomes = append(outcomes, success) })
	testutil.AssertEqual(t, "accepted", accepted, true)

	h.clock.Advance(4 * time.Second)
	h.tick()
	testutil.AssertEqual(t, "outcomes before budget", len(outcomes), 0)

	h.clock.Advance(time.Second)
	h.tick()
	testutil.AssertEqual(t, "outcomes after budget", len(outcomes), 1)
	testutil.AssertEqual(t, "timed out", outcomes[0], false)
	testutil.AssertEqual(t, "in flight", h.s.Saves().InFlight(), false)

	h.req.respond(http.MethodPost, savePath, ok(`{"success":true}`))
	accepted = h.s.SavePlayerData(func(success bool) { outcomes = append(outcomes, success) })
	testutil.AssertEqual(t, "accepted after cooldown", accepted, true)
	h.tick()
	testutil.AssertEqual(t, "outcomes", len(outcomes), 2)
	testutil.AssertEqual(t, "second save", outcomes[1], true)
}

func TestSavePlayerData_Unauthenticated(t *testing.T) {
	h := newHarness(t)

	var outcomes []bool
	accepted := h.s.SavePlayerData(func(success bool) { outcomes = append(outcomes, success) })
	testutil.AssertEqual(t, "accepted", accepted, false)

	h.tick()
	testutil.AssertEqual(t, "outcomes", len(outcomes), 1)
	testutil.AssertEqual(t, "outcome", outcomes[0], false)
	testutil.AssertEqual(t, "requests", len(h.req.calls), 0)
}

func TestTick_PositionAndPing(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.s.UpdateLocalPosition(protocol.Vector3{X: 1, Y: 2, Z: 3})

	h.clock.Advance(50 * time.Millisecond)
	h.tick()
	testutil.AssertEqual(t, "moves before interval", len(h.ch.emittedNamed(protocol.EventPlayerMove)), 0)

	h.clock.Advance(50 * time.Millisecond)
	h.tick()
	moves := h.ch.emittedNamed(protocol.EventPlayerMove)
	testutil.AssertEqual(t, "moves after interval", len(moves), 1)
	move := moves[0].payload.(protocol.PlayerMove)
	testutil.AssertEqual(t, "move player", move.PlayerID, "p1")
	testutil.AssertEqual(t, "move position", move.Position, protocol.Vector3{X: 1, Y: 2, Z: 3})

	testutil.AssertEqual(t, "pings", len(h.ch.emittedNamed(protocol.EventPing)), 0)
	h.clock.Advance(5 * time.Second)
	h.tick()
	pings := h.ch.emittedNamed(protocol.EventPing)
	testutil.AssertEqual(t, "pings after interval", len(pings), 1)

	var rtt time.Duration
	h.s.Events().PingUpdated.Subscribe(func(d time.Duration) { rtt = d })

	sent := pings[0].payload.(protocol.Ping).SentAt
	h.clock.Advance(40 * time.Millisecond)
	h.ch.deliver(t, protocol.EventPong, `{"sentAt":`+itoa(sent)+`}`)

	testutil.AssertEqual(t, "ping", h.s.Ping(), 40*time.Millisecond)
	testutil.AssertEqual(t, "published ping", rtt, 40*time.Millisecond)
}

func TestTick_NothingWhileDisconnected(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.ch.drop(errors.New("connection reset"))
	testutil.AssertEqual(t, "connected", h.s.IsConnected(), false)

	before := len(h.ch.emitted)
	h.clock.Advance(10 * time.Second)
	h.tick()
	testutil.AssertEqual(t, "emits", len(h.ch.emitted), before)
	testutil.AssertEqual(t, "emit while disconnected", h.s.Emit(protocol.EventPing, protocol.Ping{}), false)
}

func TestReconnect_ReannouncesPresence(t *testing.T) {
	h := newHarness(t)
	h.login()

	var disconnects []error
	h.s.Events().Disconnected.Subscribe(func(err error) { disconnects = append(disconnects, err) })

	h.ch.drop(errors.New("connection reset"))
	h.ch.connect()

	testutil.AssertEqual(t, "disconnects", len(disconnects), 1)
	testutil.AssertEqual(t, "joins", len(h.ch.emittedNamed(protocol.EventPlayerJoin)), 2)
	testutil.AssertEqual(t, "opens", len(h.ch.opens), 1)
}

func TestInboundEventsRepublished(t *testing.T) {
	h := newHarness(t)
	h.login()

	var (
		list   protocol.PlayersList
		joined protocol.PlayerJoined
		moved  protocol.PlayerMoved
		left   protocol.PlayerLeft
		spell  protocol.SpellCast
		damage protocol.DamageReceived
		died   protocol.PlayerDied
	)
	ev := h.s.Events()
	ev.PlayersList.Subscribe(func(v protocol.PlayersList) { list = v })
	ev.PlayerJoined.Subscribe(func(v protocol.PlayerJoined) { joined = v })
	ev.PlayerMoved.Subscribe(func(v protocol.PlayerMoved) { moved = v })
	ev.PlayerLeft.Subscribe(func(v protocol.PlayerLeft) { left = v })
	ev.SpellCasted.Subscribe(func(v protocol.SpellCast) { spell = v })
	ev.DamageReceived.Subscribe(func(v protocol.DamageReceived) { damage = v })
	unsubscribe := ev.PlayerDied.Subscribe(func(v protocol.PlayerDied) { died = v })

	h.ch.deliver(t, protocol.EventPlayersList, `{"players":[{"playerId":"p2","username":"ron"},{"playerId":"p3"}]}`)
	h.ch.deliver(t, protocol.EventPlayerJoined, `{"playerId":"p4","username":"luna","house":"Ravenclaw"}`)
	h.ch.deliver(t, protocol.EventPlayerMoved, `{"playerId":"p2","position":{"x":5,"y":0,"z":1}}`)
	h.ch.deliver(t, protocol.EventPlayerLeft, `{"playerId":"p3"}`)
	h.ch.deliver(t, protocol.EventSpellCasted, `{"casterId":"p2","spellName":"Expelliarmus","damage":10}`)
	h.ch.deliver(t, protocol.EventDamageReceived, `{"attackerId":"p2","targetId":"p1","damage":10,"source":"Expelliarmus"}`)
	h.ch.deliver(t, protocol.EventPlayerDied, `{"playerId":"p3","killerId":"p2"}`)

	testutil.AssertEqual(t, "list size", len(list.Players), 2)
	testutil.AssertEqual(t, "joined", joined.Username, "luna")
	testutil.AssertEqual(t, "moved", moved.Position.X, 5.0)
	testutil.AssertEqual(t, "left", left.PlayerID, "p3")
	testutil.AssertEqual(t, "spell", spell.SpellName, "Expelliarmus")
	testutil.AssertEqual(t, "damage", damage.Damage, 10)
	testutil.AssertEqual(t, "died", died.KillerID, "p2")

	unsubscribe()
	unsubscribe()
	died = protocol.PlayerDied{}
	h.ch.deliver(t, protocol.EventPlayerDied, `{"playerId":"p2","killerId":"p4"}`)
	testutil.AssertEqual(t, "after unsubscribe", died.PlayerID, "")
	testutil.AssertEqual(t, "subscribers", ev.PlayerDied.Subscribers(), 0)
}

func TestApplyLocalDamage(t *testing.T) {
	h := newHarness(t)
	h.login()

	health := h.s.ApplyLocalDamage(30)
	testutil.AssertEqual(t, "health", health, 70)
	testutil.AssertEqual(t, "record health", h.s.Record().Stats.Health, 70)

	reports := h.ch.emittedNamed(protocol.EventReportDamage)
	if len(reports) != 1 {
		t.Fatalf("expected one damage report, got %d", len(reports))
	}
	report := reports[0].payload.(protocol.ReportDamage)
	testutil.AssertEqual(t, "report", report, protocol.ReportDamage{PlayerID: "p1", DamageTaken: 30, NewHealth: 70, MaxHealth: 100})
}

func TestSuspendResume(t *testing.T) {
	h := newHarness(t)
	h.login()

	h.s.Suspend()
	h.s.Suspend()
	testutil.AssertEqual(t, "connected", h.s.IsConnected(), false)
	testutil.AssertEqual(t, "closes", h.ch.closes, 1)
	testutil.AssertEqual(t, "save requested", h.req.count(http.MethodPost, httpapi.PlayerSavePath("p1")), 1)
	testutil.AssertEqual(t, "authenticated", h.s.IsAuthenticated(), true)

	h.s.Resume()
	h.s.Resume()
	testutil.AssertEqual(t, "opens", len(h.ch.opens), 2)
}

func TestShutdown(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.s.AddXP(10)

	if err := h.s.Shutdown(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cached, found := h.records.Get("p1")
	testutil.AssertEqual(t, "cached", found, true)
	testutil.AssertEqual(t, "cached experience", cached.Experience, 10)
	testutil.AssertEqual(t, "connected", h.s.IsConnected(), false)

	last := h.req.calls[len(h.req.calls)-1]
	testutil.AssertEqual(t, "final save path", last.Path, httpapi.PlayerSavePath("p1"))
	saved := last.Body.(*game.PlayerRecord)
	testutil.AssertEqual(t, "final save experience", saved.Experience, 10)
}

func TestShutdown_FailedFinalSave(t *testing.T) {
	h := newHarness(t)
	h.login()
	h.req.respond(http.MethodPost, httpapi.PlayerSavePath("p1"), status(http.StatusBadGateway, ""))

	err := h.s.Shutdown(context.Background())
	testutil.AssertErrorContains(t, err, "final save")
}

func TestQueries(t *testing.T) {
	h := newHarness(t)
	h.req.respond(http.MethodGet, httpapi.PathHealth, ok(`{"status":"ok"}`))

	var health string
	h.s.CheckHealth(func(success bool, payload string) {
		testutil.AssertEqual(t, "health ok", success, true)
		health = payload
	})

	combatCalled := false
	h.s.FetchCombatStatus("", func(success bool, msg string) {
		combatCalled = true
		testutil.AssertEqual(t, "combat ok", success, false)
		testutil.AssertEqual(t, "combat message", msg, ErrNotAuthenticated.Error())
	})

	var infoMsg string
	h.s.FetchServerInfo(func(success bool, msg string) {
		testutil.AssertEqual(t, "info ok", success, false)
		infoMsg = msg
	})

	h.drainUntil(func() bool { return health != "" && combatCalled && infoMsg != "" })
	testutil.AssertEqual(t, "health payload", health, `{"status":"ok"}`)
	testutil.AssertEqual(t, "info message", infoMsg, "not found")

	h.login()
	h.req.respond(http.MethodGet, httpapi.CombatStatusPath("p1"), ok(`{"inCombat":false}`))

	var combatPayload string
	h.s.FetchCombatStatus("", func(_ bool, payload string) {
		combatPayload = payload
	})
	h.drainUntil(func() bool { return combatPayload != "" })
	testutil.AssertEqual(t, "combat payload", combatPayload, `{"inCombat":false}`)
}
