package session

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/realtime"
	"github.com/pixil98/go-gamesync/internal/storage"
)

func ok(body string) httpapi.Result {
	return httpapi.Result{Success: true, StatusCode: http.StatusOK, Body: []byte(body)}
}

func status(code int, body string) httpapi.Result {
	return httpapi.Result{StatusCode: code, Body: []byte(body), Kind: httpapi.KindProtocol}
}

func key(method, path string) string {
	return method + " " + path
}

type fakeRequester struct {
	mu        sync.Mutex
	poster    dispatch.Poster
	responses map[string]httpapi.Result
	held      map[string]bool
	gates     map[string]chan struct{}
	calls     []httpapi.Request
}

func newFakeRequester(poster dispatch.Poster) *fakeRequester {
	return &fakeRequester{
		poster:    poster,
		responses: map[string]httpapi.Result{},
		held:      map[string]bool{},
		gates:     map[string]chan struct{}{},
	}
}

func (f *fakeRequester) respond(method, path string, res httpapi.Result) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key(method, path)] = res
	delete(f.held, key(method, path))
}

// hold makes asynchronous requests to the endpoint never complete.
func (f *fakeRequester) hold(method, path string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held[key(method, path)] = true
}

// gate blocks synchronous requests carrying token until release is called.
func (f *fakeRequester) gate(token string) (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[token] = ch
	return func() { close(ch) }
}

func (f *fakeRequester) lookup(req httpapi.Request) (httpapi.Result, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	k := key(req.Method, req.Path)
	if f.held[k] {
		return httpapi.Result{}, false
	}
	res, found := f.responses[k]
	if !found {
		res = status(http.StatusNotFound, `{"message":"not found"}`)
	}
	return res, true
}

func (f *fakeRequester) Do(_ context.Context, req httpapi.Request) httpapi.Result {
	f.mu.Lock()
	gate := f.gates[req.Token]
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	res, _ := f.lookup(req)
	return res
}

func (f *fakeRequester) Go(req httpapi.Request, done func(httpapi.Result)) {
	res, complete := f.lookup(req)
	if !complete || done == nil {
		return
	}
	f.poster.Post(func() { done(res) })
}

func (f *fakeRequester) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

type emission struct {
	event   string
	payload any
}

type fakeChannel struct {
	handlers     map[string]realtime.Handler
	onConnect    func()
	onDisconnect func(error)

	open    bool
	opens   []string
	closes  int
	emitted []emission
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: map[string]realtime.Handler{}}
}

func (c *fakeChannel) Open(token, playerID string) {
	c.open = true
	c.opens = append(c.opens, token+"/"+playerID)
}

func (c *fakeChannel) Close() {
	c.open = false
	c.closes++
}

func (c *fakeChannel) On(event string, h realtime.Handler) { c.handlers[event] = h }
func (c *fakeChannel) HandleConnect(fn func())             { c.onConnect = fn }
func (c *fakeChannel) HandleDisconnect(fn func(error))     { c.onDisconnect = fn }

func (c *fakeChannel) Emit(event string, payload any) bool {
	if !c.open {
		return false
	}
	c.emitted = append(c.emitted, emission{event: event, payload: payload})
	return true
}

func (c *fakeChannel) connect() {
	c.onConnect()
}

func (c *fakeChannel) drop(err error) {
	c.onDisconnect(err)
}

func (c *fakeChannel) deliver(t *testing.T, event, data string) {
	t.Helper()
	h, found := c.handlers[event]
	if !found {
		t.Fatalf("no handler for %s", event)
	}
	work, err := h(json.RawMessage(data))
	if err != nil {
		t.Fatalf("decoding %s: %v", event, err)
	}
	work()
}

func (c *fakeChannel) emittedNamed(event string) []emission {
	var out []emission
	for _, e := range c.emitted {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type harness struct {
	t       *testing.T
	queue   *dispatch.Queue
	req     *fakeRequester
	ch      *fakeChannel
	clock   *fakeClock
	creds   *storage.CredentialStore
	records *storage.FileStore[*game.PlayerRecord]
	s       *Session
}

func newHarness(t *testing.T, opts ...SessionOpt) *harness {
	t.Helper()

	h := &harness{
		t:     t,
		queue: dispatch.NewQueue(),
		ch:    newFakeChannel(),
		clock: &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)},
	}
	h.req = newFakeRequester(h.queue)

	var err error
	h.creds, err = storage.NewCredentialStore(t.TempDir())
	if err != nil {
		t.Fatalf("creating credential store: %v", err)
	}
	h.records, err = storage.NewFileStore[*game.PlayerRecord](t.TempDir())
	if err != nil {
		t.Fatalf("creating record cache: %v", err)
	}

	base := []SessionOpt{
		WithClock(h.clock.Now),
		WithCredentialStore(h.creds),
		WithRecordCache(h.records),
	}
	h.s, err = New(h.req, h.ch, h.queue, append(base, opts...)...)
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	t.Cleanup(h.s.Close)

	return h
}

// drainUntil ticks the dispatcher until cond holds. Record fetches complete
// on their own goroutine, so a few ticks may be needed.
func (h *harness) drainUntil(cond func() bool) {
	h.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if err := h.queue.Tick(context.Background()); err != nil {
			h.t.Fatalf("tick: %v", err)
		}
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	h.t.Fatal("condition not met before deadline")
}

func (h *harness) tick() {
	h.t.Helper()
	ctx := context.Background()
	if err := h.s.Saves().Tick(ctx); err != nil {
		h.t.Fatalf("save tick: %v", err)
	}
	if err := h.s.Tick(ctx); err != nil {
		h.t.Fatalf("session tick: %v", err)
	}
	if err := h.queue.Tick(ctx); err != nil {
		h.t.Fatalf("queue tick: %v", err)
	}
}

const (
	loginBody  = `{"token":"tok1","playerId":"p1","username":"harry"}`
	recordBody = `{"player":{"id":"p1","username":"harry","house":"Gryffindor","level":1,"experience":0,"stats":{"health":100,"maxHealth":100}}}`
)

// login runs a successful login and connects the channel.
func (h *harness) login() {
	h.t.Helper()
	h.req.respond(http.MethodPost, httpapi.PathLogin, ok(loginBody))
	h.req.respond(http.MethodGet, httpapi.PlayerPath("p1"), ok(recordBody))
	h.req.respond(http.MethodPost, httpapi.PlayerSavePath("p1"), ok(`{"success":true}`))

	done := false
	h.s.Login("harry", "hunter2", func(success bool, msg string) {
		if !success {
			h.t.Fatalf("login failed: %s", msg)
		}
		done = true
	})
	h.drainUntil(func() bool { return done })
	h.ch.connect()
}

func storageCreds(token, playerID string) storage.Credentials {
	return storage.Credentials{Token: token, PlayerID: playerID}
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}
