package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/storage"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
	House    string `json:"house,omitempty"`
}

type loginResponse struct {
	Token    string `json:"token"`
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
	House    string `json:"house"`
	Message  string `json:"message"`
	Player   *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		House    string `json:"house"`
	} `json:"player"`
}

func decodeLogin(body []byte) (loginResponse, error) {
	var lr loginResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return lr, fmt.Errorf("decoding login response: %w", err)
	}
	if lr.Player != nil {
		if lr.PlayerID == "" {
			lr.PlayerID = lr.Player.ID
		}
		if lr.Username == "" {
			lr.Username = lr.Player.Username
		}
		if lr.House == "" {
			lr.House = lr.Player.House
		}
	}
	if lr.Token == "" || lr.PlayerID == "" {
		return lr, fmt.Errorf("login response is missing token or player id")
	}
	return lr, nil
}

// Login authenticates, loads the record and opens the real-time channel, in
// that order, before reporting success. On failure the session is left as it
// was.
func (s *Session) Login(username, password string, cb httpapi.Callback) {
	switch s.state {
	case StateAuthenticating:
		s.reject(cb, "login already in progress")
		return
	case StateAuthenticated:
		s.reject(cb, "already logged in")
		return
	}
	if strings.TrimSpace(username) == "" || password == "" {
		s.reject(cb, "username and password are required")
		return
	}

	s.state = StateAuthenticating
	s.epoch++
	epoch := s.epoch

	s.requester.Go(httpapi.Request{
		Method: http.MethodPost,
		Path:   httpapi.PathLogin,
		Body:   credentials{Username: username, Password: password},
	}, func(res httpapi.Result) {
		s.completeLogin(epoch, username, res, cb)
	})
}

func (s *Session) completeLogin(epoch uint64, username string, res httpapi.Result, cb httpapi.Callback) {
	if epoch != s.epoch || s.state != StateAuthenticating {
		slog.Debug("ignoring stale login response")
		if cb != nil {
			cb(false, "login cancelled")
		}
		return
	}

	fail := func(msg string) {
		s.state = StateDisconnected
		slog.Warn("login failed", "username", username, "reason", msg)
		if cb != nil {
			cb(false, msg)
		}
	}

	if !res.Success {
		fail(failureMessage(res))
		return
	}

	lr, err := decodeLogin(res.Body)
	if err != nil {
		fail(err.Error())
		return
	}
	if lr.Username == "" {
		lr.Username = username
	}

	s.token = lr.Token
	s.playerID = lr.PlayerID
	s.state = StateAuthenticated
	s.record = game.NewSeedRecord(lr.PlayerID, lr.Username, lr.House)
	s.persistCredentials()

	slog.Info("logged in", "player", s.playerID, "username", lr.Username)
	s.events.AuthStateChanged.Publish(true)

	msg := lr.Message
	if msg == "" {
		msg = "Login successful"
	}

	s.loadRecord(func(ok bool, detail string, _ int) {
		if epoch != s.epoch {
			if cb != nil {
				cb(false, "logged out during login")
			}
			return
		}
		if !ok {
			slog.Warn("initial record fetch failed, keeping seed record", "detail", detail)
		}
		s.openChannel()
		if cb != nil {
			cb(true, msg)
		}
	})
}

// Register creates an account and then logs in with the same credentials.
func (s *Session) Register(username, password, email, house string, cb httpapi.Callback) {
	if s.state != StateDisconnected {
		s.reject(cb, "already logged in or logging in")
		return
	}
	if strings.TrimSpace(username) == "" || password == "" {
		s.reject(cb, "username and password are required")
		return
	}

	s.state = StateAuthenticating
	s.epoch++
	epoch := s.epoch

	s.requester.Go(httpapi.Request{
		Method: http.MethodPost,
		Path:   httpapi.PathRegister,
		Body: registration{
			Username: username,
			Password: password,
			Email:    email,
			House:    game.CanonicalHouse(house),
		},
	}, func(res httpapi.Result) {
		if epoch != s.epoch || s.state != StateAuthenticating {
			if cb != nil {
				cb(false, "registration cancelled")
			}
			return
		}
		s.state = StateDisconnected
		if !res.Success {
			msg := failureMessage(res)
			slog.Warn("registration failed", "username", username, "reason", msg)
			if cb != nil {
				cb(false, msg)
			}
			return
		}
		s.Login(username, password, cb)
	})
}

// Logout tears everything down. It is safe to call in any state.
func (s *Session) Logout() {
	if s.state == StateDisconnected && s.token == "" {
		return
	}

	wasAuthenticated := s.state == StateAuthenticated
	wasConnected := s.connected

	s.channel.Close()
	s.epoch++
	s.state = StateDisconnected
	s.token = ""
	s.playerID = ""
	s.record = nil
	s.connected = false
	s.suspended = false
	s.xpDirty = false
	s.ping = 0
	s.localPosition = protocol.Vector3{}

	if s.creds != nil {
		if err := s.creds.Clear(); err != nil {
			slog.Error("clearing stored session", "error", err)
		}
	}

	slog.Info("logged out")
	if wasConnected {
		s.events.Disconnected.Publish(nil)
	}
	if wasAuthenticated {
		s.events.AuthStateChanged.Publish(false)
	}
}

// RestoreSession resumes a persisted login without credentials. A rejected
// token clears the stored session.
func (s *Session) RestoreSession(cb httpapi.Callback) {
	if s.state != StateDisconnected {
		s.reject(cb, "session already active")
		return
	}
	if s.creds == nil {
		s.reject(cb, "no stored session")
		return
	}

	c, ok, err := s.creds.Load()
	if err != nil {
		slog.Warn("loading stored session", "error", err)
	}
	if !ok {
		s.reject(cb, "no stored session")
		return
	}

	s.epoch++
	epoch := s.epoch
	s.token = c.Token
	s.playerID = c.PlayerID
	s.state = StateAuthenticated
	s.record = s.cachedRecord(c.PlayerID)

	slog.Info("restored session", "player", s.playerID)
	s.events.AuthStateChanged.Publish(true)

	s.loadRecord(func(ok bool, detail string, status int) {
		if epoch != s.epoch {
			if cb != nil {
				cb(false, "logged out during restore")
			}
			return
		}
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			slog.Warn("stored session rejected", "status", status)
			s.Logout()
			if cb != nil {
				cb(false, "stored session expired")
			}
			return
		}
		if !ok {
			slog.Warn("record fetch failed during restore", "detail", detail)
		}
		s.openChannel()
		if cb != nil {
			cb(true, "Session restored")
		}
	})
}

func (s *Session) persistCredentials() {
	if s.creds == nil {
		return
	}
	err := s.creds.Save(storage.Credentials{Token: s.token, PlayerID: s.playerID})
	if err != nil {
		slog.Error("persisting session", "error", err)
	}
}

func (s *Session) cachedRecord(playerID string) *game.PlayerRecord {
	if s.records != nil {
		if rec, ok := s.records.Get(playerID); ok && rec != nil {
			r := rec.Clone()
			r.Normalize()
			return r
		}
	}
	return game.NewSeedRecord(playerID, "", "")
}
