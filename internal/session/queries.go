package session

import (
	"net/http"

	"github.com/pixil98/go-gamesync/internal/httpapi"
)

func (s *Session) CheckHealth(cb httpapi.Callback) {
	s.query(httpapi.PathHealth, "", cb)
}

func (s *Session) FetchServerInfo(cb httpapi.Callback) {
	s.query(httpapi.PathInfo, "", cb)
}

// FetchCombatStatus needs a session; playerID defaults to the local player.
func (s *Session) FetchCombatStatus(playerID string, cb httpapi.Callback) {
	if s.state != StateAuthenticated {
		s.reject(cb, ErrNotAuthenticated.Error())
		return
	}
	if playerID == "" {
		playerID = s.playerID
	}
	s.query(httpapi.CombatStatusPath(playerID), s.token, cb)
}

func (s *Session) query(path, token string, cb httpapi.Callback) {
	s.requester.Go(httpapi.Request{
		Method: http.MethodGet,
		Path:   path,
		Token:  token,
	}, func(res httpapi.Result) {
		if cb == nil {
			return
		}
		if !res.Success {
			cb(false, failureMessage(res))
			return
		}
		cb(true, res.Payload())
	})
}
