package session

import (
	"time"

	"github.com/pixil98/go-gamesync/internal/save"
)

type SessionOpt func(*Session)

// WithCredentialStore persists the token and player id across restarts.
func WithCredentialStore(cs CredentialStore) SessionOpt {
	return func(s *Session) {
		s.creds = cs
	}
}

// WithRecordCache keeps a local copy of the last fetched record.
func WithRecordCache(rc RecordCache) SessionOpt {
	return func(s *Session) {
		s.records = rc
	}
}

func WithClock(now func() time.Time) SessionOpt {
	return func(s *Session) {
		s.now = now
	}
}

func WithPositionInterval(d time.Duration) SessionOpt {
	return func(s *Session) {
		if d > 0 {
			s.positionInterval = d
		}
	}
}

func WithPingInterval(d time.Duration) SessionOpt {
	return func(s *Session) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}

// WithSaveOpts configures the save coordinator owned by the session.
func WithSaveOpts(opts ...save.CoordinatorOpt) SessionOpt {
	return func(s *Session) {
		s.saveOpts = append(s.saveOpts, opts...)
	}
}
