package session

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/realtime"
)

func (s *Session) registerHandlers() {
	s.channel.HandleConnect(s.handleConnect)
	s.channel.HandleDisconnect(s.handleDisconnect)

	s.channel.On(protocol.EventPlayersList, realtime.Handle(s.events.PlayersList.Publish))
	s.channel.On(protocol.EventPlayerJoined, realtime.Handle(s.events.PlayerJoined.Publish))
	s.channel.On(protocol.EventPlayerMoved, realtime.Handle(s.events.PlayerMoved.Publish))
	s.channel.On(protocol.EventPlayerLeft, realtime.Handle(s.events.PlayerLeft.Publish))
	s.channel.On(protocol.EventSpellCasted, realtime.Handle(s.events.SpellCasted.Publish))
	s.channel.On(protocol.EventDamageReceived, realtime.Handle(s.events.DamageReceived.Publish))
	s.channel.On(protocol.EventPlayerDied, realtime.Handle(s.events.PlayerDied.Publish))
	s.channel.On(protocol.EventPong, realtime.Handle(s.handlePong))
}

// openChannel never runs without a token.
func (s *Session) openChannel() {
	if s.state != StateAuthenticated || s.token == "" {
		slog.Warn("not opening realtime channel without a session")
		return
	}
	s.channel.Open(s.token, s.playerID)
}

// handleConnect runs on every (re)connection and re-announces presence.
func (s *Session) handleConnect() {
	if s.state != StateAuthenticated {
		slog.Warn("realtime connected without a session, closing")
		s.channel.Close()
		return
	}

	s.connected = true
	now := s.now()
	s.lastPosition = now
	s.lastPing = now

	if s.record != nil {
		s.channel.Emit(protocol.EventPlayerJoin, protocol.PlayerJoin{
			PlayerID: s.playerID,
			Username: s.record.Username,
			House:    s.record.House,
			Position: s.localPosition,
		})
	}

	s.events.Connected.Publish(struct{}{})
}

func (s *Session) handleDisconnect(err error) {
	if !s.connected && err == nil {
		return
	}
	s.connected = false
	s.events.Disconnected.Publish(err)
}

// Emit sends an event over the real-time channel. It returns false when the
// event was dropped.
func (s *Session) Emit(event string, payload any) bool {
	if !s.connected {
		slog.Debug("dropping emit while disconnected", "event", event)
		return false
	}
	return s.channel.Emit(event, payload)
}

// UpdateLocalPosition records where the local player is; it is sent on the
// next position interval.
func (s *Session) UpdateLocalPosition(pos protocol.Vector3) {
	s.localPosition = pos
	if s.record != nil {
		s.record.Position = pos
	}
}

// SendPositionUpdate emits the local position immediately.
func (s *Session) SendPositionUpdate() bool {
	if s.state != StateAuthenticated {
		return false
	}
	s.lastPosition = s.now()
	return s.Emit(protocol.EventPlayerMove, protocol.PlayerMove{
		PlayerID: s.playerID,
		Position: s.localPosition,
	})
}

func (s *Session) sendPing(now time.Time) {
	s.lastPing = now
	s.Emit(protocol.EventPing, protocol.Ping{SentAt: now.UnixMilli()})
}

func (s *Session) handlePong(p protocol.Pong) {
	if p.SentAt == 0 {
		return
	}
	rtt := s.now().Sub(time.UnixMilli(p.SentAt))
	if rtt < 0 {
		return
	}
	s.ping = rtt
	s.events.PingUpdated.Publish(rtt)
}

// Suspend closes the channel for an app suspend and saves opportunistically.
func (s *Session) Suspend() {
	if s.state != StateAuthenticated || s.suspended {
		return
	}
	s.suspended = true

	wasConnected := s.connected
	s.channel.Close()
	s.connected = false
	if wasConnected {
		s.events.Disconnected.Publish(nil)
	}

	s.writeRecordCache()
	s.saves.Save(nil)
}

// Resume reopens the channel if the session survived the suspend.
func (s *Session) Resume() {
	if !s.suspended {
		return
	}
	s.suspended = false
	if s.state == StateAuthenticated {
		s.openChannel()
	}
}

// Shutdown persists the record locally and makes one last synchronous save.
// It is meant for process exit, after the update loop has stopped.
func (s *Session) Shutdown(ctx context.Context) error {
	s.writeRecordCache()

	snap, ok := s.SaveSnapshot()
	s.channel.Close()
	s.connected = false
	if !ok {
		return nil
	}

	res := s.requester.Do(ctx, httpapi.Request{
		Method: http.MethodPost,
		Path:   httpapi.PlayerSavePath(snap.PlayerID),
		Body:   snap.Record,
		Token:  snap.Token,
	})
	if !res.Success {
		return fmt.Errorf("final save: %s", failureMessage(res))
	}
	slog.InfoContext(ctx, "final save complete", "player", snap.PlayerID)
	return nil
}
