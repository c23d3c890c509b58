package session

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/save"
)

type fetchResult struct {
	res    httpapi.Result
	record *game.PlayerRecord
	err    error
}

// LoadPlayerRecord fetches the full record and replaces the cached one. A
// payload that fails to decode or validate leaves the cache untouched.
func (s *Session) LoadPlayerRecord(cb httpapi.Callback) {
	if s.state != StateAuthenticated {
		s.reject(cb, ErrNotAuthenticated.Error())
		return
	}
	s.loadRecord(func(ok bool, detail string, _ int) {
		if cb != nil {
			cb(ok, detail)
		}
	})
}

// loadRecord shares one network fetch between overlapping callers of the same
// login. Decoding happens off the update goroutine; the cache swap happens on
// it.
func (s *Session) loadRecord(done func(ok bool, detail string, status int)) {
	epoch := s.epoch
	playerID := s.playerID
	req := httpapi.Request{
		Method: http.MethodGet,
		Path:   httpapi.PlayerPath(playerID),
		Token:  s.token,
	}

	flight := playerID + "/" + strconv.FormatUint(epoch, 10)

	go func() {
		v, _, _ := s.fetches.Do(flight, func() (any, error) {
			res := s.requester.Do(context.Background(), req)
			fr := fetchResult{res: res}
			if res.Success {
				fr.record, fr.err = game.DecodePlayerRecord(res.Body)
			}
			return fr, nil
		})
		fr := v.(fetchResult)

		s.poster.Post(func() {
			ok, detail := s.applyFetch(epoch, playerID, fr)
			done(ok, detail, fr.res.StatusCode)
		})
	}()
}

func (s *Session) applyFetch(epoch uint64, playerID string, fr fetchResult) (bool, string) {
	if epoch != s.epoch || s.state != StateAuthenticated {
		return false, ErrNotAuthenticated.Error()
	}
	if !fr.res.Success {
		msg := failureMessage(fr.res)
		slog.Warn("fetching player record", "player", playerID, "kind", fr.res.Kind.String(), "detail", msg)
		return false, msg
	}
	if fr.err != nil {
		slog.Error("discarding undecodable player record", "player", playerID, "error", fr.err)
		return false, fr.err.Error()
	}
	if fr.record.ID != "" && fr.record.ID != playerID {
		slog.Error("discarding record for another player", "player", playerID, "got", fr.record.ID)
		return false, "record belongs to another player"
	}

	rec := fr.record.Clone()
	if rec.ID == "" {
		rec.ID = playerID
	}

	// The fetched copy is authoritative; pending optimistic XP is dropped.
	s.record = rec
	s.xpDirty = false
	s.localPosition = rec.Position

	s.writeRecordCache()
	s.events.PlayerDataUpdated.Publish(s.record)

	return true, "Player record loaded"
}

func (s *Session) writeRecordCache() {
	if s.records == nil || s.record == nil {
		return
	}
	if err := s.records.Save(s.record.ID, s.record.Clone()); err != nil {
		slog.Error("writing record cache", "player", s.record.ID, "error", err)
	}
}

// SaveSnapshot implements save.SnapshotSource.
func (s *Session) SaveSnapshot() (save.Snapshot, bool) {
	if s.state != StateAuthenticated || s.record == nil {
		return save.Snapshot{}, false
	}
	rec := s.record.Clone()
	rec.LastSaved = s.now().UTC()
	return save.Snapshot{
		PlayerID: s.playerID,
		Token:    s.token,
		Record:   rec,
	}, true
}

// SavePlayerData requests a backend save through the coordinator. done gets
// exactly one outcome.
func (s *Session) SavePlayerData(done func(bool)) bool {
	return s.saves.Save(done)
}

// AddXP applies an award locally right away and asks for a save. The local
// value is never rolled back; a dirty flag keeps retrying the sync.
func (s *Session) AddXP(amount int) {
	if s.record == nil || amount <= 0 {
		slog.Warn("ignoring xp award", "amount", amount, "hasRecord", s.record != nil)
		return
	}

	if levels := s.record.AddExperience(amount); levels > 0 {
		slog.Info("level up", "player", s.playerID, "level", s.record.Level)
	}
	s.xpSeq++
	s.xpDirty = true
	s.events.PlayerDataUpdated.Publish(s.record)

	if s.saves.CanSave() {
		s.syncXP()
	}
}

// XPDirty reports whether local XP has not reached the backend yet.
func (s *Session) XPDirty() bool {
	return s.xpDirty
}

func (s *Session) syncXP() {
	seq := s.xpSeq
	epoch := s.epoch
	s.saves.Save(func(ok bool) {
		if epoch != s.epoch {
			return
		}
		if !ok {
			slog.Debug("xp sync deferred", "player", s.playerID)
			return
		}
		if s.xpSeq == seq {
			s.xpDirty = false
		}
	})
}

// ApplyLocalDamage lowers the local player's health, reports it to the
// backend and returns the new health.
func (s *Session) ApplyLocalDamage(amount int) int {
	if s.record == nil {
		slog.Warn("ignoring damage without a record", "amount", amount)
		return 0
	}

	health := s.record.ApplyDamage(amount)
	s.Emit(protocol.EventReportDamage, protocol.ReportDamage{
		PlayerID:    s.playerID,
		DamageTaken: amount,
		NewHealth:   health,
		MaxHealth:   s.record.Stats.MaxHealth,
	})
	s.events.PlayerDataUpdated.Publish(s.record)

	return health
}
