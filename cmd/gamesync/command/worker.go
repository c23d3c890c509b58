package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-service"

	"github.com/pixil98/go-gamesync/internal/combat"
	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/driver"
	"github.com/pixil98/go-gamesync/internal/messaging"
	"github.com/pixil98/go-gamesync/internal/protocol"
	"github.com/pixil98/go-gamesync/internal/roster"
	"github.com/pixil98/go-gamesync/internal/session"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	queue := dispatch.NewQueue()

	client, err := cfg.Backend.BuildClient(queue)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}

	channel, err := cfg.Realtime.BuildChannel(cfg.Backend.BaseURL, queue)
	if err != nil {
		return nil, fmt.Errorf("creating realtime channel: %w", err)
	}

	creds, err := cfg.Storage.BuildCredentialStore()
	if err != nil {
		return nil, fmt.Errorf("creating credential store: %w", err)
	}
	records, err := cfg.Storage.BuildRecordCache()
	if err != nil {
		return nil, fmt.Errorf("creating record cache: %w", err)
	}

	var ns *messaging.NatsServer
	if cfg.Nats.Enabled {
		ns, err = cfg.Nats.BuildNatsServer()
		if err != nil {
			return nil, fmt.Errorf("creating nats server: %w", err)
		}
	}

	opts, err := cfg.Session.SessionOpts()
	if err != nil {
		return nil, fmt.Errorf("building session options: %w", err)
	}
	opts = append(opts, session.WithCredentialStore(creds), session.WithRecordCache(records))

	sess, err := session.New(client, channel, queue, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	players := roster.New(sess)
	relay := combat.NewRelay(sess, players, logEffects{})
	players.Start()
	relay.Start()

	// Runs on the first tick so every callback lands on the driver goroutine.
	queue.Post(func() { startSession(sess, cfg.Session) })

	workers := service.WorkerList{}

	var bridge *messaging.Bridge
	if ns != nil {
		bridge = messaging.NewBridge(sess.Events(), ns, cfg.Nats.BridgeOpts()...)
		bridge.Start()
		workers["nats"] = ns
	}

	workers["driver"] = driver.NewFrameDriver(
		[]driver.Manager{queue, sess, sess.Saves(), players},
		driver.WithTickLength(cfg.tickLength()),
		driver.WithStopHook(stopHook(sess, bridge, relay, players)),
	)

	return workers, nil
}

// stopHook detaches the bus bridge before the final save, since the nats
// worker drains on the same cancellation.
func stopHook(sess *session.Session, bridge *messaging.Bridge, relay *combat.Relay, players *roster.Roster) func(context.Context) {
	return func(ctx context.Context) {
		if bridge != nil {
			bridge.Stop()
		}
		if err := sess.Shutdown(ctx); err != nil {
			slog.ErrorContext(ctx, "shutting down session", "error", err)
		}
		relay.Stop()
		players.Stop()
		sess.Close()
	}
}

// startSession restores a stored session, falling back to the configured
// login.
func startSession(sess *session.Session, cfg SessionConfig) {
	sess.RestoreSession(func(ok bool, msg string) {
		if ok {
			slog.Info("session restored", "player", sess.PlayerID())
			return
		}
		if cfg.Username == "" {
			slog.Info("no session to restore and no login configured", "reason", msg)
			return
		}

		sess.Login(cfg.Username, cfg.Password, func(ok bool, msg string) {
			if !ok {
				slog.Error("login failed", "username", cfg.Username, "reason", msg)
				return
			}
			slog.Info("logged in", "username", cfg.Username, "player", sess.PlayerID())
		})
	})
}

type logEffects struct{}

func (logEffects) SpawnRemoteSpell(c protocol.SpellCast) {
	slog.Info("remote spell", "caster", c.CasterName, "spell", c.SpellName, "damage", c.Damage)
}

func (logEffects) LocalDamaged(hit protocol.DamageReceived, health int) {
	slog.Debug("local player hit", "attacker", hit.AttackerID, "damage", hit.Damage, "health", health)
}

func (logEffects) LocalDied(d protocol.PlayerDied) {
	slog.Warn("local player died", "killer", d.KillerID)
}

func (logEffects) RemoteDied(d protocol.PlayerDied) {
	slog.Info("player died", "player", d.PlayerID, "killer", d.KillerID)
}
