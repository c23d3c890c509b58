package command

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/display"
	"github.com/pixil98/go-gamesync/internal/driver"
	"github.com/pixil98/go-gamesync/internal/realtime"
	"github.com/pixil98/go-gamesync/internal/session"
)

const loginTickLength = 10 * time.Millisecond

func newLoginCmd(a *app) *cobra.Command {
	var username string
	var password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in, store the session and show the player record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if password == "" {
				password = a.v.GetString("password")
			}
			if password == "" {
				var err error
				password, err = prompt(cmd.InOrStdin(), cmd.OutOrStdout(), "Password: ",
					withValidator(notEmpty("password")),
					withMaxTries(3),
				)
				if err != nil {
					return err
				}
			}
			return runLogin(cmd, a, username, password)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Account username")
	cmd.Flags().StringVar(&password, "password", "", "Account password (or GAMESYNC_PASSWORD, prompted when unset)")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func runLogin(cmd *cobra.Command, a *app, username, password string) error {
	queue := dispatch.NewQueue()

	client, err := a.client(queue)
	if err != nil {
		return err
	}
	channel, err := realtime.NewChannel(a.baseURL(), queue, realtime.WithMaxReconnectAttempts(1))
	if err != nil {
		return fmt.Errorf("creating realtime channel: %w", err)
	}
	creds, err := a.credentialStore()
	if err != nil {
		return err
	}
	records, err := a.recordCache()
	if err != nil {
		return err
	}

	sess, err := session.New(client, channel, queue,
		session.WithCredentialStore(creds),
		session.WithRecordCache(records),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	defer sess.Close()

	// Login resolves after the record fetch, so allow for both requests.
	ctx, cancel := context.WithTimeout(cmd.Context(), 2*a.timeout())
	defer cancel()

	var done, ok bool
	var msg string
	queue.Post(func() {
		sess.Login(username, password, func(success bool, m string) {
			done, ok, msg = true, success, m
			cancel()
		})
	})

	d := driver.NewFrameDriver([]driver.Manager{queue, sess}, driver.WithTickLength(loginTickLength))
	if err := d.Start(ctx); err != nil {
		return fmt.Errorf("running session: %w", err)
	}

	if !done {
		return fmt.Errorf("login timed out")
	}
	if !ok {
		return fmt.Errorf("login failed: %s", msg)
	}

	rememberUsername(a, username)

	out := cmd.OutOrStdout()
	if _, err := fmt.Fprintln(out, display.Wrap(msg)); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, display.RenderBox(display.RecordSections(sess.Record()), display.BoxWidth))
	return err
}

func rememberUsername(a *app, username string) {
	store, err := a.settingsStore()
	if err != nil {
		slog.Warn("opening settings", "error", err)
		return
	}
	settings, err := store.Load()
	if err != nil || !settings.RememberLogin {
		return
	}
	settings.LastUsername = username
	if err := store.Save(settings); err != nil {
		slog.Warn("saving settings", "error", err)
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			creds, err := a.credentialStore()
			if err != nil {
				return err
			}
			if err := creds.Clear(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return err
		},
	}
}
