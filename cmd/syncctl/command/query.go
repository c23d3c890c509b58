package command

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/display"
	"github.com/pixil98/go-gamesync/internal/httpapi"
)

var errNotLoggedIn = errors.New("not logged in: run syncctl login first")

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check backend health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, a, httpapi.PathHealth, "", display.TemplateHealth)
		},
	}
}

func newInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show server information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runQuery(cmd, a, httpapi.PathInfo, "", display.TemplateInfo)
		},
	}
}

func newCombatStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "combat-status [player-id]",
		Short: "Show combat status for a player (defaults to the logged in player)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creds, err := a.credentialStore()
			if err != nil {
				return err
			}
			stored, ok, err := creds.Load()
			if err != nil {
				return fmt.Errorf("load session: %w", err)
			}
			if !ok {
				return errNotLoggedIn
			}

			playerID := stored.PlayerID
			if len(args) == 1 {
				playerID = args[0]
			}
			return runQuery(cmd, a, httpapi.CombatStatusPath(playerID), stored.Token, display.TemplateCombat)
		},
	}
}

func runQuery(cmd *cobra.Command, a *app, path, token, tmpl string) error {
	client, err := a.client(dispatch.NewQueue())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout())
	defer cancel()

	res := client.Do(ctx, httpapi.Request{
		Method: http.MethodGet,
		Path:   path,
		Token:  token,
	})
	if !res.Success {
		return fmt.Errorf("%s %s: %s", http.MethodGet, path, httpapi.ErrorMessage(res.Payload()))
	}

	return a.render(cmd, tmpl, res.Body)
}
