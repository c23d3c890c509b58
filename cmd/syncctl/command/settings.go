package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixil98/go-gamesync/internal/display"
)

func newSettingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change local settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return showSettings(cmd, a)
		},
	}

	cmd.AddCommand(newSettingsSetCmd(a))

	return cmd
}

func newSettingsSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.settingsStore()
			if err != nil {
				return err
			}
			settings, err := store.Load()
			if err != nil {
				return err
			}
			if err := settings.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := store.Save(settings); err != nil {
				return fmt.Errorf("save settings: %w", err)
			}
			return showSettings(cmd, a)
		},
	}
}

func showSettings(cmd *cobra.Command, a *app) error {
	store, err := a.settingsStore()
	if err != nil {
		return err
	}
	settings, err := store.Load()
	if err != nil {
		return err
	}

	rendered, err := display.Render(display.TemplateSettings, map[string]any{
		"Path":     store.Path(),
		"Settings": settings,
	})
	if err != nil {
		return fmt.Errorf("render settings: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
