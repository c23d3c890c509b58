package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func Execute() error {
	return newRootCmd(viper.New()).Execute()
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "syncctl",
		Short:         "Inspect and drive a game backend from the terminal",
		Long:          "syncctl talks to the game backend the same way the sync client does: it checks health, reads server and combat state, logs in and manages the local session data and settings.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	a := newApp(v)
	a.bindFlags(rootCmd)

	rootCmd.AddCommand(
		newHealthCmd(a),
		newInfoCmd(a),
		newCombatStatusCmd(a),
		newLoginCmd(a),
		newLogoutCmd(a),
		newSettingsCmd(a),
	)

	return rootCmd
}
