package command

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pixil98/go-gamesync/internal/dispatch"
	"github.com/pixil98/go-gamesync/internal/display"
	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/httpapi"
	"github.com/pixil98/go-gamesync/internal/storage"
)

const (
	envPrefix      = "GAMESYNC"
	defaultBaseURL = "http://localhost:3000"
	defaultTimeout = 10 * time.Second
)

// app resolves flags and GAMESYNC_* environment variables through viper.
type app struct {
	v *viper.Viper
}

func newApp(v *viper.Viper) *app {
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	return &app{v: v}
}

func (a *app) bindFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("base-url", defaultBaseURL, "Backend base URL")
	flags.String("data-dir", defaultDataDir(), "Directory holding session data and settings")
	flags.String("seal-key", "", "Hex encoded 32 byte key sealing the stored session")
	flags.Duration("timeout", defaultTimeout, "Per request timeout")
	flags.Bool("json", false, "Print raw JSON responses")

	_ = a.v.BindPFlag("base_url", flags.Lookup("base-url"))
	_ = a.v.BindPFlag("data_dir", flags.Lookup("data-dir"))
	_ = a.v.BindPFlag("seal_key", flags.Lookup("seal-key"))
	_ = a.v.BindPFlag("timeout", flags.Lookup("timeout"))
	_ = a.v.BindPFlag("json", flags.Lookup("json"))
}

func defaultDataDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gamesync"
	}
	return filepath.Join(dir, "gamesync")
}

func (a *app) baseURL() string { return a.v.GetString("base_url") }
func (a *app) dataDir() string { return a.v.GetString("data_dir") }
func (a *app) rawJSON() bool   { return a.v.GetBool("json") }

func (a *app) timeout() time.Duration {
	d := a.v.GetDuration("timeout")
	if d <= 0 {
		return defaultTimeout
	}
	return d
}

func (a *app) client(poster dispatch.Poster) (*httpapi.Client, error) {
	c, err := httpapi.NewClient(a.baseURL(), poster,
		httpapi.WithTimeout(a.timeout()),
		httpapi.WithUserAgent("syncctl/1"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating backend client: %w", err)
	}
	return c, nil
}

func (a *app) credentialStore() (*storage.CredentialStore, error) {
	var opts []storage.CredentialStoreOpt
	if s := a.v.GetString("seal_key"); s != "" {
		key, err := storage.ParseSealKey(s)
		if err != nil {
			return nil, fmt.Errorf("parsing seal key: %w", err)
		}
		opts = append(opts, storage.WithSealKey(key))
	}
	return storage.NewCredentialStore(filepath.Join(a.dataDir(), "session"), opts...)
}

func (a *app) recordCache() (*storage.FileStore[*game.PlayerRecord], error) {
	return storage.NewFileStore[*game.PlayerRecord](filepath.Join(a.dataDir(), "records"))
}

func (a *app) settingsStore() (*storage.SettingsStore, error) {
	return storage.NewSettingsStore(viper.New(), a.dataDir())
}

// render prints body through a display template, or verbatim when --json is
// set or body is not a JSON object.
func (a *app) render(cmd *cobra.Command, tmpl string, body []byte) error {
	out := cmd.OutOrStdout()
	if a.rawJSON() {
		_, err := fmt.Fprintln(out, string(body))
		return err
	}

	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		_, err := fmt.Fprintln(out, string(body))
		return err
	}

	rendered, err := display.Render(tmpl, data)
	if err != nil {
		return fmt.Errorf("render %s: %w", tmpl, err)
	}
	_, err = fmt.Fprintln(out, rendered)
	return err
}
