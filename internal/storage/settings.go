package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

const (
	settingsName = "settings"
	settingsType = "toml"
)

// Settings are user preferences kept next to the session data.
type Settings struct {
	LastUsername  string  `mapstructure:"last_username" toml:"last_username"`
	RememberLogin bool    `mapstructure:"remember_login" toml:"remember_login"`
	MasterVolume  float64 `mapstructure:"master_volume" toml:"master_volume"`
	MusicVolume   float64 `mapstructure:"music_volume" toml:"music_volume"`
	Fullscreen    bool    `mapstructure:"fullscreen" toml:"fullscreen"`
	Resolution    string  `mapstructure:"resolution" toml:"resolution"`
}

func DefaultSettings() Settings {
	return Settings{
		RememberLogin: true,
		MasterVolume:  1,
		MusicVolume:   0.8,
		Resolution:    "1920x1080",
	}
}

func (s Settings) Validate() error {
	if s.MasterVolume < 0 || s.MasterVolume > 1 {
		return fmt.Errorf("master_volume must be between 0 and 1")
	}
	if s.MusicVolume < 0 || s.MusicVolume > 1 {
		return fmt.Errorf("music_volume must be between 0 and 1")
	}
	return nil
}

// Set assigns one setting by its document key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "last_username":
		s.LastUsername = value
	case "resolution":
		s.Resolution = value
	case "remember_login", "fullscreen":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "fullscreen" {
			s.Fullscreen = b
		} else {
			s.RememberLogin = b
		}
	case "master_volume", "music_volume":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if key == "master_volume" {
			s.MasterVolume = f
		} else {
			s.MusicVolume = f
		}
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return s.Validate()
}

// SettingsStore reads settings through viper so defaults and a missing file
// resolve the same way, and writes them back as TOML.
type SettingsStore struct {
	cfg *viper.Viper
	dir string

	mu sync.Mutex
}

func NewSettingsStore(cfg *viper.Viper, dir string) (*SettingsStore, error) {
	if cfg == nil {
		cfg = viper.New()
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating settings directory: %w", err)
	}

	cfg.SetConfigName(settingsName)
	cfg.SetConfigType(settingsType)
	cfg.AddConfigPath(dir)

	d := DefaultSettings()
	cfg.SetDefault("last_username", d.LastUsername)
	cfg.SetDefault("remember_login", d.RememberLogin)
	cfg.SetDefault("master_volume", d.MasterVolume)
	cfg.SetDefault("music_volume", d.MusicVolume)
	cfg.SetDefault("fullscreen", d.Fullscreen)
	cfg.SetDefault("resolution", d.Resolution)

	s := &SettingsStore{cfg: cfg, dir: dir}
	if err := s.read(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SettingsStore) Path() string {
	return filepath.Join(s.dir, settingsName+"."+settingsType)
}

func (s *SettingsStore) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Settings
	if err := s.cfg.Unmarshal(&out); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	return out, nil
}

func (s *SettingsStore) Save(settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := atomicWrite(s.Path(), data, filePerm); err != nil {
		return err
	}
	return s.readLocked()
}

func (s *SettingsStore) read() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

func (s *SettingsStore) readLocked() error {
	err := s.cfg.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading settings: %w", err)
		}
	}
	return nil
}
