package command

import (
	"fmt"
	"path/filepath"

	"github.com/pixil98/go-errors"
	"github.com/spf13/viper"

	"github.com/pixil98/go-gamesync/internal/game"
	"github.com/pixil98/go-gamesync/internal/storage"
)

type StorageConfig struct {
	Path string `json:"path"`
	// SealKey is a hex encoded 32 byte key. Credentials are stored in the
	// clear without it.
	SealKey string `json:"seal_key"`
}

func (c *StorageConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Path == "" {
		el.Add(fmt.Errorf("storage: path is required"))
	}
	if c.SealKey != "" {
		if _, err := storage.ParseSealKey(c.SealKey); err != nil {
			el.Add(fmt.Errorf("storage: seal_key: %w", err))
		}
	}

	return el.Err()
}

func (c *StorageConfig) BuildCredentialStore() (*storage.CredentialStore, error) {
	var opts []storage.CredentialStoreOpt
	if c.SealKey != "" {
		key, err := storage.ParseSealKey(c.SealKey)
		if err != nil {
			return nil, fmt.Errorf("parsing seal_key: %w", err)
		}
		opts = append(opts, storage.WithSealKey(key))
	}
	return storage.NewCredentialStore(filepath.Join(c.Path, "session"), opts...)
}

func (c *StorageConfig) BuildRecordCache() (*storage.FileStore[*game.PlayerRecord], error) {
	return storage.NewFileStore[*game.PlayerRecord](filepath.Join(c.Path, "records"))
}

func (c *StorageConfig) BuildSettingsStore() (*storage.SettingsStore, error) {
	return storage.NewSettingsStore(viper.New(), c.Path)
}
