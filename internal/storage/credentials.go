package storage

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
)

const (
	tokenFile    = "token"
	playerIDFile = "player_id"
	nonceSize    = 24
	KeySize      = 32
)

var ErrCorrupt = errors.New("stored value is corrupt")

// Credentials is the persisted login state.
type Credentials struct {
	Token    string
	PlayerID string
}

func (c Credentials) Empty() bool {
	return c.Token == "" || c.PlayerID == ""
}

// CredentialStore keeps the session token and player id as small files.
// When a key is configured the values are sealed with secretbox.
type CredentialStore struct {
	dir string
	key *[KeySize]byte
}

type CredentialStoreOpt func(*CredentialStore)

func WithSealKey(key [KeySize]byte) CredentialStoreOpt {
	return func(s *CredentialStore) {
		k := key
		s.key = &k
	}
}

// ParseSealKey decodes a hex encoded 32 byte key.
func ParseSealKey(s string) ([KeySize]byte, error) {
	var key [KeySize]byte
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return key, fmt.Errorf("decoding seal key: %w", err)
	}
	if len(b) != KeySize {
		return key, fmt.Errorf("seal key must be %d bytes, got %d", KeySize, len(b))
	}
	copy(key[:], b)
	return key, nil
}

func NewCredentialStore(dir string, opts ...CredentialStoreOpt) (*CredentialStore, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("creating credential directory: %w", err)
	}

	s := &CredentialStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *CredentialStore) Save(c Credentials) error {
	if c.Empty() {
		return fmt.Errorf("token and player id are required")
	}
	if err := s.write(tokenFile, c.Token); err != nil {
		return err
	}
	return s.write(playerIDFile, c.PlayerID)
}

// Load returns the stored credentials. ok is false when nothing usable is
// stored.
func (s *CredentialStore) Load() (Credentials, bool, error) {
	token, err := s.read(tokenFile)
	if err != nil {
		return Credentials{}, false, err
	}
	playerID, err := s.read(playerIDFile)
	if err != nil {
		return Credentials{}, false, err
	}

	c := Credentials{Token: token, PlayerID: playerID}
	return c, !c.Empty(), nil
}

func (s *CredentialStore) Clear() error {
	for _, name := range []string{tokenFile, playerIDFile} {
		err := os.Remove(filepath.Join(s.dir, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}

func (s *CredentialStore) write(name, value string) error {
	data := []byte(value)
	if s.key != nil {
		var nonce [nonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return fmt.Errorf("generating nonce: %w", err)
		}
		data = secretbox.Seal(nonce[:], data, &nonce, s.key)
	}
	return atomicWrite(filepath.Join(s.dir, name), data, filePerm)
}

func (s *CredentialStore) read(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", name, err)
	}

	if s.key == nil {
		return string(data), nil
	}

	if len(data) < nonceSize+secretbox.Overhead {
		return "", fmt.Errorf("%s: %w", name, ErrCorrupt)
	}
	var nonce [nonceSize]byte
	copy(nonce[:], data[:nonceSize])
	opened, ok := secretbox.Open(nil, data[nonceSize:], &nonce, s.key)
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrCorrupt)
	}
	return string(opened), nil
}
