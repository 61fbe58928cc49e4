// Package session owns the process-wide authenticated state. The identity
// object and credential are persisted under fixed well-known names so any
// screen can read them, but mutation goes through the Store alone.
package session

import (
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/signal"
)

// Fixed storage names, shared by every backend.
const (
	TokenKey = "tricy_token"
	UserKey  = "tricy_user"
)

// Store persists the live session. Load returns (nil, nil) when no valid
// session exists; a malformed persisted state counts as absent, not as an
// error. Clear is idempotent and safe to call from any screen context; it
// emits the logout signal only when live state was actually removed, so
// overlapping 401s log out once.
type Store interface {
	Load() (*models.Session, error)
	Save(*models.Session) error
	Clear() error
}

// FileStore keeps the credential and identity as two files in a directory,
// the moral equivalent of the two localStorage keys the web client used.
// No network calls.
type FileStore struct {
	dir string
	bus *signal.Bus
	log *slog.Logger
}

func NewFileStore(dir string, bus *signal.Bus, log *slog.Logger) *FileStore {
	if log == nil {
		log = logging.Discard()
	}
	return &FileStore{dir: dir, bus: bus, log: log}
}

func (s *FileStore) tokenPath() string { return filepath.Join(s.dir, TokenKey) }
func (s *FileStore) userPath() string  { return filepath.Join(s.dir, UserKey+".json") }

func (s *FileStore) Load() (*models.Session, error) {
	tok, err := os.ReadFile(s.tokenPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	raw, err := os.ReadFile(s.userPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(raw, &u); err != nil {
		s.log.Warn("persisted identity malformed, treating session as absent", "error", err)
		return nil, nil
	}
	token := strings.TrimSpace(string(tok))
	if token == "" {
		return nil, nil
	}
	return &models.Session{User: u, Token: token}, nil
}

func (s *FileStore) Save(sess *models.Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	raw, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.userPath(), raw, 0o600); err != nil {
		return err
	}
	return os.WriteFile(s.tokenPath(), []byte(sess.Token), 0o600)
}

func (s *FileStore) Clear() error {
	removed := false
	for _, p := range []string{s.tokenPath(), s.userPath()} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed = true
		case errors.Is(err, os.ErrNotExist):
		default:
			return err
		}
	}
	if removed && s.bus != nil {
		s.bus.PublishLogout()
	}
	return nil
}
