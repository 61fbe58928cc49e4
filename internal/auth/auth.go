// Package auth drives the login, registration, and profile flows against
// the auth endpoints and keeps the persisted session in step with them.
package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/models"
	"github.com/example/tricy-client/internal/session"
)

// API is the slice of the gateway these flows need.
type API interface {
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
}

type Service struct {
	api      API
	sessions session.Store
	log      *slog.Logger
}

func NewService(api API, sessions session.Store, log *slog.Logger) *Service {
	if log == nil {
		log = logging.Discard()
	}
	return &Service{api: api, sessions: sessions, log: log}
}

// Credentials is the login request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the sign-up request body.
type Registration struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Role        string `json:"role"`
}

type loginResponse struct {
	AccessToken string      `json:"access_token"`
	User        models.User `json:"user"`
}

// Login exchanges credentials for a token and persists the session.
func (s *Service) Login(ctx context.Context, creds Credentials) (*models.Session, error) {
	var resp loginResponse
	if err := s.api.Post(ctx, "/auth/login", creds, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, errors.New("login response carried no token")
	}
	sess := &models.Session{User: resp.User, Token: resp.AccessToken}
	if err := s.sessions.Save(sess); err != nil {
		return nil, err
	}
	s.log.Info("logged in", "user_id", sess.User.UserID, "role", sess.User.Role)
	return sess, nil
}

// Register creates the account and logs straight in with the same
// credentials, so a fresh install lands authenticated.
func (s *Service) Register(ctx context.Context, reg Registration) (*models.Session, error) {
	if err := s.api.Post(ctx, "/auth/register", reg, nil); err != nil {
		return nil, err
	}
	return s.Login(ctx, Credentials{Email: reg.Email, Password: reg.Password})
}

// ProfileUpdate carries only the fields the user may change.
type ProfileUpdate struct {
	Name        string `json:"name,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// UpdateProfile patches the server-side profile and refreshes the
// persisted identity so screens render the new details immediately.
func (s *Service) UpdateProfile(ctx context.Context, update ProfileUpdate) (*models.Session, error) {
	sess, err := s.sessions.Load()
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, errors.New("no live session")
	}

	var updated models.User
	if err := s.api.Patch(ctx, "/users/"+sess.User.UserID, update, &updated); err != nil {
		return nil, err
	}
	if updated.UserID == "" {
		// Server acknowledged without a body; apply the patch locally.
		updated = sess.User
		if update.Name != "" {
			updated.Name = update.Name
		}
		if update.PhoneNumber != "" {
			updated.PhoneNumber = update.PhoneNumber
		}
	}
	sess.User = updated
	if err := s.sessions.Save(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout drops the persisted session. The store broadcasts the logout
// signal when state was actually removed.
func (s *Service) Logout() error {
	return s.sessions.Clear()
}
