package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cyp0633/librecur/server/auth"
)

// User represents a user in the memory store
type User struct {
	Username string
	Password string // In production this should be hashed
	ReadOnly bool
}

// Store implements an in-memory authentication store
type Store struct {
	mu     sync.RWMutex
	users  map[string]User   // map[username]User
	tokens map[string]string // map[token]username
	logger *slog.Logger
}

// New creates a new in-memory authentication store
func New(opts ...Option) *Store {
	s := &Store{
		users:  make(map[string]User),
		tokens: make(map[string]string),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	// Apply options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Option represents a configuration option for the Store
type Option func(*Store)

// WithLogger sets the logger for the store
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// AddUser adds a new user to the store
func (s *Store) AddUser(username, password string, readOnly bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; exists {
		s.logger.Warn("failed to add user: already exists",
			"username", username)
		return fmt.Errorf("user already exists: %s", username)
	}

	s.users[username] = User{
		Username: username,
		Password: password,
		ReadOnly: readOnly,
	}

	s.logger.Info("user added successfully",
		"username", username,
		"read_only", readOnly)

	return nil
}

// AddToken registers a bearer token acting as username.
func (s *Store) AddToken(token, username string) error {
	if token == "" {
		return fmt.Errorf("token cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[username]; !exists {
		return fmt.Errorf("unknown user: %s", username)
	}
	if _, exists := s.tokens[token]; exists {
		return fmt.Errorf("token already registered")
	}
	s.tokens[token] = username

	s.logger.Info("token added", "username", username)
	return nil
}

func invalidCredentials() error {
	return &auth.Error{
		Type:    auth.ErrInvalidCredentials,
		Message: "invalid username or password",
	}
}

// Authenticate implements auth.Authenticator
func (s *Store) Authenticate(ctx context.Context, creds auth.Credentials) (*auth.Principal, error) {
	if creds.Token != "" {
		return s.authenticateToken(creds.Token)
	}

	s.mu.RLock()
	user, exists := s.users[creds.Username]
	s.mu.RUnlock()

	if !exists {
		s.logger.Info("authentication failed: user not found",
			"username", creds.Username)
		return nil, invalidCredentials()
	}

	// token-only users have no password and cannot use basic auth
	if user.Password == "" || subtle.ConstantTimeCompare([]byte(user.Password), []byte(creds.Password)) != 1 {
		s.logger.Info("authentication failed: invalid password",
			"username", creds.Username)
		return nil, invalidCredentials()
	}

	s.logger.Debug("authentication successful",
		"username", creds.Username)

	return &auth.Principal{ID: user.Username, ReadOnly: user.ReadOnly}, nil
}

// authenticateToken compares against every registered token so the time
// taken does not depend on which one matched.
func (s *Store) authenticateToken(token string) (*auth.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	username := ""
	for known, name := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			username = name
		}
	}
	if username == "" {
		s.logger.Info("authentication failed: unknown token")
		return nil, &auth.Error{
			Type:    auth.ErrInvalidCredentials,
			Message: "invalid token",
		}
	}

	user := s.users[username]
	s.logger.Debug("token authentication successful", "username", username)
	return &auth.Principal{ID: user.Username, ReadOnly: user.ReadOnly}, nil
}

// ValidateAccess implements auth.Authenticator
func (s *Store) ValidateAccess(ctx context.Context, principal *auth.Principal, method, path string) error {
	if principal == nil {
		s.logger.Info("access validation failed: no principal")
		return &auth.Error{
			Type:    auth.ErrUnauthorized,
			Message: "authentication required",
		}
	}

	if principal.ReadOnly && method != http.MethodGet && method != http.MethodHead && method != http.MethodOptions {
		s.logger.Warn("access validation failed: forbidden",
			"username", principal.ID,
			"method", method,
			"path", path)
		return &auth.Error{
			Type:    auth.ErrForbidden,
			Message: fmt.Sprintf("read-only access: %s %s", method, path),
		}
	}

	s.logger.Debug("access validation successful",
		"username", principal.ID,
		"method", method,
		"path", path)

	return nil
}
