// Package account manages the single device account and its logged-in flag.
package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/dukerupert/purrfect/internal/foodlog"
	"golang.org/x/crypto/bcrypt"
)

const (
	KeyUser     = "user"
	KeyLoggedIn = "loggedIn"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrUserExists         = errors.New("a user already exists")
	ErrNoUser             = errors.New("no user found")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// KV is the subset of the device store the account needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// record is the stored user. Password holds a plaintext password written by
// older versions and is dropped the first time that user logs in.
type record struct {
	Username     string `json:"username"`
	PasswordHash string `json:"password_hash,omitempty"`
	Password     string `json:"password,omitempty"`
}

type Service struct {
	// mu serializes changes to the user record.
	mu     sync.Mutex
	kv     KV
	cost   int
	logger *slog.Logger
}

func NewService(kv KV, logger *slog.Logger) *Service {
	return &Service{kv: kv, cost: bcrypt.DefaultCost, logger: logger}
}

// SignUp creates the account and logs it in. Only one account may exist.
func (s *Service) SignUp(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok, err := s.load(ctx)
	if err != nil {
		return err
	}
	if ok {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.save(ctx, record{Username: username, PasswordHash: string(hash)}); err != nil {
		return err
	}
	return s.setLoggedIn(ctx, true)
}

// Login checks the credentials against the stored account and logs it in.
func (s *Service) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.load(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNoUser
	}
	if rec.Username != username {
		return ErrInvalidCredentials
	}

	switch {
	case rec.PasswordHash != "":
		if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
	case rec.Password != "" && rec.Password == password:
		hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		if err := s.save(ctx, record{Username: rec.Username, PasswordHash: string(hash)}); err != nil {
			return err
		}
		s.logger.Info("upgraded plaintext credentials", "username", rec.Username)
	default:
		return ErrInvalidCredentials
	}

	return s.setLoggedIn(ctx, true)
}

func (s *Service) Logout(ctx context.Context) error {
	return s.setLoggedIn(ctx, false)
}

// LoggedIn reports whether the loggedIn flag is "true".
func (s *Service) LoggedIn(ctx context.Context) (bool, error) {
	v, _, err := s.kv.Get(ctx, KeyLoggedIn)
	if err != nil {
		return false, fmt.Errorf("get logged in: %w", err)
	}
	return v == "true", nil
}

// Username returns the stored account name, or "" if none exists.
func (s *Service) Username(ctx context.Context) (string, error) {
	rec, _, err := s.load(ctx)
	if err != nil {
		return "", err
	}
	return rec.Username, nil
}

func (s *Service) load(ctx context.Context) (record, bool, error) {
	raw, ok, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return record{}, false, fmt.Errorf("get user: %w", err)
	}
	if !ok {
		return record{}, false, nil
	}
	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.logger.Warn("corrupt stored document", "key", KeyUser, "error", err)
		return record{}, false, &foodlog.CorruptStateError{Key: KeyUser, Err: err}
	}
	return rec, true, nil
}

func (s *Service) save(ctx context.Context, rec record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (s *Service) setLoggedIn(ctx context.Context, v bool) error {
	val := "false"
	if v {
		val = "true"
	}
	if err := s.kv.Set(ctx, KeyLoggedIn, val); err != nil {
		return fmt.Errorf("set logged in: %w", err)
	}
	return nil
}
