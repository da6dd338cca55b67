package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// bcryptMaxInput is the longest secret bcrypt accepts.
const bcryptMaxInput = 72

type Service struct {
	users UserStore
	mode  PasswordMode
	cost  int
}

type ServiceConfig struct {
	PasswordMode PasswordMode
	BcryptCost   int
}

func NewService(userStore UserStore, cfg ServiceConfig) (*Service, error) {
	if userStore == nil {
		return nil, fmt.Errorf("user store is required")
	}

	mode := cfg.PasswordMode
	if mode == "" {
		mode = PasswordPlaintext
	}
	cost := cfg.BcryptCost
	switch mode {
	case PasswordPlaintext:
	case PasswordBcrypt:
		if cost == 0 {
			cost = bcrypt.DefaultCost
		}
		if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
		}
	default:
		return nil, fmt.Errorf("unsupported password mode %q", mode)
	}

	return &Service{users: userStore, mode: mode, cost: cost}, nil
}

func (s *Service) Mode() PasswordMode {
	return s.mode
}

// Login checks the submitted pair against the users table. It returns
// ErrInvalidCredentials when no row matches.
func (s *Service) Login(ctx context.Context, username, password string) error {
	if s.mode == PasswordBcrypt {
		return s.loginBcrypt(ctx, username, password)
	}

	ok, err := s.users.MatchCredentials(ctx, username, password)
	if err != nil {
		return fmt.Errorf("match credentials: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) loginBcrypt(ctx context.Context, username, password string) error {
	hashes, err := s.users.PasswordsByUsername(ctx, username)
	if err != nil {
		return fmt.Errorf("load password hashes: %w", err)
	}
	// Usernames may repeat, so any matching row is enough.
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), bcryptInput(password)) == nil {
			return nil
		}
	}
	return ErrInvalidCredentials
}

// Register stores a new row without any duplicate or strength checks.
func (s *Service) Register(ctx context.Context, username, password string) error {
	stored := password
	if s.mode == PasswordBcrypt {
		hash, err := bcrypt.GenerateFromPassword(bcryptInput(password), s.cost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}
		stored = string(hash)
	}

	if err := s.users.Create(ctx, User{Username: username, Password: stored}); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// bcryptInput returns the bytes fed to bcrypt. Passwords over 72 bytes are
// reduced to the base64 of their SHA-256 so every byte still counts.
func bcryptInput(password string) []byte {
	if len(password) <= bcryptMaxInput {
		return []byte(password)
	}
	sum := sha256.Sum256([]byte(password))
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
