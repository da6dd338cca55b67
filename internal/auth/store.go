package auth

import (
	"context"
	"errors"
	"sync"
)

var ErrDuplicateUsername = errors.New("username already exists")

type UserStore interface {
	Create(ctx context.Context, user User) error
	MatchCredentials(ctx context.Context, username, password string) (bool, error)
	PasswordsByUsername(ctx context.Context, username string) ([]string, error)
}

// InMemoryUserStore keeps rows in insertion order and, like the users table,
// does not reject repeated usernames.
type InMemoryUserStore struct {
	mu    sync.RWMutex
	users []User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{}
}

func (s *InMemoryUserStore) Create(_ context.Context, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = append(s.users, user)
	return nil
}

func (s *InMemoryUserStore) MatchCredentials(_ context.Context, username, password string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username && u.Password == password {
			return true, nil
		}
	}
	return false, nil
}

func (s *InMemoryUserStore) PasswordsByUsername(_ context.Context, username string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for _, u := range s.users {
		if u.Username == username {
			out = append(out, u.Password)
		}
	}
	return out, nil
}

func (s *InMemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}
