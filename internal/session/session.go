// Package session mirrors the authenticated user in memory. The backend is the
// source of truth (via cookies); this copy only drives role-dependent UI.
package session

import (
	"errors"
	"sync"

	"kasirinaja/desktop/internal/domain"
)

var ErrMissingUserID = errors.New("user record has no id")

// Store holds at most one session. Set and Clear are expected to be called from
// a single goroutine (login, logout, 401 handling); readers may be concurrent.
type Store struct {
	mu      sync.RWMutex
	current *domain.Session
}

func New() *Store {
	return &Store{}
}

// ClassifyRole maps a backend role id to the admin and cashier flags.
func ClassifyRole(roleID int64) (isAdmin bool, isCashier bool) {
	switch roleID {
	case domain.RoleAdmin:
		return true, false
	case domain.RoleCashier:
		return false, true
	default:
		return false, false
	}
}

// FromRecord builds a Session from a user record. It accepts "id" or "userId",
// "fullName" or "name", and "roleId", "role_id" or a nested "role": {"id": n}.
func FromRecord(user domain.Record) (domain.Session, error) {
	userID, ok := user.Int("id")
	if !ok {
		userID, ok = user.Int("userId")
	}
	if !ok {
		return domain.Session{}, ErrMissingUserID
	}

	fullName := user.String("fullName")
	if fullName == "" {
		fullName = user.String("name")
	}

	roleID, ok := user.Int("roleId")
	if !ok {
		roleID, ok = user.Int("role_id")
	}
	if !ok {
		if role, nested := user.Object("role"); nested {
			roleID, _ = role.Int("id")
		}
	}

	isAdmin, isCashier := ClassifyRole(roleID)
	return domain.Session{
		UserID:    userID,
		Username:  user.String("username"),
		Email:     user.String("email"),
		FullName:  fullName,
		RoleID:    roleID,
		IsAdmin:   isAdmin,
		IsCashier: isCashier,
	}, nil
}

// Set replaces the current session with one built from user. On error the
// previous session is left untouched.
func (s *Store) Set(user domain.Record) (domain.Session, error) {
	sess, err := FromRecord(user)
	if err != nil {
		return domain.Session{}, err
	}
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return sess, nil
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

func (s *Store) Current() (domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.Session{}, false
	}
	return *s.current, true
}

func (s *Store) Active() bool {
	_, ok := s.Current()
	return ok
}

func (s *Store) IsAdmin() bool {
	sess, ok := s.Current()
	return ok && sess.IsAdmin
}

func (s *Store) IsCashier() bool {
	sess, ok := s.Current()
	return ok && sess.IsCashier
}
