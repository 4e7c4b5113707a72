// Package auth drives the /api/auth endpoints and keeps the in-memory session
// in step with the backend's cookie session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"kasirinaja/desktop/internal/apiclient"
	"kasirinaja/desktop/internal/domain"
	"kasirinaja/desktop/internal/logger"
	"kasirinaja/desktop/internal/notify"
	"kasirinaja/desktop/internal/session"
)

const (
	PathLogin  = "/api/auth/login"
	PathSignup = "/api/auth/signup"
	PathLogout = "/api/auth/logout"
	PathMe     = "/api/auth/me"
)

const sessionExpiredMessage = "Your session has expired. Please log in again."

var ErrLoginRejected = errors.New("login rejected")

type Service struct {
	client   *apiclient.Client
	sessions *session.Store
	notifier notify.Notifier
	log      *zap.Logger
	now      func() time.Time

	// expiryNoticed is set once the expiry notice went out and re-armed on login.
	expiryNoticed atomic.Bool
}

// New wires the service and registers it as the client's 401 handler.
func New(client *apiclient.Client, sessions *session.Store, notifier notify.Notifier, log *zap.Logger) *Service {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	s := &Service{
		client:   client,
		sessions: sessions,
		notifier: notifier,
		log:      logger.OrNop(log),
		now:      time.Now,
	}
	client.OnUnauthorized(s.HandleUnauthorized)
	return s
}

func (s *Service) Login(ctx context.Context, username string, password string) (domain.Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return domain.Session{}, fmt.Errorf("%w: username and password are required", ErrLoginRejected)
	}

	// Cookies left by an earlier session must not leak into this one.
	s.client.Cookies().Clear()

	body, err := s.client.Post(ctx, PathLogin, domain.LoginRequest{Username: username, Password: password})
	if err != nil {
		var httpErr *apiclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status < 500 {
			return domain.Session{}, fmt.Errorf("%w: %s", ErrLoginRejected, httpErr.Message)
		}
		return domain.Session{}, err
	}

	obj, err := apiclient.ParseObject(body)
	if err != nil {
		return domain.Session{}, err
	}
	if obj.Has("success") && !apiclient.IsSuccessful(body) {
		return domain.Session{}, fmt.Errorf("%w: %s", ErrLoginRejected, apiclient.GetMessage(body))
	}

	user, err := userRecord(body)
	if err != nil {
		return domain.Session{}, err
	}
	sess, err := s.sessions.Set(user)
	if err != nil {
		return domain.Session{}, fmt.Errorf("%w: %v", ErrLoginRejected, err)
	}
	s.expiryNoticed.Store(false)

	s.log.Info("logged in",
		zap.Int64("user_id", sess.UserID),
		zap.Int64("role_id", sess.RoleID),
	)
	return sess, nil
}

func (s *Service) Signup(ctx context.Context, req domain.SignupRequest) (domain.Result, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.FullName = strings.TrimSpace(req.FullName)
	if req.Username == "" || req.Password == "" {
		return domain.Result{}, fmt.Errorf("username and password are required")
	}

	body, err := s.client.Post(ctx, PathSignup, req)
	if err != nil {
		return domain.Result{}, err
	}
	return domain.Result{
		Success: apiclient.IsSuccessful(body),
		Message: apiclient.GetMessage(body),
	}, nil
}

// Logout ends the session remotely and always clears local state, even when the
// backend cannot be reached.
func (s *Service) Logout(ctx context.Context) error {
	s.sessions.Clear()
	_, err := s.client.Post(ctx, PathLogout, nil)
	s.client.Cookies().Clear()
	if err != nil && !apiclient.IsUnauthorized(err) {
		s.log.Warn("logout request failed; local session cleared", zap.Error(err))
		return err
	}
	return nil
}

// Me reloads the current user from the backend and replaces the session.
func (s *Service) Me(ctx context.Context) (domain.Session, error) {
	body, err := s.client.Get(ctx, PathMe)
	if err != nil {
		return domain.Session{}, err
	}
	user, err := userRecord(body)
	if err != nil {
		return domain.Session{}, err
	}
	return s.sessions.Set(user)
}

// HandleUnauthorized runs after the client saw a 401 and dropped the cookies.
// It clears the session and emits the expiry notice once per login.
func (s *Service) HandleUnauthorized(ctx context.Context) {
	_, hadSession := s.sessions.Current()
	s.sessions.Clear()
	if !hadSession || !s.expiryNoticed.CompareAndSwap(false, true) {
		return
	}

	notice := domain.Notice{
		Kind:    domain.NoticeSessionExpired,
		Message: sessionExpiredMessage,
		At:      s.now(),
	}
	if err := s.notifier.Notify(context.WithoutCancel(ctx), notice); err != nil {
		s.log.Warn("failed to deliver session expiry notice", zap.Error(err))
	}
}

// userRecord finds the user in a login or me body: bare, under "data", or
// under "data.user".
func userRecord(body string) (domain.Record, error) {
	data, err := apiclient.ParseData(body)
	if err != nil {
		return nil, err
	}
	if user, ok := data.Object("user"); ok {
		return user, nil
	}
	return data, nil
}
