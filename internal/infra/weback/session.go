package weback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"weback-home/internal/infra/credstore"
)

const (
	// ValidityMargin is how long before its expiry a token stops being used.
	ValidityMargin = 15 * time.Minute
	// ExpirySafety is subtracted from the server reported lifetime.
	ExpirySafety = 60 * time.Second
	// LoginHoldOff is how long a failed login is reported again instead of
	// retried.
	LoginHoldOff = 30 * time.Second
)

// Session is the state of one successful login. It is replaced as a
// whole, never patched.
type Session struct {
	User   string
	Token  string
	Region string
	APIURL string
	WSSURL string
	Expiry time.Time
}

// ValidAt reports whether the token can still be used at now.
func (s Session) ValidAt(now time.Time) bool {
	return s.Token != "" && now.Before(s.Expiry.Add(-ValidityMargin))
}

func (s Session) record() credstore.Record {
	return credstore.Record{
		User:       s.User,
		JWTToken:   s.Token,
		TokenExp:   s.Expiry,
		APIURL:     s.APIURL,
		WSSURL:     s.WSSURL,
		RegionName: s.Region,
	}
}

func sessionFromRecord(r credstore.Record) Session {
	return Session{
		User:   r.User,
		Token:  r.JWTToken,
		Region: r.RegionName,
		APIURL: r.APIURL,
		WSSURL: r.WSSURL,
		Expiry: r.TokenExp,
	}
}

// CredentialStore persists the last session. Load reports false for a
// missing or unusable record; Save never fails the caller.
type CredentialStore interface {
	Load(ctx context.Context) (credstore.Record, bool)
	Save(ctx context.Context, record credstore.Record)
}

// Grant is what a fresh login yields: the session fields plus the token
// lifetime reported by the server.
type Grant struct {
	Token    string
	Region   string
	APIURL   string
	WSSURL   string
	Lifetime time.Duration
}

type LoginFunc func(ctx context.Context) (Grant, error)

// SessionManager decides between the active session, the cached record
// and a fresh login. Concurrent callers share a single login.
type SessionManager struct {
	user   string
	store  CredentialStore
	login  LoginFunc
	now    func() time.Time
	logger *slog.Logger

	mu          sync.Mutex
	session     *Session
	failedLogin error
	failedAt    time.Time
}

// NewSessionManager starts without a session; the first EnsureSession
// consults the store and then login.
func NewSessionManager(user string, store CredentialStore, login LoginFunc, logger *slog.Logger) *SessionManager {
	return &SessionManager{
		user:   user,
		store:  store,
		login:  login,
		now:    time.Now,
		logger: logger,
	}
}

func (m *SessionManager) WithClock(now func() time.Time) *SessionManager {
	m.now = now
	return m
}

// EnsureSession returns a session valid now, logging in when neither the
// active session nor the cached record qualifies. A failed login keeps the
// previous session and is not retried for LoginHoldOff.
func (m *SessionManager) EnsureSession(ctx context.Context) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()

	if m.session != nil && m.session.ValidAt(now) {
		loginTotal.WithLabelValues("active").Inc()
		return *m.session, nil
	}

	if s, ok := m.loadCached(ctx, now); ok {
		m.adopt(s)
		loginTotal.WithLabelValues("cache").Inc()
		m.logger.Debug("using cached weback credentials", "expiry", s.Expiry)
		return s, nil
	}

	if m.failedLogin != nil && now.Sub(m.failedAt) < LoginHoldOff {
		loginTotal.WithLabelValues("held_off").Inc()
		return Session{}, fmt.Errorf("login held off after failure at %s: %w",
			m.failedAt.Format(time.RFC3339), m.failedLogin)
	}

	grant, err := m.login(ctx)
	if err != nil {
		loginTotal.WithLabelValues("failed").Inc()
		if ctx.Err() == nil {
			m.failedLogin = err
			m.failedAt = now
		}
		return Session{}, err
	}
	m.failedLogin = nil

	s := Session{
		User:   m.user,
		Token:  grant.Token,
		Region: grant.Region,
		APIURL: grant.APIURL,
		WSSURL: grant.WSSURL,
		Expiry: now.Add(grant.Lifetime - ExpirySafety),
	}
	m.adopt(s)
	loginTotal.WithLabelValues("login").Inc()
	m.logger.Info("weback login successful", "region", s.Region, "expiry", s.Expiry)

	m.store.Save(ctx, s.record())

	return s, nil
}

// Current returns the active session without any I/O.
func (m *SessionManager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

func (m *SessionManager) loadCached(ctx context.Context, now time.Time) (Session, bool) {
	record, ok := m.store.Load(ctx)
	if !ok {
		m.logger.Debug("no cached weback credentials")
		return Session{}, false
	}
	if record.User != m.user {
		m.logger.Debug("cached weback credentials belong to another user")
		return Session{}, false
	}

	s := sessionFromRecord(record)
	if !s.ValidAt(now) {
		m.logger.Debug("cached weback credentials expired", "expiry", s.Expiry)
		return Session{}, false
	}
	return s, true
}

func (m *SessionManager) adopt(s Session) {
	m.session = &s
	sessionExpiry.Set(float64(s.Expiry.Unix()))
}
