// Package session tracks the authenticated user and drives auth flows.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/drivelink/drivelink/internal/api"
	"github.com/drivelink/drivelink/internal/config"
	"github.com/drivelink/drivelink/internal/events"
	"github.com/drivelink/drivelink/internal/logging"
	"github.com/drivelink/drivelink/internal/models"
)

// Status is the session lifecycle state.
type Status string

const (
	// StatusInitializing - before Restore has run.
	StatusInitializing Status = "initializing"
	// StatusAnonymous - no authenticated user.
	StatusAnonymous Status = "anonymous"
	// StatusAuthenticated - a user profile is loaded.
	StatusAuthenticated Status = "authenticated"
)

// Result reports the outcome of an auth operation with a message fit for
// direct display.
type Result struct {
	Success bool
	Error   string
}

func ok() Result             { return Result{Success: true} }
func fail(msg string) Result { return Result{Error: msg} }

// ChangedEvent is published on every session transition.
type ChangedEvent struct {
	events.BaseEvent
	Status Status
	User   *models.UserProfile
	Epoch  uint64
}

// Manager owns the process's single session. Status and user move together:
// user is non-nil exactly when status is StatusAuthenticated. The epoch
// counter advances on every transition to anonymous so slower layers can
// detect that results they are holding belong to a session that ended.
type Manager struct {
	client *api.Client
	store  *config.CredentialStore
	bus    *events.EventBus
	logger *logging.Logger

	mu     sync.RWMutex
	status Status
	user   *models.UserProfile
	epoch  uint64
}

// NewManager creates a session manager in the initializing state and
// registers it as the client's expired-session handler.
func NewManager(client *api.Client, store *config.CredentialStore, bus *events.EventBus, logger *logging.Logger) *Manager {
	m := &Manager{
		client: client,
		store:  store,
		bus:    bus,
		logger: logger,
		status: StatusInitializing,
	}
	client.SetSessionExpiredHandler(m.handleExpired)
	return m
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsAuthenticated reports whether a user is logged in.
func (m *Manager) IsAuthenticated() bool {
	return m.Status() == StatusAuthenticated
}

// User returns the authenticated user's profile, or nil when anonymous.
func (m *Manager) User() *models.UserProfile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user
}

// Epoch returns the current session epoch. Callers snapshot it before a
// remote call and discard the result if it has moved by completion time.
func (m *Manager) Epoch() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.epoch
}

// Restore resolves the persisted session at startup. Without a stored
// access token it settles on anonymous immediately; otherwise it validates
// the token by fetching the profile. Validation failures are logged and
// swallowed, the user simply starts logged out.
func (m *Manager) Restore(ctx context.Context) Result {
	if !m.store.Get().HasAccess() {
		m.toAnonymous()
		return ok()
	}

	profile, err := m.client.Profile(ctx)
	if err != nil {
		m.logger.Debug().Err(err).Msg("session restore failed")
		m.toAnonymous()
		return ok()
	}

	m.toAuthenticated(profile)
	return ok()
}

// Login authenticates with the server and loads the user profile. On any
// failure the session state is left untouched and the message is returned
// for display.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) Result {
	pair, err := m.client.Login(ctx, creds)
	if err != nil {
		m.logger.Debug().Err(err).Str("email", creds.Email).Msg("login failed")
		return fail(err.Error())
	}
	return m.establish(ctx, pair)
}

// Signup creates an account and signs the new user in.
func (m *Manager) Signup(ctx context.Context, creds models.Credentials) Result {
	pair, err := m.client.Signup(ctx, creds)
	if err != nil {
		m.logger.Debug().Err(err).Str("email", creds.Email).Msg("signup failed")
		return fail(err.Error())
	}
	return m.establish(ctx, pair)
}

// establish persists the issued token pair and promotes the session to
// authenticated. A failed profile fetch rolls the stored tokens back so a
// half-established session never survives.
func (m *Manager) establish(ctx context.Context, pair models.TokenPair) Result {
	if err := m.store.Set(pair); err != nil {
		return fail("failed to save credentials: " + err.Error())
	}

	profile, err := m.client.Profile(ctx)
	if err != nil {
		if clearErr := m.store.Clear(); clearErr != nil {
			m.logger.Warn().Err(clearErr).Msg("failed to roll back credentials")
		}
		return fail(err.Error())
	}

	m.toAuthenticated(profile)
	return ok()
}

// Logout revokes the refresh token remotely, then unconditionally drops
// the local session. A server that cannot be reached still ends up with
// the user logged out on this machine.
func (m *Manager) Logout(ctx context.Context) Result {
	pair := m.store.Get()
	if pair.HasRefresh() {
		if err := m.client.Logout(ctx, pair.RefreshToken); err != nil {
			m.logger.Debug().Err(err).Msg("remote logout failed, clearing local session anyway")
		}
	}

	if err := m.store.Clear(); err != nil {
		m.logger.Warn().Err(err).Msg("failed to clear credentials on logout")
	}
	m.toAnonymous()
	return ok()
}

// handleExpired runs when the transport's token refresh fails terminally.
// The store is already cleared by then; this drops the in-memory session.
func (m *Manager) handleExpired() {
	m.logger.Debug().Msg("session expired, dropping to anonymous")
	m.toAnonymous()
}

func (m *Manager) toAuthenticated(user *models.UserProfile) {
	m.mu.Lock()
	m.status = StatusAuthenticated
	m.user = user
	ev := m.changedEventLocked()
	m.mu.Unlock()
	m.publish(ev)
}

func (m *Manager) toAnonymous() {
	m.mu.Lock()
	m.status = StatusAnonymous
	m.user = nil
	m.epoch++
	ev := m.changedEventLocked()
	m.mu.Unlock()
	m.publish(ev)
}

func (m *Manager) changedEventLocked() *ChangedEvent {
	return &ChangedEvent{
		BaseEvent: events.BaseEvent{EventType: events.EventSessionChanged, Time: time.Now()},
		Status:    m.status,
		User:      m.user,
		Epoch:     m.epoch,
	}
}

func (m *Manager) publish(ev *ChangedEvent) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}
