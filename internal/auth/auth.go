// Package auth holds the authenticated identity of the terminal.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"comanda/pos/domain"
	"comanda/pos/internal/realtime"
	"comanda/pos/internal/remote"
	"comanda/pos/internal/storage"
)

// ErrNotAuthenticated is returned when an operation needs a logged-in user.
var ErrNotAuthenticated = errors.New("auth: not authenticated")

// DefaultSessionTTL is how long a persisted login stays valid.
const DefaultSessionTTL = 24 * time.Hour

// API is the part of the remote client the store needs.
type API interface {
	Login(ctx context.Context, username, password string) (int, remote.LoginResponse, error)
}

// Realtime is the part of the realtime channel the store drives.
type Realtime interface {
	Status() realtime.Status
	Authenticate(userID, username string) error
	Connect(ctx context.Context) error
	Disconnect()
	OnConnect(fn func())
}

type persistedSession struct {
	IsAuthenticated bool         `json:"isAuthenticated"`
	User            *domain.User `json:"user"`
	LoginTime       time.Time    `json:"loginTime"`
}

// Store is the session/identity store.
type Store struct {
	api API
	kv  storage.Store
	rt  Realtime
	ttl time.Duration
	now func() time.Time

	mu            sync.RWMutex
	authenticated bool
	user          *domain.User
}

// New constructs a Store. rt may be nil when no realtime channel is used.
func New(api API, kv storage.Store, rt Realtime, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s := &Store{api: api, kv: kv, rt: rt, ttl: ttl, now: time.Now}
	if rt != nil {
		rt.OnConnect(s.authenticateRealtime)
	}
	return s
}

// Initialize restores a persisted session. A corrupt blob is discarded.
func (s *Store) Initialize(ctx context.Context) error {
	raw, err := s.kv.Get(ctx, storage.SessionKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var saved persistedSession
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		log.Printf("error parsing saved auth data: %v", err)
		return s.kv.Remove(ctx, storage.SessionKey)
	}
	if saved.IsAuthenticated && saved.User != nil {
		s.mu.Lock()
		s.authenticated = true
		s.user = saved.User
		s.mu.Unlock()
	}
	return nil
}

// Login authenticates against the API and returns the identity it produced.
// A rejected login returns false with a nil error; transport and storage
// failures return the error. Callers must use the returned user rather than
// reading User back, which a concurrent login may already have replaced.
func (s *Store) Login(ctx context.Context, username, password string) (domain.User, bool, error) {
	status, resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		log.Printf("login request failed: %v", err)
		var se *remote.StatusError
		if errors.As(err, &se) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	if status != http.StatusOK || !resp.Success {
		log.Printf("login failed for %s", username)
		return domain.User{}, false, nil
	}

	user := &domain.User{
		ID:        resp.ID,
		Username:  username,
		Name:      resp.NameUser,
		CompanyID: resp.CompanyID,
		UserType:  normalizeUserType(resp.UserType),
	}

	s.mu.Lock()
	s.authenticated = true
	s.user = user
	s.mu.Unlock()

	saved := persistedSession{IsAuthenticated: true, User: user, LoginTime: s.now().UTC()}
	if err := storage.SetJSON(ctx, s.kv, storage.SessionKey, saved); err != nil {
		return *user, true, err
	}

	if s.rt != nil {
		if s.rt.Status().Connected {
			s.authenticateRealtime()
		} else {
			// a previous logout closed the socket; the connect hook authenticates
			go s.connectRealtime()
		}
	}
	return *user, true, nil
}

func (s *Store) connectRealtime() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.rt.Connect(ctx); err != nil {
		log.Printf("realtime connect after login failed: %v", err)
	}
}

func normalizeUserType(t *string) *string {
	if t == nil || *t == "" {
		return nil
	}
	v := strings.ToUpper(strings.TrimSpace(*t))
	return &v
}

func (s *Store) authenticateRealtime() {
	user, ok := s.User()
	if !ok || s.rt == nil {
		return
	}
	if err := s.rt.Authenticate(user.ID, user.Name); err != nil {
		log.Printf("realtime authentication skipped: %v", err)
	}
}

// Logout clears the identity, disconnects realtime and drops the persisted session.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.authenticated = false
	s.user = nil
	s.mu.Unlock()

	if s.rt != nil {
		s.rt.Disconnect()
	}
	return s.kv.Remove(ctx, storage.SessionKey)
}

// ValidateSession logs out sessions older than the TTL. It reports whether a
// valid persisted session exists.
func (s *Store) ValidateSession(ctx context.Context) bool {
	var saved persistedSession
	err := storage.GetJSON(ctx, s.kv, storage.SessionKey, &saved)
	if errors.Is(err, storage.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Printf("error validating session: %v", err)
		_ = s.Logout(ctx)
		return false
	}
	if s.now().Sub(saved.LoginTime) > s.ttl {
		_ = s.Logout(ctx)
		return false
	}
	return true
}

// User returns a copy of the current identity.
func (s *Store) User() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated || s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}
