package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comanda/pos/domain"
	"comanda/pos/internal/realtime"
	"comanda/pos/internal/remote"
	"comanda/pos/internal/storage"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemStore() *memStore { return &memStore{data: map[string]string{}} }

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

type fakeAPI struct {
	status int
	resp   remote.LoginResponse
	err    error
}

func (f *fakeAPI) Login(context.Context, string, string) (int, remote.LoginResponse, error) {
	return f.status, f.resp, f.err
}

type fakeRealtime struct {
	connected     bool
	authenticated []string
	disconnected  int
	hooks         []func()
	dials         chan struct{}
}

func (f *fakeRealtime) Status() realtime.Status { return realtime.Status{Connected: f.connected} }
func (f *fakeRealtime) Authenticate(userID, username string) error {
	f.authenticated = append(f.authenticated, userID+":"+username)
	return nil
}
func (f *fakeRealtime) Connect(context.Context) error {
	if f.dials != nil {
		f.dials <- struct{}{}
	}
	return nil
}
func (f *fakeRealtime) Disconnect()         { f.disconnected++ }
func (f *fakeRealtime) OnConnect(fn func()) { f.hooks = append(f.hooks, fn) }

func okLogin() *fakeAPI {
	userType := " waiter "
	return &fakeAPI{status: http.StatusOK, resp: remote.LoginResponse{Success: true, NameUser: "Ana", CompanyID: "c1", ID: "u1", UserType: &userType}}
}

func TestStore_Login_PersistsAndAuthenticatesRealtime(t *testing.T) {
	kv := newMemStore()
	rt := &fakeRealtime{connected: true}
	s := New(okLogin(), kv, rt, 0)

	_, ok, err := s.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	require.True(t, ok)

	user, found := s.User()
	require.True(t, found)
	assert.Equal(t, "c1", user.CompanyID)
	assert.Equal(t, "WAITER", *user.UserType)
	assert.Equal(t, []string{"u1:Ana"}, rt.authenticated)
	assert.Contains(t, kv.data, storage.SessionKey)
}

func TestStore_Login_DialsRealtimeWhenDisconnected(t *testing.T) {
	rt := &fakeRealtime{dials: make(chan struct{}, 1)}
	s := New(okLogin(), newMemStore(), rt, 0)

	_, ok, err := s.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	select {
	case <-rt.dials:
	case <-time.After(2 * time.Second):
		t.Fatal("login did not reopen the realtime socket")
	}
	assert.Empty(t, rt.authenticated)

	// the connect hook authenticates once the socket comes up
	require.Len(t, rt.hooks, 1)
	rt.hooks[0]()
	assert.Equal(t, []string{"u1:Ana"}, rt.authenticated)
}

type userAPI struct{}

func (userAPI) Login(_ context.Context, username, _ string) (int, remote.LoginResponse, error) {
	return http.StatusOK, remote.LoginResponse{Success: true, ID: "id-" + username, NameUser: username, CompanyID: "c1"}, nil
}

// heldStore blocks the first write whose value contains hold until release closes.
type heldStore struct {
	*memStore
	hold    string
	reached chan struct{}
	release chan struct{}
	once    sync.Once
}

func (h *heldStore) Set(ctx context.Context, key, value string) error {
	if strings.Contains(value, h.hold) {
		h.once.Do(func() {
			close(h.reached)
			<-h.release
		})
	}
	return h.memStore.Set(ctx, key, value)
}

func TestStore_Login_ReturnsOwnUserUnderConcurrentLogin(t *testing.T) {
	kv := &heldStore{memStore: newMemStore(), hold: "id-alice", reached: make(chan struct{}), release: make(chan struct{})}
	s := New(userAPI{}, kv, nil, 0)

	type result struct {
		user domain.User
		err  error
	}
	done := make(chan result, 1)
	go func() {
		user, _, err := s.Login(context.Background(), "alice", "pw")
		done <- result{user, err}
	}()
	<-kv.reached

	bob, ok, err := s.Login(context.Background(), "bob", "pw")
	require.NoError(t, err)
	require.True(t, ok)
	close(kv.release)

	alice := <-done
	require.NoError(t, alice.err)
	assert.Equal(t, "id-alice", alice.user.ID)
	assert.Equal(t, "id-bob", bob.ID)
}

func TestStore_Login_Rejected(t *testing.T) {
	s := New(&fakeAPI{status: http.StatusOK, resp: remote.LoginResponse{Success: false}}, newMemStore(), nil, 0)

	_, ok, err := s.Login(context.Background(), "ana", "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, s.IsAuthenticated())
}

func TestStore_Login_ServerErrorIsRejection(t *testing.T) {
	s := New(&fakeAPI{err: &remote.StatusError{Status: http.StatusUnauthorized}}, newMemStore(), nil, 0)

	_, ok, err := s.Login(context.Background(), "ana", "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Login_NetworkErrorPropagates(t *testing.T) {
	netErr := &remote.NetworkError{BaseURL: "http://x/", Err: errors.New("dial")}
	s := New(&fakeAPI{err: netErr}, newMemStore(), nil, 0)

	_, ok, err := s.Login(context.Background(), "ana", "pw")
	assert.False(t, ok)
	assert.ErrorIs(t, err, netErr)
}

func TestStore_Initialize_RestoresSession(t *testing.T) {
	kv := newMemStore()
	first := New(okLogin(), kv, nil, 0)
	_, _, err := first.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	second := New(nil, kv, nil, 0)
	require.NoError(t, second.Initialize(context.Background()))
	user, ok := second.User()
	require.True(t, ok)
	assert.Equal(t, "u1", user.ID)
}

func TestStore_Initialize_DiscardsCorruptBlob(t *testing.T) {
	kv := newMemStore()
	kv.data[storage.SessionKey] = "{not json"
	s := New(nil, kv, nil, 0)

	require.NoError(t, s.Initialize(context.Background()))
	assert.False(t, s.IsAuthenticated())
	assert.NotContains(t, kv.data, storage.SessionKey)
}

func TestStore_Logout_ClearsEverything(t *testing.T) {
	kv := newMemStore()
	rt := &fakeRealtime{connected: true}
	s := New(okLogin(), kv, rt, 0)
	_, _, err := s.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	require.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 1, rt.disconnected)
	assert.NotContains(t, kv.data, storage.SessionKey)
}

func TestStore_ValidateSession_ExpiresAfterTTL(t *testing.T) {
	kv := newMemStore()
	s := New(okLogin(), kv, nil, time.Hour)
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return start }
	_, _, err := s.Login(context.Background(), "ana", "pw")
	require.NoError(t, err)

	s.now = func() time.Time { return start.Add(30 * time.Minute) }
	assert.True(t, s.ValidateSession(context.Background()))

	s.now = func() time.Time { return start.Add(2 * time.Hour) }
	assert.False(t, s.ValidateSession(context.Background()))
	assert.False(t, s.IsAuthenticated())
}
