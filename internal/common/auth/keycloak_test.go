// internal/common/auth/keycloak_test.go
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"pos-workers/internal/common/config"
	poserrors "pos-workers/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeycloak struct {
	tokenCalls  int32
	createCode  int
	enabledSent map[string]bool
	users       []User
}

func (f *fakeKeycloak) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/pos/protocol/openid-connect/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.tokenCalls, 1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		_ = json.NewEncoder(w).Encode(TokenResponse{AccessToken: "tok", ExpiresIn: 300})
	})
	mux.HandleFunc("/admin/realms/pos/users", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodPost:
			if f.createCode != 0 {
				w.WriteHeader(f.createCode)
				return
			}
			w.Header().Set("Location", "http://kc/admin/realms/pos/users/kc-123")
			w.WriteHeader(http.StatusCreated)
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(f.users)
		}
	})
	mux.HandleFunc("/admin/realms/pos/users/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]bool
		_ = json.NewDecoder(r.Body).Decode(&body)
		id := r.URL.Path[len("/admin/realms/pos/users/"):]
		if id == "broken" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		f.enabledSent[id] = body["enabled"]
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeKeycloak) *KeycloakClient {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return NewKeycloakClient(config.KeycloakConfig{
		URL:          srv.URL + "/",
		Realm:        "pos",
		ClientID:     "pos-workers",
		ClientSecret: "secret",
		Timeout:      2000,
	})
}

func TestKeycloak_CreateUser(t *testing.T) {
	f := &fakeKeycloak{enabledSent: map[string]bool{}}
	kc := newTestClient(t, f)

	id, err := kc.CreateUser(context.Background(), &User{Email: "s@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "kc-123", id)

	_, err = kc.CreateUser(context.Background(), &User{Email: "t@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&f.tokenCalls), "token is cached")
}

func TestKeycloak_CreateUserConflictReturnsExisting(t *testing.T) {
	f := &fakeKeycloak{
		enabledSent: map[string]bool{},
		createCode:  http.StatusConflict,
		users:       []User{{ID: "kc-existing", Email: "s@example.com"}},
	}
	kc := newTestClient(t, f)

	id, err := kc.CreateUser(context.Background(), &User{Email: "s@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "kc-existing", id)
}

func TestKeycloak_FindUserByEmail(t *testing.T) {
	f := &fakeKeycloak{enabledSent: map[string]bool{}}
	kc := newTestClient(t, f)

	_, err := kc.FindUserByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)

	f.users = []User{{ID: "kc-9", Email: "m@example.com"}}
	u, err := kc.FindUserByEmail(context.Background(), "m@example.com")
	require.NoError(t, err)
	assert.Equal(t, "kc-9", u.ID)
}

func TestKeycloak_SetUserEnabled(t *testing.T) {
	f := &fakeKeycloak{enabledSent: map[string]bool{}}
	kc := newTestClient(t, f)

	require.NoError(t, kc.SetUserEnabled(context.Background(), "kc-9", true))
	assert.True(t, f.enabledSent["kc-9"])

	require.NoError(t, kc.SetUserEnabled(context.Background(), "kc-9", false))
	assert.False(t, f.enabledSent["kc-9"])

	err := kc.SetUserEnabled(context.Background(), "broken", false)
	require.Error(t, err)
	std := poserrors.Normalize(err)
	assert.Equal(t, poserrors.ErrCodeIdentityProviderFailed, std.Code)
	assert.True(t, std.Retryable)
}

func TestSyncEnabled(t *testing.T) {
	f := &fakeKeycloak{enabledSent: map[string]bool{}}
	kc := newTestClient(t, f)

	synced, err := SyncEnabled(context.Background(), kc, "ghost@example.com", true)
	require.NoError(t, err)
	assert.False(t, synced)

	f.users = []User{{ID: "kc-5", Email: "s@example.com", Enabled: false}}
	synced, err = SyncEnabled(context.Background(), kc, "s@example.com", true)
	require.NoError(t, err)
	assert.True(t, synced)
	assert.True(t, f.enabledSent["kc-5"])

	delete(f.enabledSent, "kc-5")
	synced, err = SyncEnabled(context.Background(), kc, "s@example.com", false)
	require.NoError(t, err)
	assert.True(t, synced)
	_, called := f.enabledSent["kc-5"]
	assert.False(t, called, "already disabled account is left alone")
}
