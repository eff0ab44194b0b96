// internal/common/auth/keycloak.go
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"pos-workers/internal/common/config"
	poserrors "pos-workers/internal/common/errors"
	httpclient "pos-workers/internal/common/http"
)

// IdentityProvider is the subset of Keycloak the staff workers need.
type IdentityProvider interface {
	CreateUser(ctx context.Context, user *User) (string, error)
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	SetUserEnabled(ctx context.Context, userID string, enabled bool) error
}

// KeycloakClient talks to the Keycloak admin REST API with a service
// account obtained through the client credentials flow.
type KeycloakClient struct {
	baseURL      string
	realm        string
	clientID     string
	clientSecret string
	http         *httpclient.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// User represents a user in Keycloak.
type User struct {
	ID            string              `json:"id,omitempty"`
	Email         string              `json:"email"`
	FirstName     string              `json:"firstName,omitempty"`
	LastName      string              `json:"lastName,omitempty"`
	Username      string              `json:"username"`
	Enabled       bool                `json:"enabled"`
	EmailVerified bool                `json:"emailVerified"`
	Attributes    map[string][]string `json:"attributes,omitempty"`
}

// TokenResponse holds the response from Keycloak's token endpoint.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

var ErrUserNotFound = errors.New("keycloak user not found")

func NewKeycloakClient(cfg config.KeycloakConfig) *KeycloakClient {
	timeout := config.GetDuration(cfg.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KeycloakClient{
		baseURL:      strings.TrimSuffix(cfg.URL, "/"),
		realm:        cfg.Realm,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		http:         httpclient.NewClient(timeout),
	}
}

// token returns a cached service-account token, refreshing it 30s before expiry.
func (k *KeycloakClient) token(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.accessToken != "" && time.Now().Before(k.tokenExpiry) {
		return k.accessToken, nil
	}

	tokenURL := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", k.baseURL, k.realm)

	data := url.Values{}
	data.Set("grant_type", "client_credentials")
	data.Set("client_id", k.clientID)
	data.Set("client_secret", k.clientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to execute token request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &httpclient.StatusError{StatusCode: resp.StatusCode, Body: "token request rejected"}
	}

	var tr TokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}

	k.accessToken = tr.AccessToken
	k.tokenExpiry = time.Now().Add(time.Duration(tr.ExpiresIn)*time.Second - 30*time.Second)
	return k.accessToken, nil
}

func (k *KeycloakClient) admin(ctx context.Context, method, path string, body, out interface{}) (http.Header, error) {
	tok, err := k.token(ctx)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/admin/realms/%s%s", k.baseURL, k.realm, path)
	return k.http.DoJSON(ctx, method, u, map[string]string{"Authorization": "Bearer " + tok}, body, out)
}

// CreateUser creates user and returns its Keycloak id. An existing account
// with the same email is treated as already created.
func (k *KeycloakClient) CreateUser(ctx context.Context, user *User) (string, error) {
	if user.Username == "" {
		user.Username = user.Email
	}

	hdr, err := k.admin(ctx, http.MethodPost, "/users", user, nil)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
			existing, findErr := k.FindUserByEmail(ctx, user.Email)
			if findErr != nil {
				return "", findErr
			}
			return existing.ID, nil
		}
		return "", identityError(err)
	}

	// Keycloak answers 201 with an empty body; the id is the last segment of Location.
	location := hdr.Get("Location")
	if i := strings.LastIndex(location, "/"); i >= 0 {
		return location[i+1:], nil
	}
	return "", nil
}

func (k *KeycloakClient) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var users []User
	path := "/users?exact=true&email=" + url.QueryEscape(email)
	if _, err := k.admin(ctx, http.MethodGet, path, nil, &users); err != nil {
		return nil, identityError(err)
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

func (k *KeycloakClient) SetUserEnabled(ctx context.Context, userID string, enabled bool) error {
	body := map[string]interface{}{"enabled": enabled}
	if _, err := k.admin(ctx, http.MethodPut, "/users/"+url.PathEscape(userID), body, nil); err != nil {
		return identityError(err)
	}
	return nil
}

// SyncEnabled looks up the account for email and sets its enabled flag.
// synced is false, with a nil error, when no such account exists.
func SyncEnabled(ctx context.Context, idp IdentityProvider, email string, enabled bool) (synced bool, err error) {
	user, err := idp.FindUserByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if user.Enabled == enabled {
		return true, nil
	}
	if err := idp.SetUserEnabled(ctx, user.ID, enabled); err != nil {
		return false, err
	}
	return true, nil
}

// identityError classifies a transport or status failure. Only transient
// statuses and network errors are retryable.
func identityError(err error) error {
	var se *httpclient.StatusError
	stdErr := poserrors.NewIdentityProviderError(err)
	if errors.As(err, &se) && !se.Transient() {
		stdErr.Retryable = false
	}
	return stdErr
}
