package secrets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 2 * time.Minute

// VaultStore talks to an HTTP secret service. Each request carries a
// short-lived HS256 token minted from the shared signing key, so no
// long-lived credential crosses the wire.
type VaultStore struct {
	baseURL    string
	signingKey []byte
	hostname   string
	client     *http.Client
}

func NewVaultStore(baseURL, signingKey, hostname string) (*VaultStore, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid vault URL: %w", err)
	}
	return &VaultStore{
		baseURL:    baseURL,
		signingKey: []byte(signingKey),
		hostname:   hostname,
		client:     &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (s *VaultStore) Put(ctx context.Context, name string, sealed []byte) error {
	req, err := s.newRequest(ctx, http.MethodPut, name, bytes.NewReader(sealed))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("vault put failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("vault put %s: unexpected status %d", name, resp.StatusCode)
	}
	return nil
}

func (s *VaultStore) Get(ctx context.Context, name string) ([]byte, error) {
	req, err := s.newRequest(ctx, http.MethodGet, name, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault get failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return io.ReadAll(resp.Body)
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("vault get %s: unexpected status %d", name, resp.StatusCode)
	}
}

func (s *VaultStore) newRequest(ctx context.Context, method, name string, body io.Reader) (*http.Request, error) {
	token, err := s.mintToken()
	if err != nil {
		return nil, err
	}

	u, err := url.JoinPath(s.baseURL, "secrets", url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("failed to build vault URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build vault request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (s *VaultStore) mintToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   s.hostname,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign vault token: %w", err)
	}
	return signed, nil
}
