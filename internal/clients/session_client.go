// internal/clients/session_client.go
package clients

import (
	"context"
	"net/http"

	"librarium/internal/session"
)

type SessionClient struct {
	t *transport
}

func NewSessionClient(baseURL string, opts ...Option) *SessionClient {
	return &SessionClient{t: newTransport("session", baseURL, opts...)}
}

// Me resolves token to the session the backend sees for it. An empty token
// yields the anonymous session.
func (c *SessionClient) Me(ctx context.Context, token string) (session.Session, error) {
	if token == "" {
		return session.Anonymous(), nil
	}
	var s session.Session
	if err := c.t.do(ctx, token, http.MethodGet, "/v1/user/me", &s); err != nil {
		return session.Session{}, err
	}
	return s, nil
}
