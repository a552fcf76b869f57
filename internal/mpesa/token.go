package mpesa

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// fallbackTokenLifetime applies when the provider omits expires_in.
	fallbackTokenLifetime = 5 * time.Minute
	tokenRefreshBuffer    = time.Minute
)

var errMissingAccessToken = errors.New("missing access_token")

// AcquireToken performs the client-credentials exchange and returns a fresh
// token. It never consults the cache.
func (c *Client) AcquireToken(ctx context.Context) (*AccessToken, error) {
	if err := c.cfg.credentialsError(); err != nil {
		return nil, err
	}

	url := c.cfg.baseURL() + tokenPath + "?grant_type=client_credentials"

	c.log.WithField("url", url).Debug("requesting access token")
	status, body, err := c.doRequest(ctx, "authorization", http.MethodGet, url, "Basic "+c.cfg.basicCredential(), nil)
	if err != nil {
		return nil, err
	}

	if !isSuccess(status) {
		c.log.WithFields(logrus.Fields{"status": status, "body": trimBody(body)}).Error("token request failed")
		return nil, &AuthError{StatusCode: status, Body: trimBody(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &ProtocolError{Op: "authorization endpoint", Err: err}
	}
	if tr.AccessToken == "" {
		c.log.Error("invalid response from authorization endpoint: missing access token")
		return nil, &ProtocolError{Op: "authorization endpoint", Err: errMissingAccessToken}
	}

	expiresIn, ok := lifetime(tr.ExpiresIn)
	if !ok {
		c.log.WithField("expires_in", string(tr.ExpiresIn)).Debug("ignoring unreadable token lifetime")
	}

	token := &AccessToken{
		Token:      tr.AccessToken,
		ObtainedAt: c.now(),
		ExpiresIn:  expiresIn,
	}

	c.authMu.Lock()
	c.lastIssued = token.Token
	c.authMu.Unlock()

	entry := c.log
	if token.ExpiresIn > 0 {
		entry = entry.WithField("expires_in", token.ExpiresIn.String())
	}
	entry.Info("successfully generated access token")

	return token, nil
}

// Token returns a bearer token for a payment call. With caching enabled the
// token is reused until it is within the refresh buffer of its expiry, and
// concurrent refreshes share a single exchange.
func (c *Client) Token(ctx context.Context) (*AccessToken, error) {
	if !c.cfg.TokenCache {
		return c.AcquireToken(ctx)
	}

	if token := c.cached(); token != nil {
		return token, nil
	}

	// The shared exchange must not be aborted by whichever caller happened to start it.
	shared := context.WithoutCancel(ctx)
	ch := c.refresh.DoChan("token", func() (any, error) {
		// A caller that missed the previous flight finds its result here.
		if token := c.cached(); token != nil {
			return token, nil
		}
		fresh, err := c.AcquireToken(shared)
		if err != nil {
			return nil, err
		}
		c.store(fresh)
		return fresh, nil
	})

	select {
	case <-ctx.Done():
		return nil, &TransportError{Op: "authorization", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*AccessToken), nil
	}
}

// InvalidateToken drops the cached token so the next call re-authenticates.
func (c *Client) InvalidateToken() {
	c.authMu.Lock()
	c.cachedToken = nil
	c.tokenExpiry = time.Time{}
	c.authMu.Unlock()
}

// LastIssuedToken returns the most recently issued bearer value, cached or
// not, so callers can scrub it from text they expose.
func (c *Client) LastIssuedToken() string {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	return c.lastIssued
}

// IssuedSecrets returns values derived from the credentials that would grant
// access if exposed: the Basic authorization value, the last request password
// and the last bearer token.
func (c *Client) IssuedSecrets() []string {
	var basic string
	if c.cfg.credentialsError() == nil {
		basic = c.cfg.basicCredential()
	}

	c.authMu.Lock()
	defer c.authMu.Unlock()
	return nonEmpty(basic, c.lastPassword, c.lastIssued)
}

func (c *Client) cached() *AccessToken {
	c.authMu.Lock()
	defer c.authMu.Unlock()
	if c.cachedToken != nil && c.now().Before(c.tokenExpiry) {
		return c.cachedToken
	}
	return nil
}

func (c *Client) store(token *AccessToken) {
	lifetime := token.ExpiresIn
	if lifetime <= 0 {
		lifetime = fallbackTokenLifetime
	}

	buffer := tokenRefreshBuffer
	if lifetime <= buffer {
		buffer = lifetime / 2
	}

	c.authMu.Lock()
	c.cachedToken = token
	c.tokenExpiry = token.ObtainedAt.Add(lifetime - buffer)
	c.authMu.Unlock()
}
