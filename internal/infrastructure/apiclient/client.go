// Package apiclient talks to the identity backend over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
)

const (
	PathMe          = "/api/v1/me"
	PathWindows     = "/api/v1/login/windows"
	PathAccessToken = "/api/v1/login/access-token"
	PathSignup      = "/api/v1/users/signup"

	// HeaderForwardedUser is the identity header a Windows-authenticating proxy injects.
	HeaderForwardedUser = "X-Forwarded-User"

	maxBodyBytes = 1 << 20
)

// Options configures a Client.
type Options struct {
	BaseURL string
	// Timeout bounds every request. Zero means no client side limit beyond ctx.
	Timeout time.Duration
	// ForwardedUser, when set, is sent as X-Forwarded-User on the implicit login
	// request. It stands in for the proxy when running without one.
	ForwardedUser string
	HTTPClient    *http.Client
}

// Client implements ports.IdentityAPI.
type Client struct {
	base          *url.URL
	http          *http.Client
	forwardedUser string
	log           zerolog.Logger
}

// New returns a Client with a cookie jar attached, so implicit logins carry
// whatever session cookies the proxy sets (credentials: include).
func New(opts Options, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("apiclient: base url %q must be absolute", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("apiclient: cookie jar: %w", err)
		}
		hc = &http.Client{Jar: jar, Timeout: opts.Timeout}
	}

	return &Client{base: base, http: hc, forwardedUser: opts.ForwardedUser, log: log}, nil
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

func (c *Client) Me(ctx context.Context, token domain.Token) (*domain.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, PathMe, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+string(token))

	var u domain.User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) WindowsLogin(ctx context.Context) (*domain.WindowsLogin, error) {
	req, err := c.newRequest(ctx, http.MethodGet, PathWindows, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.forwardedUser != "" {
		req.Header.Set(HeaderForwardedUser, c.forwardedUser)
	}

	var out domain.WindowsLogin
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	if out.User == nil {
		return nil, &domain.AuthError{Kind: domain.KindUnknown, Status: http.StatusOK, Detail: "windows login response carries no user"}
	}
	return &out, nil
}

func (c *Client) AccessToken(ctx context.Context, username, password string) (domain.Token, error) {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, PathAccessToken, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out accessTokenResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &domain.AuthError{Kind: domain.KindUnknown, Status: http.StatusOK, Detail: "token response carries no access_token"}
	}
	return domain.Token(out.AccessToken), nil
}

func (c *Client) Register(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, &domain.AuthError{Kind: domain.KindValidation, Detail: "invalid registration payload", Err: err}
	}
	req, err := c.newRequest(ctx, http.MethodPost, PathSignup, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var u domain.User
	if err := c.do(req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	u := c.base.JoinPath(path)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, &domain.AuthError{Kind: domain.KindUnknown, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do executes req and decodes a 2xx body into out. Every failure comes back
// as a *domain.AuthError.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
		return &domain.AuthError{Kind: domain.KindNetwork, Detail: networkDetail(err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &domain.AuthError{Kind: domain.KindNetwork, Status: resp.StatusCode, Detail: "failed to read response", Err: err}
	}

	c.log.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("identity api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &domain.AuthError{
			Kind:   kindForStatus(resp.StatusCode),
			Status: resp.StatusCode,
			Detail: detailFrom(body, resp.Status),
		}
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &domain.AuthError{Kind: domain.KindUnknown, Status: resp.StatusCode, Detail: "empty response body"}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.AuthError{Kind: domain.KindUnknown, Status: resp.StatusCode, Detail: "malformed response body", Err: err}
	}
	return nil
}

func kindForStatus(code int) domain.ErrorKind {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.KindUnauthorized
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		return domain.KindValidation
	default:
		return domain.KindUnknown
	}
}

// detailFrom extracts the "detail" field of an error body. Validation errors
// may carry a list of {msg} objects instead of a string.
func detailFrom(body []byte, fallback string) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || len(eb.Detail) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(eb.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(eb.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	return fallback
}

func networkDetail(err error) string {
	var ue *url.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ue) && ue.Timeout()) {
		return "request timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	return "identity service unreachable"
}
