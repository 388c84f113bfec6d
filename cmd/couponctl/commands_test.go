package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/api"
	"github.com/99minutos/coupon-admin/internal/console"
	"github.com/99minutos/coupon-admin/internal/core/service"
	"github.com/99minutos/coupon-admin/internal/infrastructure/apiclient"
	"github.com/99minutos/coupon-admin/internal/infrastructure/db/memory"
	"github.com/99minutos/coupon-admin/internal/infrastructure/tokenstore"
)

type harness struct {
	tokens *tokenstore.Memory
	out    *bytes.Buffer
	errOut *bytes.Buffer
	nav    *bytes.Buffer
	app    *app
}

func newHarness(t *testing.T, forwardedUser, stdin string) *harness {
	t.Helper()

	repo := memory.NewUserRepository()
	issuer := service.NewTokenIssuer("cli-secret", time.Hour)
	auth := service.NewAuthService(repo, nil, issuer, nil, service.AuthOptions{}, zerolog.Nop())
	srv := httptest.NewServer(api.NewRouter(api.Deps{Auth: auth, Tokens: issuer, Log: zerolog.Nop()}))
	t.Cleanup(srv.Close)

	client, err := apiclient.New(apiclient.Options{BaseURL: srv.URL, Timeout: 2 * time.Second, ForwardedUser: forwardedUser}, zerolog.Nop())
	if err != nil {
		t.Fatalf("api client: %v", err)
	}

	h := &harness{tokens: tokenstore.NewMemory(), out: &bytes.Buffer{}, errOut: &bytes.Buffer{}, nav: &bytes.Buffer{}}
	h.app = &app{in: strings.NewReader(stdin), out: h.out, errOut: h.errOut}
	h.app.console = console.New(console.Options{
		Tokens:       h.tokens,
		API:          client,
		Navigator:    &printNavigator{w: h.nav, log: zerolog.Nop()},
		FetchTimeout: 2 * time.Second,
		Log:          zerolog.Nop(),
	})
	return h
}

func TestRun_Usage(t *testing.T) {
	h := newHarness(t, "", "")

	if code := h.app.run(context.Background(), nil); code != 2 {
		t.Fatalf("expected exit 2 without a command, got %d", code)
	}
	if !strings.Contains(h.errOut.String(), "usage: couponctl") {
		t.Fatalf("expected usage on stderr, got %q", h.errOut.String())
	}

	h.errOut.Reset()
	if code := h.app.run(context.Background(), []string{"bogus"}); code != 2 {
		t.Fatalf("expected exit 2 for unknown command, got %d", code)
	}
	if !strings.Contains(h.errOut.String(), `unknown command "bogus"`) {
		t.Fatalf("unexpected stderr %q", h.errOut.String())
	}
}

func TestRun_WhoamiAnonymous(t *testing.T) {
	h := newHarness(t, "", "")

	if code := h.app.run(context.Background(), []string{"whoami"}); code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if got := strings.TrimSpace(h.out.String()); got != "not signed in" {
		t.Fatalf("unexpected output %q", got)
	}
	if h.errOut.Len() != 0 {
		t.Fatalf("startup resolution must be silent, got %q", h.errOut.String())
	}
}

func TestRun_WhoamiWindows(t *testing.T) {
	h := newHarness(t, `CORP\ann`, "")

	if code := h.app.run(context.Background(), []string{"whoami"}); code != 0 {
		t.Fatalf("expected exit 0, got %d (stderr %q)", code, h.errOut.String())
	}
	out := h.out.String()
	if !strings.Contains(out, `"username": "CORP\\ann"`) {
		t.Fatalf("expected user in output, got %s", out)
	}
	if !strings.Contains(out, `"is_regular_user": true`) {
		t.Fatalf("expected capabilities in output, got %s", out)
	}
}

func TestRun_RegisterLoginLogout(t *testing.T) {
	h := newHarness(t, "", "")
	ctx := context.Background()

	code := h.app.run(ctx, []string{"register", "-u", "maria", "-p", "sup3rsecret", "-email", "maria@example.com"})
	if code != 0 {
		t.Fatalf("register: exit %d, stderr %q", code, h.errOut.String())
	}
	if !strings.Contains(h.nav.String(), "-> /login") {
		t.Fatalf("register should navigate to login, got %q", h.nav.String())
	}

	code = h.app.run(ctx, []string{"login", "-u", "maria", "-p", "sup3rsecret"})
	if code != 0 {
		t.Fatalf("login: exit %d, stderr %q", code, h.errOut.String())
	}
	if !strings.Contains(h.out.String(), "signed in as maria") {
		t.Fatalf("unexpected output %q", h.out.String())
	}
	if !h.tokens.IsPresent(ctx) {
		t.Fatalf("login must store the token")
	}

	if code := h.app.run(ctx, []string{"logout"}); code != 0 {
		t.Fatalf("logout: exit %d", code)
	}
	if h.tokens.IsPresent(ctx) {
		t.Fatalf("logout must clear the token")
	}
}

func TestRun_LoginPromptsForPassword(t *testing.T) {
	h := newHarness(t, "", "sup3rsecret\n")
	ctx := context.Background()

	if code := h.app.run(ctx, []string{"register", "-u", "maria", "-p", "sup3rsecret"}); code != 0 {
		t.Fatalf("register: exit %d", code)
	}
	if code := h.app.run(ctx, []string{"login", "-u", "maria"}); code != 0 {
		t.Fatalf("login: exit %d, stderr %q", code, h.errOut.String())
	}
	if !strings.Contains(h.errOut.String(), "password: ") {
		t.Fatalf("expected a password prompt on stderr, got %q", h.errOut.String())
	}
}

func TestRun_LoginFailurePrintsDetail(t *testing.T) {
	h := newHarness(t, "", "")
	ctx := context.Background()

	code := h.app.run(ctx, []string{"login", "-u", "ghost", "-p", "whatever1"})
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if got := h.errOut.String(); !strings.Contains(got, "login failed: Incorrect username or password") {
		t.Fatalf("expected server detail, got %q", got)
	}
}

func TestRun_RegisterDuplicate(t *testing.T) {
	h := newHarness(t, "", "")
	ctx := context.Background()

	args := []string{"register", "-u", "maria", "-p", "sup3rsecret"}
	if code := h.app.run(ctx, args); code != 0 {
		t.Fatalf("first register: exit %d", code)
	}
	if code := h.app.run(ctx, args); code != 1 {
		t.Fatalf("expected exit 1 for duplicate, got %d", code)
	}
	if got := h.errOut.String(); !strings.Contains(got, "already exists") {
		t.Fatalf("expected duplicate detail, got %q", got)
	}
}

func TestRun_LoginRequiresMode(t *testing.T) {
	h := newHarness(t, "", "")

	if code := h.app.run(context.Background(), []string{"login"}); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
}

func TestRun_Nav(t *testing.T) {
	h := newHarness(t, "", "")
	ctx := context.Background()

	if code := h.app.run(ctx, []string{"nav", "/coupons/me"}); code != 1 {
		t.Fatalf("anonymous nav should be denied, got %d", code)
	}
	if !strings.Contains(h.out.String(), "denied, go to /login") {
		t.Fatalf("unexpected output %q", h.out.String())
	}

	h.out.Reset()
	if code := h.app.run(ctx, []string{"nav", "/login"}); code != 0 {
		t.Fatalf("public path must be allowed, got %d", code)
	}
}

func TestRun_NavListsEntriesForUser(t *testing.T) {
	h := newHarness(t, `CORP\ann`, "")

	if code := h.app.run(context.Background(), []string{"nav"}); code != 0 {
		t.Fatalf("nav: exit %d", code)
	}
	if !strings.Contains(h.out.String(), "/coupons/me") {
		t.Fatalf("expected my coupons entry, got %q", h.out.String())
	}
	if strings.Contains(h.out.String(), "/admin") {
		t.Fatalf("regular user must not see admin entries, got %q", h.out.String())
	}
}

