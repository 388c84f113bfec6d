package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

// AuthOptions tunes how Windows identities are provisioned.
type AuthOptions struct {
	// WindowsEmailDomain is appended to generated addresses (DOMAIN_user@<domain>).
	WindowsEmailDomain string
	// WindowsAdminUsers lists account names (case-insensitive) that are superusers
	// and coupon admins. Everybody else is a regular user.
	WindowsAdminUsers []string
}

// AuthService implements registration, password login, Windows login and
// current-user lookups.
type AuthService struct {
	repo   ports.UserRepository
	cache  ports.UserCache
	tokens *TokenIssuer
	audit  ports.AuditSink
	opts   AuthOptions
	log    zerolog.Logger
}

func NewAuthService(repo ports.UserRepository, cache ports.UserCache, tokens *TokenIssuer, audit ports.AuditSink, opts AuthOptions, log zerolog.Logger) *AuthService {
	if opts.WindowsEmailDomain == "" {
		opts.WindowsEmailDomain = "local.domain"
	}
	return &AuthService{repo: repo, cache: cache, tokens: tokens, audit: audit, opts: opts, log: log}
}

func (s *AuthService) Register(ctx context.Context, in domain.NewUser) (*domain.User, error) {
	if in.Username == "" || len(in.Password) < 8 {
		return nil, domain.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Username:     in.Username,
		FullName:     in.FullName,
		Email:        in.Email,
		Roles:        []string{domain.RoleUser},
		IsActive:     true,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	s.record(domain.AuthEvent{Type: domain.EventRegister, Username: in.Username, Success: err == nil, Reason: reason(err)})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (domain.Token, *domain.User, error) {
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		err = domain.ErrInvalidCredentials
	}
	if err == nil && bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		err = domain.ErrInvalidCredentials
	}
	if err == nil && !user.IsActive {
		err = domain.ErrInactiveUser
	}
	if err != nil {
		s.record(domain.AuthEvent{Type: domain.EventLoginPassword, Username: username, Reason: reason(err)})
		return "", nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return "", nil, err
	}
	s.record(domain.AuthEvent{Type: domain.EventLoginPassword, Username: username, UserID: user.ID, Success: true})
	return token, user, nil
}

// LoginWindows provisions (or refreshes) the user behind a Windows identity
// and mints a token for it.
func (s *AuthService) LoginWindows(ctx context.Context, id ports.WindowsIdentity) (*domain.WindowsLogin, error) {
	if id.Account == "" {
		return nil, domain.ErrMissingIdentity
	}

	user, err := s.WindowsUser(ctx, id.Account)
	if err != nil {
		s.record(domain.AuthEvent{Type: domain.EventLoginWindows, Username: id.Account, Reason: reason(err)})
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("windows login: %w", err)
	}

	s.record(domain.AuthEvent{Type: domain.EventLoginWindows, Username: id.Account, UserID: user.ID, Success: true, Reason: id.Mode})
	return &domain.WindowsLogin{
		WindowsUser: id.Account,
		AuthMode:    id.Mode,
		Token:       token,
		User:        user,
	}, nil
}

// WindowsUser returns the user for account, creating it on first sight and
// keeping its admin access aligned with the configured admin list.
func (s *AuthService) WindowsUser(ctx context.Context, account string) (*domain.User, error) {
	if account == "" {
		return nil, domain.ErrMissingIdentity
	}
	admin := s.isWindowsAdmin(account)

	user, err := s.repo.FindByUsername(ctx, account)
	switch {
	case errors.Is(err, domain.ErrUserNotFound):
		user, err = s.provision(ctx, account, admin)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("windows user: %w", err)
	default:
		if user.IsSuperuser != admin || user.HasRole(domain.RoleCouponAdmin) != admin {
			user.IsSuperuser = admin
			if admin {
				user.AddRole(domain.RoleCouponAdmin)
			} else {
				user.RemoveRole(domain.RoleCouponAdmin)
			}
			if err := s.repo.UpdateAccess(ctx, user); err != nil {
				return nil, fmt.Errorf("windows user: align access: %w", err)
			}
			s.invalidate(ctx, user.ID)
		}
	}

	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}
	return user, nil
}

func (s *AuthService) provision(ctx context.Context, account string, admin bool) (*domain.User, error) {
	// Windows users never log in with a password; store an unguessable one.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	roles := []string{domain.RoleUser}
	if admin {
		roles = append(roles, domain.RoleCouponAdmin)
	}
	user := &domain.User{
		Username:     account,
		FullName:     account,
		Email:        domain.WindowsEmail(account, s.opts.WindowsEmailDomain),
		Roles:        roles,
		IsActive:     true,
		IsSuperuser:  admin,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}

	created, err := s.repo.Create(ctx, user)
	if errors.Is(err, domain.ErrUserExists) {
		// Lost a race with a concurrent first login of the same account.
		return s.repo.FindByUsername(ctx, account)
	}
	if err != nil {
		return nil, fmt.Errorf("provision windows user: %w", err)
	}

	s.log.Info().Str("username", account).Bool("admin", admin).Msg("windows user provisioned")
	s.record(domain.AuthEvent{Type: domain.EventWindowsProvision, Username: account, UserID: created.ID, Success: true})
	return created, nil
}

// CurrentUser loads a user by id through the cache.
func (s *AuthService) CurrentUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("user_id", id.String()).Msg("user cache lookup failed, reading repository")
		} else if cached != nil {
			return cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, domain.ErrInactiveUser
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, user); err != nil {
			s.log.Warn().Err(err).Str("user_id", id.String()).Msg("failed to cache user")
		}
	}
	return user, nil
}

func (s *AuthService) isWindowsAdmin(account string) bool {
	for _, a := range s.opts.WindowsAdminUsers {
		if strings.EqualFold(strings.TrimSpace(a), account) {
			return true
		}
	}
	return false
}

func (s *AuthService) invalidate(ctx context.Context, id domain.UserID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("user_id", id.String()).Msg("failed to evict cached user")
	}
}

func (s *AuthService) record(ev domain.AuthEvent) {
	if s.audit == nil {
		return
	}
	ev.Timestamp = time.Now().UTC()
	s.audit.Enqueue(ev)
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
