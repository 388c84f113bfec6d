package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/99minutos/coupon-admin/internal/core/domain"
	"github.com/99minutos/coupon-admin/internal/core/ports"
)

type auditService struct {
	repo ports.AuthEventRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService writing to repo.
func NewAuditService(repo ports.AuthEventRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Process persists a single authentication event.
func (s *auditService) Process(ctx context.Context, ev domain.AuthEvent) error {
	if ev.Type == "" {
		return fmt.Errorf("audit: event without type")
	}
	if err := s.repo.InsertEvent(ctx, &ev); err != nil {
		return fmt.Errorf("audit: insert %s: %w", ev.Type, err)
	}

	e := s.log.Debug()
	if !ev.Success {
		e = s.log.Info()
	}
	e.Str("event", string(ev.Type)).
		Str("username", ev.Username).
		Bool("success", ev.Success).
		Str("reason", ev.Reason).
		Msg("auth event recorded")
	return nil
}
