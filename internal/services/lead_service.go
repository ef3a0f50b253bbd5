package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/models"
	"github.com/stwalsh4118/catalogsync/internal/repository"
	"github.com/stwalsh4118/catalogsync/internal/resolver"
)

// ErrInvalidLead is returned when a lead has no way to contact the sender.
var ErrInvalidLead = errors.New("lead needs a name and an email")

// LeadService stores contact requests from the public site.
type LeadService interface {
	Submit(ctx context.Context, lead *models.Lead) error
}

type leadService struct {
	repo repository.LeadRepository
	log  *logger.Logger
}

// NewLeadService creates a new instance of LeadService.
func NewLeadService(repo repository.LeadRepository, log *logger.Logger) LeadService {
	return &leadService{repo: repo, log: log.WithComponent("leads")}
}

func (s *leadService) Submit(ctx context.Context, lead *models.Lead) error {
	lead.Name = strings.TrimSpace(lead.Name)
	lead.Email = strings.ToLower(strings.TrimSpace(lead.Email))
	lead.Phone = strings.TrimSpace(lead.Phone)
	lead.Message = strings.TrimSpace(lead.Message)
	lead.PropertyRef = resolver.NormalizeReference(lead.PropertyRef)

	if lead.Name == "" || lead.Email == "" {
		return ErrInvalidLead
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		s.log.Error("Failed to store lead", err, map[string]interface{}{
			"property_ref": lead.PropertyRef,
		})
		return fmt.Errorf("failed to store lead: %w", err)
	}

	s.log.Info("Lead received", map[string]interface{}{
		"lead_id":      lead.ID.String(),
		"property_ref": lead.PropertyRef,
	})
	return nil
}
