package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stwalsh4118/catalogsync/internal/database"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// LeadRepository stores contact requests from the public site.
type LeadRepository interface {
	// Create inserts lead, assigning ID and CreatedAt when unset.
	Create(ctx context.Context, lead *models.Lead) error
}

type leadRepository struct {
	db *database.Database
}

// NewLeadRepository creates a new instance of LeadRepository.
func NewLeadRepository(db *database.Database) LeadRepository {
	return &leadRepository{db: db}
}

func (r *leadRepository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO leads (id, name, email, phone, message, property_ref, source_ip, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, lead.ID, lead.Name, lead.Email, lead.Phone, lead.Message, lead.PropertyRef, lead.SourceIP, lead.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert lead: %w", err)
	}
	return nil
}
