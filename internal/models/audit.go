package models

import (
	"time"

	"github.com/google/uuid"
)

// Translation log statuses.
const (
	TranslationStatusSuccess = "success"
	TranslationStatusError   = "error"
)

// SourceManualEdit marks log entries written for operator edits instead of provider calls.
const SourceManualEdit = "manual_edit"

// TranslationLogEntry is an append-only audit row for one listing in one run.
type TranslationLogEntry struct {
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	SourceLanguage  string    `db:"source_language" json:"sourceLanguage"`
	Status          string    `db:"status" json:"status"`
	ErrorMessage    string    `db:"error_message" json:"errorMessage,omitempty"`
	TargetLanguages []string  `db:"target_languages" json:"targetLanguages"`
	CostEstimate    float64   `db:"cost_estimate" json:"costEstimate"`
	ListingID       int64     `db:"property_id" json:"propertyId"`
	TokensUsed      int       `db:"tokens_used" json:"tokensUsed"`
	ID              uuid.UUID `db:"id" json:"id"`
}

// RateLimitCounter is the per "action:identity" counter window.
type RateLimitCounter struct {
	LastAttempt time.Time `db:"last_attempt" json:"lastAttempt"`
	ResetAt     time.Time `db:"reset_at" json:"resetAt"`
	Identifier  string    `db:"identifier" json:"identifier"`
	Count       int       `db:"count" json:"count"`
}

// Lead is a contact request submitted from the public site.
type Lead struct {
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	Name        string    `db:"name" json:"name"`
	Email       string    `db:"email" json:"email"`
	Phone       string    `db:"phone" json:"phone,omitempty"`
	Message     string    `db:"message" json:"message,omitempty"`
	PropertyRef string    `db:"property_ref" json:"propertyRef,omitempty"`
	SourceIP    string    `db:"source_ip" json:"-"`
	ID          uuid.UUID `db:"id" json:"id"`
}
