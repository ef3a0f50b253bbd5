// Package crm fetches listing snapshots from the property CRM's REST API.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/stwalsh4118/catalogsync/internal/logger"
	"github.com/stwalsh4118/catalogsync/internal/models"
)

// DefaultPageSize is the number of listings requested per page.
const DefaultPageSize = 100

var (
	// ErrAuthentication is returned when the CRM rejects the API key.
	ErrAuthentication = errors.New("crm authentication failed")
	// ErrRateLimited is returned when the CRM answers 429.
	ErrRateLimited = errors.New("crm rate limit exceeded")
	// ErrNotConfigured is returned when no API key was provided.
	ErrNotConfigured = errors.New("crm client not configured")
)

// Client is the CRM collaborator consumed by the sync engine.
type Client interface {
	// ListListings returns one page (1-based). An empty slice means there are no more pages.
	ListListings(ctx context.Context, page int) ([]models.ListingSnapshot, error)

	// GetListingDetail returns nil, nil when the CRM does not know the listing.
	GetListingDetail(ctx context.Context, id int64) (*models.ListingSnapshot, error)
}

// APIError is a non-2xx answer from the CRM.
type APIError struct {
	Message    string
	StatusCode int
	Code       int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("crm api error (status %d, code %d): %s", e.StatusCode, e.Code, e.Message)
}

// Options configures the HTTP client.
type Options struct {
	BaseURL  string
	APIKey   string
	AgencyID string
	Timeout  time.Duration
	PageSize int
	Log      *logger.Logger
}

type httpClient struct {
	client   *resty.Client
	pageSize int
	agencyID string
	log      *logger.Logger
}

// NewClient creates a CRM client. It returns ErrNotConfigured when no API key is set.
func NewClient(opts Options) (Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNotConfigured
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultPageSize
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseURL)
	client.SetTimeout(opts.Timeout)
	client.SetAuthToken(opts.APIKey)
	client.SetHeader("Accept", "application/json")

	return &httpClient{
		client:   client,
		pageSize: opts.PageSize,
		agencyID: opts.AgencyID,
		log:      opts.Log.WithComponent("crm"),
	}, nil
}

// listEnvelope covers the shapes the CRM uses for listing pages.
type listEnvelope struct {
	Pagination json.RawMessage `json:"paginacion"`
	Detail     json.RawMessage `json:"ficha"`
	Data       json.RawMessage `json:"data"`
}

type errorBody struct {
	Message string `json:"message"`
	Mensaje string `json:"mensaje"`
	Code    int    `json:"code"`
	Codigo  int    `json:"codigo"`
}

func (c *httpClient) ListListings(ctx context.Context, page int) ([]models.ListingSnapshot, error) {
	if page < 1 {
		page = 1
	}

	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"page":  strconv.Itoa(page),
			"limit": strconv.Itoa(c.pageSize),
			"order": "cod_ofer DESC",
		})
	if c.agencyID != "" {
		req.SetQueryParam("agency", c.agencyID)
	}

	resp, err := req.Get("/propiedades")
	if err != nil {
		return nil, fmt.Errorf("failed to list listings page %d: %w", page, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to list listings page %d: %w", page, apiError(resp))
	}

	listings, err := decodeListings(resp.Body(), c.log)
	if err != nil {
		return nil, fmt.Errorf("failed to decode listings page %d: %w", page, err)
	}
	return listings, nil
}

func (c *httpClient) GetListingDetail(ctx context.Context, id int64) (*models.ListingSnapshot, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("id", strconv.FormatInt(id, 10)).
		Get("/propiedades/{id}")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %d: %w", id, err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, nil
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch listing %d: %w", id, apiError(resp))
	}

	listings, err := decodeListings(resp.Body(), c.log)
	if err != nil {
		return nil, fmt.Errorf("failed to decode listing %d: %w", id, err)
	}
	for i := range listings {
		if int64(listings[i].ID) == id {
			return &listings[i], nil
		}
	}
	return nil, nil
}

// decodeListings accepts a bare array, a single object, or an envelope
// keyed by paginacion/ficha/data. Records without an id are dropped, and
// array elements that fail to decode are logged and skipped.
func decodeListings(body []byte, log *logger.Logger) ([]models.ListingSnapshot, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return []models.ListingSnapshot{}, nil
	}

	if trimmed[0] == '{' {
		var env listEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil {
			return nil, err
		}
		for _, inner := range []json.RawMessage{env.Pagination, env.Detail, env.Data} {
			if len(inner) > 0 && string(inner) != "null" {
				return decodeListings(inner, log)
			}
		}
		var single models.ListingSnapshot
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, err
		}
		return keepIdentified([]models.ListingSnapshot{single}), nil
	}

	// Arrays may carry a metadata object first; unmarshal element by element.
	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	listings := make([]models.ListingSnapshot, 0, len(raw))
	for i, item := range raw {
		var snap models.ListingSnapshot
		if err := json.Unmarshal(item, &snap); err != nil {
			log.Warn("Skipping undecodable listing", map[string]interface{}{
				"index":   i,
				"element": truncate(string(item), 200),
				"error":   err.Error(),
			})
			continue
		}
		listings = append(listings, snap)
	}
	return keepIdentified(listings), nil
}

func keepIdentified(listings []models.ListingSnapshot) []models.ListingSnapshot {
	out := listings[:0]
	for _, l := range listings {
		if l.ID > 0 {
			out = append(out, l)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

func apiError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		return ErrAuthentication
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}

	var body errorBody
	_ = json.Unmarshal(resp.Body(), &body)

	msg := body.Message
	if msg == "" {
		msg = body.Mensaje
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode())
	}
	code := body.Code
	if code == 0 {
		code = body.Codigo
	}
	if code == 0 {
		code = resp.StatusCode()
	}
	return &APIError{Message: msg, StatusCode: resp.StatusCode(), Code: code}
}
