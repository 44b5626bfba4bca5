// Package verify talks to a Didit-style identity verification provider:
// a hosted session the user completes in the browser, then a decision
// fetched by session ID.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultBaseURL is the provider's v2 API.
const DefaultBaseURL = "https://verification.didit.me/v2"

const maxResponseBytes = 4 << 20

// ErrNotConfigured is returned when the client has no API key or workflow.
var ErrNotConfigured = errors.New("identity verification is not configured")

// Config holds the provider credentials.
type Config struct {
	BaseURL    string
	APIKey     string
	WorkflowID string
}

// Client implements ports.IdentityVerifier.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a client. A nil httpClient uses a client with a 15s timeout.
func New(cfg Config, httpClient *http.Client) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient}
}

type sessionRequest struct {
	WorkflowID string `json:"workflow_id"`
	VendorData string `json:"vendor_data"`
}

type sessionResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Status    string `json:"status"`
}

type idVerification struct {
	Status         string `json:"status"`
	FullName       string `json:"full_name"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	DocumentNumber string `json:"document_number"`
	PersonalNumber string `json:"personal_number"`
	DateOfBirth    string `json:"date_of_birth"`
	Gender         string `json:"gender"`
	FrontImage     string `json:"front_image"`
	BackImage      string `json:"back_image"`
}

type decisionResponse struct {
	SessionID      string          `json:"session_id"`
	Status         string          `json:"status"`
	IDVerification *idVerification `json:"id_verification"`
}

// CreateSession opens a hosted verification session tagged with tag.
func (c *Client) CreateSession(ctx context.Context, tag string) (domain.VerificationSession, error) {
	ctx, span := otel.Tracer("intake/verify").Start(ctx, "IdentityVerifier.CreateSession")
	defer span.End()

	var out sessionResponse
	err := c.do(ctx, http.MethodPost, "/session/", sessionRequest{WorkflowID: c.cfg.WorkflowID, VendorData: tag}, &out)
	if err == nil && (out.SessionID == "" || out.URL == "") {
		err = errors.New("create session: response without session id or url")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.VerificationSession{}, err
	}
	span.SetAttributes(attribute.String("session_id", out.SessionID))
	return domain.VerificationSession{SessionID: out.SessionID, URL: out.URL}, nil
}

// GetDecision fetches the session outcome. Only an approved ID check yields
// an approved decision with fields.
func (c *Client) GetDecision(ctx context.Context, sessionID string) (domain.VerificationDecision, error) {
	ctx, span := otel.Tracer("intake/verify").Start(ctx, "IdentityVerifier.GetDecision")
	span.SetAttributes(attribute.String("session_id", sessionID))
	defer span.End()

	var out decisionResponse
	if err := c.do(ctx, http.MethodGet, "/session/"+url.PathEscape(sessionID)+"/decision/", nil, &out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.VerificationDecision{}, err
	}
	return toDecision(out), nil
}

func toDecision(r decisionResponse) domain.VerificationDecision {
	switch r.Status {
	case "Approved":
	case "Declined", "Expired", "Abandoned":
		return domain.VerificationDecision{Status: domain.VerificationDeclined}
	default:
		return domain.VerificationDecision{Status: domain.VerificationPending}
	}

	id := r.IDVerification
	if id == nil || id.Status != "Approved" {
		return domain.VerificationDecision{Status: domain.VerificationDeclined}
	}

	name := id.FullName
	if name == "" {
		name = strings.TrimSpace(id.FirstName + " " + id.LastName)
	}
	number := id.DocumentNumber
	if number == "" {
		number = id.PersonalNumber
	}
	fields := map[string]string{
		"name":        name,
		"dateOfBirth": isoToDMY(id.DateOfBirth),
		"nationalId":  strings.ReplaceAll(number, " ", ""),
		"gender":      gender(id.Gender),
	}
	var docs []string
	for _, img := range []string{id.FrontImage, id.BackImage} {
		if img != "" {
			docs = append(docs, img)
		}
	}
	return domain.VerificationDecision{Status: domain.VerificationApproved, Fields: fields, Documents: docs}
}

// isoToDMY converts YYYY-MM-DD to DD/MM/YYYY, passing anything else through.
func isoToDMY(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}

func gender(g string) string {
	switch strings.ToUpper(g) {
	case "F":
		return "female"
	case "M":
		return "male"
	case "":
		return ""
	}
	return "others"
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.cfg.APIKey == "" || c.cfg.WorkflowID == "" {
		return ErrNotConfigured
	}

	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
