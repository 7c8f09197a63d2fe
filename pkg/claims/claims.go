// Package claims provides a minimal HTTP client for the external payer
// claims portal, used to submit IVAC/PAE reimbursement claims and poll
// their processing status.
package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/oveliahealth/ovelia_backend/config"
)

var (
	ErrRejected           = errors.New("claims: claim rejected by the payer program")
	ErrValidation         = errors.New("claims: claim failed portal validation")
	ErrFileNumberUnknown  = errors.New("claims: file number not recognized by the program")
	ErrClaimNotFound      = errors.New("claims: claim reference not found")
	ErrUnexpectedResponse = errors.New("claims: unexpected response from portal")
)

// Status is a claim's processing state as reported by the portal.
type Status string

const (
	StatusReceived Status = "received"
	StatusPaid     Status = "paid"
	StatusRejected Status = "rejected"
)

// Claim is one reimbursement submission for billed appointments.
type Claim struct {
	Program     string `json:"program"`     // "ivac" or "pae"
	FileNumber  string `json:"file_number"` // payer file number at the program
	AmountCents int64  `json:"amount_cents"`
	ServiceDate string `json:"service_date"` // ISO date of the billed appointment
	Description string `json:"description"`
}

// Client is a lightweight claims portal HTTP client.
type Client struct {
	submitterID string
	apiKey      string
	baseURL     string
	httpClient  *http.Client
}

// New creates a Client from config. Uses the portal's sandbox when
// cfg.Sandbox is true.
func New(cfg config.ClaimsConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://portail.reclamations.quebec/api/v1"
	}
	if cfg.Sandbox {
		baseURL = "https://sandbox.portail.reclamations.quebec/api/v1"
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		submitterID: cfg.SubmitterID,
		apiKey:      cfg.APIKey,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Submit sends a reimbursement claim and returns the portal's claim
// reference on acceptance.
func (c *Client) Submit(ctx context.Context, claim Claim) (reference string, err error) {
	reqBody := map[string]any{
		"submitter_id": c.submitterID,
		"program":      claim.Program,
		"file_number":  claim.FileNumber,
		"amount_cents": claim.AmountCents,
		"service_date": claim.ServiceDate,
		"description":  claim.Description,
	}

	var resp struct {
		Data struct {
			Code      int    `json:"code"`
			Reference string `json:"reference"`
			Message   string `json:"message"`
		} `json:"data"`
		Errors any `json:"errors"`
	}

	if err := c.post(ctx, "/claims/submit", reqBody, &resp); err != nil {
		return "", fmt.Errorf("claims submit: %w", err)
	}

	switch resp.Data.Code {
	case 100:
		// accepted
	case -9:
		return "", ErrValidation
	case -40:
		return "", ErrFileNumberUnknown
	default:
		return "", fmt.Errorf("%w (code=%d, msg=%s)", ErrUnexpectedResponse, resp.Data.Code, resp.Data.Message)
	}

	if resp.Data.Reference == "" {
		return "", ErrUnexpectedResponse
	}

	return resp.Data.Reference, nil
}

// CheckStatus polls the processing state of a previously submitted claim.
// Returns (status, paidAmountCents, error); paidAmountCents is only set
// once the claim is paid.
func (c *Client) CheckStatus(ctx context.Context, reference string) (Status, int64, error) {
	reqBody := map[string]any{
		"submitter_id": c.submitterID,
		"reference":    reference,
	}

	var resp struct {
		Data struct {
			Code            int    `json:"code"`
			Status          string `json:"status"`
			PaidAmountCents int64  `json:"paid_amount_cents"`
			Message         string `json:"message"`
		} `json:"data"`
		Errors any `json:"errors"`
	}

	if err := c.post(ctx, "/claims/status", reqBody, &resp); err != nil {
		return "", 0, fmt.Errorf("claims status: %w", err)
	}

	switch resp.Data.Code {
	case 100:
		// reported below
	case -51:
		return StatusRejected, 0, ErrRejected
	case -55:
		return "", 0, ErrClaimNotFound
	default:
		return "", 0, fmt.Errorf("%w (code=%d, msg=%s)", ErrUnexpectedResponse, resp.Data.Code, resp.Data.Message)
	}

	switch Status(resp.Data.Status) {
	case StatusReceived, StatusPaid, StatusRejected:
		return Status(resp.Data.Status), resp.Data.PaidAmountCents, nil
	default:
		return "", 0, fmt.Errorf("%w (status=%s)", ErrUnexpectedResponse, resp.Data.Status)
	}
}

// post sends a JSON POST request to baseURL+path and decodes the JSON response into out.
func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer res.Body.Close()

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
