package claims

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oveliahealth/ovelia_backend/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.ClaimsConfig{
		SubmitterID:    "OV-1234",
		APIKey:         "test-key",
		BaseURL:        srv.URL,
		TimeoutSeconds: 5,
	})
}

func respond(t *testing.T, w http.ResponseWriter, data map[string]any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(map[string]any{"data": data})
	require.NoError(t, err)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	claim := Claim{
		Program:     "ivac",
		FileNumber:  "K-123456",
		AmountCents: 12000,
		ServiceDate: "2025-03-14",
		Description: "Séance de psychothérapie",
	}

	t.Run("accepted claim returns the portal reference", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/claims/submit", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "OV-1234", body["submitter_id"])
			assert.Equal(t, "ivac", body["program"])
			assert.Equal(t, "K-123456", body["file_number"])

			respond(t, w, map[string]any{"code": 100, "reference": "RQ-2025-000042"})
		})

		ref, err := c.Submit(ctx, claim)
		require.NoError(t, err)
		assert.Equal(t, "RQ-2025-000042", ref)
	})

	t.Run("validation failure", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": -9, "message": "missing service date"})
		})

		_, err := c.Submit(ctx, claim)
		require.ErrorIs(t, err, ErrValidation)
	})

	t.Run("unknown file number", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": -40})
		})

		_, err := c.Submit(ctx, claim)
		require.ErrorIs(t, err, ErrFileNumberUnknown)
	})

	t.Run("unexpected portal code", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": -99, "message": "maintenance"})
		})

		_, err := c.Submit(ctx, claim)
		require.ErrorIs(t, err, ErrUnexpectedResponse)
	})

	t.Run("accepted without reference is unexpected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": 100})
		})

		_, err := c.Submit(ctx, claim)
		require.ErrorIs(t, err, ErrUnexpectedResponse)
	})
}

func TestCheckStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("paid claim reports the paid amount", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/claims/status", r.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "RQ-2025-000042", body["reference"])

			respond(t, w, map[string]any{"code": 100, "status": "paid", "paid_amount_cents": 12000})
		})

		status, paid, err := c.CheckStatus(ctx, "RQ-2025-000042")
		require.NoError(t, err)
		assert.Equal(t, StatusPaid, status)
		assert.Equal(t, int64(12000), paid)
	})

	t.Run("received claim has no paid amount yet", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": 100, "status": "received"})
		})

		status, paid, err := c.CheckStatus(ctx, "RQ-2025-000042")
		require.NoError(t, err)
		assert.Equal(t, StatusReceived, status)
		assert.Zero(t, paid)
	})

	t.Run("rejected claim", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": -51})
		})

		status, _, err := c.CheckStatus(ctx, "RQ-2025-000042")
		require.ErrorIs(t, err, ErrRejected)
		assert.Equal(t, StatusRejected, status)
	})

	t.Run("unknown reference", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": -55})
		})

		_, _, err := c.CheckStatus(ctx, "RQ-2025-000042")
		require.ErrorIs(t, err, ErrClaimNotFound)
	})

	t.Run("unknown status string is unexpected", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			respond(t, w, map[string]any{"code": 100, "status": "archived"})
		})

		_, _, err := c.CheckStatus(ctx, "RQ-2025-000042")
		require.ErrorIs(t, err, ErrUnexpectedResponse)
	})
}

func TestNewDefaults(t *testing.T) {
	t.Run("sandbox flag switches the base URL", func(t *testing.T) {
		c := New(config.ClaimsConfig{SubmitterID: "OV-1", Sandbox: true})
		assert.Contains(t, c.baseURL, "sandbox.")
	})

	t.Run("production URL by default", func(t *testing.T) {
		c := New(config.ClaimsConfig{SubmitterID: "OV-1"})
		assert.Equal(t, "https://portail.reclamations.quebec/api/v1", c.baseURL)
	})
}

func TestSubmitTransportError(t *testing.T) {
	c := New(config.ClaimsConfig{
		SubmitterID:    "OV-1",
		BaseURL:        "http://127.0.0.1:0",
		TimeoutSeconds: 1,
	})

	_, err := c.Submit(context.Background(), Claim{Program: "ivac"})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrUnexpectedResponse))
}
