package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newGeminiServer(t *testing.T, status int, text string) (*httptest.Server, *[]byte) {
	t.Helper()
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"code": status, "message": "unavailable", "status": "UNAVAILABLE"},
			})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": text}},
				},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &body
}

func newTestGemini(t *testing.T, srv *httptest.Server) *GeminiModel {
	t.Helper()
	m, err := NewGeminiModel(context.Background(), GeminiConfig{
		APIKey:     "test-key",
		Model:      "test-model",
		BaseURL:    srv.URL + "/",
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	return m
}

func TestGeminiModel_Audit(t *testing.T) {
	srv, body := newGeminiServer(t, http.StatusOK, validAnswer)
	m := newTestGemini(t, srv)

	img := base64.StdEncoding.EncodeToString(pngBytes)
	text, err := m.Audit(context.Background(), "inspect", ImagePayload{Data: img, MIMEType: "image/png"})
	require.NoError(t, err)
	assert.JSONEq(t, validAnswer, text)

	sent := string(*body)
	assert.Contains(t, sent, img)
	assert.Contains(t, sent, "image/png")
	assert.Contains(t, sent, "application/json")
	assert.Contains(t, sent, "Attention Required")
}

func TestGeminiModel_ServerErrorIsRetryable(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusServiceUnavailable, "")
	m := newTestGemini(t, srv)

	_, err := m.Audit(context.Background(), "inspect", ImagePayload{Data: "AAAA", MIMEType: "image/jpeg"})
	require.Error(t, err)
	assert.True(t, IsRetryable(err))
}

func TestGeminiModel_RejectsNonBase64Payload(t *testing.T) {
	srv, _ := newGeminiServer(t, http.StatusOK, validAnswer)
	m := newTestGemini(t, srv)

	_, err := m.Audit(context.Background(), "inspect", ImagePayload{Data: "https://not/base64", MIMEType: "image/jpeg"})
	assert.ErrorIs(t, err, ErrInvalidImagePayload)
}

func TestNewGeminiModel_RequiresKey(t *testing.T) {
	_, err := NewGeminiModel(context.Background(), GeminiConfig{})
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestTransientModelError(t *testing.T) {
	assert.True(t, transientModelError(&genai.APIError{Code: http.StatusTooManyRequests}))
	assert.True(t, transientModelError(&genai.APIError{Code: http.StatusBadGateway}))
	assert.False(t, transientModelError(&genai.APIError{Code: http.StatusBadRequest}))
	assert.False(t, transientModelError(errors.New("schema rejected")))
}

func TestAuditSchema(t *testing.T) {
	s := AuditSchema()
	assert.ElementsMatch(t, []string{"complianceScore", "observations", "recommendations", "status"}, s.Required)
	assert.Equal(t, []string{"Pass", "Attention Required", "Fail"}, s.Properties["status"].Enum)
	assert.True(t, strings.EqualFold(string(genai.TypeArray), string(s.Properties["observations"].Type)))
}
