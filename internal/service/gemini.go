package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"google.golang.org/genai"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

// DefaultGeminiModel is used when no model name is configured
const DefaultGeminiModel = "gemini-3-flash-preview"

// GeminiConfig holds the settings for GeminiModel
type GeminiConfig struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API endpoint
	BaseURL    string
	HTTPClient *http.Client
}

// GeminiModel runs audits against the Gemini API
type GeminiModel struct {
	client *genai.Client
	model  string
}

// NewGeminiModel creates a new GeminiModel
func NewGeminiModel(ctx context.Context, cfg GeminiConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiModel{client: client, model: cfg.Model}, nil
}

// Audit implements AuditModel
func (m *GeminiModel) Audit(ctx context.Context, prompt string, image ImagePayload) (string, error) {
	data, err := decodePayload(image.Data)
	if err != nil {
		return "", err
	}

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(data, image.MIMEType),
		}, genai.RoleUser),
	}

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   AuditSchema(),
	})
	if err != nil {
		if transientModelError(err) {
			return "", retryable(err)
		}
		return "", err
	}

	return resp.Text(), nil
}

// AuditSchema is the response contract declared to the model
func AuditSchema() *genai.Schema {
	statuses := make([]string, 0, len(model.AuditStatuses))
	for _, s := range model.AuditStatuses {
		statuses = append(statuses, string(s))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"complianceScore": {
				Type:        genai.TypeNumber,
				Description: "A score from 0 to 100 based on wiring standards.",
				Minimum:     genai.Ptr(0.0),
				Maximum:     genai.Ptr(100.0),
			},
			"observations": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Specific things noticed in the image.",
			},
			"recommendations": {
				Type:        genai.TypeArray,
				Items:       &genai.Schema{Type: genai.TypeString},
				Description: "Steps to improve the wiring.",
			},
			"status": {
				Type:        genai.TypeString,
				Enum:        statuses,
				Description: "Overall status: Pass, Attention Required, or Fail.",
			},
		},
		Required:         []string{"complianceScore", "observations", "recommendations", "status"},
		PropertyOrdering: []string{"complianceScore", "observations", "recommendations", "status"},
	}
}

func decodePayload(data string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err == nil {
		return b, nil
	}
	if b, rawErr := base64.RawStdEncoding.DecodeString(data); rawErr == nil {
		return b, nil
	}
	return nil, fmt.Errorf("%w: payload is not base64: %v", ErrInvalidImagePayload, err)
}

// transientModelError reports rate limiting, server errors and network
// failures
func transientModelError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case genai.APIError:
			return v.Code == http.StatusTooManyRequests || v.Code >= 500
		case *genai.APIError:
			return v.Code == http.StatusTooManyRequests || v.Code >= 500
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
