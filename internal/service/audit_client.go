package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

const defaultAuditTimeout = 60 * time.Second

// AuditModel sends one audit prompt and image to a multimodal model and
// returns its raw text answer
type AuditModel interface {
	Audit(ctx context.Context, prompt string, image ImagePayload) (string, error)
}

// AuditClient runs advisory compliance checks of wiring images
type AuditClient struct {
	model       AuditModel
	fetcher     *ImageFetcher
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
	logger      *logrus.Entry
}

// AuditOption configures an AuditClient
type AuditOption func(*AuditClient)

// WithAuditTimeout bounds each model request
func WithAuditTimeout(d time.Duration) AuditOption {
	return func(c *AuditClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithAuditAttempts sets how many times a transient model failure is tried
func WithAuditAttempts(n int) AuditOption {
	return func(c *AuditClient) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithAuditBackoff sets the delay before the first model retry
func WithAuditBackoff(d time.Duration) AuditOption {
	return func(c *AuditClient) { c.backoff = d }
}

// WithImageFetcher replaces the fetcher used for remote images
func WithImageFetcher(f *ImageFetcher) AuditOption {
	return func(c *AuditClient) { c.fetcher = f }
}

// WithAuditLogger sets the logger
func WithAuditLogger(l *logrus.Entry) AuditOption {
	return func(c *AuditClient) { c.logger = l }
}

// NewAuditClient creates a new AuditClient backed by m
func NewAuditClient(m AuditModel, opts ...AuditOption) *AuditClient {
	c := &AuditClient{
		model:       m,
		timeout:     defaultAuditTimeout,
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
		logger:      logging.New("audit"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.fetcher == nil {
		c.fetcher = NewImageFetcher(defaultFetchTimeout, c.maxAttempts)
	}
	return c
}

// AuditImage checks img against the standards for the given panel section.
// It never returns a default result: every failure is an error.
func (c *AuditClient) AuditImage(ctx context.Context, img model.Image, section, standards string) (*model.AuditResult, error) {
	log := c.logger.WithFields(logrus.Fields{"section": section, "image": img.Kind().String()})

	payload, err := c.fetcher.Normalize(ctx, img)
	if err != nil {
		log.WithError(err).Warn("Image could not be prepared for audit")
		return nil, err
	}

	text, err := c.generate(ctx, BuildAuditPrompt(section, standards), payload)
	if err != nil {
		log.WithError(err).Warn("Audit model request failed")
		return nil, err
	}

	result, err := ParseAuditResult(text)
	if err != nil {
		log.WithError(err).Warn("Audit model response rejected")
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"score":  result.ComplianceScore,
		"status": result.Status,
	}).Info("Audit completed")
	return result, nil
}

// generate calls the model, retrying transient failures with backoff
func (c *AuditClient) generate(ctx context.Context, prompt string, payload ImagePayload) (string, error) {
	var lastErr error
	backoff := c.backoff

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			c.logger.WithError(lastErr).WithField("attempt", attempt+1).Debug("Retrying audit request")
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}

		text, err := c.attempt(ctx, prompt, payload)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) {
			break
		}
	}

	return "", fmt.Errorf("%w: %w", ErrModelRequest, lastErr)
}

func (c *AuditClient) attempt(ctx context.Context, prompt string, payload ImagePayload) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := c.model.Audit(attemptCtx, prompt, payload)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return "", retryable(err)
		}
		return "", err
	}
	return text, nil
}

// BuildAuditPrompt returns the instruction sent with every audit
func BuildAuditPrompt(section, standards string) string {
	var b strings.Builder
	b.WriteString("You are an expert electrical engineer auditing a panel wiring image against the shop wiring standards.\n")
	fmt.Fprintf(&b, "Section of Panel: %s\n", section)
	fmt.Fprintf(&b, "Reference Standards: %s\n\n", standards)
	b.WriteString("Analyze the provided image for:\n")
	b.WriteString("1. Routing consistency (perpendicular paths, neatness)\n")
	b.WriteString("2. Bundling and tie spacing (even distribution)\n")
	b.WriteString("3. Label placement and orientation (legibility)\n")
	b.WriteString("4. Bend radius compliance (no sharp kinks)\n")
	b.WriteString("5. Clearance and separation (between power and signal)\n\n")
	b.WriteString("Provide a professional audit report in JSON format with a complianceScore from 0 to 100, ")
	b.WriteString("observations, recommendations and a status of Pass, Attention Required or Fail.")
	return b.String()
}

type auditResponse struct {
	ComplianceScore *float64  `json:"complianceScore"`
	Observations    *[]string `json:"observations"`
	Recommendations *[]string `json:"recommendations"`
	Status          *string   `json:"status"`
}

// ParseAuditResult validates raw model output against the audit result
// contract. Fractional scores are rounded; out of range scores and unknown
// statuses are rejected.
func ParseAuditResult(text string) (*model.AuditResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()

	var raw auditResponse
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON object", ErrMalformedResponse)
	}

	var missing []string
	if raw.ComplianceScore == nil {
		missing = append(missing, "complianceScore")
	}
	if raw.Observations == nil {
		missing = append(missing, "observations")
	}
	if raw.Recommendations == nil {
		missing = append(missing, "recommendations")
	}
	if raw.Status == nil {
		missing = append(missing, "status")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformedResponse, strings.Join(missing, ", "))
	}

	score := *raw.ComplianceScore
	if score < 0 || score > 100 {
		return nil, fmt.Errorf("%w: complianceScore %v is outside 0-100", ErrMalformedResponse, score)
	}
	status := model.AuditStatus(*raw.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrMalformedResponse, *raw.Status)
	}

	return &model.AuditResult{
		ComplianceScore: int(math.Round(score)),
		Observations:    *raw.Observations,
		Recommendations: *raw.Recommendations,
		Status:          status,
	}, nil
}
