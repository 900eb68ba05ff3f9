package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/celaya-solutions/SE-Reference-System-2/internal/logging"
	"github.com/celaya-solutions/SE-Reference-System-2/internal/model"
)

const validAnswer = `{"complianceScore": 87, "observations": ["Neat routing"], "recommendations": ["Add labels"], "status": "Pass"}`

type fakeModel struct {
	calls   atomic.Int32
	respond func(ctx context.Context, call int, prompt string, image ImagePayload) (string, error)
}

func (m *fakeModel) Audit(ctx context.Context, prompt string, image ImagePayload) (string, error) {
	n := int(m.calls.Add(1))
	return m.respond(ctx, n, prompt, image)
}

func answer(text string) *fakeModel {
	return &fakeModel{respond: func(context.Context, int, string, ImagePayload) (string, error) {
		return text, nil
	}}
}

func newTestAuditClient(m AuditModel, opts ...AuditOption) *AuditClient {
	base := []AuditOption{
		WithAuditBackoff(time.Millisecond),
		WithAuditLogger(logging.Discard()),
		WithImageFetcher(newTestFetcher(1)),
	}
	return NewAuditClient(m, append(base, opts...)...)
}

var embedded = model.NewEmbeddedImage("data:image/png;base64,iVBORw0K")

func TestAuditImage_Valid(t *testing.T) {
	var gotPrompt string
	var gotImage ImagePayload
	m := &fakeModel{respond: func(_ context.Context, _ int, prompt string, image ImagePayload) (string, error) {
		gotPrompt, gotImage = prompt, image
		return validAnswer, nil
	}}

	res, err := newTestAuditClient(m).AuditImage(context.Background(), embedded, "Terminal", "Bend radius.")
	require.NoError(t, err)

	assert.Equal(t, 87, res.ComplianceScore)
	assert.Equal(t, model.AuditPass, res.Status)
	assert.Equal(t, []string{"Neat routing"}, res.Observations)
	assert.Equal(t, []string{"Add labels"}, res.Recommendations)

	assert.Equal(t, "iVBORw0K", gotImage.Data)
	assert.Equal(t, "image/png", gotImage.MIMEType)
	assert.Contains(t, gotPrompt, "Section of Panel: Terminal")
	assert.Contains(t, gotPrompt, "Reference Standards: Bend radius.")
}

func TestAuditImage_MalformedResponseNotRetried(t *testing.T) {
	m := answer("The wiring looks fine to me.")

	_, err := newTestAuditClient(m, WithAuditAttempts(3)).AuditImage(context.Background(), embedded, "Box", "")
	require.ErrorIs(t, err, ErrMalformedResponse)
	assert.NotErrorIs(t, err, ErrImageNotAccessible)
	assert.EqualValues(t, 1, m.calls.Load())
}

func TestAuditImage_EmptyResponse(t *testing.T) {
	_, err := newTestAuditClient(answer("  ")).AuditImage(context.Background(), embedded, "Box", "")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestAuditImage_FetchFailureIsDistinct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m := answer(validAnswer)
	_, err := newTestAuditClient(m).AuditImage(context.Background(), model.NewURLImage(srv.URL+"/x.jpg"), "Box", "")
	require.ErrorIs(t, err, ErrImageNotAccessible)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
	assert.Zero(t, m.calls.Load(), "model must not be called without an image")
}

func TestAuditImage_RetriesTransientModelFailure(t *testing.T) {
	m := &fakeModel{respond: func(_ context.Context, call int, _ string, _ ImagePayload) (string, error) {
		if call == 1 {
			return "", retryable(errors.New("503 unavailable"))
		}
		return validAnswer, nil
	}}

	res, err := newTestAuditClient(m, WithAuditAttempts(2)).AuditImage(context.Background(), embedded, "Box", "")
	require.NoError(t, err)
	assert.Equal(t, model.AuditPass, res.Status)
	assert.EqualValues(t, 2, m.calls.Load())
}

func TestAuditImage_PermanentModelFailure(t *testing.T) {
	m := &fakeModel{respond: func(context.Context, int, string, ImagePayload) (string, error) {
		return "", errors.New("400 bad request")
	}}

	_, err := newTestAuditClient(m, WithAuditAttempts(3)).AuditImage(context.Background(), embedded, "Box", "")
	require.ErrorIs(t, err, ErrModelRequest)
	assert.EqualValues(t, 1, m.calls.Load())
}

func TestAuditImage_Timeout(t *testing.T) {
	m := &fakeModel{respond: func(ctx context.Context, _ int, _ string, _ ImagePayload) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}

	c := newTestAuditClient(m, WithAuditTimeout(20*time.Millisecond), WithAuditAttempts(2))
	_, err := c.AuditImage(context.Background(), embedded, "Box", "")
	require.ErrorIs(t, err, ErrModelRequest)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 2, m.calls.Load())
}

func TestAuditImage_CallerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &fakeModel{respond: func(ctx context.Context, _ int, _ string, _ ImagePayload) (string, error) {
		cancel()
		return "", ctx.Err()
	}}

	_, err := newTestAuditClient(m, WithAuditAttempts(3)).AuditImage(ctx, embedded, "Box", "")
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, m.calls.Load())
}

func TestParseAuditResult(t *testing.T) {
	res, err := ParseAuditResult(`{"complianceScore": 72.6, "observations": [], "recommendations": ["Re-route"], "status": "Attention Required"}`)
	require.NoError(t, err)
	assert.Equal(t, 73, res.ComplianceScore)
	assert.Equal(t, model.AuditAttentionRequired, res.Status)
	assert.Empty(t, res.Observations)

	rejects := map[string]string{
		"score above range":  `{"complianceScore": 140, "observations": [], "recommendations": [], "status": "Pass"}`,
		"negative score":     `{"complianceScore": -1, "observations": [], "recommendations": [], "status": "Fail"}`,
		"unknown status":     `{"complianceScore": 50, "observations": [], "recommendations": [], "status": "Maybe"}`,
		"missing status":     `{"complianceScore": 50, "observations": [], "recommendations": []}`,
		"null observations":  `{"complianceScore": 50, "observations": null, "recommendations": [], "status": "Pass"}`,
		"unknown field":      `{"complianceScore": 50, "observations": [], "recommendations": [], "status": "Pass", "grade": "A"}`,
		"score as string":    `{"complianceScore": "50", "observations": [], "recommendations": [], "status": "Pass"}`,
		"trailing data":      validAnswer + ` {}`,
		"array not object":   `[1, 2, 3]`,
		"markdown wrapped":   "```json\n" + validAnswer + "\n```",
		"truncated document": strings.TrimSuffix(validAnswer, "}"),
	}
	for name, text := range rejects {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAuditResult(text)
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestBuildAuditPrompt_NamesEveryDimension(t *testing.T) {
	p := BuildAuditPrompt("Door", "Clearance.")
	for _, want := range []string{"Routing consistency", "Bundling and tie spacing", "Label placement", "Bend radius", "Clearance and separation"} {
		assert.Contains(t, p, want)
	}
}
