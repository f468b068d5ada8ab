package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"kinship/internal/apperr"
	"kinship/internal/config"
	"net/http"
)

// Classifier estimates toxicity in [0,1]
type Classifier interface {
	Analyze(ctx context.Context, text string) (float64, error)
}

// HTTPClassifier calls a JSON toxicity endpoint: POST {"text"} -> {"toxicity"}
type HTTPClassifier struct {
	config config.ClassifierConfig
	client *http.Client
}

func NewHTTPClassifier(cfg config.ClassifierConfig) *HTTPClassifier {
	return &HTTPClassifier{
		config: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

func (c *HTTPClassifier) Analyze(ctx context.Context, text string) (float64, error) {
	if !c.config.IsEnabled() {
		return 0, apperr.Unavailable("toxicity classifier not configured")
	}

	jsonBody, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "toxicity classifier unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "toxicity classifier read failed", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, apperr.Unavailable(fmt.Sprintf("toxicity classifier returned %d", resp.StatusCode))
	}

	var out struct {
		Toxicity *float64 `json:"toxicity"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, apperr.Wrap(apperr.KindUnavailable, "toxicity classifier sent malformed body", err)
	}
	if out.Toxicity == nil || *out.Toxicity < 0 || *out.Toxicity > 1 {
		return 0, apperr.Unavailable("toxicity classifier score out of range")
	}
	return *out.Toxicity, nil
}
