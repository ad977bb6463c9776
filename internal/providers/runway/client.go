// Package runway talks to the Runway video-generation API exposed through
// useapi.net. It normalizes the provider's loosely consistent response
// shapes into a canonical job result.
package runway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"server/internal/domain"
	"server/internal/infra"
)

const defaultBaseURL = "https://api.useapi.net/v1/runwayml"

var supportedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Doer abstracts the retrying HTTP client.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configures the Runway client.
type Options struct {
	APIToken        string
	BaseURL         string
	Email           string
	Password        string
	MaxJobs         int
	HTTPClient      Doer
	Logger          *infra.Logger
	PollInterval    time.Duration
	MaxPollAttempts int
}

// Client performs HTTP calls against the Runway API.
type Client struct {
	apiToken   string
	baseURL    string
	email      string
	password   string
	maxJobs    int
	httpClient Doer
	logger     *infra.Logger

	pollInterval    time.Duration
	maxPollAttempts int

	mu         sync.Mutex
	configured bool
	jwt        string

	creditsGroup singleflight.Group

	// sleep is swapped out in tests to observe poll pacing without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// APIError carries the HTTP status and provider error text of a non-2xx
// response that survived retries.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("runway: status %d: %s", e.StatusCode, e.Message)
}

// CreditStatus is the best-effort answer to "can this account run a job".
// It fails open: uncertainty reports HasCredits=true.
type CreditStatus struct {
	HasCredits bool   `json:"has_credits"`
	Credits    int    `json:"credits,omitempty"`
	Error      string `json:"error,omitempty"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIToken) == "" {
		return nil, fmt.Errorf("runway: api token is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxJobs := opts.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 5
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}
	maxPollAttempts := opts.MaxPollAttempts
	if maxPollAttempts <= 0 {
		maxPollAttempts = 60
	}
	return &Client{
		apiToken:        strings.TrimSpace(opts.APIToken),
		baseURL:         baseURL,
		email:           strings.TrimSpace(opts.Email),
		password:        opts.Password,
		maxJobs:         maxJobs,
		httpClient:      httpClient,
		logger:          logger,
		pollInterval:    pollInterval,
		maxPollAttempts: maxPollAttempts,
		sleep:           sleepContext,
	}, nil
}

// UploadAsset uploads raw image bytes and returns the provider asset id.
// The MIME type must be one of png, jpeg, gif, or webp.
func (c *Client) UploadAsset(ctx context.Context, data []byte, mimeType, name string) (string, error) {
	if !supportedImageTypes[mimeType] {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMediaType, mimeType)
	}
	c.EnsureAccount(ctx)

	endpoint := fmt.Sprintf("%s/assets/?name=%s", c.baseURL, url.QueryEscape(c.assetName(name)))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("runway: build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", mimeType)

	var decoded struct {
		AssetID string `json:"assetId"`
	}
	if err := c.send(req, &decoded); err != nil {
		return "", fmt.Errorf("runway: upload asset: %w", err)
	}
	if decoded.AssetID == "" {
		return "", fmt.Errorf("%w: upload response missing assetId", domain.ErrInvalidResponse)
	}
	return decoded.AssetID, nil
}

// UploadAssetFromURL registers an image by URL. No media-type check happens
// here; the provider validates the referenced content itself.
func (c *Client) UploadAssetFromURL(ctx context.Context, imageURL, name string) (string, error) {
	c.EnsureAccount(ctx)

	body, err := json.Marshal(map[string]any{
		"name":      c.assetName(name),
		"mediaType": "image",
		"url":       imageURL,
	})
	if err != nil {
		return "", fmt.Errorf("runway: encode upload request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/assets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("runway: build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	var decoded struct {
		AssetID string `json:"assetId"`
	}
	if err := c.send(req, &decoded); err != nil {
		return "", fmt.Errorf("runway: upload asset from url: %w", err)
	}
	if decoded.AssetID == "" {
		return "", fmt.Errorf("%w: upload response missing assetId", domain.ErrInvalidResponse)
	}
	return decoded.AssetID, nil
}

// CreateJob starts an image-to-video generation from an uploaded asset and
// returns the remote job id.
func (c *Client) CreateJob(ctx context.Context, assetID, textPrompt string, opts domain.GenerationOptions) (string, error) {
	prompt := textPrompt
	if prompt == "" {
		prompt = "Generate a smooth video from this image"
	}
	body := c.jobBody(prompt, opts)
	body["firstImage_assetId"] = assetID
	return c.createJob(ctx, c.baseURL+"/gen4/create", body)
}

// CreateTextJob starts a text-only generation and returns the remote job id.
func (c *Client) CreateTextJob(ctx context.Context, textPrompt string, opts domain.GenerationOptions) (string, error) {
	return c.createJob(ctx, c.baseURL+"/gen4turbo/create", c.jobBody(textPrompt, opts))
}

func (c *Client) jobBody(textPrompt string, opts domain.GenerationOptions) map[string]any {
	body := map[string]any{
		"text_prompt":  textPrompt,
		"aspect_ratio": opts.AspectRatio,
		"seconds":      opts.Seconds,
		"maxJobs":      c.maxJobs,
	}
	if opts.Seed != 0 {
		body["seed"] = opts.Seed
	}
	if opts.ExploreMode {
		body["exploreMode"] = true
	}
	return body
}

func (c *Client) createJob(ctx context.Context, endpoint string, body map[string]any) (string, error) {
	c.EnsureAccount(ctx)

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("runway: encode job request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("runway: build job request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	var decoded createResponse
	if err := c.send(req, &decoded); err != nil {
		return "", fmt.Errorf("runway: create job: %w", err)
	}
	jobID := decoded.jobID()
	if jobID == "" {
		return "", fmt.Errorf("%w: create response missing job id", domain.ErrInvalidResponse)
	}
	c.logger.Debug().Str("job_id", jobID).Msg("runway: created job")
	return jobID, nil
}

// SetupAccount performs the one-time account activation. It is idempotent;
// a configured client skips the call.
func (c *Client) SetupAccount(ctx context.Context) error {
	c.mu.Lock()
	if c.configured {
		c.mu.Unlock()
		return nil
	}
	email, password := c.email, c.password
	c.mu.Unlock()

	if email == "" || password == "" {
		return domain.ErrMissingCredentials
	}

	body, err := json.Marshal(map[string]any{
		"email":    email,
		"password": password,
		"maxJobs":  c.maxJobs,
	})
	if err != nil {
		return fmt.Errorf("runway: encode account request: %w", err)
	}
	endpoint := c.baseURL + "/accounts/" + url.PathEscape(email)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("runway: build account request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	var decoded struct {
		JWT *struct {
			Token string `json:"token"`
		} `json:"jwt"`
	}
	if err := c.send(req, &decoded); err != nil {
		return fmt.Errorf("runway: setup account: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if decoded.JWT != nil {
		c.jwt = decoded.JWT.Token
		c.configured = true
		c.logger.Info().Str("email", email).Msg("runway: account configured")
	} else {
		c.logger.Warn().Str("email", email).Msg("runway: account response missing jwt")
	}
	return nil
}

// EnsureAccount configures the account before API calls that need it. The
// API can work without explicit setup, so failure is logged and swallowed.
func (c *Client) EnsureAccount(ctx context.Context) {
	c.mu.Lock()
	configured := c.configured
	hasCreds := c.email != "" && c.password != ""
	c.mu.Unlock()
	if configured {
		return
	}
	if !hasCreds {
		c.logger.Warn().Msg("runway: account credentials not configured")
		return
	}
	if err := c.SetupAccount(ctx); err != nil {
		c.logger.Error().Err(err).Msg("runway: account setup failed, continuing")
	}
}

// CheckCredits reports whether the account can run a job. There is no
// dedicated credits endpoint, so this infers the answer from account setup
// and fails open on uncertainty. Concurrent calls share one provider call.
func (c *Client) CheckCredits(ctx context.Context) CreditStatus {
	v, _, _ := c.creditsGroup.Do("credits", func() (any, error) {
		// The shared call serves every waiting caller, so it must not die
		// with whichever caller happened to start it.
		return c.checkCredits(context.WithoutCancel(ctx)), nil
	})
	return v.(CreditStatus)
}

func (c *Client) checkCredits(ctx context.Context) CreditStatus {
	c.mu.Lock()
	configured := c.configured && c.jwt != ""
	hasCreds := c.email != "" && c.password != ""
	c.mu.Unlock()

	if configured {
		return CreditStatus{HasCredits: true}
	}
	if !hasCreds {
		return CreditStatus{HasCredits: true}
	}

	if err := c.SetupAccount(ctx); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "credit") || strings.Contains(msg, "insufficient") || strings.Contains(msg, "balance") {
			return CreditStatus{HasCredits: false, Error: err.Error()}
		}
		return CreditStatus{HasCredits: true, Error: err.Error()}
	}
	return CreditStatus{HasCredits: true}
}

func (c *Client) assetName(name string) string {
	if name != "" {
		return name
	}
	return "image_" + uuid.NewString()[:8]
}

// send issues the request and decodes a 2xx JSON body into out. Non-2xx
// responses become *APIError carrying the provider's error text.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorText(raw, resp.Status)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	return nil
}

func errorText(raw []byte, fallback string) string {
	var detail struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &detail); err == nil {
		if detail.Error != "" {
			return detail.Error
		}
		if detail.Message != "" {
			return detail.Message
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fallback
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
