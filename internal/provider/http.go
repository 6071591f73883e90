package provider

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// HTTPConfig captures the settings needed to reach an STT endpoint.
type HTTPConfig struct {
	Name               string
	Endpoint           string
	APIKey             string
	TimeoutSeconds     int
	InsecureSkipVerify bool
}

// HTTPProvider talks to a JSON recognize endpoint.
type HTTPProvider struct {
	cfg        HTTPConfig
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
	now              func() time.Time
}

// Option customizes the provider.
type Option func(*HTTPProvider)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(p *HTTPProvider) {
		if client != nil {
			p.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(p *HTTPProvider) {
		p.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(p *HTTPProvider) {
		p.retryBaseDelay = baseDelay
		p.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(p *HTTPProvider) {
		p.sleeper = sleeper
	}
}

// NewHTTPProvider constructs a provider from cfg.
func NewHTTPProvider(cfg HTTPConfig, opts ...Option) *HTTPProvider {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if cfg.InsecureSkipVerify {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
		client.Transport = transport
	}
	p := &HTTPProvider{
		cfg: HTTPConfig{
			Name:               strings.TrimSpace(cfg.Name),
			Endpoint:           strings.TrimSpace(cfg.Endpoint),
			APIKey:             strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds:     cfg.TimeoutSeconds,
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
		httpClient:       client,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the configured provider name.
func (p *HTTPProvider) Name() string {
	return p.cfg.Name
}

type recognizeRequest struct {
	Config struct {
		LanguageCode string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Transcribe sends req and returns the joined transcript. Latency covers the
// successful attempt only.
func (p *HTTPProvider) Transcribe(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Language) == "" {
		return Result{}, fmt.Errorf("%w: empty language code", ErrUnsupportedLanguage)
	}
	if p.cfg.Endpoint == "" {
		return Result{}, fmt.Errorf("%w: endpoint required", ErrProvider)
	}
	var payload recognizeRequest
	payload.Config.LanguageCode = req.Language
	payload.Audio.Content = base64.StdEncoding.EncodeToString(req.Audio)
	encoded, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("%w: encode body: %v", ErrProvider, err)
	}

	attempts := p.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		started := p.now()
		resp, body, err := p.sendOnce(ctx, encoded)
		if err == nil {
			return Result{
				Transcript: joinTranscript(resp),
				Latency:    p.now().Sub(started),
				Raw:        body,
			}, nil
		}
		delay, retry := p.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return Result{}, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		if err := p.sleep(ctx, delay); err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrProvider, err)
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return Result{}, fmt.Errorf("%w: failed after %d attempts: %w", ErrProvider, attempts, lastErr)
}

func joinTranscript(resp recognizeResponse) string {
	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.Alternatives[0].Transcript); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return NoSpeech
	}
	return strings.Join(parts, "\n")
}

func (p *HTTPProvider) sendOnce(ctx context.Context, encoded []byte) (recognizeResponse, []byte, error) {
	var decoded recognizeResponse
	endpoint, err := url.JoinPath(p.cfg.Endpoint, "")
	if err != nil {
		return decoded, nil, fmt.Errorf("build url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return decoded, nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if auth := authorization(p.cfg.APIKey); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return decoded, nil, fmt.Errorf("http error (timeout=%s): %w", p.httpClient.Timeout, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decoded, nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return decoded, body, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return decoded, body, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		return decoded, body, fmt.Errorf("api error %d: %s", decoded.Error.Code, strings.TrimSpace(decoded.Error.Message))
	}
	return decoded, body, nil
}

// authorization accepts a bare token or a complete "Bearer ..." value.
func authorization(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(key), "bearer ") {
		return key
	}
	return "Bearer " + key
}

func (p *HTTPProvider) retryAttempts() int {
	if p.retryMaxAttempts <= 0 {
		return 1
	}
	return p.retryMaxAttempts
}

func (p *HTTPProvider) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return p.capDelay(statusErr.RetryAfter), true
			}
			return p.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return p.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles from the base delay: attempt 1 -> base, 2 -> base*2.
func (p *HTTPProvider) backoffDelay(attempt int) time.Duration {
	base := p.retryBaseDelay
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < max(attempt, 1); i++ {
		if delay > p.maxDelay()/2 {
			delay = p.maxDelay()
			break
		}
		delay *= 2
	}
	return p.capDelay(delay)
}

func (p *HTTPProvider) maxDelay() time.Duration {
	if p.retryMaxDelay > 0 {
		return p.retryMaxDelay
	}
	return defaultRetryMaxDelay
}

func (p *HTTPProvider) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	return min(delay, p.maxDelay())
}

func (p *HTTPProvider) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if p.sleeper != nil {
		p.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
