package jimeng

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

const (
	defaultHTTPTimeout  = 30 * time.Second
	defaultPollInterval = 2 * time.Second
	defaultPollTimeout  = 60 * time.Second
	maxSeed             = 999999999

	submitPath  = "/mweb/v1/aigc_draft/generate"
	historyPath = "/mweb/v1/get_history_by_ids"
)

// Config captures the runtime settings required to talk to the provider.
// Cookie, Sign, MsToken, and ABogus are opaque credentials passed through
// unmodified; the client never derives or refreshes them.
type Config struct {
	BaseURL      string
	AID          int
	AppVersion   string
	Cookie       string
	Sign         string
	MsToken      string
	ABogus       string
	PollInterval time.Duration
	Timeout      time.Duration
}

// Client wraps the image generation API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	webID      string
	sleeper    func(context.Context, time.Duration) error
	now        func() time.Time
	seed       func() int
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithSleeper overrides how poll waits are performed (useful for tests).
func WithSleeper(sleeper func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// WithClock overrides the wall clock used for the device-time header.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithSeedSource overrides how submission seeds are drawn (useful for tests).
func WithSeedSource(seed func() int) Option {
	return func(c *Client) {
		if seed != nil {
			c.seed = seed
		}
	}
}

// NewClient constructs a generation client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultPollTimeout
	}

	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		sleeper:    sleepWithContext,
		now:        time.Now,
		seed:       func() int { return rand.Intn(maxSeed) + 1 },
	}
	for _, opt := range opts {
		opt(client)
	}

	if client.webID = webIDFromCookie(cfg.Cookie); client.webID == "" {
		client.webID = randomWebID()
	}
	return client
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SubmitRequest describes one image generation submission.
type SubmitRequest struct {
	Prompt   string
	ModelKey string
	Ratio    string
	Width    int
	Height   int
}

// JobHandle identifies an accepted submission for later polling.
type JobHandle struct {
	HistoryID string
}

// State is the poll outcome classification.
type State int

const (
	StatePending State = iota
	StateSucceeded
	StateFailed
)

// PollResult reports one poll observation. URLs is populated only for
// StateSucceeded; Reason only for StateFailed.
type PollResult struct {
	State  State
	URLs   []string
	Reason string
}

// Submit issues a single generation request and returns the handle to poll.
// It never retries internally: callers own the retry policy because each
// accepted submission spends quota.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (JobHandle, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return JobHandle{}, services.Wrap(services.ErrConfiguration, "generation", "submit", "empty prompt", nil)
	}
	if strings.TrimSpace(req.ModelKey) == "" {
		return JobHandle{}, services.Wrap(services.ErrConfiguration, "generation", "submit", "empty model key", nil)
	}

	payload, err := buildSubmitPayload(req, c.seed(), c.cfg.AID)
	if err != nil {
		return JobHandle{}, services.Wrap(services.ErrPermanent, "generation", "submit", "build payload", err)
	}
	babiParam, err := buildBabiParam(req.ModelKey)
	if err != nil {
		return JobHandle{}, services.Wrap(services.ErrPermanent, "generation", "submit", "build babi_param", err)
	}

	query := c.commonQuery()
	query.Set("babi_param", babiParam)

	var parsed submitResponse
	if err := c.postJSON(ctx, submitPath, query, payload, &parsed); err != nil {
		return JobHandle{}, services.Wrap(classify(err), "generation", "submit", "request failed", err)
	}
	if parsed.Ret != successRet {
		return JobHandle{}, services.Wrap(services.ErrPermanent, "generation", "submit",
			fmt.Sprintf("provider rejected request: ret=%s %s", parsed.Ret, parsed.ErrMsg), nil)
	}
	historyID := parsed.Data.AigcData.HistoryRecordID
	if historyID == "" {
		return JobHandle{}, services.Wrap(services.ErrPermanent, "generation", "submit", "response carried no history id", nil)
	}
	return JobHandle{HistoryID: historyID}, nil
}

// Poll observes the current state of a submission. Safe to call repeatedly.
func (c *Client) Poll(ctx context.Context, handle JobHandle) (PollResult, error) {
	if handle.HistoryID == "" {
		return PollResult{}, services.Wrap(services.ErrPermanent, "generation", "poll", "empty history id", nil)
	}

	var parsed historyResponse
	if err := c.postJSON(ctx, historyPath, c.commonQuery(), buildHistoryRequest(handle.HistoryID, c.cfg.AID), &parsed); err != nil {
		return PollResult{}, services.Wrap(classify(err), "generation", "poll", "request failed", err)
	}
	if parsed.Ret != successRet {
		return PollResult{}, services.Wrap(services.ErrTransient, "generation", "poll",
			fmt.Sprintf("provider error: ret=%s %s", parsed.Ret, parsed.ErrMsg), nil)
	}

	record, ok := parsed.Data[handle.HistoryID]
	if !ok {
		return PollResult{}, services.Wrap(services.ErrTransient, "generation", "poll", "history record missing from response", nil)
	}

	switch record.Status {
	case statusGenerating:
		return PollResult{State: StatePending}, nil
	case statusDone:
		urls := record.imageURLs()
		if len(urls) == 0 {
			return PollResult{State: StateFailed, Reason: "completed without image urls"}, nil
		}
		return PollResult{State: StateSucceeded, URLs: urls}, nil
	default:
		return PollResult{State: StateFailed, Reason: fmt.Sprintf("provider status %d", record.Status)}, nil
	}
}

// WaitForImages polls at the configured interval until the submission
// reaches a terminal state or the overall deadline passes. A deadline with
// no terminal state is a timeout, reported distinctly from provider failure.
func (c *Client) WaitForImages(ctx context.Context, handle JobHandle) ([]string, error) {
	deadline := c.now().Add(c.cfg.Timeout)

	for {
		result, err := c.Poll(ctx, handle)
		switch {
		case err != nil && errors.Is(err, services.ErrTransient):
			// Poll is idempotent; transient faults just burn deadline.
		case err != nil:
			return nil, err
		case result.State == StateSucceeded:
			return result.URLs, nil
		case result.State == StateFailed:
			return nil, services.Wrap(services.ErrPermanent, "generation", "poll", result.Reason, nil)
		}

		if !c.now().Add(c.cfg.PollInterval).Before(deadline) {
			return nil, services.Wrap(services.ErrTimeout, "generation", "poll",
				fmt.Sprintf("no terminal state within %s", c.cfg.Timeout), nil)
		}
		if err := c.sleeper(ctx, c.cfg.PollInterval); err != nil {
			return nil, services.Wrap(services.ErrInterrupted, "generation", "poll", "canceled", err)
		}
	}
}

// FetchImage downloads a generated image and reports its file extension.
func (c *Client) FetchImage(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", services.Wrap(services.ErrPermanent, "generation", "download", "build request", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "generation", "download", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		marker := services.ErrTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			marker = services.ErrPermanent
		}
		return nil, "", services.Wrap(marker, "generation", "download",
			fmt.Sprintf("http %d", resp.StatusCode), nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", services.Wrap(services.ErrTransient, "generation", "download", "read body", err)
	}
	return data, imageExtension(resp.Header.Get("Content-Type"), imageURL), nil
}

func imageExtension(contentType, imageURL string) string {
	switch {
	case strings.Contains(contentType, "webp"):
		return "webp"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "jpeg"), strings.Contains(contentType, "jpg"):
		return "jpg"
	}
	if u, err := url.Parse(imageURL); err == nil {
		if ext := strings.TrimPrefix(path.Ext(u.Path), "."); ext != "" {
			return ext
		}
	}
	return "jpg"
}

func (c *Client) commonQuery() url.Values {
	query := url.Values{}
	query.Set("aid", strconv.Itoa(c.cfg.AID))
	query.Set("device_platform", "web")
	query.Set("region", "CN")
	query.Set("web_id", c.webID)
	return query
}

func (c *Client) postJSON(ctx context.Context, apiPath string, query url.Values, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+apiPath+"?"+query.Encode(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &httpStatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// setHeaders applies the browser-shaped header set the endpoint expects.
// device-time is refreshed per request; the signature headers pass through
// from config.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json, text/plain, */*")
	req.Header.Set("accept-language", "zh-CN,zh;q=0.9")
	req.Header.Set("app-sdk-version", "48.0.0")
	req.Header.Set("appid", strconv.Itoa(c.cfg.AID))
	req.Header.Set("appvr", c.cfg.AppVersion)
	req.Header.Set("content-type", "application/json")
	req.Header.Set("cookie", c.cfg.Cookie)
	req.Header.Set("device-time", strconv.FormatInt(c.now().Unix(), 10))
	req.Header.Set("lan", "zh-Hans")
	req.Header.Set("loc", "cn")
	req.Header.Set("origin", "https://jimeng.jianying.com")
	req.Header.Set("pf", "7")
	req.Header.Set("referer", "https://jimeng.jianying.com/ai-tool/image/generate")
	req.Header.Set("sign", c.cfg.Sign)
	req.Header.Set("sign-ver", "1")
	req.Header.Set("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/129.0.0.0 Safari/537.36")
	if c.cfg.MsToken != "" {
		req.Header.Set("msToken", c.cfg.MsToken)
	}
	if c.cfg.ABogus != "" {
		req.Header.Set("a-bogus", c.cfg.ABogus)
	}
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// classify decides whether a transport-level failure is worth retrying.
// Server-side and rate-limit statuses plus network errors are transient;
// other client errors are permanent.
func classify(err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500 {
			return services.ErrTransient
		}
		return services.ErrPermanent
	}
	return services.ErrTransient
}
