// Package speech wraps the speech synthesis service: narration text in,
// audio plus word timing events out.
//
// The REST synthesis endpoint returns audio only; word-boundary events are
// populated when the provider supplies them, and downstream subtitle
// alignment falls back to uniform character-weighted timing when they are
// absent. Audio duration for constant-bitrate output is derived from the
// payload size and the format's bitrate.
package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

const (
	defaultHTTPTimeout  = 60 * time.Second
	defaultOutputFormat = "audio-48khz-192kbitrate-mono-mp3"
	synthesisPath       = "/cognitiveservices/v1"
)

// WordBoundary is one word timing event: where the word sits in the
// narration text and when it is spoken in the audio.
type WordBoundary struct {
	Text       string
	TextOffset int
	OffsetMS   int64
	DurationMS int64
}

// Result is a completed synthesis.
type Result struct {
	Audio      []byte
	Ext        string
	DurationMS int64
	Events     []WordBoundary
}

// Config captures the runtime settings for the synthesis service.
type Config struct {
	Key          string
	Endpoint     string
	Voice        string
	OutputFormat string
}

// Client wraps the speech synthesis REST API.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs a synthesis client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	cfg.Key = strings.TrimSpace(cfg.Key)
	if strings.TrimSpace(cfg.OutputFormat) == "" {
		cfg.OutputFormat = defaultOutputFormat
	}
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Synthesize converts narration text to audio using the configured voice.
// voice may be empty to use the config default.
func (c *Client) Synthesize(ctx context.Context, text, voice string) (Result, error) {
	if strings.TrimSpace(text) == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "speech", "synthesize", "empty text", nil)
	}
	if c.cfg.Key == "" || c.cfg.Endpoint == "" {
		return Result{}, services.Wrap(services.ErrConfiguration, "speech", "synthesize", "missing key or endpoint", nil)
	}
	if strings.TrimSpace(voice) == "" {
		voice = c.cfg.Voice
	}

	body := buildSSML(voice, text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.Endpoint+synthesisPath, strings.NewReader(body))
	if err != nil {
		return Result{}, services.Wrap(services.ErrPermanent, "speech", "synthesize", "build request", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.Key)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.cfg.OutputFormat)
	req.Header.Set("User-Agent", "jimeng-tts")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		marker := services.ErrTransient
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			marker = services.ErrConfiguration
		case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
			marker = services.ErrPermanent
		}
		return Result{}, services.Wrap(marker, "speech", "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrTransient, "speech", "synthesize", "read audio", err)
	}
	if len(audio) == 0 {
		return Result{}, services.Wrap(services.ErrPermanent, "speech", "synthesize", "empty audio payload", nil)
	}

	return Result{
		Audio:      audio,
		Ext:        formatExtension(c.cfg.OutputFormat),
		DurationMS: estimateDurationMS(c.cfg.OutputFormat, len(audio)),
	}, nil
}

func buildSSML(voice, text string) string {
	var b strings.Builder
	b.WriteString(`<speak version='1.0' xml:lang='zh-CN'><voice name='`)
	b.WriteString(voice)
	b.WriteString(`'>`)
	b.WriteString(escapeXML(text))
	b.WriteString(`</voice></speak>`)
	return b.String()
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"'", "&apos;",
		`"`, "&quot;",
	)
	return replacer.Replace(s)
}

func formatExtension(format string) string {
	switch {
	case strings.Contains(format, "mp3"):
		return "mp3"
	case strings.Contains(format, "riff"), strings.Contains(format, "pcm"):
		return "wav"
	case strings.Contains(format, "ogg"):
		return "ogg"
	case strings.Contains(format, "webm"):
		return "webm"
	default:
		return "mp3"
	}
}

var bitratePattern = regexp.MustCompile(`(\d+)kbitrate`)

// estimateDurationMS derives play time from payload size for the
// constant-bitrate formats this tool requests. Returns 0 when the format
// string carries no bitrate.
func estimateDurationMS(format string, size int) int64 {
	match := bitratePattern.FindStringSubmatch(format)
	if match == nil {
		return 0
	}
	kbps, err := strconv.Atoi(match[1])
	if err != nil || kbps <= 0 {
		return 0
	}
	return int64(size) * 8 / int64(kbps)
}
