package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

func testConfig(endpoint string) Config {
	return Config{
		Key:          "secret",
		Endpoint:     endpoint,
		Voice:        "zh-CN-YunzeNeural",
		OutputFormat: "audio-48khz-192kbitrate-mono-mp3",
	}
}

func TestSynthesizeSendsSSML(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != synthesisPath {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Ocp-Apim-Subscription-Key"); got != "secret" {
			t.Errorf("subscription key = %q", got)
		}
		if got := r.Header.Get("X-Microsoft-OutputFormat"); got != "audio-48khz-192kbitrate-mono-mp3" {
			t.Errorf("output format = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write(make([]byte, 24000))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	result, err := client.Synthesize(context.Background(), "Tom & Jerry <3", "")
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}

	if !strings.Contains(gotBody, "name='zh-CN-YunzeNeural'") {
		t.Fatalf("missing voice in ssml: %q", gotBody)
	}
	if !strings.Contains(gotBody, "Tom &amp; Jerry &lt;3") {
		t.Fatalf("text not escaped: %q", gotBody)
	}
	if len(result.Audio) != 24000 {
		t.Fatalf("audio size = %d", len(result.Audio))
	}
	if result.Ext != "mp3" {
		t.Fatalf("ext = %q", result.Ext)
	}
	// 24000 bytes at 192 kbit/s plays for one second.
	if result.DurationMS != 1000 {
		t.Fatalf("duration = %dms, want 1000", result.DurationMS)
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.Synthesize(context.Background(), "hello", "en-US-JennyNeural"); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if !strings.Contains(gotBody, "name='en-US-JennyNeural'") {
		t.Fatalf("voice override not applied: %q", gotBody)
	}
}

func TestSynthesizeErrorMapping(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, services.ErrConfiguration},
		{http.StatusBadRequest, services.ErrPermanent},
		{http.StatusTooManyRequests, services.ErrTransient},
		{http.StatusServiceUnavailable, services.ErrTransient},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", tc.status)
		}))
		client := NewClient(testConfig(server.URL))
		_, err := client.Synthesize(context.Background(), "hello", "")
		server.Close()
		if !errors.Is(err, tc.want) {
			t.Fatalf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
	}
}

func TestSynthesizeRequiresCredentials(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Synthesize(context.Background(), "hello", "")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEstimateDurationMS(t *testing.T) {
	if got := estimateDurationMS("audio-24khz-48kbitrate-mono-mp3", 6000); got != 1000 {
		t.Fatalf("duration = %d, want 1000", got)
	}
	if got := estimateDurationMS("raw-24khz-16bit-mono-pcm", 6000); got != 0 {
		t.Fatalf("duration = %d, want 0 for unknown bitrate", got)
	}
}
