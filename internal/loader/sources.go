package loader

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/sony/gobreaker/v2"

	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/metrics"
)

// maxBodyBytes caps how much of a source response is read.
const maxBodyBytes = 32 << 20

//go:embed sample_catalog.json
var sampleCatalog []byte

// Kind groups sources by where their data comes from.
type Kind string

const (
	KindProxy    Kind = "proxy"
	KindDirect   Kind = "direct"
	KindFile     Kind = "file"
	KindEmbedded Kind = "embedded"
)

// Remote reports whether data of this kind came over the network.
func (k Kind) Remote() bool { return k == KindProxy || k == KindDirect }

// Fetched is a payload that passed structural validation, with the bytes it was parsed from.
type Fetched struct {
	Payload domain.Payload
	Raw     []byte
}

// Source is one strategy in the fallback chain.
type Source interface {
	Name() string
	Kind() Kind
	Fetch(ctx context.Context) (*Fetched, error)
}

// BreakerConfig configures the circuit breaker wrapped around each remote source.
type BreakerConfig struct {
	// ConsecutiveFailures trips the breaker; 0 disables the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long a tripped breaker rejects attempts before probing again.
	OpenTimeout time.Duration
}

// HTTPSource fetches the catalog over HTTP, either through a proxy prefix or directly.
type HTTPSource struct {
	name    string
	kind    Kind
	url     string
	headers http.Header
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*Fetched]
}

// NewProxySource fetches apiURL through a pass-through proxy, e.g. "https://corsproxy.io/?".
// The API URL is query-escaped and appended to the prefix.
func NewProxySource(name, prefix, apiURL string, client *http.Client, bc BreakerConfig, logger *log.Logger) *HTTPSource {
	return newHTTPSource(name, KindProxy, prefix+url.QueryEscape(apiURL), nil, client, bc, logger)
}

// NewDirectSource fetches apiURL without a proxy, sending the headers the points API expects
// from a browser session.
func NewDirectSource(apiURL, acceptLanguage string, client *http.Client, bc BreakerConfig, logger *log.Logger) *HTTPSource {
	headers := http.Header{}
	headers.Set("Accept", "application/json, text/plain, */*")
	headers.Set("X-Requested-With", "XMLHttpRequest")
	if acceptLanguage != "" {
		headers.Set("Accept-Language", acceptLanguage)
	}
	return newHTTPSource("direct", KindDirect, apiURL, headers, client, bc, logger)
}

func newHTTPSource(name string, kind Kind, target string, headers http.Header, client *http.Client, bc BreakerConfig, logger *log.Logger) *HTTPSource {
	if client == nil {
		client = http.DefaultClient
	}
	s := &HTTPSource{name: name, kind: kind, url: target, headers: headers, client: client}
	if bc.ConsecutiveFailures > 0 {
		s.breaker = gobreaker.NewCircuitBreaker[*Fetched](gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     bc.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				if logger != nil {
					logger.Printf("WARN: Source %s circuit breaker %s -> %s", name, from, to)
				}
				metrics.BreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
			},
		})
		metrics.BreakerState.WithLabelValues(name).Set(0)
	}
	return s
}

func (s *HTTPSource) Name() string { return s.name }
func (s *HTTPSource) Kind() Kind   { return s.kind }

// Fetch performs a single GET. Non-200 answers and invalid payloads are failures.
func (s *HTTPSource) Fetch(ctx context.Context) (*Fetched, error) {
	if s.breaker == nil {
		return s.fetch(ctx)
	}
	return s.breaker.Execute(func() (*Fetched, error) {
		return s.fetch(ctx)
	})
}

func (s *HTTPSource) fetch(ctx context.Context) (*Fetched, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range s.headers {
		req.Header[k] = v
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return parseFetched(raw)
}

// FileSource reads a previously saved catalog from disk.
type FileSource struct {
	path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Name() string { return "file" }
func (s *FileSource) Kind() Kind   { return KindFile }

// Fetch reads and validates the file; ctx is only checked before reading.
func (s *FileSource) Fetch(ctx context.Context) (*Fetched, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return parseFetched(raw)
}

// EmbeddedSource serves the sample catalog compiled into the binary. It is the last
// resort and only fails if the embedded data itself is broken.
type EmbeddedSource struct {
	raw []byte
}

// NewEmbeddedSource returns the built-in sample catalog source.
func NewEmbeddedSource() *EmbeddedSource {
	return &EmbeddedSource{raw: sampleCatalog}
}

func (s *EmbeddedSource) Name() string { return "embedded" }
func (s *EmbeddedSource) Kind() Kind   { return KindEmbedded }

func (s *EmbeddedSource) Fetch(ctx context.Context) (*Fetched, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return parseFetched(s.raw)
}

func parseFetched(raw []byte) (*Fetched, error) {
	payload, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return &Fetched{Payload: payload, Raw: raw}, nil
}
