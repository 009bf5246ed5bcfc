// internal/preflight/probe.go
package preflight

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/xkilldash9x/homecheck/internal/config"
	"github.com/xkilldash9x/homecheck/internal/network"
)

// ErrUnreachable means the target did not answer with a 2xx response.
var ErrUnreachable = errors.New("target unreachable")

// maxBody bounds how much of the page is parsed.
const maxBody = 5 << 20

// Report is the outcome of a probe.
type Report struct {
	URL        string        `json:"url"`
	StatusCode int           `json:"status_code"`
	Title      string        `json:"title,omitempty"`
	Found      []string      `json:"found,omitempty"`
	Missing    []string      `json:"missing,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// OK reports whether every configured marker is present in the static markup.
func (r *Report) OK() bool { return len(r.Missing) == 0 }

// Prober fetches the target over plain HTTP and checks its static markup.
type Prober struct {
	logger  *zap.Logger
	client  *http.Client
	markers []string
}

// NewProber creates a prober from the preflight config. A nil client gets
// one bounded by the configured timeout.
func NewProber(cfg config.PreflightConfig, client *http.Client, logger *zap.Logger) *Prober {
	if client == nil {
		clientCfg := network.NewDefaultClientConfig()
		clientCfg.RequestTimeout = cfg.Timeout
		clientCfg.IgnoreTLSErrors = cfg.IgnoreTLSErrors
		clientCfg.Logger = logger
		client = network.NewClient(clientCfg).Client
	}
	return &Prober{
		logger:  logger.Named("preflight"),
		client:  client,
		markers: cfg.Markers,
	}
}

// Probe fetches url and reports which markers the served HTML contains.
// Transport failures and non-2xx answers wrap ErrUnreachable. Missing markers
// are not an error; content the page renders with script is absent from the
// static markup anyway.
func (p *Prober) Probe(ctx context.Context, url string) (*Report, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid target %q: %w", url, err)
	}
	req.Header.Set("Accept", "text/html")
	req.Header.Set("Accept-Encoding", network.AcceptEncoding)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnreachable, url, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	report := &Report{URL: url, StatusCode: resp.StatusCode}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return report, fmt.Errorf("%w: %s: received status code %d", ErrUnreachable, url, resp.StatusCode)
	}

	body, err := network.DecompressBody(resp)
	if err != nil {
		return report, fmt.Errorf("failed to decode body from %s: %w", url, err)
	}
	defer func() {
		_ = body.Close()
	}()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(body, maxBody))
	if err != nil {
		return report, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	report.Title = strings.TrimSpace(doc.Find("title").First().Text())
	for _, m := range p.markers {
		if doc.Find(m).Length() > 0 {
			report.Found = append(report.Found, m)
		} else {
			report.Missing = append(report.Missing, m)
		}
	}
	report.Duration = time.Since(start)

	if !report.OK() {
		p.logger.Warn("Target is missing expected markers.", zap.String("url", url), zap.Strings("missing", report.Missing))
	} else {
		p.logger.Debug("Target is reachable.", zap.String("url", url), zap.Int("status", report.StatusCode))
	}
	return report, nil
}
