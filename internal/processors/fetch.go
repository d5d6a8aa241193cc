package processors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"capstan/internal/config"
	"capstan/internal/logging"
	"capstan/internal/queue"
	"capstan/internal/work"
)

const fetchKind = "fetch"

// HTTPDoer describes the HTTP client used by the fetch processor.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetch retrieves one or more URLs per item with bounded parallelism and
// records per-URL outcomes. A payload is either a single URL or a JSON array
// of URLs. Individual fetch failures land in their outcome slot; only an
// unusable payload fails the item.
type Fetch struct {
	cfg    *config.Config
	logger *slog.Logger
	client HTTPDoer
}

// NewFetch constructs the fetch processor with a timeout-bounded HTTP client.
func NewFetch(cfg *config.Config, logger *slog.Logger) *Fetch {
	timeout := time.Duration(cfg.Fetch.Timeout) * time.Second
	return NewFetchWithClient(cfg, logger, &http.Client{Timeout: timeout})
}

// NewFetchWithClient allows injecting the HTTP client (used in tests).
func NewFetchWithClient(cfg *config.Config, logger *slog.Logger, client HTTPDoer) *Fetch {
	fetchLogger := logger
	if fetchLogger != nil {
		fetchLogger = fetchLogger.With(logging.String("component", fetchKind))
	}
	return &Fetch{cfg: cfg, logger: fetchLogger, client: client}
}

func (f *Fetch) Kind() string { return fetchKind }

func (f *Fetch) Process(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, f.logger)

	urls, err := parseFetchPayload(item.Payload)
	if err != nil {
		return err
	}

	limit := 1
	if f.cfg != nil && f.cfg.Fetch.MaxConcurrent > 0 {
		limit = f.cfg.Fetch.MaxConcurrent
	}

	outcomes := make([]fetchOutcome, len(urls))
	var grp errgroup.Group
	grp.SetLimit(limit)
	for i, target := range urls {
		grp.Go(func() error {
			outcomes[i] = f.fetchOne(ctx, target)
			return nil
		})
	}
	// Goroutines never report errors; failures land in their outcome slot.
	_ = grp.Wait()

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Success {
			succeeded++
		}
	}
	logger.Info(
		"fetch complete",
		logging.Int("urls", len(urls)),
		logging.Int("succeeded", succeeded),
		logging.Int("failed", len(urls)-succeeded),
	)

	result, err := json.Marshal(fetchResult{
		Results:   outcomes,
		Succeeded: succeeded,
		Failed:    len(urls) - succeeded,
	})
	if err != nil {
		return work.Wrap(work.ErrTransient, fetchKind, "encode result", "marshal result", err)
	}
	item.ResultJSON = string(result)
	return nil
}

// HealthCheck verifies the HTTP client and concurrency settings are usable.
func (f *Fetch) HealthCheck(context.Context) work.Health {
	if f.client == nil {
		return work.Unhealthy(fetchKind, "http client not configured")
	}
	if f.cfg == nil || f.cfg.Fetch.MaxConcurrent < 1 {
		return work.Unhealthy(fetchKind, "max_concurrent must be at least 1")
	}
	return work.Healthy(fetchKind)
}

func (f *Fetch) fetchOne(ctx context.Context, target string) fetchOutcome {
	outcome := fetchOutcome{URL: target}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	if f.cfg != nil {
		if ua := strings.TrimSpace(f.cfg.Fetch.UserAgent); ua != "" {
			req.Header.Set("User-Agent", ua)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	defer resp.Body.Close()

	outcome.Status = resp.StatusCode
	length, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.ContentLength = length
	outcome.Success = resp.StatusCode < http.StatusBadRequest
	return outcome
}

func parseFetchPayload(payload string) ([]string, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" {
		return nil, work.Wrap(work.ErrValidation, fetchKind, "parse payload", "payload is empty", nil)
	}

	var urls []string
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(trimmed), &urls); err != nil {
			return nil, work.Wrap(work.ErrValidation, fetchKind, "parse payload", "invalid URL array", err)
		}
	} else {
		urls = []string{trimmed}
	}

	cleaned := make([]string, 0, len(urls))
	for _, raw := range urls {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return nil, work.Wrap(work.ErrValidation, fetchKind, "parse payload", fmt.Sprintf("invalid URL %q", raw), err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, work.Wrap(work.ErrValidation, fetchKind, "parse payload", fmt.Sprintf("unsupported scheme %q", parsed.Scheme), nil)
		}
		cleaned = append(cleaned, raw)
	}
	if len(cleaned) == 0 {
		return nil, work.Wrap(work.ErrValidation, fetchKind, "parse payload", "no URLs in payload", nil)
	}
	return cleaned, nil
}

type fetchOutcome struct {
	URL           string `json:"url"`
	Status        int    `json:"status,omitempty"`
	ContentLength int64  `json:"content_length"`
	Success       bool   `json:"success"`
	Error         string `json:"error,omitempty"`
}

type fetchResult struct {
	Results   []fetchOutcome `json:"results"`
	Succeeded int            `json:"succeeded"`
	Failed    int            `json:"failed"`
}
