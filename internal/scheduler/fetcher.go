package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/darrell-green/prewarm/internal/config"
	"github.com/darrell-green/prewarm/internal/types"
)

// maxCaptureBytes caps the payload retained per fetch. Bigger bodies are
// still warmed end to end, just not captured.
const maxCaptureBytes = 1 << 20

// HTTPFetcher is the default fetcher: a plain GET against the origin with
// a priority hint header. Outbound traffic is paced with a token-bucket
// limiter so aggressive trigger bursts cannot hammer the origin.
type HTTPFetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	userAgent   string
	captureBody bool
	logger      *slog.Logger
}

// NewHTTPFetcher creates a fetcher from config. A zero RequestsPerSecond
// disables pacing.
func NewHTTPFetcher(cfg config.FetchConfig, logger *slog.Logger) *HTTPFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPFetcher{
		client:      &http.Client{Timeout: timeout},
		limiter:     limiter,
		userAgent:   cfg.UserAgent,
		captureBody: cfg.CaptureBody,
		logger:      logger.With("component", "http-fetcher"),
	}
}

// Fetch implements types.Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, hint types.FetchHint) (types.FetchInfo, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return types.FetchInfo{}, types.NewPrefetchError("fetch", url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.FetchInfo{}, types.NewPrefetchError("fetch", url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Purpose", "prefetch")
	if hint.HighPriority || hint.Priority >= types.PriorityHigh {
		req.Header.Set("Priority", "u=1")
	} else {
		req.Header.Set("Priority", "u=4")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return types.FetchInfo{}, types.NewPrefetchError("fetch", url, err)
	}
	defer resp.Body.Close() //nolint:errcheck // Best-effort close on read path

	if resp.StatusCode >= 400 {
		// Drain so the connection can be reused before reporting failure.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxCaptureBytes))
		return types.FetchInfo{}, types.NewPrefetchError("fetch", url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	info := types.FetchInfo{Size: resp.ContentLength}
	if f.captureBody {
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxCaptureBytes))
		if readErr != nil {
			return types.FetchInfo{}, types.NewPrefetchError("fetch", url, readErr)
		}
		info.Body = body
		info.Size = int64(len(body))
	} else {
		n, _ := io.Copy(io.Discard, resp.Body)
		if info.Size < 0 {
			info.Size = n
		}
	}
	if info.Size < 0 {
		info.Size = 0
	}

	f.logger.Debug("Fetched target",
		"url", url,
		"status", resp.StatusCode,
		"size", info.Size,
		"duration", time.Since(start),
	)
	return info, nil
}

var _ types.Fetcher = (*HTTPFetcher)(nil)
