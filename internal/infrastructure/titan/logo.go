package titan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/riskibarqy/matchodds/internal/platform/resilience"
	"github.com/riskibarqy/matchodds/internal/usecase"
	"github.com/valyala/fasthttp"
)

const (
	defaultLogoPublicPrefix = "/logos/"
	maxLogoRedirects        = 5
	maxLogoBytes            = 2 << 20
)

type LogoDownloaderConfig struct {
	Dir            string
	PublicPrefix   string
	Timeout        time.Duration
	UserAgent      string
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// LogoDownloader keeps one PNG per team under Dir and serves it under
// PublicPrefix. Existing files are never fetched again.
type LogoDownloader struct {
	dir          string
	publicPrefix string
	timeout      time.Duration
	client       *fasthttp.Client
	logger       *logging.Logger

	breaker *resilience.CircuitBreaker
	flight  resilience.Flight[struct{}]
}

func NewLogoDownloader(cfg LogoDownloaderConfig) (*LogoDownloader, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, crerr.New("logo directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, crerr.Wrapf(err, "create logo directory %s", dir)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	prefix := firstNonEmpty(cfg.PublicPrefix, defaultLogoPublicPrefix)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return &LogoDownloader{
		dir:          dir,
		publicPrefix: prefix,
		timeout:      timeout,
		client: &fasthttp.Client{
			Name:                firstNonEmpty(cfg.UserAgent, defaultUserAgent),
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxLogoBytes,
		},
		logger:  logger,
		breaker: resilience.NewCircuitBreaker("titan-logos", cfg.CircuitBreaker, logBreakerChange(logger)),
	}, nil
}

// Store downloads logoURL for teamName unless a copy exists and returns the
// public path of the file.
func (d *LogoDownloader) Store(ctx context.Context, teamName, logoURL string) (string, error) {
	teamName = strings.TrimSpace(teamName)
	logoURL = strings.TrimSpace(logoURL)
	if teamName == "" || logoURL == "" {
		return "", fmt.Errorf("%w: team name and logo url are required", usecase.ErrInvalidInput)
	}

	fileName := match.SafeFilename(teamName) + ".png"
	publicPath := d.publicPrefix + fileName
	target := filepath.Join(d.dir, fileName)

	_, _, err := d.flight.Do(fileName, func() (struct{}, error) {
		if _, statErr := os.Stat(target); statErr == nil {
			return struct{}{}, nil
		}
		body, fetchErr := d.fetch(ctx, logoURL)
		if fetchErr != nil {
			return struct{}{}, fetchErr
		}
		return struct{}{}, writeFileAtomic(target, body)
	})
	if err != nil {
		return "", err
	}
	return publicPath, nil
}

func (d *LogoDownloader) fetch(ctx context.Context, logoURL string) ([]byte, error) {
	if err := d.breaker.Allow(); err != nil {
		return nil, fmt.Errorf("%w: logo host is temporarily unavailable", usecase.ErrDependencyUnavailable)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(logoURL)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "image/*")

	deadline := time.Now().Add(d.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	req.SetTimeout(time.Until(deadline))

	err := d.client.DoRedirects(req, resp, maxLogoRedirects)
	if err == nil && resp.StatusCode() != fasthttp.StatusOK {
		err = crerr.Newf("logo status=%d url=%s", resp.StatusCode(), logoURL)
	}
	if err != nil {
		d.breaker.RecordFailure()
	} else {
		d.breaker.RecordSuccess()
	}
	if err != nil {
		d.logger.WarnContext(ctx, "download team logo failed", "url", logoURL, "error", err)
		return nil, crerr.Wrap(err, "download team logo")
	}

	return append([]byte(nil), resp.Body()...), nil
}

func writeFileAtomic(target string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), ".logo-*.tmp")
	if err != nil {
		return crerr.Wrap(err, "create temp logo file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return crerr.Wrap(err, "write temp logo file")
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return crerr.Wrap(err, "close temp logo file")
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return crerr.Wrap(err, "rename logo file")
	}
	return nil
}
