package titan

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// PageRequest describes how a page is loaded before its HTML is captured.
type PageRequest struct {
	URL string
	// WaitFor is a selector that must exist before the page counts as loaded.
	WaitFor string
	Settle  time.Duration
	Selects []SelectStep
}

// SelectStep changes a <select> and fires its change handler. An empty Value
// picks the last option. Missing selects are skipped.
type SelectStep struct {
	Selector string
	Value    string
	Wait     time.Duration
}

func (p PageRequest) key() string {
	var b strings.Builder
	b.WriteString(p.URL)
	for _, step := range p.Selects {
		b.WriteString("|")
		b.WriteString(step.Selector)
		b.WriteString("=")
		b.WriteString(step.Value)
	}
	return b.String()
}

// Renderer returns the DOM of a page after its scripts ran.
type Renderer interface {
	Render(ctx context.Context, page PageRequest) (string, error)
}

type ChromeRendererConfig struct {
	Headless    bool
	UserAgent   string
	PageTimeout time.Duration
	Logger      *logging.Logger
}

// ChromeRenderer drives one headless browser and opens a tab per page.
type ChromeRenderer struct {
	cfg    ChromeRendererConfig
	logger *logging.Logger

	mu            sync.Mutex
	browserCtx    context.Context
	cancelAlloc   context.CancelFunc
	cancelBrowser context.CancelFunc
}

func NewChromeRenderer(cfg ChromeRendererConfig) *ChromeRenderer {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 60 * time.Second
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = defaultUserAgent
	}
	return &ChromeRenderer{cfg: cfg, logger: logger}
}

func (r *ChromeRenderer) Render(ctx context.Context, page PageRequest) (string, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return "", err
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, r.cfg.PageTimeout)
	defer cancelTimeout()
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	actions := []chromedp.Action{
		chromedp.Navigate(page.URL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if page.WaitFor != "" {
		actions = append(actions, chromedp.WaitReady(page.WaitFor, chromedp.ByQuery))
	}
	if page.Settle > 0 {
		actions = append(actions, chromedp.Sleep(page.Settle))
	}
	for _, step := range page.Selects {
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			var changed bool
			if err := chromedp.Evaluate(selectScript(step), &changed).Do(ctx); err != nil {
				return crerr.Wrapf(err, "select %s", step.Selector)
			}
			if changed && step.Wait > 0 {
				return chromedp.Sleep(step.Wait).Do(ctx)
			}
			return nil
		}))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", crerr.Wrapf(err, "render %s", page.URL)
	}
	return html, nil
}

// Close shuts the browser down.
func (r *ChromeRenderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelBrowser != nil {
		r.cancelBrowser()
	}
	if r.cancelAlloc != nil {
		r.cancelAlloc()
	}
	r.browserCtx = nil
	r.cancelBrowser = nil
	r.cancelAlloc = nil
}

func (r *ChromeRenderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.browserCtx != nil && r.browserCtx.Err() == nil {
		return r.browserCtx, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", r.cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.UserAgent(r.cfg.UserAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...any) {
		r.logger.Debug("chromedp", "detail", strings.TrimSpace(fmt.Sprintf(format, v...)))
	}))
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, crerr.Wrap(err, "start browser")
	}

	r.browserCtx = browserCtx
	r.cancelBrowser = cancelBrowser
	r.cancelAlloc = cancelAlloc
	return browserCtx, nil
}

func selectScript(step SelectStep) string {
	return `(function(){` +
		`var s=document.querySelector(` + strconv.Quote(step.Selector) + `);` +
		`if(!s||!s.options||s.options.length===0){return false;}` +
		`var v=` + strconv.Quote(step.Value) + `;` +
		`s.value=v!==""?v:s.options[s.options.length-1].value;` +
		`s.dispatchEvent(new Event("change",{bubbles:true}));` +
		`return true;})()`
}
