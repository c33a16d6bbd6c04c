package titan

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/riskibarqy/matchodds/internal/platform/resilience"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

const (
	defaultListURL       = "https://jc.titan007.com/"
	defaultEuropeOddsURL = "https://op1.titan007.com/oddslist/%s.htm"
	defaultAsiaOddsURL   = "https://vip.titan007.com/AsianOdds_n.aspx?id=%s&l=0"
	defaultAnalysisURL   = "https://zq.titan007.com/analysis/%scn.htm"
	defaultRankingsURL   = "https://info.titan007.com/analysis/%scn.htm"

	europeShowInitial = "2"
	europeShowLive    = "3"
)

type ClientConfig struct {
	Renderer Renderer
	Logger   *logging.Logger

	ListURL       string
	EuropeOddsURL string
	AsiaOddsURL   string
	AnalysisURL   string
	RankingsURL   string

	OddsSelectWait    time.Duration
	HistorySettle     time.Duration
	HistorySelectWait time.Duration

	CompanyNames   *CompanyNames
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client renders titan007 pages and parses them into match data. It serves
// both the detail stages and the listing crawl.
type Client struct {
	renderer Renderer
	logger   *logging.Logger
	names    CompanyNames

	listURL       string
	europeOddsURL string
	asiaOddsURL   string
	analysisURL   string
	rankingsURL   string

	oddsSelectWait    time.Duration
	historySettle     time.Duration
	historySelectWait time.Duration

	breaker *resilience.CircuitBreaker
	flight  resilience.Flight[string]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	names := DefaultCompanyNames()
	if cfg.CompanyNames != nil {
		names = *cfg.CompanyNames
	}

	return &Client{
		renderer:          cfg.Renderer,
		logger:            logger,
		names:             names,
		listURL:           firstNonEmpty(cfg.ListURL, defaultListURL),
		europeOddsURL:     firstNonEmpty(cfg.EuropeOddsURL, defaultEuropeOddsURL),
		asiaOddsURL:       firstNonEmpty(cfg.AsiaOddsURL, defaultAsiaOddsURL),
		analysisURL:       firstNonEmpty(cfg.AnalysisURL, defaultAnalysisURL),
		rankingsURL:       firstNonEmpty(cfg.RankingsURL, defaultRankingsURL),
		oddsSelectWait:    cfg.OddsSelectWait,
		historySettle:     cfg.HistorySettle,
		historySelectWait: cfg.HistorySelectWait,
		breaker:           resilience.NewCircuitBreaker("titan-pages", cfg.CircuitBreaker, logBreakerChange(logger)),
	}
}

func (c *Client) EuropeInitialOdds(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
	return c.europeOdds(ctx, matchID, europeShowInitial)
}

func (c *Client) EuropeLiveOdds(ctx context.Context, matchID string) ([]match.EuropeOddsQuote, error) {
	return c.europeOdds(ctx, matchID, europeShowLive)
}

func (c *Client) europeOdds(ctx context.Context, matchID, showType string) ([]match.EuropeOddsQuote, error) {
	html, err := c.render(ctx, PageRequest{
		URL:     c.pageURL(c.europeOddsURL, matchID),
		WaitFor: "#oddsList_tab",
		Selects: []SelectStep{{Selector: "#sel_showType", Value: showType, Wait: c.oddsSelectWait}},
	})
	if err != nil {
		return nil, fmt.Errorf("europe odds match_id=%s: %w", matchID, err)
	}

	quotes, err := parseEuropeOdds(html, c.names)
	if err != nil {
		return nil, fmt.Errorf("europe odds match_id=%s: %w", matchID, err)
	}
	return quotes, nil
}

func (c *Client) AsiaHandicapOdds(ctx context.Context, matchID string) ([]match.AsiaHandicapQuote, error) {
	html, err := c.render(ctx, PageRequest{
		URL:     c.pageURL(c.asiaOddsURL, matchID),
		WaitFor: "#odds",
	})
	if err != nil {
		return nil, fmt.Errorf("asia handicap match_id=%s: %w", matchID, err)
	}

	quotes, err := parseAsiaOdds(html, c.names)
	if err != nil {
		return nil, fmt.Errorf("asia handicap match_id=%s: %w", matchID, err)
	}
	return quotes, nil
}

// History expands each record table to its longest range before parsing.
func (c *Client) History(ctx context.Context, matchID string) (match.History, error) {
	selects := make([]SelectStep, 0, 3)
	for _, table := range []historyTable{homeHistoryTable, awayHistoryTable, headToHeadTable} {
		selects = append(selects, SelectStep{Selector: table.selector, Wait: c.historySelectWait})
	}

	html, err := c.render(ctx, PageRequest{
		URL:     c.pageURL(c.analysisURL, matchID),
		Settle:  c.historySettle,
		Selects: selects,
	})
	if err != nil {
		return match.History{}, fmt.Errorf("history match_id=%s: %w", matchID, err)
	}

	history, err := parseHistory(html)
	if err != nil {
		return match.History{}, fmt.Errorf("history match_id=%s: %w", matchID, err)
	}
	return history, nil
}

func (c *Client) DiscoverMatchIDs(ctx context.Context) ([]string, error) {
	html, err := c.render(ctx, PageRequest{URL: c.listURL, WaitFor: "#table_live"})
	if err != nil {
		return nil, fmt.Errorf("match list: %w", err)
	}
	return parseMatchIDs(html)
}

// FetchBasicInfo reads the match header. Rankings are best effort and stay
// empty when the standings page cannot be loaded.
func (c *Client) FetchBasicInfo(ctx context.Context, matchID string) (match.Record, error) {
	pageURL := c.pageURL(c.europeOddsURL, matchID)
	html, err := c.render(ctx, PageRequest{URL: pageURL})
	if err != nil {
		return match.Record{}, fmt.Errorf("basic info match_id=%s: %w", matchID, err)
	}

	record, err := parseBasicInfo(matchID, pageURL, html)
	if err != nil {
		return match.Record{}, fmt.Errorf("basic info match_id=%s: %w", matchID, err)
	}

	if record.HomeTeam.Name == "" || record.AwayTeam.Name == "" {
		return record, nil
	}
	rankingsHTML, err := c.render(ctx, PageRequest{
		URL:     c.pageURL(c.rankingsURL, matchID),
		WaitFor: ".standings-box",
	})
	if err != nil {
		if ctx.Err() != nil {
			return match.Record{}, ctx.Err()
		}
		c.logger.WarnContext(ctx, "fetch team rankings failed", "match_id", matchID, "error", err)
		return record, nil
	}
	rankings, err := parseRankings(rankingsHTML, record.HomeTeam.Name, record.AwayTeam.Name)
	if err != nil {
		c.logger.WarnContext(ctx, "parse team rankings failed", "match_id", matchID, "error", err)
		return record, nil
	}
	record.Rankings = rankings
	return record, nil
}

func (c *Client) render(ctx context.Context, page PageRequest) (string, error) {
	if c.renderer == nil {
		return "", fmt.Errorf("%w: page renderer is not configured", usecase.ErrDependencyUnavailable)
	}
	html, shared, err := c.flight.Do(page.key(), func() (string, error) {
		var html string
		err := c.breaker.Execute(func() error {
			var renderErr error
			html, renderErr = c.renderer.Render(ctx, page)
			return renderErr
		}, isRenderFailure)
		return html, err
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "titan circuit breaker rejected request", "state", c.breaker.State(), "url", page.URL)
		return "", fmt.Errorf("%w: titan pages are temporarily unavailable", usecase.ErrDependencyUnavailable)
	}
	if err != nil {
		return "", err
	}
	if shared {
		c.logger.DebugContext(ctx, "reused in-flight page render", "url", page.URL)
	}
	return html, nil
}

func (c *Client) pageURL(template, matchID string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, url.PathEscape(strings.TrimSpace(matchID)))
}

// isRenderFailure keeps caller cancellations from tripping the breaker.
func isRenderFailure(err error) bool {
	return !errors.Is(err, context.Canceled)
}

func logBreakerChange(logger *logging.Logger) resilience.StateChangeFunc {
	return func(name string, from, to resilience.CircuitState) {
		if to == resilience.CircuitStateOpen {
			logger.Warn("circuit breaker opened", "breaker", name, "from", from)
			return
		}
		logger.Info("circuit breaker state changed", "breaker", name, "from", from, "to", to)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
