package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/platform/logging"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

type Handler struct {
	queries   *usecase.MatchQueryService
	updates   *usecase.MatchUpdateService
	crawler   *usecase.MatchListService
	preload   *usecase.PreloadScheduler
	siteURL   string
	logger    *logging.Logger
	validator *validator.Validate
}

func NewHandler(
	queries *usecase.MatchQueryService,
	updates *usecase.MatchUpdateService,
	crawler *usecase.MatchListService,
	preload *usecase.PreloadScheduler,
	siteURL string,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		queries:   queries,
		updates:   updates,
		crawler:   crawler,
		preload:   preload,
		siteURL:   strings.TrimSpace(siteURL),
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ScrapeMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ScrapeMatches")
	defer span.End()

	var req scrapeMatchesRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	autoPreload := h.crawler.AutoPreloadEnabled()
	if req.AutoPreload != nil {
		autoPreload = *req.AutoPreload
	}

	result, err := h.crawler.CrawlMatchList(ctx, autoPreload)
	if err != nil {
		h.logger.WarnContext(ctx, "scrape matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}
	if result.Fallback {
		h.logger.WarnContext(ctx, "scrape matches fell back to stored records", "count", len(result.Matches))
	}

	writeSuccess(ctx, w, http.StatusOK, crawlResultToDTO(result, autoPreload))
}

func (h *Handler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatches")
	defer span.End()

	records, err := h.queries.List(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "list matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, nonNilRecords(records))
}

func (h *Handler) ListMatchFiles(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListMatchFiles")
	defer span.End()

	files, err := h.queries.ListFiles(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "list match files failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	items := make([]matchFileDTO, 0, len(files))
	for _, file := range files {
		items = append(items, matchFileToDTO(file))
	}
	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) GetMatchDetail(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatchDetail")
	defer span.End()

	matchID := r.PathValue("matchID")
	record, err := h.queries.Get(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "get match detail failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, record)
}

func (h *Handler) UpdateMatchDetail(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.UpdateMatchDetail")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	outcome, err := h.updates.UpdateMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, usecase.ErrAlreadyProcessing) {
			h.logger.InfoContext(ctx, "match detail update rejected", "match_id", matchID)
		} else {
			h.logger.WarnContext(ctx, "match detail update failed", "match_id", matchID, "error", err)
		}
		writeError(ctx, w, err)
		return
	}
	if !outcome.Success {
		writeError(ctx, w, fmt.Errorf("%w: update match %s failed at stage %s: %v", usecase.ErrDependencyUnavailable, matchID, outcome.Stage, outcome.Err))
		return
	}

	record, err := h.queries.Get(ctx, matchID)
	if err != nil {
		h.logger.WarnContext(ctx, "reload updated match failed", "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchUpdateDTO{
		Outcome: outcomeToDTO(outcome),
		Match:   record,
	})
}

func (h *Handler) StartPreload(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StartPreload")
	defer span.End()

	started := h.preload.Start(ctx)
	message := "preload started"
	if !started {
		message = "preload is already running"
	}

	writeSuccess(ctx, w, http.StatusAccepted, preloadCommandDTO{
		Started: started,
		Running: h.preload.IsRunning(),
		Message: message,
	})
}

func (h *Handler) StopPreload(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.StopPreload")
	defer span.End()

	requested := h.preload.RequestStop()
	message := "stop requested, the current match will finish first"
	if !requested {
		message = "no preload is running"
	}
	h.logger.InfoContext(ctx, "preload stop", "requested", requested)

	writeSuccess(ctx, w, http.StatusOK, preloadCommandDTO{
		StopRequested: requested,
		Running:       h.preload.IsRunning(),
		Message:       message,
	})
}

func (h *Handler) PreloadStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.PreloadStatus")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, h.preload.Status())
}

func (h *Handler) MatchProcessing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.MatchProcessing")
	defer span.End()

	matchID := strings.TrimSpace(r.PathValue("matchID"))
	if matchID == "" {
		writeError(ctx, w, fmt.Errorf("%w: match id is required", usecase.ErrInvalidInput))
		return
	}

	writeSuccess(ctx, w, http.StatusOK, matchProcessingDTO{
		MatchID:    matchID,
		Processing: h.updates.IsProcessing(matchID),
	})
}

func (h *Handler) ClearMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ClearMatches")
	defer span.End()

	deleted, err := h.queries.Clear(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "clear matches failed", "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, clearMatchesDTO{
		Deleted: deleted,
		Message: fmt.Sprintf("deleted %d matches", deleted),
	})
}

func (h *Handler) SiteURL(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SiteURL")
	defer span.End()

	if h.siteURL == "" {
		writeError(ctx, w, fmt.Errorf("%w: site url is not configured", usecase.ErrNotFound))
		return
	}
	writeSuccess(ctx, w, http.StatusOK, map[string]string{"url": h.siteURL})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

// decodeJSONBody treats an empty body as a zero request.
func decodeJSONBody(r *http.Request, out any) error {
	if r.Body == nil {
		return nil
	}
	decoder := jsoniter.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err)
	}
	return nil
}

func nonNilRecords(records []match.Record) []match.Record {
	if records == nil {
		return []match.Record{}
	}
	return records
}
