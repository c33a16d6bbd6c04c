package httpapi

import (
	"net/http"

	"github.com/riskibarqy/matchodds/internal/platform/logging"
)

// StaticDirs are served as plain files. Empty entries are not mounted.
type StaticDirs struct {
	LogosDir     string
	MatchJSONDir string
}

func NewRouter(
	handler *Handler,
	push http.Handler,
	logger *logging.Logger,
	corsAllowedOrigins []string,
	static StaticDirs,
) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}

	mux := http.NewServeMux()
	registerSystemRoutes(mux, handler, push)
	registerMatchRoutes(mux, handler)
	registerPreloadRoutes(mux, handler)
	registerStaticRoutes(mux, static)

	return RequestTracing(RequestLogging(logger, CORS(corsAllowedOrigins, recoverPanic(logger, mux))))
}

func recoverPanic(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.recoverPanic")
		defer span.End()

		defer func() {
			if rec := recover(); rec != nil {
				logger.ErrorContext(ctx, "panic recovered", "panic", rec, "path", r.URL.Path)
				writeInternalError(ctx, w)
			}
		}()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
