package httpapi

import (
	"net/http"
	"strings"
)

const logosPrefix = "/logos/"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, push http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /api/open-jc", handler.SiteURL)
	if push != nil {
		mux.Handle("GET /ws", push)
	}
}

func registerMatchRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /api/scrape-matches", handler.ScrapeMatches)
	mux.HandleFunc("GET /api/match-files", handler.ListMatches)
	mux.HandleFunc("GET /api/match-json-files", handler.ListMatchFiles)
	mux.HandleFunc("GET /api/match-detail/{matchID}", handler.GetMatchDetail)
	mux.HandleFunc("POST /api/match-detail/{matchID}", handler.UpdateMatchDetail)
	mux.HandleFunc("GET /api/match-processing/{matchID}", handler.MatchProcessing)
	mux.HandleFunc("POST /api/clear-matches", handler.ClearMatches)
}

func registerPreloadRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /api/preload-match-details", handler.StartPreload)
	mux.HandleFunc("POST /api/preload-match-details/stop", handler.StopPreload)
	mux.HandleFunc("GET /api/preload-match-details/status", handler.PreloadStatus)
}

func registerStaticRoutes(mux *http.ServeMux, static StaticDirs) {
	if dir := strings.TrimSpace(static.LogosDir); dir != "" {
		mux.Handle("GET "+logosPrefix, http.StripPrefix(logosPrefix, http.FileServer(http.Dir(dir))))
	}
	if dir := strings.TrimSpace(static.MatchJSONDir); dir != "" {
		mux.Handle("GET "+jsonFilesPrefix, http.StripPrefix(jsonFilesPrefix, http.FileServer(http.Dir(dir))))
	}
}
