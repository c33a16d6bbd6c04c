package httpapi

import (
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
	"github.com/riskibarqy/matchodds/internal/usecase"
)

const jsonFilesPrefix = "/json/"

type scrapeMatchesRequest struct {
	AutoPreload *bool `json:"autoPreload" validate:"omitempty"`
}

type crawlResultDTO struct {
	MatchCount  int            `json:"matchCount"`
	Created     int            `json:"created"`
	Failed      int            `json:"failed"`
	Fallback    bool           `json:"fallback"`
	AutoPreload bool           `json:"autoPreload"`
	Message     string         `json:"message"`
	Matches     []match.Record `json:"matches"`
}

type matchFileDTO struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	MatchID  string    `json:"matchId"`
}

type outcomeDTO struct {
	MatchID  string `json:"matchId"`
	Success  bool   `json:"success"`
	State    string `json:"state"`
	Stage    string `json:"stage,omitempty"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

type matchUpdateDTO struct {
	Outcome outcomeDTO   `json:"outcome"`
	Match   match.Record `json:"match"`
}

type preloadCommandDTO struct {
	Started       bool   `json:"started"`
	StopRequested bool   `json:"stopRequested"`
	Running       bool   `json:"running"`
	Message       string `json:"message"`
}

type matchProcessingDTO struct {
	MatchID    string `json:"matchId"`
	Processing bool   `json:"processing"`
}

type clearMatchesDTO struct {
	Deleted int    `json:"deleted"`
	Message string `json:"message"`
}

func crawlResultToDTO(result usecase.CrawlResult, autoPreload bool) crawlResultDTO {
	return crawlResultDTO{
		MatchCount:  len(result.Matches),
		Created:     result.Created,
		Failed:      result.Failed,
		Fallback:    result.Fallback,
		AutoPreload: autoPreload && !result.Fallback,
		Message:     result.Message,
		Matches:     nonNilRecords(result.Matches),
	}
}

func matchFileToDTO(file match.FileInfo) matchFileDTO {
	return matchFileDTO{
		Name:     file.Name,
		Path:     jsonFilesPrefix + file.Name,
		Size:     file.Size,
		Modified: file.Modified,
		MatchID:  file.MatchID,
	}
}

func outcomeToDTO(outcome usecase.Outcome) outcomeDTO {
	return outcomeDTO{
		MatchID:  outcome.MatchID,
		Success:  outcome.Success,
		State:    string(outcome.State),
		Stage:    outcome.Stage,
		Status:   string(outcome.Status),
		Progress: outcome.Progress,
	}
}
