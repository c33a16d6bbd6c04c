package match

import (
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle of a record's details sub-document.
type Status string

const (
	StatusInProgress       Status = "inProgress"
	StatusPartialCompleted Status = "partialCompleted"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusInProgress, StatusPartialCompleted, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// PlayState is the kick-off state read from the match header.
type PlayState string

const (
	PlayStateUpcoming PlayState = "upcoming"
	PlayStatePlaying  PlayState = "playing"
)

// Record is the persisted document of one match.
type Record struct {
	ID          string    `json:"id"`
	HomeTeam    Team      `json:"homeTeam"`
	AwayTeam    Team      `json:"awayTeam"`
	League      string    `json:"league"`
	MatchTime   string    `json:"matchTime"`
	Venue       string    `json:"venue"`
	Weather     string    `json:"weather"`
	Temperature string    `json:"temperature"`
	PlayState   PlayState `json:"status,omitempty"`
	HomeScore   *int      `json:"homeScore"`
	AwayScore   *int      `json:"awayScore"`
	MatchStatus string    `json:"matchStatus,omitempty"`
	Rankings    Rankings  `json:"rankings"`
	Details     *Details  `json:"details,omitempty"`
}

type Team struct {
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type Rankings struct {
	HomeTeam TeamRanking `json:"homeTeam"`
	AwayTeam TeamRanking `json:"awayTeam"`
}

type TeamRanking struct {
	Rank   *string `json:"rank"`
	Points *string `json:"points"`
}

// Details is rewritten in place by every pipeline run.
type Details struct {
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	LastUpdated time.Time `json:"lastUpdated"`
	Odds        Odds      `json:"odds"`
	History     History   `json:"history"`
	Error       string    `json:"error,omitempty"`
}

type Odds struct {
	EuropeInitial []EuropeOddsQuote   `json:"europeInitial"`
	EuropeLive    []EuropeOddsQuote   `json:"europeLive"`
	AsiaHandicap  []AsiaHandicapQuote `json:"asiaHandicap"`
}

type History struct {
	HomeHistory []HistoryEntry `json:"homeHistory"`
	AwayHistory []HistoryEntry `json:"awayHistory"`
	HeadToHead  []HistoryEntry `json:"headToHead"`
}

// EuropeOddsQuote is one bookmaker row of the 1X2 odds table.
type EuropeOddsQuote struct {
	Company        string   `json:"company"`
	HomeOdds       *float64 `json:"homeOdds"`
	DrawOdds       *float64 `json:"drawOdds"`
	AwayOdds       *float64 `json:"awayOdds"`
	ReturnRate     *float64 `json:"returnRate"`
	HomeWinRate    *float64 `json:"homeWinRate"`
	DrawRate       *float64 `json:"drawRate"`
	AwayWinRate    *float64 `json:"awayWinRate"`
	HomeKellyIndex *float64 `json:"homeKellyIndex"`
	DrawKellyIndex *float64 `json:"drawKellyIndex"`
	AwayKellyIndex *float64 `json:"awayKellyIndex"`
	UpdateTime     string   `json:"updateTime,omitempty"`
}

// AsiaHandicapQuote is one bookmaker row of the handicap table. The
// max/min summary rows carry IsMaxValue/IsMinValue.
type AsiaHandicapQuote struct {
	Company         string   `json:"company"`
	InitialHomeOdds *float64 `json:"initialHomeOdds"`
	InitialHandicap string   `json:"initialHandicap"`
	InitialAwayOdds *float64 `json:"initialAwayOdds"`
	LiveHomeOdds    *float64 `json:"liveHomeOdds"`
	LiveHandicap    string   `json:"liveHandicap"`
	LiveAwayOdds    *float64 `json:"liveAwayOdds"`
	IsMaxValue      bool     `json:"isMaxValue,omitempty"`
	IsMinValue      bool     `json:"isMinValue,omitempty"`
}

type HistoryEntry struct {
	League         string `json:"league"`
	Date           string `json:"date"`
	HomeTeam       string `json:"homeTeam"`
	Score          string `json:"score"`
	HalfTimeScore  string `json:"halfTimeScore"`
	Corner         string `json:"corner"`
	AwayTeam       string `json:"awayTeam"`
	Result         string `json:"result"`
	Handicap       string `json:"handicap"`
	HandicapResult string `json:"handicapResult"`
	GoalResult     string `json:"goalResult"`
}

// NewDetails returns the entry state of a pipeline run.
func NewDetails(now time.Time) *Details {
	return &Details{
		Status:      StatusInProgress,
		Progress:    0,
		LastUpdated: now,
		Odds: Odds{
			EuropeInitial: []EuropeOddsQuote{},
			EuropeLive:    []EuropeOddsQuote{},
			AsiaHandicap:  []AsiaHandicapQuote{},
		},
		History: History{
			HomeHistory: []HistoryEntry{},
			AwayHistory: []HistoryEntry{},
			HeadToHead:  []HistoryEntry{},
		},
	}
}

func (r Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("match id is required")
	}
	if r.Details != nil {
		if !r.Details.Status.Valid() {
			return fmt.Errorf("invalid details status %q", r.Details.Status)
		}
		if r.Details.Progress < 0 || r.Details.Progress > 100 {
			return fmt.Errorf("details progress must be within 0..100, got %d", r.Details.Progress)
		}
	}
	return nil
}

// IsDetailComplete reports whether the last pipeline run finished all stages.
func (r Record) IsDetailComplete() bool {
	return r.Details != nil && r.Details.Status == StatusCompleted && r.Details.Progress == 100
}

// Clone returns a copy that shares no details state with r.
func (r Record) Clone() Record {
	out := r
	if r.Details != nil {
		d := *r.Details
		d.Odds.EuropeInitial = cloneSlice(r.Details.Odds.EuropeInitial)
		d.Odds.EuropeLive = cloneSlice(r.Details.Odds.EuropeLive)
		d.Odds.AsiaHandicap = cloneSlice(r.Details.Odds.AsiaHandicap)
		d.History.HomeHistory = cloneSlice(r.Details.History.HomeHistory)
		d.History.AwayHistory = cloneSlice(r.Details.History.AwayHistory)
		d.History.HeadToHead = cloneSlice(r.Details.History.HeadToHead)
		out.Details = &d
	}
	return out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
