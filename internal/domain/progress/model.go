package progress

import (
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
)

// Topics published to push subscribers.
const (
	TopicWelcome       = "welcome"
	TopicMatchProgress = "match-progress"
	TopicMatchesBatch  = "matches-batch-update"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Event reports one pipeline transition of a match.
type Event struct {
	MatchID   string       `json:"matchId"`
	Progress  int          `json:"progress"`
	Status    match.Status `json:"status"`
	Message   string       `json:"message"`
	Timestamp string       `json:"timestamp"`
}

// MatchesBatch carries the records created so far by a list crawl.
type MatchesBatch struct {
	Matches      []match.Record `json:"matches"`
	BatchIndex   int            `json:"batchIndex"`
	TotalBatches int            `json:"totalBatches"`
	Timestamp    string         `json:"timestamp"`
	Complete     bool           `json:"complete"`
}

type Welcome struct {
	Message string `json:"message"`
}

// Timestamp formats t as an ISO-8601 UTC string with milliseconds.
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// Envelope is the frame written to push subscribers.
type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}
