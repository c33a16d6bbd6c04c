package match

import (
	"context"
	"time"
)

// Repository describes match record persistence needs from use cases.
type Repository interface {
	Get(ctx context.Context, matchID string) (Record, bool, error)
	Save(ctx context.Context, record Record) error
	List(ctx context.Context) ([]Record, error)
	ListIDs(ctx context.Context) ([]string, error)
	DeleteAll(ctx context.Context) (int, error)
}

// FileInfo describes one stored document for listings.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
	MatchID  string    `json:"matchId"`
}

// FileLister is implemented by stores that keep one document per file.
type FileLister interface {
	ListFiles(ctx context.Context) ([]FileInfo, error)
}
