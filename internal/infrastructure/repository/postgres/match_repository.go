package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/matchodds/internal/domain/match"
	qb "github.com/riskibarqy/matchodds/internal/platform/querybuilder"
)

const matchRecordsTable = "match_records"

// MatchRepository stores each record as a JSONB document keyed by match id.
type MatchRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db, now: time.Now}
}

func (r *MatchRepository) Get(ctx context.Context, matchID string) (match.Record, bool, error) {
	query, args, err := qb.Select("*").From(matchRecordsTable).
		Where(qb.Eq("id", matchID)).
		Limit(1).
		ToSQL()
	if err != nil {
		return match.Record{}, false, fmt.Errorf("build get match record query: %w", err)
	}

	var row matchRecordTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Record{}, false, nil
		}
		return match.Record{}, false, fmt.Errorf("get match record: %w", err)
	}

	record, err := decodeMatchRecord(row)
	if err != nil {
		return match.Record{}, false, err
	}
	return record, true, nil
}

func (r *MatchRepository) Save(ctx context.Context, record match.Record) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validate match record: %w", err)
	}

	payload, err := sonic.ConfigDefault.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode match record %s: %w", record.ID, err)
	}

	row := matchRecordTableModel{
		ID:        record.ID,
		FileName:  match.FileName(record),
		MatchTime: record.MatchTime,
		Payload:   string(payload),
		UpdatedAt: r.now().UTC(),
	}
	if record.Details != nil {
		row.Status = string(record.Details.Status)
		row.Progress = record.Details.Progress
	}

	query, args, err := qb.UpsertModel(matchRecordsTable, row, "id")
	if err != nil {
		return fmt.Errorf("build upsert match record query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert match record: %w", err)
	}
	return nil
}

func (r *MatchRepository) List(ctx context.Context) ([]match.Record, error) {
	query, args, err := qb.Select("*").From(matchRecordsTable).
		OrderBy("file_name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match records query: %w", err)
	}

	var rows []matchRecordTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select match records: %w", err)
	}

	out := make([]match.Record, 0, len(rows))
	for _, row := range rows {
		record, err := decodeMatchRecord(row)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

func (r *MatchRepository) ListIDs(ctx context.Context) ([]string, error) {
	query, args, err := qb.Select("id").From(matchRecordsTable).
		OrderBy("file_name", "id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match ids query: %w", err)
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select match ids: %w", err)
	}
	return ids, nil
}

func (r *MatchRepository) DeleteAll(ctx context.Context) (int, error) {
	query, args, err := qb.DeleteFrom(matchRecordsTable).ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build delete match records query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete match records: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted match records: %w", err)
	}
	return int(affected), nil
}

func decodeMatchRecord(row matchRecordTableModel) (match.Record, error) {
	var record match.Record
	if err := sonic.ConfigDefault.UnmarshalFromString(row.Payload, &record); err != nil {
		return match.Record{}, fmt.Errorf("decode match record %s: %w", row.ID, err)
	}
	record.ID = row.ID
	return record, nil
}
