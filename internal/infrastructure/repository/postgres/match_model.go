package postgres

import "time"

type matchRecordTableModel struct {
	ID        string    `db:"id"`
	FileName  string    `db:"file_name"`
	MatchTime string    `db:"match_time"`
	Status    string    `db:"detail_status"`
	Progress  int       `db:"detail_progress"`
	Payload   string    `db:"payload"`
	UpdatedAt time.Time `db:"updated_at"`
}
