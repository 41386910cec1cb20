package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/obsilock/obsilock/internal/model"
	"github.com/obsilock/obsilock/internal/pkg/dbutil"
)

type DownloadLogRepo struct {
	db *sql.DB
}

func NewDownloadLogRepo(db *sql.DB) *DownloadLogRepo {
	return &DownloadLogRepo{db: db}
}

func (r *DownloadLogRepo) Create(ctx context.Context, entry *model.DownloadLog) error {
	data := map[string]interface{}{
		"share_id":   entry.ShareID,
		"ip":         entry.IP,
		"user_agent": entry.UserAgent,
		"success":    entry.Success,
		"message":    nullableString(entry.Message),
		"ctime":      entry.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("downloads_log", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

type ShareDownloadStats struct {
	Total          int64 `json:"total_downloads"`
	Successful     int64 `json:"successful_downloads"`
	Failed         int64 `json:"failed_downloads"`
	LastDownloadAt int64 `json:"last_download_at,omitempty"`
}

func (r *DownloadLogRepo) StatsByShare(ctx context.Context, shareID string) (*ShareDownloadStats, error) {
	sqlStr, args := dbutil.Finalize(`
		SELECT COUNT(1),
		       COUNT(1) FILTER (WHERE success),
		       COUNT(1) FILTER (WHERE NOT success),
		       COALESCE(MAX(ctime), 0)
		FROM downloads_log WHERE share_id = ?
	`, []interface{}{shareID})
	var stats ShareDownloadStats
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(
		&stats.Total, &stats.Successful, &stats.Failed, &stats.LastDownloadAt,
	); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (r *DownloadLogRepo) ListByShare(ctx context.Context, shareID string, limit, offset int) ([]*model.DownloadLog, error) {
	where := map[string]interface{}{
		"share_id": shareID,
		"_orderby": "ctime desc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	fields := []string{"id", "share_id", "ip", "user_agent", "success", "message", "ctime"}
	sqlStr, args, err := builder.BuildSelect("downloads_log", where, fields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.DownloadLog, 0)
	for rows.Next() {
		var entry model.DownloadLog
		var userAgent, message sql.NullString
		if err := rows.Scan(&entry.ID, &entry.ShareID, &entry.IP, &userAgent, &entry.Success, &message, &entry.Ctime); err != nil {
			return nil, err
		}
		entry.UserAgent = userAgent.String
		entry.Message = message.String
		items = append(items, &entry)
	}
	return items, rows.Err()
}
