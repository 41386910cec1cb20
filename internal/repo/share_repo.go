package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/obsilock/obsilock/internal/model"
	"github.com/obsilock/obsilock/internal/pkg/dbutil"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
)

type ShareRepo struct {
	db *sql.DB
}

func NewShareRepo(db *sql.DB) *ShareRepo {
	return &ShareRepo{db: db}
}

var shareFields = []string{
	"id", "user_id", "kind", "target_id", "token", "token_signature",
	"label", "expires_at", "max_uses", "remaining_uses", "revoked", "ctime",
}

func (r *ShareRepo) Create(ctx context.Context, share *model.Share) error {
	data := map[string]interface{}{
		"id":              share.ID,
		"user_id":         share.UserID,
		"kind":            share.Kind,
		"target_id":       share.TargetID,
		"token":           share.Token,
		"token_signature": share.TokenSignature,
		"label":           share.Label,
		"expires_at":      nullableInt64(share.ExpiresAt),
		"max_uses":        nullableInt64(share.MaxUses),
		"remaining_uses":  nullableInt64(share.RemainingUses),
		"revoked":         share.Revoked,
		"ctime":           share.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("shares", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *ShareRepo) GetByID(ctx context.Context, id string) (*model.Share, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *ShareRepo) GetByToken(ctx context.Context, token string) (*model.Share, error) {
	return r.getOne(ctx, map[string]interface{}{"token": token})
}

func (r *ShareRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.Share, error) {
	sqlStr, args, err := builder.BuildSelect("shares", where, shareFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, appErr.ErrNotFound
	}
	return scanShare(rows)
}

func (r *ShareRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*model.Share, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"_orderby": "ctime desc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("shares", where, shareFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.Share, 0)
	for rows.Next() {
		share, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, share)
	}
	return items, rows.Err()
}

func (r *ShareRepo) CountByUser(ctx context.Context, userID string) (int64, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(1) FROM shares WHERE user_id = ?", []interface{}{userID})
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Revoke flips revoked on an owned share. Returns whether a matching,
// not-yet-revoked row existed; calling it again is a no-op, not an error.
func (r *ShareRepo) Revoke(ctx context.Context, shareID, userID string) (bool, error) {
	where := map[string]interface{}{"id": shareID, "user_id": userID, "revoked": false}
	update := map[string]interface{}{"revoked": true}
	sqlStr, args, err := builder.BuildUpdate("shares", where, update)
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ConsumeUse decrements remaining_uses by one, but only while it is still
// positive, in a single conditional update. The affected-row count is the
// synchronization primitive: under concurrent calls against one remaining
// use, exactly one caller sees true. Unlimited shares (max_uses NULL) are
// not touched here; callers skip the consume step for them.
func (r *ShareRepo) ConsumeUse(ctx context.Context, shareID string) (bool, error) {
	sqlStr, args := dbutil.Finalize(
		"UPDATE shares SET remaining_uses = remaining_uses - 1 WHERE id = ? AND max_uses IS NOT NULL AND remaining_uses > 0",
		[]interface{}{shareID},
	)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// DeleteExpiredRevoked removes shares that are both revoked and past
// their expiry. Used by the retention job only.
func (r *ShareRepo) DeleteExpiredRevoked(ctx context.Context, now int64) (int64, error) {
	sqlStr, args := dbutil.Finalize(
		"DELETE FROM shares WHERE revoked = TRUE AND expires_at IS NOT NULL AND expires_at < ?",
		[]interface{}{now},
	)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanShare(rows *sql.Rows) (*model.Share, error) {
	var share model.Share
	var label sql.NullString
	var expiresAt, maxUses, remainingUses sql.NullInt64
	if err := rows.Scan(
		&share.ID, &share.UserID, &share.Kind, &share.TargetID,
		&share.Token, &share.TokenSignature, &label,
		&expiresAt, &maxUses, &remainingUses, &share.Revoked, &share.Ctime,
	); err != nil {
		return nil, err
	}
	share.Label = label.String
	share.ExpiresAt = int64Ptr(expiresAt)
	share.MaxUses = int64Ptr(maxUses)
	share.RemainingUses = int64Ptr(remainingUses)
	return &share, nil
}

func nullableInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	value := v.Int64
	return &value
}
