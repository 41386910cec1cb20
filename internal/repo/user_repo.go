package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/obsilock/obsilock/internal/model"
	"github.com/obsilock/obsilock/internal/pkg/dbutil"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var userFields = []string{"id", "email", "password_hash", "quota_total", "quota_used", "ctime", "mtime"}

func (r *UserRepo) Create(ctx context.Context, user *model.User) error {
	data := map[string]interface{}{
		"id":            user.ID,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"quota_total":   user.QuotaTotal,
		"quota_used":    user.QuotaUsed,
		"ctime":         user.Ctime,
		"mtime":         user.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("users", []map[string]interface{}{data})
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

func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, map[string]interface{}{"email": email})
}

func (r *UserRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.User, error) {
	sqlStr, args, err := builder.BuildSelect("users", where, userFields)
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
	var user model.User
	if err := rows.Scan(&user.ID, &user.Email, &user.PasswordHash, &user.QuotaTotal, &user.QuotaUsed, &user.Ctime, &user.Mtime); err != nil {
		return nil, err
	}
	return &user, nil
}

// AdjustQuotaUsed adds delta (possibly negative) to quota_used, clamped at
// zero from below by the caller's bookkeeping.
func (r *UserRepo) AdjustQuotaUsed(ctx context.Context, userID string, delta, mtime int64) error {
	sqlStr, args := dbutil.Finalize(
		"UPDATE users SET quota_used = quota_used + ?, mtime = ? WHERE id = ?",
		[]interface{}{delta, mtime, userID},
	)
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}
