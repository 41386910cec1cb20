package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/obsilock/obsilock/internal/model"
	"github.com/obsilock/obsilock/internal/pkg/dbutil"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
)

type FolderRepo struct {
	db *sql.DB
}

func NewFolderRepo(db *sql.DB) *FolderRepo {
	return &FolderRepo{db: db}
}

var folderFields = []string{"id", "user_id", "parent_id", "name", "ctime", "mtime"}

func (r *FolderRepo) Create(ctx context.Context, folder *model.Folder) error {
	data := map[string]interface{}{
		"id":        folder.ID,
		"user_id":   folder.UserID,
		"parent_id": nullableString(folder.ParentID),
		"name":      folder.Name,
		"ctime":     folder.Ctime,
		"mtime":     folder.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("folders", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FolderRepo) GetByID(ctx context.Context, userID, id string) (*model.Folder, error) {
	where := map[string]interface{}{"id": id, "user_id": userID}
	sqlStr, args, err := builder.BuildSelect("folders", where, folderFields)
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
	return scanFolder(rows)
}

func (r *FolderRepo) ListByUser(ctx context.Context, userID string) ([]*model.Folder, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "name asc"}
	sqlStr, args, err := builder.BuildSelect("folders", where, folderFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.Folder, 0)
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, folder)
	}
	return items, rows.Err()
}

func (r *FolderRepo) Rename(ctx context.Context, userID, id, name string, mtime int64) (bool, error) {
	where := map[string]interface{}{"id": id, "user_id": userID}
	update := map[string]interface{}{"name": name, "mtime": mtime}
	sqlStr, args, err := builder.BuildUpdate("folders", where, update)
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

func (r *FolderRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	where := map[string]interface{}{"id": id, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("folders", where)
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

func scanFolder(rows *sql.Rows) (*model.Folder, error) {
	var folder model.Folder
	var parentID sql.NullString
	if err := rows.Scan(&folder.ID, &folder.UserID, &parentID, &folder.Name, &folder.Ctime, &folder.Mtime); err != nil {
		return nil, err
	}
	folder.ParentID = parentID.String
	return &folder, nil
}

func nullableString(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
