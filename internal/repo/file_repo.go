package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/obsilock/obsilock/internal/model"
	"github.com/obsilock/obsilock/internal/pkg/dbutil"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
)

type FileRepo struct {
	db *sql.DB
}

func NewFileRepo(db *sql.DB) *FileRepo {
	return &FileRepo{db: db}
}

var fileFields = []string{
	"id", "user_id", "folder_id", "filename", "stored_name", "size",
	"mime_type", "checksum", "current_version", "ctime", "mtime",
}

func (r *FileRepo) Create(ctx context.Context, file *model.File) error {
	data := map[string]interface{}{
		"id":              file.ID,
		"user_id":         file.UserID,
		"folder_id":       nullableString(file.FolderID),
		"filename":        file.Filename,
		"stored_name":     file.StoredName,
		"size":            file.Size,
		"mime_type":       file.MimeType,
		"checksum":        file.Checksum,
		"current_version": file.CurrentVersion,
		"ctime":           file.Ctime,
		"mtime":           file.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert("files", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// GetByID looks a file up without an ownership filter; callers on the
// public share path pass the owner check already done at share creation.
func (r *FileRepo) GetByID(ctx context.Context, id string) (*model.File, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id})
}

func (r *FileRepo) GetOwned(ctx context.Context, userID, id string) (*model.File, error) {
	return r.getOne(ctx, map[string]interface{}{"id": id, "user_id": userID})
}

func (r *FileRepo) getOne(ctx context.Context, where map[string]interface{}) (*model.File, error) {
	sqlStr, args, err := builder.BuildSelect("files", where, fileFields)
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
	return scanFile(rows)
}

func (r *FileRepo) ListByUser(ctx context.Context, userID, folderID string) ([]*model.File, error) {
	where := map[string]interface{}{"user_id": userID, "_orderby": "filename asc"}
	if folderID != "" {
		where["folder_id"] = folderID
	}
	sqlStr, args, err := builder.BuildSelect("files", where, fileFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.File, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, file)
	}
	return items, rows.Err()
}

func (r *FileRepo) SetCurrentVersion(ctx context.Context, id string, version int, size int64, checksum, storedName string, mtime int64) error {
	where := map[string]interface{}{"id": id}
	update := map[string]interface{}{
		"current_version": version,
		"size":            size,
		"checksum":        checksum,
		"stored_name":     storedName,
		"mtime":           mtime,
	}
	sqlStr, args, err := builder.BuildUpdate("files", where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *FileRepo) Delete(ctx context.Context, userID, id string) (bool, error) {
	where := map[string]interface{}{"id": id, "user_id": userID}
	sqlStr, args, err := builder.BuildDelete("files", where)
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

func scanFile(rows *sql.Rows) (*model.File, error) {
	var file model.File
	var folderID, mimeType, checksum sql.NullString
	if err := rows.Scan(
		&file.ID, &file.UserID, &folderID, &file.Filename, &file.StoredName,
		&file.Size, &mimeType, &checksum, &file.CurrentVersion, &file.Ctime, &file.Mtime,
	); err != nil {
		return nil, err
	}
	file.FolderID = folderID.String
	file.MimeType = mimeType.String
	file.Checksum = checksum.String
	return &file, nil
}
