package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/obsilock/obsilock/internal/model"
	"github.com/obsilock/obsilock/internal/pkg/dbutil"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
)

type VersionRepo struct {
	db *sql.DB
}

func NewVersionRepo(db *sql.DB) *VersionRepo {
	return &VersionRepo{db: db}
}

var versionFields = []string{
	"id", "file_id", "version", "stored_name", "size", "checksum",
	"mime_type", "key_envelope", "wrap_nonce", "chunk_nonce_seed", "ctime",
}

func (r *VersionRepo) Create(ctx context.Context, version *model.FileVersion) error {
	data := map[string]interface{}{
		"id":               version.ID,
		"file_id":          version.FileID,
		"version":          version.Version,
		"stored_name":      version.StoredName,
		"size":             version.Size,
		"checksum":         version.Checksum,
		"mime_type":        version.MimeType,
		"key_envelope":     version.KeyEnvelope,
		"wrap_nonce":       version.WrapNonce,
		"chunk_nonce_seed": version.ChunkNonceSeed,
		"ctime":            version.Ctime,
	}
	sqlStr, args, err := builder.BuildInsert("file_versions", []map[string]interface{}{data})
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

func (r *VersionRepo) GetByVersion(ctx context.Context, fileID string, version int) (*model.FileVersion, error) {
	where := map[string]interface{}{"file_id": fileID, "version": version}
	sqlStr, args, err := builder.BuildSelect("file_versions", where, versionFields)
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
	return scanVersion(rows)
}

func (r *VersionRepo) ListByFile(ctx context.Context, fileID string, limit, offset int) ([]*model.FileVersion, error) {
	where := map[string]interface{}{
		"file_id":  fileID,
		"_orderby": "version desc",
		"_limit":   []uint{uint(offset), uint(limit)},
	}
	sqlStr, args, err := builder.BuildSelect("file_versions", where, versionFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]*model.FileVersion, 0)
	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, version)
	}
	return items, rows.Err()
}

func (r *VersionRepo) CountByFile(ctx context.Context, fileID string) (int64, error) {
	sqlStr, args := dbutil.Finalize("SELECT COUNT(1) FROM file_versions WHERE file_id = ?", []interface{}{fileID})
	var count int64
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *VersionRepo) MaxVersion(ctx context.Context, fileID string) (int, error) {
	sqlStr, args := dbutil.Finalize("SELECT COALESCE(MAX(version), 0) FROM file_versions WHERE file_id = ?", []interface{}{fileID})
	var max int
	if err := r.db.QueryRowContext(ctx, sqlStr, args...).Scan(&max); err != nil {
		return 0, err
	}
	return max, nil
}

func (r *VersionRepo) DeleteByFile(ctx context.Context, fileID string) error {
	where := map[string]interface{}{"file_id": fileID}
	sqlStr, args, err := builder.BuildDelete("file_versions", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func scanVersion(rows *sql.Rows) (*model.FileVersion, error) {
	var version model.FileVersion
	var checksum, mimeType, keyEnvelope, wrapNonce, chunkNonceSeed sql.NullString
	if err := rows.Scan(
		&version.ID, &version.FileID, &version.Version, &version.StoredName,
		&version.Size, &checksum, &mimeType, &keyEnvelope, &wrapNonce, &chunkNonceSeed, &version.Ctime,
	); err != nil {
		return nil, err
	}
	version.Checksum = checksum.String
	version.MimeType = mimeType.String
	version.KeyEnvelope = keyEnvelope.String
	version.WrapNonce = wrapNonce.String
	version.ChunkNonceSeed = chunkNonceSeed.String
	return &version, nil
}
