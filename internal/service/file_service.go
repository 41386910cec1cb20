package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/obsilock/obsilock/internal/filestore"
	"github.com/obsilock/obsilock/internal/model"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
	"github.com/obsilock/obsilock/internal/pkg/filecrypt"
	"github.com/obsilock/obsilock/internal/pkg/timeutil"
	"github.com/obsilock/obsilock/internal/repo"
)

type FileService struct {
	files    *repo.FileRepo
	versions *repo.VersionRepo
	folders  *repo.FolderRepo
	users    *repo.UserRepo
	store    filestore.Store
	engine   *filecrypt.Engine
}

func NewFileService(
	files *repo.FileRepo,
	versions *repo.VersionRepo,
	folders *repo.FolderRepo,
	users *repo.UserRepo,
	store filestore.Store,
	engine *filecrypt.Engine,
) *FileService {
	return &FileService{
		files:    files,
		versions: versions,
		folders:  folders,
		users:    users,
		store:    store,
		engine:   engine,
	}
}

type UploadInput struct {
	Filename string
	MimeType string
	Size     int64
	FolderID string
	Content  filestore.ReadSeekCloser
}

func (s *FileService) Upload(ctx context.Context, userID string, in UploadInput) (*model.File, error) {
	if in.Filename == "" || in.Size < 0 {
		return nil, appErr.ErrInvalid
	}
	if in.FolderID != "" {
		if _, err := s.folders.GetByID(ctx, userID, in.FolderID); err != nil {
			return nil, err
		}
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.QuotaUsed+in.Size > user.QuotaTotal {
		return nil, appErr.ErrQuotaExceeded
	}

	storedName := newStoredName()
	checksum, env, err := s.encryptToStore(ctx, storedName, in.Content)
	if err != nil {
		return nil, err
	}

	now := timeutil.NowUnix()
	file := &model.File{
		ID:             newID(),
		UserID:         userID,
		FolderID:       in.FolderID,
		Filename:       in.Filename,
		StoredName:     storedName,
		Size:           in.Size,
		MimeType:       in.MimeType,
		Checksum:       checksum,
		CurrentVersion: 1,
		Ctime:          now,
		Mtime:          now,
	}
	if err := s.files.Create(ctx, file); err != nil {
		_ = s.store.Delete(ctx, storedName)
		return nil, err
	}
	version := versionFromEnvelope(file.ID, 1, storedName, in.Size, checksum, in.MimeType, env, now)
	if err := s.versions.Create(ctx, version); err != nil {
		return nil, err
	}
	if err := s.users.AdjustQuotaUsed(ctx, userID, in.Size, now); err != nil {
		return nil, err
	}
	return file, nil
}

func (s *FileService) UploadVersion(ctx context.Context, userID, fileID string, in UploadInput) (*model.FileVersion, error) {
	file, err := s.files.GetOwned(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.QuotaUsed+in.Size > user.QuotaTotal {
		return nil, appErr.ErrQuotaExceeded
	}

	maxVersion, err := s.versions.MaxVersion(ctx, file.ID)
	if err != nil {
		return nil, err
	}
	next := maxVersion + 1

	storedName := newStoredName()
	checksum, env, err := s.encryptToStore(ctx, storedName, in.Content)
	if err != nil {
		return nil, err
	}

	now := timeutil.NowUnix()
	version := versionFromEnvelope(file.ID, next, storedName, in.Size, checksum, in.MimeType, env, now)
	if err := s.versions.Create(ctx, version); err != nil {
		_ = s.store.Delete(ctx, storedName)
		return nil, err
	}
	if err := s.files.SetCurrentVersion(ctx, file.ID, next, in.Size, checksum, storedName, now); err != nil {
		return nil, err
	}
	if err := s.users.AdjustQuotaUsed(ctx, userID, in.Size, now); err != nil {
		return nil, err
	}
	return version, nil
}

// encryptToStore streams plaintext through the encryption engine into a
// temp file, then moves the sealed bytes into the blob store. The sha256
// checksum is computed over the plaintext as it flows through.
func (s *FileService) encryptToStore(ctx context.Context, storedName string, content io.Reader) (string, *filecrypt.Envelope, error) {
	tmp, err := os.CreateTemp("", "obsilock-seal-*")
	if err != nil {
		return "", nil, err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	hasher := sha256.New()
	env, err := s.engine.EncryptStream(tmp, io.TeeReader(content, hasher))
	if err != nil {
		return "", nil, err
	}
	sealedSize, err := tmp.Seek(0, io.SeekEnd)
	if err != nil {
		return "", nil, err
	}
	if err := s.store.Save(ctx, storedName, tmp, sealedSize); err != nil {
		return "", nil, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), env, nil
}

func (s *FileService) Get(ctx context.Context, userID, fileID string) (*model.File, error) {
	return s.files.GetOwned(ctx, userID, fileID)
}

func (s *FileService) List(ctx context.Context, userID, folderID string) ([]*model.File, error) {
	return s.files.ListByUser(ctx, userID, folderID)
}

func (s *FileService) ListVersions(ctx context.Context, userID, fileID string, limit, offset int) (*model.File, []*model.FileVersion, error) {
	file, err := s.files.GetOwned(ctx, userID, fileID)
	if err != nil {
		return nil, nil, err
	}
	versions, err := s.versions.ListByFile(ctx, file.ID, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return file, versions, nil
}

// Download wraps an open ciphertext stream plus everything needed to
// decrypt it into an HTTP response body.
type Download struct {
	Filename string
	MimeType string
	Size     int64

	content  io.ReadCloser
	envelope *filecrypt.Envelope
	engine   *filecrypt.Engine
}

// WriteTo decrypts the content into w and closes the underlying stream.
// On authentication failure the bytes already written are unusable; the
// caller must discard them.
func (d *Download) WriteTo(w io.Writer) error {
	defer d.content.Close()
	return d.engine.DecryptStream(w, d.content, d.envelope)
}

func (d *Download) Close() error {
	return d.content.Close()
}

func (s *FileService) OpenDownload(ctx context.Context, userID, fileID string, versionNum int) (*Download, error) {
	file, err := s.files.GetOwned(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}
	if versionNum == 0 {
		versionNum = file.CurrentVersion
	}
	version, err := s.versions.GetByVersion(ctx, file.ID, versionNum)
	if err != nil {
		return nil, err
	}
	download, err := s.openVersion(ctx, file, version)
	if err != nil {
		return nil, err
	}
	if versionNum != file.CurrentVersion {
		download.Filename = versionedFilename(file.Filename, versionNum)
	}
	return download, nil
}

func versionedFilename(name string, versionNum int) string {
	ext := path.Ext(name)
	return fmt.Sprintf("%s_v%d%s", strings.TrimSuffix(name, ext), versionNum, ext)
}

func (s *FileService) openVersion(ctx context.Context, file *model.File, version *model.FileVersion) (*Download, error) {
	env, err := decodeEnvelope(version)
	if err != nil {
		return nil, err
	}
	content, err := s.store.Open(ctx, version.StoredName)
	if err != nil {
		return nil, appErr.ErrMissingContent
	}
	return &Download{
		Filename: file.Filename,
		MimeType: file.MimeType,
		Size:     version.Size,
		content:  content,
		envelope: env,
		engine:   s.engine,
	}, nil
}

func (s *FileService) Delete(ctx context.Context, userID, fileID string) error {
	file, err := s.files.GetOwned(ctx, userID, fileID)
	if err != nil {
		return err
	}
	versions, err := s.versions.ListByFile(ctx, file.ID, 1000, 0)
	if err != nil {
		return err
	}
	var reclaimed int64
	for _, version := range versions {
		_ = s.store.Delete(ctx, version.StoredName)
		reclaimed += version.Size
	}
	if err := s.versions.DeleteByFile(ctx, file.ID); err != nil {
		return err
	}
	if _, err := s.files.Delete(ctx, userID, file.ID); err != nil {
		return err
	}
	return s.users.AdjustQuotaUsed(ctx, userID, -reclaimed, timeutil.NowUnix())
}

type QuotaInfo struct {
	Total   int64   `json:"total"`
	Used    int64   `json:"used"`
	Percent float64 `json:"percent"`
}

func (s *FileService) Quota(ctx context.Context, userID string) (*QuotaInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	info := &QuotaInfo{Total: user.QuotaTotal, Used: user.QuotaUsed}
	if user.QuotaTotal > 0 {
		info.Percent = float64(user.QuotaUsed) / float64(user.QuotaTotal) * 100
	}
	return info, nil
}

func versionFromEnvelope(fileID string, versionNum int, storedName string, size int64, checksum, mimeType string, env *filecrypt.Envelope, now int64) *model.FileVersion {
	return &model.FileVersion{
		ID:             newID(),
		FileID:         fileID,
		Version:        versionNum,
		StoredName:     storedName,
		Size:           size,
		Checksum:       checksum,
		MimeType:       mimeType,
		KeyEnvelope:    base64.StdEncoding.EncodeToString(env.WrappedKey),
		WrapNonce:      base64.StdEncoding.EncodeToString(env.WrapNonce),
		ChunkNonceSeed: base64.StdEncoding.EncodeToString(env.ChunkNonceSeed),
		Ctime:          now,
	}
}

func decodeEnvelope(version *model.FileVersion) (*filecrypt.Envelope, error) {
	wrappedKey, err := base64.StdEncoding.DecodeString(version.KeyEnvelope)
	if err != nil {
		return nil, filecrypt.ErrKeyUnwrap
	}
	wrapNonce, err := base64.StdEncoding.DecodeString(version.WrapNonce)
	if err != nil {
		return nil, filecrypt.ErrKeyUnwrap
	}
	seed, err := base64.StdEncoding.DecodeString(version.ChunkNonceSeed)
	if err != nil {
		return nil, filecrypt.ErrKeyUnwrap
	}
	return &filecrypt.Envelope{
		WrappedKey:     wrappedKey,
		WrapNonce:      wrapNonce,
		ChunkNonceSeed: seed,
	}, nil
}
