package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/obsilock/obsilock/internal/model"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
	"github.com/obsilock/obsilock/internal/pkg/timeutil"
	"github.com/obsilock/obsilock/internal/repo"
)

// Reasons recorded in the audit log and surfaced to public callers when
// a share link no longer grants access.
const (
	ReasonRevoked    = "revoked"
	ReasonExpired    = "expired"
	ReasonNoUsesLeft = "no_uses_left"
)

type ShareService struct {
	shares   *repo.ShareRepo
	files    *repo.FileRepo
	folders  *repo.FolderRepo
	versions *repo.VersionRepo
	logs     *repo.DownloadLogRepo
	fileSvc  *FileService
	secret   []byte
}

func NewShareService(
	shares *repo.ShareRepo,
	files *repo.FileRepo,
	folders *repo.FolderRepo,
	versions *repo.VersionRepo,
	logs *repo.DownloadLogRepo,
	fileSvc *FileService,
	secret []byte,
) *ShareService {
	return &ShareService{
		shares:   shares,
		files:    files,
		folders:  folders,
		versions: versions,
		logs:     logs,
		fileSvc:  fileSvc,
		secret:   secret,
	}
}

type CreateShareInput struct {
	Kind      string
	TargetID  string
	Label     string
	ExpiresAt *int64
	MaxUses   *int64
}

func (s *ShareService) Create(ctx context.Context, userID string, in CreateShareInput) (*model.Share, error) {
	if in.Kind != model.ShareKindFile && in.Kind != model.ShareKindFolder {
		return nil, appErr.ErrInvalid
	}
	if in.ExpiresAt != nil && *in.ExpiresAt <= timeutil.NowUnix() {
		return nil, appErr.ErrInvalid
	}
	if in.MaxUses != nil && *in.MaxUses < 1 {
		return nil, appErr.ErrInvalid
	}
	switch in.Kind {
	case model.ShareKindFile:
		if _, err := s.files.GetOwned(ctx, userID, in.TargetID); err != nil {
			return nil, err
		}
	case model.ShareKindFolder:
		if _, err := s.folders.GetByID(ctx, userID, in.TargetID); err != nil {
			return nil, err
		}
	}

	now := timeutil.NowUnix()
	share := &model.Share{
		ID:        newID(),
		UserID:    userID,
		Kind:      in.Kind,
		TargetID:  in.TargetID,
		Token:     newShareToken(),
		Label:     in.Label,
		ExpiresAt: in.ExpiresAt,
		MaxUses:   in.MaxUses,
		Ctime:     now,
	}
	if in.MaxUses != nil {
		remaining := *in.MaxUses
		share.RemainingUses = &remaining
	}
	share.TokenSignature = s.signShare(share)
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}
	return share, nil
}

// signShare binds the share row's identity fields together under the
// share secret. A row whose signature no longer verifies has been
// tampered with out of band and is treated as if it did not exist.
func (s *ShareService) signShare(share *model.Share) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s|%s|%s|%s|%d", share.Token, share.UserID, share.Kind, share.TargetID, share.Ctime)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *ShareService) verifyShare(share *model.Share) bool {
	expected := s.signShare(share)
	return hmac.Equal([]byte(expected), []byte(share.TokenSignature))
}

// validateShare checks the lifecycle gates in fixed order. Revocation
// dominates expiry, expiry dominates exhaustion, so a share that is both
// revoked and expired reports "revoked".
func validateShare(share *model.Share, now int64) string {
	if share.Revoked {
		return ReasonRevoked
	}
	if share.ExpiresAt != nil && *share.ExpiresAt <= now {
		return ReasonExpired
	}
	if share.MaxUses != nil && (share.RemainingUses == nil || *share.RemainingUses <= 0) {
		return ReasonNoUsesLeft
	}
	return ""
}

type ShareWithStats struct {
	*model.Share
	Stats *repo.ShareDownloadStats `json:"stats"`
}

func (s *ShareService) List(ctx context.Context, userID string, limit, offset int) ([]*ShareWithStats, int64, error) {
	shares, err := s.shares.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.shares.CountByUser(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	items := make([]*ShareWithStats, 0, len(shares))
	for _, share := range shares {
		stats, err := s.logs.StatsByShare(ctx, share.ID)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, &ShareWithStats{Share: share, Stats: stats})
	}
	return items, total, nil
}

// Revoke is idempotent: revoking an already-revoked share succeeds
// without effect. Only a share the caller does not own, or that does
// not exist, is an error.
func (s *ShareService) Revoke(ctx context.Context, userID, shareID string) error {
	flipped, err := s.shares.Revoke(ctx, shareID, userID)
	if err != nil {
		return err
	}
	if flipped {
		return nil
	}
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return err
	}
	if share.UserID != userID {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *ShareService) Logs(ctx context.Context, userID, shareID string, limit, offset int) ([]*model.DownloadLog, error) {
	share, err := s.shares.GetByID(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.UserID != userID {
		return nil, appErr.ErrNotFound
	}
	return s.logs.ListByShare(ctx, shareID, limit, offset)
}

// ClientInfo is what we record about an anonymous downloader.
type ClientInfo struct {
	IP        string
	UserAgent string
}

func (s *ShareService) audit(ctx context.Context, shareID string, client ClientInfo, success bool, message string) {
	_ = s.logs.Create(ctx, &model.DownloadLog{
		ShareID:   shareID,
		IP:        client.IP,
		UserAgent: client.UserAgent,
		Success:   success,
		Message:   message,
		Ctime:     timeutil.NowUnix(),
	})
}

// PublicMetadata resolves a share token to the shared item's metadata
// without consuming a use. Unknown tokens, tampered rows, and dead
// shares are indistinguishable only at the not-found level; a known but
// dead share reports its reason so the public page can explain itself.
func (s *ShareService) PublicMetadata(ctx context.Context, tokenStr string) (*PublicShare, error) {
	share, err := s.shares.GetByToken(ctx, tokenStr)
	if err != nil {
		return nil, err
	}
	if !s.verifyShare(share) {
		return nil, appErr.ErrNotFound
	}
	if reason := validateShare(share, timeutil.NowUnix()); reason != "" {
		return nil, reasonError(reason)
	}
	public := &PublicShare{
		Kind:          share.Kind,
		Label:         share.Label,
		ExpiresAt:     share.ExpiresAt,
		RemainingUses: share.RemainingUses,
		CreatedAt:     share.Ctime,
	}
	switch share.Kind {
	case model.ShareKindFile:
		file, err := s.files.GetByID(ctx, share.TargetID)
		if err != nil {
			return nil, err
		}
		public.Filename = file.Filename
		public.Size = file.Size
		public.MimeType = file.MimeType
	case model.ShareKindFolder:
		folder, err := s.folders.GetByID(ctx, share.UserID, share.TargetID)
		if err != nil {
			return nil, err
		}
		public.FolderName = folder.Name
	}
	return public, nil
}

type PublicShare struct {
	Kind          string `json:"kind"`
	Label         string `json:"label,omitempty"`
	Filename      string `json:"filename,omitempty"`
	Size          int64  `json:"size,omitempty"`
	MimeType      string `json:"mime_type,omitempty"`
	FolderName    string `json:"folder_name,omitempty"`
	ExpiresAt     *int64 `json:"expires_at,omitempty"`
	RemainingUses *int64 `json:"remaining_uses,omitempty"`
	CreatedAt     int64  `json:"created_at"`
}

func reasonError(reason string) error {
	switch reason {
	case ReasonRevoked:
		return appErr.ErrShareRevoked
	case ReasonExpired:
		return appErr.ErrShareExpired
	case ReasonNoUsesLeft:
		return appErr.ErrShareExhausted
	default:
		return appErr.ErrInternal
	}
}

// PublicDownload runs the full anonymous download path: resolve token,
// verify row integrity, check lifecycle, consume a use atomically, open
// and decrypt the blob. Every outcome, success or not, lands one audit
// row. The use is consumed before the blob is opened; a consumed use on
// a broken blob is deliberate, matching the audit trail.
func (s *ShareService) PublicDownload(ctx context.Context, tokenStr string, client ClientInfo) (*Download, error) {
	share, err := s.shares.GetByToken(ctx, tokenStr)
	if err != nil {
		if appErr.IsNotFound(err) {
			s.audit(ctx, "", client, false, "unknown_token")
		}
		return nil, err
	}
	if !s.verifyShare(share) {
		s.audit(ctx, share.ID, client, false, "bad_signature")
		return nil, appErr.ErrNotFound
	}
	if reason := validateShare(share, timeutil.NowUnix()); reason != "" {
		s.audit(ctx, share.ID, client, false, reason)
		return nil, reasonError(reason)
	}
	// An unserveable kind is rejected before any use is consumed.
	if share.Kind == model.ShareKindFolder {
		s.audit(ctx, share.ID, client, false, "folder_download_unsupported")
		return nil, appErr.ErrNotImplemented
	}
	if share.MaxUses != nil {
		won, err := s.shares.ConsumeUse(ctx, share.ID)
		if err != nil {
			return nil, err
		}
		if !won {
			s.audit(ctx, share.ID, client, false, ReasonNoUsesLeft)
			return nil, appErr.ErrShareExhausted
		}
	}

	file, err := s.files.GetByID(ctx, share.TargetID)
	if err != nil {
		s.audit(ctx, share.ID, client, false, "file_missing")
		return nil, err
	}
	version, err := s.versions.GetByVersion(ctx, file.ID, file.CurrentVersion)
	if err != nil {
		s.audit(ctx, share.ID, client, false, "content_missing")
		return nil, appErr.ErrMissingContent
	}
	download, err := s.fileSvc.openVersion(ctx, file, version)
	if err != nil {
		s.audit(ctx, share.ID, client, false, "content_missing")
		return nil, appErr.ErrMissingContent
	}
	s.audit(ctx, share.ID, client, true, "")
	return download, nil
}
