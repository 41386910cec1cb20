package service

import (
	"context"
	"strings"

	"github.com/obsilock/obsilock/internal/model"
	appErr "github.com/obsilock/obsilock/internal/pkg/errors"
	"github.com/obsilock/obsilock/internal/pkg/timeutil"
	"github.com/obsilock/obsilock/internal/repo"
)

type FolderService struct {
	folders *repo.FolderRepo
	files   *repo.FileRepo
}

func NewFolderService(folders *repo.FolderRepo, files *repo.FileRepo) *FolderService {
	return &FolderService{folders: folders, files: files}
}

func (s *FolderService) Create(ctx context.Context, userID, parentID, name string) (*model.Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, appErr.ErrInvalid
	}
	if parentID != "" {
		if _, err := s.folders.GetByID(ctx, userID, parentID); err != nil {
			return nil, err
		}
	}
	now := timeutil.NowUnix()
	folder := &model.Folder{
		ID:       newID(),
		UserID:   userID,
		ParentID: parentID,
		Name:     name,
		Ctime:    now,
		Mtime:    now,
	}
	if err := s.folders.Create(ctx, folder); err != nil {
		return nil, err
	}
	return folder, nil
}

func (s *FolderService) List(ctx context.Context, userID string) ([]*model.Folder, error) {
	return s.folders.ListByUser(ctx, userID)
}

func (s *FolderService) Rename(ctx context.Context, userID, folderID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return appErr.ErrInvalid
	}
	ok, err := s.folders.Rename(ctx, userID, folderID, name, timeutil.NowUnix())
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrNotFound
	}
	return nil
}

func (s *FolderService) Delete(ctx context.Context, userID, folderID string) error {
	files, err := s.files.ListByUser(ctx, userID, folderID)
	if err != nil {
		return err
	}
	if len(files) > 0 {
		return appErr.ErrConflict
	}
	ok, err := s.folders.Delete(ctx, userID, folderID)
	if err != nil {
		return err
	}
	if !ok {
		return appErr.ErrNotFound
	}
	return nil
}
