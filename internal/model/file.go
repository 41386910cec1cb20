package model

type File struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	FolderID       string `json:"folder_id,omitempty"`
	Filename       string `json:"filename"`
	StoredName     string `json:"-"`
	Size           int64  `json:"size"`
	MimeType       string `json:"mime_type"`
	Checksum       string `json:"checksum"`
	CurrentVersion int    `json:"current_version"`
	Ctime          int64  `json:"ctime"`
	Mtime          int64  `json:"mtime"`
}
