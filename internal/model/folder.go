package model

type Folder struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	ParentID string `json:"parent_id,omitempty"`
	Name     string `json:"name"`
	Ctime    int64  `json:"ctime"`
	Mtime    int64  `json:"mtime"`
}
