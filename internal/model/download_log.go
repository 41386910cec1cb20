package model

// DownloadLog records one public download attempt, successful or not.
// The share token itself is never stored here.
type DownloadLog struct {
	ID        int64  `json:"id"`
	ShareID   string `json:"share_id"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
	Success   bool   `json:"success"`
	Message   string `json:"message,omitempty"`
	Ctime     int64  `json:"ctime"`
}
