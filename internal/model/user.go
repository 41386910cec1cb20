package model

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	QuotaTotal   int64  `json:"quota_total"`
	QuotaUsed    int64  `json:"quota_used"`
	Ctime        int64  `json:"ctime"`
	Mtime        int64  `json:"mtime"`
}
