package model

const (
	ShareKindFile   = "file"
	ShareKindFolder = "folder"
)

// Share grants public access to a file or folder through an unguessable
// capability token. MaxUses/RemainingUses are nil for unlimited shares;
// once Revoked is set it never reverts.
type Share struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Kind           string `json:"kind"`
	TargetID       string `json:"target_id"`
	Token          string `json:"token"`
	TokenSignature string `json:"-"`
	Label          string `json:"label,omitempty"`
	ExpiresAt      *int64 `json:"expires_at,omitempty"`
	MaxUses        *int64 `json:"max_uses,omitempty"`
	RemainingUses  *int64 `json:"remaining_uses,omitempty"`
	Revoked        bool   `json:"revoked"`
	Ctime          int64  `json:"ctime"`
}
