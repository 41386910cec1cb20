package model

// FileVersion is one immutable revision of a file's content. The envelope
// fields (wrapped content key, wrap nonce, chunk nonce seed) are base64
// strings persisted with the version so the content can be decrypted later.
type FileVersion struct {
	ID             string `json:"id"`
	FileID         string `json:"file_id"`
	Version        int    `json:"version"`
	StoredName     string `json:"-"`
	Size           int64  `json:"size"`
	Checksum       string `json:"checksum"`
	MimeType       string `json:"mime_type"`
	KeyEnvelope    string `json:"-"`
	WrapNonce      string `json:"-"`
	ChunkNonceSeed string `json:"-"`
	Ctime          int64  `json:"ctime"`
}
