package models

import "time"

// UploadResult describes a stored object. It is built once the durable URL is
// known and never changed afterwards.
type UploadResult struct {
	URL        string    `json:"url"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}
