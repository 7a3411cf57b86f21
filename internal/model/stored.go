package model

import "time"

// StoredFile represents a file previously written to the uploads store.
// Path is the backend location and is never serialized to clients.
type StoredFile struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	Size         int64     `json:"size"`
	Type         string    `json:"type"`
	UploadedAt   time.Time `json:"uploadedAt"`
	Path         string    `json:"-"`
	URL          string    `json:"url"`
}
