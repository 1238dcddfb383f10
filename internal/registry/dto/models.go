// Package dto defines the request payloads and response projections
// of the registry HTTP surface.
package dto

import "time"

// URLPayload is the body of POST /api/models/url.
type URLPayload struct {
	URL string `json:"url" binding:"required"`
}

// UploadedModel is returned after a successful archive upload.
// The encoded payload is never echoed back.
type UploadedModel struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Active      bool   `json:"active"`
}

// ActivatedURL is returned after a successful URL registration.
type ActivatedURL struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// FileMeta is a stored archive without its encoded payload.
type FileMeta struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updated_at"`
}
