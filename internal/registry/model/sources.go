// Package model contains the persisted record shapes of the registry.
package model

import (
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SourceTypeURL marks a config record pointing at an externally hosted model.
const SourceTypeURL = "url"

var validSourceTypes = map[string]bool{
	SourceTypeURL: true,
}

// ValidationError reports a client-input violation. It is raised before
// any store mutation and maps to a 400 response.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func invalid(reason string) error {
	return &ValidationError{Reason: reason}
}

// ModelSource is the common abstraction over the two source variants.
// The registry decides which record is authoritative through it without
// caring whether the model lives in the store or behind a URL.
type ModelSource interface {
	// IsActive reports whether this record is the currently selected source.
	IsActive() bool
	// LastUpdated returns the time of the last mutation.
	LastUpdated() time.Time
	// Describe returns the JSON-ready projection of the record,
	// never including the encoded payload.
	Describe() map[string]any
}

// ModelFile is a stored model archive.
type ModelFile struct {
	// ID unique identifier assigned by the store
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// Name original filename of the uploaded archive
	Name string `bson:"name" json:"name"`
	// Size byte length of the archive
	Size int64 `bson:"size" json:"size"`
	// ContentType MIME type, e.g. application/zip
	ContentType string `bson:"content_type" json:"content_type"`
	// Data base64-encoded content of the archive
	Data string `bson:"data_b64" json:"-"`
	// Active whether this record is the currently selected source
	Active bool `bson:"active" json:"active"`
	// UpdatedAt time of the last mutation
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewModelFile builds a validated file record marked active.
func NewModelFile(name string, size int64, contentType, dataB64 string) (*ModelFile, error) {
	if name == "" {
		return nil, invalid("name must not be empty")
	}
	if size < 0 {
		return nil, invalid("size must not be negative")
	}
	if contentType == "" {
		return nil, invalid("content_type must not be empty")
	}
	if dataB64 == "" {
		return nil, invalid("file content must not be empty")
	}

	return &ModelFile{
		Name:        name,
		Size:        size,
		ContentType: contentType,
		Data:        dataB64,
		Active:      true,
		UpdatedAt:   time.Now().UTC(),
	}, nil
}

func (f *ModelFile) IsActive() bool {
	return f.Active
}

func (f *ModelFile) LastUpdated() time.Time {
	return f.UpdatedAt
}

func (f *ModelFile) Describe() map[string]any {
	return map[string]any{
		"type":         "db",
		"id":           f.ID.Hex(),
		"name":         f.Name,
		"size":         f.Size,
		"content_type": f.ContentType,
		"active":       f.Active,
		"updated_at":   f.UpdatedAt,
	}
}

// ModelConfig is a reference to an externally hosted model.
type ModelConfig struct {
	// ID unique identifier assigned by the store
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	// SourceType tag of the source variant, currently always "url"
	SourceType string `bson:"source_type" json:"source_type"`
	// URL externally reachable URL of the model manifest
	URL string `bson:"url" json:"url"`
	// Active whether this record is the currently selected source
	Active bool `bson:"active" json:"active"`
	// UpdatedAt time of the last mutation
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// NewModelConfig builds a validated config record marked active.
func NewModelConfig(sourceType, rawURL string) (*ModelConfig, error) {
	if !validSourceTypes[sourceType] {
		return nil, invalid("unknown source_type " + sourceType)
	}

	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" ||
		(u.Scheme != "http" && u.Scheme != "https") {
		return nil, invalid("url must be an absolute http(s) URL")
	}

	return &ModelConfig{
		SourceType: sourceType,
		URL:        rawURL,
		Active:     true,
		UpdatedAt:  time.Now().UTC(),
	}, nil
}

func (c *ModelConfig) IsActive() bool {
	return c.Active
}

func (c *ModelConfig) LastUpdated() time.Time {
	return c.UpdatedAt
}

func (c *ModelConfig) Describe() map[string]any {
	return map[string]any{
		"type":       SourceTypeURL,
		"url":        c.URL,
		"active":     c.Active,
		"updated_at": c.UpdatedAt,
	}
}
