package service

import (
	"strings"

	"github.com/openmlhub/model-registry/internal/registry/model"
)

const archiveExt = ".zip"

// validateArchiveName rejects uploads whose filename does not look like
// a model archive. Matching is case-insensitive ("MODEL.ZIP" is fine).
func validateArchiveName(filename string) error {
	if filename == "" {
		return &model.ValidationError{Reason: "missing filename"}
	}
	if !strings.HasSuffix(strings.ToLower(filename), archiveExt) {
		return &model.ValidationError{Reason: "file must be a " + archiveExt + " archive"}
	}
	return nil
}
