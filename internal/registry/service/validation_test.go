package service

import (
	"context"
	"testing"

	logSDK "github.com/Laisky/go-utils/v6/log"
	"github.com/stretchr/testify/require"

	"github.com/openmlhub/model-registry/internal/registry/model"
)

// TestValidateArchiveName verifies the archive filename rule.
func TestValidateArchiveName(t *testing.T) {
	t.Parallel()

	require.NoError(t, validateArchiveName("model.zip"))
	require.NoError(t, validateArchiveName("MODEL.ZIP"))
	require.NoError(t, validateArchiveName("my model v2.zip"))

	for _, name := range []string{"", "model", "model.tar.gz", "model.zip.txt", "zip"} {
		err := validateArchiveName(name)
		require.Errorf(t, err, "name %q should be rejected", name)

		var vErr *model.ValidationError
		require.ErrorAs(t, err, &vErr)
	}
}

// TestActivateFileRejectsBeforeStore verifies that client-input errors
// are raised before the store is ever consulted: a registry without a
// store still reports 400-class errors, not store unavailability.
func TestActivateFileRejectsBeforeStore(t *testing.T) {
	t.Parallel()

	svc := New(logSDK.Shared.Named("test"), nil)
	ctx := context.Background()

	var vErr *model.ValidationError

	_, err := svc.ActivateFile(ctx, "model.txt", "text/plain", []byte("x"))
	require.ErrorAs(t, err, &vErr)

	_, err = svc.ActivateFile(ctx, "model.zip", "application/zip", nil)
	require.ErrorAs(t, err, &vErr)

	_, err = svc.ActivateURL(ctx, "not a url")
	require.ErrorAs(t, err, &vErr)
}

// TestOperationsWithoutStore verifies that valid requests against an
// unconfigured registry fail with ErrStoreUnavailable.
func TestOperationsWithoutStore(t *testing.T) {
	t.Parallel()

	svc := New(logSDK.Shared.Named("test"), nil)
	ctx := context.Background()

	_, err := svc.ActivateFile(ctx, "model.zip", "application/zip", []byte("content"))
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.ActivateURL(ctx, "https://example.com/model.json")
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.GetActive(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = svc.ListFiles(ctx, 0)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
