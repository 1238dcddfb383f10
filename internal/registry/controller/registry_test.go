package controller

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestTruncateDetail verifies that surfaced store errors are bounded.
func TestTruncateDetail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "short", truncateDetail("short"))

	long := strings.Repeat("x", 200)
	got := truncateDetail(long)
	require.Len(t, got, errDetailLimit)
	require.True(t, strings.HasPrefix(long, got))
}
