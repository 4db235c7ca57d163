package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDiffFingerprints(t *testing.T) {
	diff := DiffFingerprints([]string{"a", "b", "c"}, []string{"b", "c", "d"})
	require.Equal(t, []string{"d"}, diff.Added)
	require.Equal(t, []string{"a"}, diff.Removed)
	require.Equal(t, []string{"b", "c"}, diff.Unchanged)
}

func TestDiffFingerprintsFirstSnapshot(t *testing.T) {
	diff := DiffFingerprints(nil, []string{"a", "b"})
	require.Equal(t, []string{"a", "b"}, diff.Added)
	require.Empty(t, diff.Removed)
	require.Empty(t, diff.Unchanged)
}

func TestDiffFingerprintsEverythingGone(t *testing.T) {
	diff := DiffFingerprints([]string{"a", "b"}, nil)
	require.Empty(t, diff.Added)
	require.Equal(t, []string{"a", "b"}, diff.Removed)
	require.Empty(t, diff.Unchanged)
}

func TestDiffFingerprintsIdentical(t *testing.T) {
	diff := DiffFingerprints([]string{"a", "b"}, []string{"a", "b"})
	require.Empty(t, diff.Added)
	require.Empty(t, diff.Removed)
	require.Equal(t, []string{"a", "b"}, diff.Unchanged)
}
