package display

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolve_ExactMatch verifies an exact name resolves immediately
func TestResolve_ExactMatch(t *testing.T) {
	names := []string{"DP-1", "eDP-1"}

	got, err := Resolve(names, "DP-1")

	require.NoError(t, err)
	assert.Equal(t, "DP-1", got)
}

// TestResolve_UniquePrefix verifies a unique prefix resolves to its match
func TestResolve_UniquePrefix(t *testing.T) {
	names := []string{"DP-1", "eDP-1"}

	got, err := Resolve(names, "eDP")

	require.NoError(t, err)
	assert.Equal(t, "eDP-1", got)
}

// TestResolve_Ambiguous verifies a shared prefix fails with all candidates
func TestResolve_Ambiguous(t *testing.T) {
	names := []string{"DP-1", "DP-2"}

	_, err := Resolve(names, "DP")

	var ambiguous *AmbiguousError
	require.ErrorAs(t, err, &ambiguous)
	assert.Equal(t, "DP", ambiguous.Name)
	assert.ElementsMatch(t, []string{"DP-1", "DP-2"}, ambiguous.Candidates)
	assert.Contains(t, err.Error(), "ambiguous")
}

// TestResolve_NotFound verifies an unmatched name lists what is available
func TestResolve_NotFound(t *testing.T) {
	names := []string{"DP-1", "DP-2"}

	_, err := Resolve(names, "HDMI")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "HDMI", notFound.Name)
	assert.ElementsMatch(t, []string{"DP-1", "DP-2"}, notFound.Available)
	assert.Contains(t, err.Error(), "not found")
}

// TestResolve_ExactBeatsPrefix verifies exact-match precedence: "DP" must
// resolve to "DP" even though it also prefixes "DP-1"
func TestResolve_ExactBeatsPrefix(t *testing.T) {
	names := []string{"DP", "DP-1"}

	got, err := Resolve(names, "DP")

	require.NoError(t, err)
	assert.Equal(t, "DP", got)
}

// TestResolve_EmptySet verifies resolution against no displays fails
func TestResolve_EmptySet(t *testing.T) {
	_, err := Resolve(nil, "DP-1")

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, notFound.Available)
}

// TestResolve_ErrorsAreDistinguishable verifies the two failure kinds do
// not satisfy each other
func TestResolve_ErrorsAreDistinguishable(t *testing.T) {
	_, ambiguousErr := Resolve([]string{"DP-1", "DP-2"}, "DP")
	_, notFoundErr := Resolve([]string{"DP-1"}, "HDMI")

	var ambiguous *AmbiguousError
	var notFound *NotFoundError
	assert.False(t, errors.As(ambiguousErr, &notFound))
	assert.False(t, errors.As(notFoundErr, &ambiguous))
}
