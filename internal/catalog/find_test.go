package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	services := []Service{
		{ID: 501, Name: "45 Minute Sauna"},
		{ID: 502, Name: "90 Minute Sauna"},
		{ID: 503, Name: "Steam Room Pass"},
	}

	match, suggestions, ok := Find(services, " 45 minute SAUNA ")
	require.True(t, ok)
	require.Equal(t, int64(501), match.ID)
	require.Empty(t, suggestions)

	_, suggestions, ok = Find(services, "45 Minute Suana")
	require.False(t, ok)
	require.NotEmpty(t, suggestions)
	require.Equal(t, int64(501), suggestions[0].ID)

	_, suggestions, ok = Find(services, "xyz")
	require.False(t, ok)
	require.Empty(t, suggestions)
}
