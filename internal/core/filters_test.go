package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFiltersEncodeOrderAndEscaping(t *testing.T) {
	filters := Filters{}.
		With("name", "Rick Sanchez").
		With("status", "alive").
		WithInt("page", 2)

	require.Equal(t, "name=Rick+Sanchez&status=alive&page=2", filters.Encode())
}

func TestFiltersDropEmptyValues(t *testing.T) {
	filters := Filters{}.
		With("name", "").
		With("", "alive").
		WithInt("page", 0)

	require.Empty(t, filters)
	require.Equal(t, "", filters.Encode())
}

func TestFiltersRoundTrip(t *testing.T) {
	filters := Filters{}.
		With("name", "Rick").
		WithInt("page", 2)

	parsed, err := url.ParseQuery(filters.Encode())
	require.NoError(t, err)
	require.Equal(t, "Rick", parsed.Get("name"))
	require.Equal(t, "2", parsed.Get("page"))
	require.Len(t, parsed, 2)
}

func TestResourceTypeValid(t *testing.T) {
	for _, rt := range ResourceTypes() {
		require.True(t, rt.Valid())
	}
	require.False(t, ResourceType("planet").Valid())
}
