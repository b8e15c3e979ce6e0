package clgeo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithoutDatabase(t *testing.T) {
	loc, err := Open("")
	require.NoError(t, err)
	assert.IsType(t, Nop{}, loc)
	assert.Equal(t, "", loc.Country("8.8.8.8"))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open("/nonexistent/GeoLite2-Country.mmdb")
	assert.Error(t, err)
}
