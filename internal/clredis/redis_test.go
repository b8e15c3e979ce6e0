package clredis

import (
	"context"
	"testing"

	"biostore/internal/models/clconfig"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenWithoutAddr(t *testing.T) {
	client, err := Open(context.Background(), clconfig.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestOpenUnreachable(t *testing.T) {
	client, err := Open(context.Background(), clconfig.RedisConfig{Addr: "127.0.0.1:1"})
	assert.Error(t, err)
	assert.Nil(t, client)
}
