package videobackend_test

import (
	"context"
	"testing"

	"github.com/kexley/chromakeyd/pkg/frame"
	"github.com/kexley/chromakeyd/pkg/video/videobackend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockBackendConnectAndRead(t *testing.T) {
	backend := videobackend.Mock()

	conn, err := backend.Connect(context.Background(), "test-source")
	require.NoError(t, err)
	require.NotNil(t, conn)
	assert.True(t, conn.IsOpen())
	assert.NotEmpty(t, conn.UUID())

	f, err := conn.Read()
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.Equal(t, uint32(600), f.Width())
	assert.Equal(t, uint32(400), f.Height())
	assert.Equal(t, frame.RGBA, f.Order())
	assert.Len(t, f.Pix(), 600*400*4)

	require.NoError(t, conn.Close())
}

func TestResolveBackendType(t *testing.T) {
	assert.Equal(t, videobackend.Mock(), videobackend.Resolve("mock"))
	assert.Equal(t, videobackend.Default(), videobackend.Resolve(""))
}
