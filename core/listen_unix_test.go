//go:build unix

package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenSocketBuffers(t *testing.T) {
	const size = 16 << 10

	e := NewEngine(Options{SocketRecvBuffer: size, SocketSendBuffer: size})
	ln, err := e.Listen("127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	recv, send, err := socketBuffers(ln)
	require.NoError(t, err)

	// Linux reports twice the requested size to account for bookkeeping.
	assert.GreaterOrEqual(t, recv, size)
	assert.LessOrEqual(t, recv, 4*size)
	assert.GreaterOrEqual(t, send, size)
	assert.LessOrEqual(t, send, 4*size)
}

func TestListenControlDefaults(t *testing.T) {
	assert.Nil(t, listenControl(Options{}))
	assert.NotNil(t, listenControl(Options{SocketRecvBuffer: 1024}))
}
