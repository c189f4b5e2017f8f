package main

import (
	"bytes"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchktools/fast-backend/apperror"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"HOST", "PORT", "ENV", "PROTOCOL", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR"} {
		t.Setenv(key, "")
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fast-backend ")
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "fast-backend version ")
}

func TestRoutesCommand(t *testing.T) {
	clearEnv(t)
	out, err := execute(t, "routes", "--env-file", "")
	require.NoError(t, err)

	var rows []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		rows = append(rows, strings.Join(strings.Fields(line), " "))
	}
	for _, want := range []string{"GET /health", "GET /metrics", "POST /api/process", "POST /api/grpc"} {
		assert.Contains(t, rows, want)
	}
}

func TestRoutesCommandRejectsBadConfig(t *testing.T) {
	clearEnv(t)
	_, err := execute(t, "routes", "--env-file", "", "--port", "70000")
	assert.Error(t, err)
}

func TestServeBindFailure(t *testing.T) {
	clearEnv(t)
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	_, err = execute(t, "--env-file", "", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBindFailure)
}

func TestServeCommandBindFailure(t *testing.T) {
	clearEnv(t)
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()
	port := occupied.Addr().(*net.TCPAddr).Port

	_, err = execute(t, "serve", "--env-file", "", "--host", "127.0.0.1", "--port", strconv.Itoa(port))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperror.ErrBindFailure)
}
