package http

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reader(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

func TestReadRequestContentLength(t *testing.T) {
	r := reader("POST /api/process?x=1 HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"content-type: application/json\r\n" +
		"Content-Length: 7\r\n" +
		"\r\n" +
		`{"a":1}`)

	req, err := ReadRequest(r, nil, 1024)
	require.NoError(t, err)
	defer ReleaseRequest(req)

	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, "/api/process", req.Path)
	assert.Equal(t, "x=1", req.RawQuery)
	assert.Equal(t, "HTTP/1.1", req.Proto)
	assert.Equal(t, "application/json", req.Header.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(req.Body))
	assert.True(t, req.KeepAlive())
}

func TestReadRequestChunked(t *testing.T) {
	r := reader("POST /api/grpc HTTP/1.1\r\n" +
		"Transfer-Encoding: chunked\r\n" +
		"\r\n" +
		"3\r\nabc\r\n" +
		"2\r\nde\r\n" +
		"0\r\n" +
		"X-Trailer: 1\r\n" +
		"\r\n")

	req, err := ReadRequest(r, nil, 1024)
	require.NoError(t, err)
	defer ReleaseRequest(req)

	assert.Equal(t, "abcde", string(req.Body))
	assert.Equal(t, "5", req.Header.Get("Content-Length"))
	assert.Equal(t, "", req.Header.Get("Transfer-Encoding"))
}

func TestReadRequestPipelined(t *testing.T) {
	r := reader("GET /health HTTP/1.1\r\n\r\n" +
		"GET /metrics HTTP/1.1\r\nConnection: close\r\n\r\n")

	first, err := ReadRequest(r, nil, 1024)
	require.NoError(t, err)
	assert.Equal(t, "/health", first.Path)
	assert.True(t, first.KeepAlive())
	ReleaseRequest(first)

	second, err := ReadRequest(r, nil, 1024)
	require.NoError(t, err)
	assert.Equal(t, "/metrics", second.Path)
	assert.False(t, second.KeepAlive())
	ReleaseRequest(second)

	_, err = ReadRequest(r, nil, 1024)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadRequestBodyTooLarge(t *testing.T) {
	r := reader("POST /api/process HTTP/1.1\r\nContent-Length: 100\r\n\r\n")

	req, err := ReadRequest(r, nil, 10)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	require.NotNil(t, req)
	assert.Equal(t, "/api/process", req.Path)
	assert.Empty(t, req.Body)
	ReleaseRequest(req)
}

func TestReadRequestChunkedTooLarge(t *testing.T) {
	r := reader("POST /api/grpc HTTP/1.1\r\nTransfer-Encoding: chunked\r\n\r\n" +
		"10\r\n0123456789abcdef\r\n0\r\n\r\n")

	req, err := ReadRequest(r, nil, 8)
	assert.ErrorIs(t, err, ErrBodyTooLarge)
	require.NotNil(t, req)
	ReleaseRequest(req)
}

func TestReadRequestInvalidRequestLine(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"missing proto", "GET /\r\n\r\n"},
		{"lowercase method", "get / HTTP/1.1\r\n\r\n"},
		{"bad proto", "GET / HTTP/2.0\r\n\r\n"},
		{"relative target", "GET health HTTP/1.1\r\n\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ReadRequest(reader(tt.raw), nil, 1024)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			assert.Nil(t, req)
		})
	}
}

func TestReadRequestInvalidAfterRequestLine(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		method string
		path   string
	}{
		{"header without colon", "GET /health HTTP/1.1\r\nbroken\r\n\r\n", "GET", "/health"},
		{"bad content length", "POST /api/process HTTP/1.1\r\nContent-Length: abc\r\n\r\n", "POST", "/api/process"},
		{"negative content length", "POST / HTTP/1.1\r\nContent-Length: -1\r\n\r\n", "POST", "/"},
		{"unsupported encoding", "POST / HTTP/1.1\r\nTransfer-Encoding: gzip\r\n\r\n", "POST", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := ReadRequest(reader(tt.raw), nil, 1024)
			assert.ErrorIs(t, err, ErrInvalidRequest)
			require.NotNil(t, req)
			defer ReleaseRequest(req)
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.path, req.Path)
			assert.Empty(t, req.Body)
		})
	}
}

func TestReadRequestExpectContinue(t *testing.T) {
	raw := "POST /api/grpc HTTP/1.1\r\n" +
		"Expect: 100-continue\r\n" +
		"Content-Length: 3\r\n" +
		"\r\n" +
		"abc"

	var out bytes.Buffer
	req, err := ReadRequest(reader(raw), &out, 1024)
	require.NoError(t, err)
	defer ReleaseRequest(req)

	assert.Equal(t, "HTTP/1.1 100 Continue\r\n\r\n", out.String())
	assert.Equal(t, "abc", string(req.Body))
}

func TestReadRequestExpectContinueSkipped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		err  error
	}{
		{"no expect header", "POST / HTTP/1.1\r\nContent-Length: 3\r\n\r\nabc", nil},
		{"empty body", "POST / HTTP/1.1\r\nExpect: 100-continue\r\nContent-Length: 0\r\n\r\n", nil},
		{"http/1.0", "POST / HTTP/1.0\r\nExpect: 100-continue\r\nContent-Length: 3\r\n\r\nabc", nil},
		{"body too large", "POST / HTTP/1.1\r\nExpect: 100-continue\r\nContent-Length: 4096\r\n\r\n", ErrBodyTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			req, err := ReadRequest(reader(tt.raw), &out, 1024)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
			require.NotNil(t, req)
			ReleaseRequest(req)
			assert.Empty(t, out.String())
		})
	}
}

func TestReadRequestTruncated(t *testing.T) {
	tests := []string{
		"GET / HTTP/1.1",
		"GET / HTTP/1.1\r\nHost: x\r\n",
		"POST / HTTP/1.1\r\nContent-Length: 10\r\n\r\nabc",
	}

	for _, raw := range tests {
		_, err := ReadRequest(reader(raw), nil, 1024)
		assert.ErrorIs(t, err, io.ErrUnexpectedEOF, raw)
	}
}

func TestReadRequestTooManyHeaders(t *testing.T) {
	var b strings.Builder
	b.WriteString("GET / HTTP/1.1\r\n")
	for i := 0; i <= maxHeaderCount; i++ {
		b.WriteString("X-H: v\r\n")
	}
	b.WriteString("\r\n")

	_, err := ReadRequest(bufio.NewReaderSize(strings.NewReader(b.String()), 4096), nil, 1024)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRequestKeepAlive(t *testing.T) {
	tests := []struct {
		proto string
		conn  string
		want  bool
	}{
		{"HTTP/1.1", "", true},
		{"HTTP/1.1", "close", false},
		{"HTTP/1.1", "Close", false},
		{"HTTP/1.0", "", false},
		{"HTTP/1.0", "Keep-Alive", true},
	}

	for _, tt := range tests {
		req := &Request{Proto: tt.proto, Header: make(Header)}
		if tt.conn != "" {
			req.Header.Set("Connection", tt.conn)
		}
		assert.Equal(t, tt.want, req.KeepAlive(), "%s %q", tt.proto, tt.conn)
	}
}

func TestHeaderCaseInsensitive(t *testing.T) {
	h := make(Header)
	h.Set("content-type", "text/plain")
	assert.Equal(t, "text/plain", h.Get("CONTENT-TYPE"))

	h.Add("Accept", "a")
	h.Add("accept", "b")
	assert.Equal(t, "a, b", h.Get("Accept"))

	h.Del("ACCEPT")
	assert.Equal(t, "", h.Get("Accept"))
}
