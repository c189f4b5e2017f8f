package http

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestContext(method, path string, body []byte) *Context {
	req := &Request{
		Method: method,
		Path:   path,
		Proto:  "HTTP/1.1",
		Header: make(Header),
		Body:   body,
	}
	return NewContext(context.Background(), req)
}

func TestContextBasic(t *testing.T) {
	ctx := newTestContext("GET", "/health", nil)
	ctx.Request().RawQuery = "verbose=1&name=a%20b"
	ctx.Request().Header.Set("x-request-id", "abc")

	assert.Equal(t, "GET", ctx.Method())
	assert.Equal(t, "/health", ctx.Path())
	assert.Equal(t, "abc", ctx.Header("X-Request-Id"))
	assert.Equal(t, "1", ctx.Query("verbose"))
	assert.Equal(t, "a b", ctx.Query("name"))
	assert.Equal(t, "", ctx.Query("missing"))
	assert.NotNil(t, ctx.Context())
}

func TestContextValues(t *testing.T) {
	ctx := newTestContext("GET", "/", nil)

	_, ok := ctx.Get("request_id")
	assert.False(t, ok)

	ctx.Set("request_id", "r-1")
	v, ok := ctx.Get("request_id")
	require.True(t, ok)
	assert.Equal(t, "r-1", v)
}

func TestContextJSON(t *testing.T) {
	ctx := newTestContext("GET", "/health", nil)

	require.NoError(t, ctx.JSON(200, map[string]string{"status": "healthy"}))

	resp := ctx.Response()
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"status":"healthy"}`, string(resp.Body))
}

func TestContextJSONProtobuf(t *testing.T) {
	ctx := newTestContext("GET", "/health", nil)
	ctx.Request().Header.Set("Accept", "application/x-protobuf")

	require.NoError(t, ctx.JSON(200, map[string]string{"status": "healthy"}))

	resp := ctx.Response()
	assert.Equal(t, "application/x-protobuf", resp.Header.Get("Content-Type"))

	var val structpb.Value
	require.NoError(t, proto.Unmarshal(resp.Body, &val))
	assert.Equal(t, "healthy", val.GetStructValue().GetFields()["status"].GetStringValue())
}

func TestContextJSONEncodeError(t *testing.T) {
	ctx := newTestContext("GET", "/", nil)
	err := ctx.JSON(200, make(chan int))
	assert.Error(t, err)
	assert.False(t, ctx.Written())
}

func TestContextData(t *testing.T) {
	ctx := newTestContext("POST", "/api/grpc", []byte{0x00, 0x01, 0xff})

	require.NoError(t, ctx.Data(200, "application/octet-stream", ctx.Body()))

	resp := ctx.Response()
	assert.Equal(t, []byte{0x00, 0x01, 0xff}, resp.Body)
	assert.Equal(t, "application/octet-stream", resp.Header.Get("Content-Type"))

	// The response owns its bytes.
	ctx.Body()[0] = 0x7f
	assert.Equal(t, byte(0x00), resp.Body[0])
}

func TestContextNoContent(t *testing.T) {
	ctx := newTestContext("OPTIONS", "/", nil)
	require.NoError(t, ctx.String(200, "x"))
	require.NoError(t, ctx.NoContent(204))

	assert.Equal(t, 204, ctx.StatusCode())
	assert.Empty(t, ctx.Response().Body)
	assert.Equal(t, "", ctx.Response().Header.Get("Content-Type"))
}

func TestContextStatusDefault(t *testing.T) {
	ctx := newTestContext("GET", "/", nil)
	assert.False(t, ctx.Written())
	assert.Equal(t, 200, ctx.StatusCode())

	ctx.Status(201)
	assert.True(t, ctx.Written())
	assert.Equal(t, 201, ctx.StatusCode())
}

func TestContextBindJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"object", `{"a":1,"b":[true,null]}`, false},
		{"scalar", `42`, false},
		{"with whitespace", " {\"a\":1}\n", false},
		{"empty", ``, true},
		{"truncated", `{"a":`, true},
		{"trailing garbage", `{"a":1} x`, true},
		{"two values", `{} {}`, true},
		{"not json", `not json`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext("POST", "/api/process", []byte(tt.body))
			var v any
			err := ctx.BindJSON(&v)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestContextBindJSONKeepsNumbers(t *testing.T) {
	ctx := newTestContext("POST", "/api/process", []byte(`{"big":12345678901234567890,"f":1.50}`))

	var v map[string]any
	require.NoError(t, ctx.BindJSON(&v))
	assert.Equal(t, json.Number("12345678901234567890"), v["big"])

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"big":12345678901234567890,"f":1.50}`, string(out))
}

func TestContextPoolReset(t *testing.T) {
	req := &Request{Method: "GET", Path: "/", Header: make(Header)}
	ctx := AcquireContext(context.Background(), req)
	ctx.SetHeader("X-Test", "1")
	ctx.Set("k", "v")
	require.NoError(t, ctx.String(200, "hello"))

	ReleaseContext(ctx)

	assert.Nil(t, ctx.Request())
	assert.Empty(t, ctx.Response().Header)
	assert.Empty(t, ctx.Response().Body)
	assert.False(t, ctx.Written())
	_, ok := ctx.Get("k")
	assert.False(t, ok)
}
