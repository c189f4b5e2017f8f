package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sync"

	"github.com/searchktools/fast-backend/core/codec"
)

// HandlerFunc handles one request. A returned error is rendered by the
// server after the middleware chain has seen it.
type HandlerFunc func(*Context) error

// Context carries one request and the response being built for it.
type Context struct {
	ctx     context.Context
	request *Request
	resp    Response
	query   url.Values
	values  map[string]any
}

var contextPool = sync.Pool{
	New: func() any {
		return &Context{
			resp: Response{
				Header: make(Header, 8),
				Body:   make([]byte, 0, 1024),
			},
		}
	},
}

// AcquireContext returns a pooled context bound to req.
func AcquireContext(parent context.Context, req *Request) *Context {
	c := contextPool.Get().(*Context)
	c.ctx = parent
	c.request = req
	return c
}

// ReleaseContext resets c and returns it to the pool. The request is not
// released.
func ReleaseContext(c *Context) {
	if c == nil {
		return
	}
	c.Reset()
	contextPool.Put(c)
}

// NewContext builds an unpooled context, mainly for tests.
func NewContext(parent context.Context, req *Request) *Context {
	if parent == nil {
		parent = context.Background()
	}
	if req.Header == nil {
		req.Header = make(Header)
	}
	return &Context{
		ctx:     parent,
		request: req,
		resp:    Response{Header: make(Header, 8)},
	}
}

// Reset clears all request and response state.
func (c *Context) Reset() {
	c.ctx = nil
	c.request = nil
	c.query = nil
	for k := range c.values {
		delete(c.values, k)
	}
	c.resp.Reset()
}

// Context returns the request-scoped context.Context.
func (c *Context) Context() context.Context {
	if c.ctx == nil {
		return context.Background()
	}
	return c.ctx
}

// Request returns the parsed request.
func (c *Context) Request() *Request {
	return c.request
}

// Method returns the HTTP method
func (c *Context) Method() string {
	return c.request.Method
}

// Path returns the request path without the query string
func (c *Context) Path() string {
	return c.request.Path
}

// Header gets a request header
func (c *Context) Header(key string) string {
	return c.request.Header.Get(key)
}

// Query gets a query parameter
func (c *Context) Query(key string) string {
	if c.query == nil {
		c.query, _ = url.ParseQuery(c.request.RawQuery)
	}
	return c.query.Get(key)
}

// Body returns the raw request body
func (c *Context) Body() []byte {
	return c.request.Body
}

// Set stores a request-scoped value for later middleware or handlers.
func (c *Context) Set(key string, v any) {
	if c.values == nil {
		c.values = make(map[string]any, 4)
	}
	c.values[key] = v
}

// Get returns a value stored with Set.
func (c *Context) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// BindJSON decodes the request body into v. Numbers are kept as json.Number
// so they round-trip without loss. Trailing data after the first value is an
// error.
func (c *Context) BindJSON(v any) error {
	dec := json.NewDecoder(bytes.NewReader(c.request.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// Response returns the response under construction.
func (c *Context) Response() *Response {
	return &c.resp
}

// Status sets the response status code.
func (c *Context) Status(code int) {
	c.resp.Status = code
}

// StatusCode returns the status that will be written, 200 if none was set.
func (c *Context) StatusCode() int {
	if c.resp.Status == 0 {
		return 200
	}
	return c.resp.Status
}

// Written reports whether a status has been set.
func (c *Context) Written() bool {
	return c.resp.Status != 0
}

// SetHeader sets a response header.
func (c *Context) SetHeader(key, value string) {
	c.resp.Header.Set(key, value)
}

// ResponseHeader returns the response headers.
func (c *Context) ResponseHeader() Header {
	return c.resp.Header
}

// JSON encodes v with the codec negotiated from the Accept header. Without a
// preference the body is JSON.
func (c *Context) JSON(code int, v any) error {
	cd := codec.Negotiate(c.request.Header.Get("Accept"))
	data, err := cd.Encode(v)
	if err != nil {
		return fmt.Errorf("encode %s response: %w", cd.Name(), err)
	}
	return c.Data(code, cd.ContentType(), data)
}

// Data sends raw data with the given content type
func (c *Context) Data(code int, contentType string, data []byte) error {
	c.resp.Status = code
	if contentType != "" {
		c.resp.Header.Set("Content-Type", contentType)
	}
	c.resp.Body = append(c.resp.Body[:0], data...)
	return nil
}

// Bytes sends a raw bytes response
func (c *Context) Bytes(code int, data []byte) error {
	return c.Data(code, "application/octet-stream", data)
}

// String sends a text response
func (c *Context) String(code int, s string) error {
	return c.Data(code, "text/plain; charset=utf-8", []byte(s))
}

// NoContent sends a status without a body.
func (c *Context) NoContent(code int) error {
	c.resp.Status = code
	c.resp.Header.Del("Content-Type")
	c.resp.Body = c.resp.Body[:0]
	return nil
}
