package http

import (
	"net/textproto"
	"strings"
	"sync"
)

// Header is a header mapping with case-insensitive keys, stored canonicalised.
type Header map[string]string

// Get returns the value for key, matched case-insensitively.
func (h Header) Get(key string) string {
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

// Set stores value under the canonical form of key.
func (h Header) Set(key, value string) {
	h[textproto.CanonicalMIMEHeaderKey(key)] = value
}

// Add appends value to an existing entry, comma separated.
func (h Header) Add(key, value string) {
	key = textproto.CanonicalMIMEHeaderKey(key)
	if prev, ok := h[key]; ok && prev != "" {
		h[key] = prev + ", " + value
		return
	}
	h[key] = value
}

// Del removes key.
func (h Header) Del(key string) {
	delete(h, textproto.CanonicalMIMEHeaderKey(key))
}

// Request is a parsed HTTP request. Requests are pooled; the body slice is
// only valid until ReleaseRequest.
type Request struct {
	Method     string
	Path       string
	RawQuery   string
	Proto      string
	RemoteAddr string
	Header     Header
	Body       []byte
}

var requestPool = sync.Pool{
	New: func() any {
		return &Request{
			Header: make(Header, 8),
			Body:   make([]byte, 0, 1024),
		}
	},
}

// AcquireRequest returns an empty request from the pool.
func AcquireRequest() *Request {
	return requestPool.Get().(*Request)
}

// ReleaseRequest resets req and returns it to the pool.
func ReleaseRequest(req *Request) {
	if req == nil {
		return
	}
	req.Reset()
	requestPool.Put(req)
}

// Reset clears the request for reuse without freeing memory.
func (r *Request) Reset() {
	r.Method = ""
	r.Path = ""
	r.RawQuery = ""
	r.Proto = ""
	r.RemoteAddr = ""
	if r.Header == nil {
		r.Header = make(Header, 8)
	}
	for k := range r.Header {
		delete(r.Header, k)
	}
	r.Body = r.Body[:0]
}

// KeepAlive reports whether the connection may serve another request.
func (r *Request) KeepAlive() bool {
	conn := strings.ToLower(r.Header.Get("Connection"))
	switch r.Proto {
	case "HTTP/1.1":
		return !strings.Contains(conn, "close")
	case "HTTP/1.0":
		return strings.Contains(conn, "keep-alive")
	default:
		return false
	}
}
