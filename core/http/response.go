package http

import (
	stdhttp "net/http"
	"sort"
	"strconv"
	"time"
)

const dateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// Response is the buffered reply to one request. Handlers fill it through
// Context; the server serializes it once the middleware chain returns.
type Response struct {
	Status int
	Header Header
	Body   []byte
}

// Reset clears the response for reuse.
func (r *Response) Reset() {
	r.Status = 0
	if r.Header == nil {
		r.Header = make(Header, 8)
	}
	for k := range r.Header {
		delete(r.Header, k)
	}
	r.Body = r.Body[:0]
}

// AppendTo appends the HTTP/1.1 wire form of r to buf. Header lines are
// written in sorted order. When headOnly is set the body is omitted but the
// Content-Length still describes it.
func (r *Response) AppendTo(buf []byte, keepAlive, headOnly bool) []byte {
	status := r.Status
	if status == 0 {
		status = stdhttp.StatusOK
	}

	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(status), 10)
	buf = append(buf, ' ')
	buf = append(buf, statusText(status)...)
	buf = append(buf, "\r\n"...)

	keys := make([]string, 0, len(r.Header))
	for k := range r.Header {
		switch k {
		case "Content-Length", "Connection", "Date":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf = appendHeader(buf, k, r.Header[k])
	}

	buf = appendHeader(buf, "Date", time.Now().UTC().Format(dateLayout))
	if bodyAllowed(status) {
		buf = append(buf, "Content-Length: "...)
		buf = strconv.AppendInt(buf, int64(len(r.Body)), 10)
		buf = append(buf, "\r\n"...)
	}
	if !keepAlive {
		buf = append(buf, "Connection: close\r\n"...)
	}
	buf = append(buf, "\r\n"...)

	if !headOnly && bodyAllowed(status) {
		buf = append(buf, r.Body...)
	}
	return buf
}

func appendHeader(buf []byte, key, value string) []byte {
	buf = append(buf, key...)
	buf = append(buf, ": "...)
	buf = append(buf, value...)
	return append(buf, "\r\n"...)
}

// bodyAllowed reports whether status may carry a message body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == stdhttp.StatusNoContent, status == stdhttp.StatusNotModified:
		return false
	}
	return true
}

// statusText returns the HTTP status text for the given code
func statusText(code int) string {
	switch code {
	case 200:
		return "OK"
	case 201:
		return "Created"
	case 204:
		return "No Content"
	case 400:
		return "Bad Request"
	case 404:
		return "Not Found"
	case 405:
		return "Method Not Allowed"
	case 413:
		return "Request Entity Too Large"
	case 500:
		return "Internal Server Error"
	case 503:
		return "Service Unavailable"
	}
	if text := stdhttp.StatusText(code); text != "" {
		return text
	}
	return "Unknown"
}
