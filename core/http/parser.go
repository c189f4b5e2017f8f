package http

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"net/http/httputil"
	"strconv"
	"strings"
)

const maxHeaderCount = 100

var (
	ErrInvalidRequest = errors.New("invalid HTTP request")
	ErrBodyTooLarge   = errors.New("request body too large")
)

// ReadRequest reads one request from r. The body is limited to maxBody bytes.
// When w is non-nil, "Expect: 100-continue" is answered on w before reading a
// body that fits within maxBody.
//
// io.EOF is returned when the peer closed the connection before sending a
// request. Once the request line has parsed, ErrBodyTooLarge and
// ErrInvalidRequest come back together with the request, carrying whatever
// was read, so the caller can still answer it. The connection must then be
// closed because the rest of the request is still on the wire.
func ReadRequest(r *bufio.Reader, w io.Writer, maxBody int64) (*Request, error) {
	line, err := readLine(r)
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	req := AcquireRequest()
	if err := parseRequestLine(req, line); err != nil {
		ReleaseRequest(req)
		return nil, err
	}

	if err := parseHeaders(req, r); err != nil {
		if errors.Is(err, ErrInvalidRequest) {
			return req, err
		}
		ReleaseRequest(req)
		return nil, err
	}

	if err := readBody(req, r, w, maxBody); err != nil {
		if errors.Is(err, ErrBodyTooLarge) || errors.Is(err, ErrInvalidRequest) {
			req.Body = req.Body[:0]
			return req, err
		}
		ReleaseRequest(req)
		return nil, err
	}

	return req, nil
}

var continueLine = []byte("HTTP/1.1 100 Continue\r\n\r\n")

// sendContinue writes the interim 100 response when the client waits for it.
func sendContinue(req *Request, w io.Writer) error {
	if w == nil || req.Proto != "HTTP/1.1" {
		return nil
	}
	if !strings.EqualFold(strings.TrimSpace(req.Header.Get("Expect")), "100-continue") {
		return nil
	}
	_, err := w.Write(continueLine)
	return err
}

// readLine returns one line without its CRLF. The returned slice is only
// valid until the next read from r.
func readLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadSlice('\n')
	if err != nil {
		if errors.Is(err, bufio.ErrBufferFull) {
			return nil, ErrInvalidRequest
		}
		return line, err
	}
	line = line[:len(line)-1]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	return line, nil
}

// parseRequestLine parses METHOD SP TARGET SP PROTO.
func parseRequestLine(req *Request, line []byte) error {
	sp1 := bytes.IndexByte(line, ' ')
	if sp1 <= 0 {
		return ErrInvalidRequest
	}
	sp2 := bytes.IndexByte(line[sp1+1:], ' ')
	if sp2 <= 0 {
		return ErrInvalidRequest
	}
	sp2 += sp1 + 1

	method := line[:sp1]
	for _, c := range method {
		if c < 'A' || c > 'Z' {
			return ErrInvalidRequest
		}
	}

	target := line[sp1+1 : sp2]
	proto := line[sp2+1:]
	if !bytes.HasPrefix(proto, []byte("HTTP/1.")) || len(proto) != len("HTTP/1.1") {
		return ErrInvalidRequest
	}
	if target[0] != '/' && !(len(target) == 1 && target[0] == '*') {
		return ErrInvalidRequest
	}

	req.Method = string(method)
	req.Proto = string(proto)
	if q := bytes.IndexByte(target, '?'); q >= 0 {
		req.Path = string(target[:q])
		req.RawQuery = string(target[q+1:])
	} else {
		req.Path = string(target)
	}
	return nil
}

// parseHeaders reads header lines up to the blank line.
func parseHeaders(req *Request, r *bufio.Reader) error {
	for n := 0; ; n++ {
		line, err := readLine(r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return io.ErrUnexpectedEOF
			}
			return err
		}
		if len(line) == 0 {
			return nil
		}
		if n >= maxHeaderCount {
			return ErrInvalidRequest
		}

		colon := bytes.IndexByte(line, ':')
		if colon <= 0 {
			return ErrInvalidRequest
		}
		key := string(bytes.TrimSpace(line[:colon]))
		value := string(bytes.TrimSpace(line[colon+1:]))
		req.Header.Add(key, value)
	}
}

// readBody reads a Content-Length or chunked body into req.Body.
func readBody(req *Request, r *bufio.Reader, w io.Writer, maxBody int64) error {
	if te := req.Header.Get("Transfer-Encoding"); te != "" {
		if !strings.EqualFold(strings.TrimSpace(te), "chunked") {
			return ErrInvalidRequest
		}
		if err := sendContinue(req, w); err != nil {
			return err
		}
		return readChunked(req, r, maxBody)
	}

	cl := req.Header.Get("Content-Length")
	if cl == "" {
		req.Body = req.Body[:0]
		return nil
	}

	n, err := strconv.ParseInt(cl, 10, 64)
	if err != nil || n < 0 {
		return ErrInvalidRequest
	}
	if n > maxBody {
		return ErrBodyTooLarge
	}
	if n > 0 {
		if err := sendContinue(req, w); err != nil {
			return err
		}
	}

	if int64(cap(req.Body)) < n {
		req.Body = make([]byte, n)
	} else {
		req.Body = req.Body[:n]
	}
	if _, err := io.ReadFull(r, req.Body); err != nil {
		return io.ErrUnexpectedEOF
	}
	return nil
}

func readChunked(req *Request, r *bufio.Reader, maxBody int64) error {
	buf := bytes.NewBuffer(req.Body[:0])
	n, err := buf.ReadFrom(io.LimitReader(httputil.NewChunkedReader(r), maxBody+1))
	if err != nil {
		return ErrInvalidRequest
	}
	if n > maxBody {
		return ErrBodyTooLarge
	}
	req.Body = buf.Bytes()
	req.Header.Del("Transfer-Encoding")
	req.Header.Set("Content-Length", strconv.FormatInt(n, 10))

	// Discard the trailer section.
	for {
		line, err := readLine(r)
		if err != nil {
			return io.ErrUnexpectedEOF
		}
		if len(line) == 0 {
			return nil
		}
	}
}
