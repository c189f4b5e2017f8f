// Package codec encodes structured handler responses in the representation the
// client asked for.
package codec

import (
	"encoding/json"
	"mime"
	"strings"
)

// Codec encodes response values.
type Codec interface {
	Encode(v any) ([]byte, error)
	Name() string
	ContentType() string
}

// Content types understood by Negotiate.
const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

var (
	jsonCodec     Codec = JSONCodec{}
	protobufCodec Codec = ProtobufCodec{}
)

// Negotiate picks a codec from an Accept header. JSON is the fallback for
// absent, wildcard or unknown media types.
func Negotiate(accept string) Codec {
	if accept == "" {
		return jsonCodec
	}
	for _, part := range strings.Split(accept, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mediaType {
		case ContentTypeJSON, "*/*", "application/*":
			return jsonCodec
		case ContentTypeProtobuf, "application/protobuf", "application/vnd.google.protobuf":
			return protobufCodec
		}
	}
	return jsonCodec
}

// JSONCodec implements JSON encoding
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) ContentType() string {
	return ContentTypeJSON
}
