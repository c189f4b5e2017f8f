package codec

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// ProtobufCodec implements Protocol Buffers encoding. Values that
// are not proto messages travel as a google.protobuf.Value built from their
// JSON form, so any JSON-encodable response can be negotiated.
type ProtobufCodec struct{}

func (ProtobufCodec) Encode(v any) ([]byte, error) {
	if msg, ok := v.(proto.Message); ok {
		return proto.Marshal(msg)
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var val structpb.Value
	if err := protojson.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("convert %T to google.protobuf.Value: %w", v, err)
	}
	return proto.Marshal(&val)
}

func (ProtobufCodec) Name() string {
	return "protobuf"
}

func (ProtobufCodec) ContentType() string {
	return ContentTypeProtobuf
}
