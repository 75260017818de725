// Package rpc defines the wprelay.v1.Relay gRPC service: its message types,
// a protobuf wire codec, the service descriptor and a client.
package rpc

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// CodecName is the content-subtype every Relay call is sent with.
const CodecName = "relay-proto"

func init() {
	encoding.RegisterCodec(structCodec{})
}

// structCodec carries the plain Go messages of this package as protobuf
// google.protobuf.Struct payloads keyed by their json field names. Values
// that already are proto messages are marshaled as they are.
type structCodec struct{}

func (structCodec) Marshal(v any) ([]byte, error) {
	if m, ok := v.(proto.Message); ok {
		return proto.Marshal(m)
	}
	s, err := toStruct(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	return proto.Marshal(s)
}

func (structCodec) Unmarshal(data []byte, v any) error {
	if m, ok := v.(proto.Message); ok {
		return proto.Unmarshal(data, m)
	}
	if len(data) == 0 {
		return nil
	}
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	// Numbers travel as doubles; every field here fits in 53 bits.
	b, err := json.Marshal(s.AsMap())
	if err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("unmarshal %T: %w", v, err)
	}
	return nil
}

func (structCodec) Name() string { return CodecName }

func toStruct(v any) (*structpb.Struct, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		return nil, fmt.Errorf("message is not an object: %w", err)
	}
	return structpb.NewStruct(fields)
}
