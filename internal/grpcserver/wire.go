package grpcserver

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct turns an API body into the google.protobuf.Struct sent on the wire.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("in internal/grpcserver/wire.go/toStruct(): error while `json.Marshal()` calling: %w", err)
	}

	msg := &structpb.Struct{}
	if err := protojson.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("in internal/grpcserver/wire.go/toStruct(): error while `protojson.Unmarshal()` calling: %w", err)
	}

	return msg, nil
}

// fromStruct decodes a received Struct into an API body. The body's own
// JSON rules apply, so is_public and text coercion behave as over HTTP.
func fromStruct(msg *structpb.Struct, v any) error {
	data, err := protojson.Marshal(msg)
	if err != nil {
		return fmt.Errorf("in internal/grpcserver/wire.go/fromStruct(): error while `protojson.Marshal()` calling: %w", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("in internal/grpcserver/wire.go/fromStruct(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}
