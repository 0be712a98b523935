package types

import (
	"encoding/json"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// DecodeStruct copies a google.protobuf.Struct into dst using dst's json tags.
func DecodeStruct(src *structpb.Struct, dst any) error {
	if src == nil {
		src = &structpb.Struct{}
	}
	payload, err := protojson.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, dst)
}

// EncodeStruct renders src as a google.protobuf.Struct using its json tags.
func EncodeStruct(src any) (*structpb.Struct, error) {
	payload, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	out := &structpb.Struct{}
	if err = protojson.Unmarshal(payload, out); err != nil {
		return nil, err
	}
	return out, nil
}
