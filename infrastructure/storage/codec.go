package storage

import (
	"alumni-chat/contract"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// encode marshals document fields as a protobuf Struct.
func encode(fields map[string]any) ([]byte, error) {
	s, err := structpb.NewStruct(contract.NormalizeFields(fields))
	if err != nil {
		return nil, fmt.Errorf("encode fields: %w", err)
	}
	return proto.Marshal(s)
}

func decode(data []byte) (map[string]any, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return s.AsMap(), nil
}

// resolveSentinels replaces every ServerTimestamp value with now.
func resolveSentinels(fields map[string]any, now int64) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && s == contract.ServerTimestamp {
			out[k] = now
			continue
		}
		out[k] = v
	}
	return out
}
