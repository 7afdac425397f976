// Package wire describes the document service exchanged between the server and
// remote clients. Requests and responses are protobuf Structs, so no generated
// code is needed on either side.
package wire

import (
	"alumni-chat/contract"
	"fmt"
	"time"

	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "alumni.v1.DocumentService"

	MethodAppend    = "Append"
	MethodGet       = "Get"
	MethodSet       = "Set"
	MethodUpdate    = "Update"
	MethodDelete    = "Delete"
	MethodQuery     = "Query"
	MethodSearch    = "Search"
	MethodSubscribe = "Subscribe"
)

// FullMethod is the path used on the wire, "/alumni.v1.DocumentService/Append".
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// Request builds a Struct from plain values. Field maps go through
// contract.NormalizeFields first.
func Request(values map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(contract.NormalizeFields(values))
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return s, nil
}

func String(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func Bool(s *structpb.Struct, key string) bool {
	return s.GetFields()[key].GetBoolValue()
}

func Int(s *structpb.Struct, key string) int {
	return int(s.GetFields()[key].GetNumberValue())
}

// Fields returns a nested object as a plain map, empty when absent.
func Fields(s *structpb.Struct, key string) map[string]any {
	nested := s.GetFields()[key].GetStructValue()
	if nested == nil {
		return map[string]any{}
	}
	return nested.AsMap()
}

func DocumentValue(doc contract.Document) map[string]any {
	return map[string]any{"id": doc.ID, "path": doc.Path, "fields": doc.Fields}
}

func DocumentFrom(s *structpb.Struct) contract.Document {
	return contract.Document{ID: String(s, "id"), Path: String(s, "path"), Fields: Fields(s, "fields")}
}

func DocumentsValue(docs []contract.Document) []any {
	return lo.Map(docs, func(doc contract.Document, _ int) any { return DocumentValue(doc) })
}

// DocumentsFrom reads the "documents" list of a response.
func DocumentsFrom(s *structpb.Struct) []contract.Document {
	values := s.GetFields()["documents"].GetListValue().GetValues()
	return lo.Map(values, func(v *structpb.Value, _ int) contract.Document {
		return DocumentFrom(v.GetStructValue())
	})
}

func QueryValue(q contract.Query) map[string]any {
	filters := lo.Map(q.Filters, func(f contract.Filter, _ int) any {
		return map[string]any{"field": f.Field, "op": string(f.Op), "value": f.Value}
	})
	return map[string]any{
		"collection": q.Collection,
		"group":      q.Group,
		"filters":    filters,
		"orderBy":    q.OrderBy,
		"descending": q.Descending,
		"limit":      q.Limit,
	}
}

func QueryFrom(s *structpb.Struct) contract.Query {
	values := s.GetFields()["filters"].GetListValue().GetValues()
	filters := lo.Map(values, func(v *structpb.Value, _ int) contract.Filter {
		f := v.GetStructValue()
		return contract.Where(String(f, "field"), contract.Operator(String(f, "op")), f.GetFields()["value"].AsInterface())
	})
	return contract.Query{
		Collection: String(s, "collection"),
		Group:      Bool(s, "group"),
		Filters:    filters,
		OrderBy:    String(s, "orderBy"),
		Descending: Bool(s, "descending"),
		Limit:      Int(s, "limit"),
	}
}

func SnapshotValue(snapshot contract.Snapshot) map[string]any {
	return map[string]any{
		"collection": snapshot.Collection,
		"at":         snapshot.At.UnixMilli(),
		"documents":  DocumentsValue(snapshot.Documents),
	}
}

func SnapshotFrom(s *structpb.Struct) contract.Snapshot {
	return contract.Snapshot{
		Collection: String(s, "collection"),
		At:         time.UnixMilli(int64(s.GetFields()["at"].GetNumberValue())).UTC(),
		Documents:  DocumentsFrom(s),
	}
}
