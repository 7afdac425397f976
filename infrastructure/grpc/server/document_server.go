package server

import (
	"alumni-chat/auth"
	"alumni-chat/contract"
	"alumni-chat/errors"
	"alumni-chat/infrastructure/grpc/wire"
	"alumni-chat/observability"
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// DocumentServer exposes the document store to remote clients.
// Every call requires a session; the interceptor puts it in the context.
type DocumentServer struct {
	log      *slog.Logger
	store    contract.DocumentStore
	searcher contract.TextSearcher
}

func NewDocumentServer(log *slog.Logger, store contract.DocumentStore, searcher contract.TextSearcher) *DocumentServer {
	return &DocumentServer{log: log, store: store, searcher: searcher}
}

// Register adds the service to s.
func (d *DocumentServer) Register(s *grpc.Server) {
	s.RegisterService(&serviceDesc, d)
}

type unaryMethod func(d *DocumentServer, ctx context.Context, req *structpb.Struct) (map[string]any, error)

var serviceDesc = grpc.ServiceDesc{
	ServiceName: wire.ServiceName,
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		unary(wire.MethodAppend, (*DocumentServer).append),
		unary(wire.MethodGet, (*DocumentServer).get),
		unary(wire.MethodSet, (*DocumentServer).set),
		unary(wire.MethodUpdate, (*DocumentServer).update),
		unary(wire.MethodDelete, (*DocumentServer).delete),
		unary(wire.MethodQuery, (*DocumentServer).query),
		unary(wire.MethodSearch, (*DocumentServer).search),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    wire.MethodSubscribe,
		Handler:       subscribeHandler,
		ServerStreams: true,
	}},
}

func unary(name string, method unaryMethod) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}
			handler := func(ctx context.Context, req any) (any, error) {
				return srv.(*DocumentServer).handle(ctx, name, method, req.(*structpb.Struct))
			}
			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: wire.FullMethod(name)}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func (d *DocumentServer) handle(ctx context.Context, name string, method unaryMethod, req *structpb.Struct) (*structpb.Struct, error) {
	start := time.Now()
	defer func() {
		observability.RPCDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	if _, err := auth.SessionFromContext(ctx).RequireUserID(); err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	res, err := method(d, ctx, req)
	if err != nil {
		d.log.Debug("Document call failed", "method", name, "error", err)
		return nil, errors.MapToGRPCError(err)
	}
	out, err := wire.Request(res)
	if err != nil {
		return nil, errors.MapToGRPCError(err)
	}
	return out, nil
}

func (d *DocumentServer) append(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	id, err := d.store.Append(ctx, wire.String(req, "collection"), wire.Fields(req, "fields"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (d *DocumentServer) get(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	doc, err := d.store.Get(ctx, wire.String(req, "path"))
	if err != nil {
		return nil, err
	}
	return wire.DocumentValue(doc), nil
}

func (d *DocumentServer) set(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	return map[string]any{}, d.store.Set(ctx, wire.String(req, "path"), wire.Fields(req, "fields"))
}

func (d *DocumentServer) update(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	return map[string]any{}, d.store.Update(ctx, wire.String(req, "path"), wire.Fields(req, "fields"))
}

func (d *DocumentServer) delete(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	return map[string]any{}, d.store.Delete(ctx, wire.String(req, "path"))
}

func (d *DocumentServer) query(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	docs, err := d.store.Query(ctx, wire.QueryFrom(req))
	if err != nil {
		return nil, err
	}
	return map[string]any{"documents": wire.DocumentsValue(docs)}, nil
}

func (d *DocumentServer) search(ctx context.Context, req *structpb.Struct) (map[string]any, error) {
	if d.searcher == nil {
		return map[string]any{"documents": []any{}}, nil
	}
	docs, err := d.searcher.Search(ctx, wire.String(req, "collection"), wire.String(req, "terms"), wire.Int(req, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]any{"documents": wire.DocumentsValue(docs)}, nil
}

// subscribeHandler streams a snapshot of the collection after every change
// until the client goes away.
func subscribeHandler(srv any, stream grpc.ServerStream) error {
	d := srv.(*DocumentServer)
	ctx := stream.Context()
	if _, err := auth.SessionFromContext(ctx).RequireUserID(); err != nil {
		return errors.MapToGRPCError(err)
	}
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	collection := wire.String(in, "collection")

	snapshots, err := d.store.Subscribe(ctx, collection)
	if err != nil {
		return errors.MapToGRPCError(err)
	}
	for {
		select {
		case <-ctx.Done():
			d.log.Debug("Subscriber left", "collection", collection)
			return nil
		case snapshot, ok := <-snapshots:
			if !ok {
				return nil
			}
			out, err := wire.Request(wire.SnapshotValue(snapshot))
			if err != nil {
				return errors.MapToGRPCError(err)
			}
			if err := stream.SendMsg(out); err != nil {
				d.log.Warn("Failed to push snapshot", "collection", collection, "error", err)
				return err
			}
		}
	}
}
