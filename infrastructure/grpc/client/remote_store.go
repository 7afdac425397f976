package client

import (
	"alumni-chat/contract"
	"alumni-chat/errors"
	"alumni-chat/infrastructure/grpc/wire"
	"context"
	goerrors "errors"
	"io"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	_ contract.DocumentStore = (*RemoteStore)(nil)
	_ contract.TextSearcher  = (*RemoteStore)(nil)
)

// RemoteStore is the DocumentStore seen by the command line client.
// Every call goes to the server; nothing is cached locally.
type RemoteStore struct {
	log  *slog.Logger
	conn grpc.ClientConnInterface
}

func NewRemoteStore(log *slog.Logger, conn grpc.ClientConnInterface) *RemoteStore {
	return &RemoteStore{log: log, conn: conn}
}

func (r *RemoteStore) invoke(ctx context.Context, method string, values map[string]any) (*structpb.Struct, error) {
	in, err := wire.Request(values)
	if err != nil {
		return nil, goerrors.Join(errors.ErrValidationRejected, err)
	}
	out := new(structpb.Struct)
	if err := r.conn.Invoke(ctx, wire.FullMethod(method), in, out); err != nil {
		return nil, errors.FromGRPCError(err)
	}
	return out, nil
}

func (r *RemoteStore) Append(ctx context.Context, collection string, fields map[string]any) (string, error) {
	out, err := r.invoke(ctx, wire.MethodAppend, map[string]any{"collection": collection, "fields": fields})
	if err != nil {
		return "", err
	}
	return wire.String(out, "id"), nil
}

func (r *RemoteStore) Get(ctx context.Context, path string) (contract.Document, error) {
	out, err := r.invoke(ctx, wire.MethodGet, map[string]any{"path": path})
	if err != nil {
		return contract.Document{}, err
	}
	return wire.DocumentFrom(out), nil
}

func (r *RemoteStore) Set(ctx context.Context, path string, fields map[string]any) error {
	_, err := r.invoke(ctx, wire.MethodSet, map[string]any{"path": path, "fields": fields})
	return err
}

func (r *RemoteStore) Update(ctx context.Context, path string, fields map[string]any) error {
	_, err := r.invoke(ctx, wire.MethodUpdate, map[string]any{"path": path, "fields": fields})
	return err
}

func (r *RemoteStore) Delete(ctx context.Context, path string) error {
	_, err := r.invoke(ctx, wire.MethodDelete, map[string]any{"path": path})
	return err
}

func (r *RemoteStore) Query(ctx context.Context, q contract.Query) ([]contract.Document, error) {
	out, err := r.invoke(ctx, wire.MethodQuery, wire.QueryValue(q))
	if err != nil {
		return nil, err
	}
	return wire.DocumentsFrom(out), nil
}

func (r *RemoteStore) Search(ctx context.Context, collection, terms string, limit int) ([]contract.Document, error) {
	out, err := r.invoke(ctx, wire.MethodSearch, map[string]any{"collection": collection, "terms": terms, "limit": limit})
	if err != nil {
		return nil, err
	}
	return wire.DocumentsFrom(out), nil
}

// Subscribe opens a server stream. The channel is closed when ctx is done or
// the stream breaks.
func (r *RemoteStore) Subscribe(ctx context.Context, collection string) (<-chan contract.Snapshot, error) {
	desc := &grpc.StreamDesc{StreamName: wire.MethodSubscribe, ServerStreams: true}
	stream, err := r.conn.NewStream(ctx, desc, wire.FullMethod(wire.MethodSubscribe))
	if err != nil {
		return nil, errors.FromGRPCError(err)
	}
	in, err := wire.Request(map[string]any{"collection": collection})
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, errors.FromGRPCError(err)
	}
	if err := stream.CloseSend(); err != nil {
		return nil, errors.FromGRPCError(err)
	}

	snapshots := make(chan contract.Snapshot)
	go func() {
		defer close(snapshots)
		for {
			out := new(structpb.Struct)
			if err := stream.RecvMsg(out); err != nil {
				if !goerrors.Is(err, io.EOF) && ctx.Err() == nil {
					r.log.Warn("Subscription ended", "collection", collection, "error", errors.FromGRPCError(err))
				}
				return
			}
			select {
			case snapshots <- wire.SnapshotFrom(out):
			case <-ctx.Done():
				return
			}
		}
	}()
	return snapshots, nil
}
