package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// SyncServiceName is the fully-qualified gRPC service name.
const SyncServiceName = "vaultsync.v1.SyncService"

// SyncServiceServer is the gRPC mirror of POST /events, POST /sessions and
// GET /sessions. Requests and responses are google.protobuf.Struct values
// with the same field names as the HTTP JSON bodies.
type SyncServiceServer interface {
	Publish(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Heartbeat(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListLive(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var _ SyncServiceServer = (*SyncServer)(nil)

// NewGRPCServer creates a gRPC server with standard interceptors, registers
// the SyncService, health and reflection, and returns it ready to serve.
func NewGRPCServer(s *SyncServer, authToken string) *grpc.Server {
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			RecoveryInterceptor,
			LoggingInterceptor,
			AuthInterceptor(authToken),
		),
	)

	srv.RegisterService(&syncServiceDesc, s)

	hs := health.NewServer()
	hs.SetServingStatus(SyncServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)

	reflection.Register(srv)
	return srv
}

// Publish handles /vaultsync.v1.SyncService/Publish with
// {"type": string, "payload": any}.
func (s *SyncServer) Publish(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	t := stringField(req, "type")
	if t == "" {
		return nil, status.Error(codes.InvalidArgument, "type is required")
	}
	evt := model.Event{Type: model.EventType(t)}
	if v, ok := req.GetFields()["payload"]; ok {
		data, err := json.Marshal(v.AsInterface())
		if err != nil {
			return nil, status.Errorf(codes.InvalidArgument, "invalid payload: %v", err)
		}
		evt.Payload = data
	}

	n, err := s.Broadcast(ctx, evt)
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{"delivered": n})
}

// Heartbeat handles /vaultsync.v1.SyncService/Heartbeat with
// {"deviceId": string, "itemId": string}.
func (s *SyncServer) Heartbeat(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	sess, err := s.presence.Heartbeat(ctx, stringField(req, "deviceId"), stringField(req, "itemId"))
	if err != nil {
		return nil, grpcError(err)
	}
	return structpb.NewStruct(map[string]any{
		"deviceId":     sess.DeviceID,
		"itemId":       sess.ItemID,
		"lastActiveAt": sess.LastActiveAt.Format(time.RFC3339Nano),
	})
}

// ListLive handles /vaultsync.v1.SyncService/ListLive with {"itemId": string}.
func (s *SyncServer) ListLive(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	itemID := stringField(req, "itemId")
	live, err := s.presence.ListLive(ctx, itemID)
	if err != nil {
		return nil, grpcError(err)
	}
	viewers := make([]any, len(live))
	for i, sess := range live {
		viewers[i] = sess.DeviceID
	}
	return structpb.NewStruct(map[string]any{
		"itemId":  itemID,
		"viewers": viewers,
		"count":   len(live),
	})
}

func stringField(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

// grpcError maps a domain error onto a gRPC status.
func grpcError(err error) error {
	switch {
	case errors.Is(err, model.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, model.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	default:
		return status.Error(codes.Internal, fmt.Sprintf("internal error: %v", err))
	}
}

var syncServiceDesc = grpc.ServiceDesc{
	ServiceName: SyncServiceName,
	HandlerType: (*SyncServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Publish", Handler: unaryStructHandler("Publish", SyncServiceServer.Publish)},
		{MethodName: "Heartbeat", Handler: unaryStructHandler("Heartbeat", SyncServiceServer.Heartbeat)},
		{MethodName: "ListLive", Handler: unaryStructHandler("ListLive", SyncServiceServer.ListLive)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "vaultsync/v1/sync.proto",
}

type structMethod func(SyncServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

// unaryStructHandler builds the grpc.MethodDesc handler for a Struct-in,
// Struct-out method, the same shape protoc-gen-go-grpc emits.
func unaryStructHandler(name string, m structMethod) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	fullMethod := "/" + SyncServiceName + "/" + name
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return m(srv.(SyncServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return m(srv.(SyncServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}
