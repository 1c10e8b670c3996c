package server

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/alfredjeanlab/vaultsync/internal/model"
)

// startGRPC serves the SyncService over an in-memory listener and returns a
// connected client.
func startGRPC(t *testing.T, env *testEnv, token string) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(env.srv, token)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func invokeStruct(ctx context.Context, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, "/"+SyncServiceName+"/"+method, req, out)
	return out, err
}

func TestGRPC_Health(t *testing.T) {
	env := newTestServer(t)
	conn := startGRPC(t, env, "secret")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Health is reachable without a token.
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: SyncServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v, want SERVING", resp.GetStatus())
	}
}

func TestGRPC_HeartbeatAndListLive(t *testing.T) {
	env := newTestServer(t)
	registerDevice(t, env, "dev-a")
	conn := startGRPC(t, env, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out, err := invokeStruct(ctx, conn, "Heartbeat", map[string]any{"deviceId": "dev-a", "itemId": "item-1"})
	if err != nil {
		t.Fatalf("Heartbeat: %v", err)
	}
	if got := out.GetFields()["lastActiveAt"].GetStringValue(); got != t0.Format(time.RFC3339Nano) {
		t.Fatalf("lastActiveAt = %q", got)
	}

	out, err = invokeStruct(ctx, conn, "ListLive", map[string]any{"itemId": "item-1"})
	if err != nil {
		t.Fatalf("ListLive: %v", err)
	}
	if out.GetFields()["count"].GetNumberValue() != 1 {
		t.Fatalf("count = %v, want 1", out.GetFields()["count"])
	}
	viewers := out.GetFields()["viewers"].GetListValue().GetValues()
	if len(viewers) != 1 || viewers[0].GetStringValue() != "dev-a" {
		t.Fatalf("viewers = %v", viewers)
	}
}

func TestGRPC_ErrorCodes(t *testing.T) {
	env := newTestServer(t)
	conn := startGRPC(t, env, "")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := invokeStruct(ctx, conn, "Heartbeat", map[string]any{"deviceId": "ghost", "itemId": "item-1"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("unknown device: got %v, want NotFound", err)
	}

	_, err = invokeStruct(ctx, conn, "Publish", map[string]any{"type": "bogus"})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("unknown type: got %v, want InvalidArgument", err)
	}

	_, err = invokeStruct(ctx, conn, "ListLive", map[string]any{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("missing itemId: got %v, want InvalidArgument", err)
	}
}

func TestGRPC_PublishWithAuth(t *testing.T) {
	env := newTestServer(t)
	conn := startGRPC(t, env, "secret")
	sub := env.srv.Hub().Subscribe()
	defer env.srv.Hub().Unsubscribe(sub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	in := map[string]any{"type": "item-locked", "payload": map[string]any{"id": "item-7"}}
	if _, err := invokeStruct(ctx, conn, "Publish", in); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("without token: got %v, want Unauthenticated", err)
	}

	authed := metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer secret")
	out, err := invokeStruct(authed, conn, "Publish", in)
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if out.GetFields()["delivered"].GetNumberValue() != 1 {
		t.Fatalf("delivered = %v", out.GetFields()["delivered"])
	}

	select {
	case evt := <-sub.Events():
		id, err := evt.ItemID()
		if err != nil || evt.Type != model.EventItemLocked || id != "item-7" {
			t.Fatalf("got %q %s (%v)", evt.Type, evt.Payload, err)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive event")
	}
}
