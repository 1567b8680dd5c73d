package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/classroom.space/internal/platform/requestctx"
	roomsgrpc "github.com/louisbranch/classroom.space/internal/services/rooms/api/grpc"
	"github.com/louisbranch/classroom.space/internal/services/rooms/identity"
	gogrpc "google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
)

func testTokenConfig() identity.Config {
	return identity.Config{
		Issuer:   "classroom-test",
		Audience: "rooms",
		Secret:   bytes.Repeat([]byte("k"), identity.MinSecretBytes),
	}
}

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		HTTPAddr: "127.0.0.1:0",
		GRPCAddr: "127.0.0.1:0",
		DBPath:   filepath.Join(t.TempDir(), "nested", "rooms.db"),
		Seed:     true,
		Token:    testTokenConfig(),
	}
}

func mintToken(t *testing.T, who requestctx.Identity) string {
	t.Helper()
	issuer, err := identity.NewIssuer(testTokenConfig())
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	token, err := issuer.Issue(who, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// waitForServing dials addr and polls the health service until service
// reports SERVING.
func waitForServing(t *testing.T, addr, service string) *gogrpc.ClientConn {
	t.Helper()
	conn, err := gogrpc.NewClient(addr, gogrpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	client := grpc_health_v1.NewHealthClient(conn)
	deadline := time.Now().Add(5 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		response, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		cancel()
		if err == nil && response.GetStatus() == grpc_health_v1.HealthCheckResponse_SERVING {
			return conn
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s not serving at %s: status=%v err=%v", service, addr, response.GetStatus(), err)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestNewServerRequiresAddresses(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.HTTPAddr = " "
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for missing http address")
	}
	cfg = testConfig(t)
	cfg.GRPCAddr = ""
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for missing grpc address")
	}
}

func TestNewServerRejectsWeakTokenSecret(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Token.Secret = []byte("short")
	if _, err := NewServer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for short token secret")
	}
}

func TestServerServesSeededRoomsAndHealth(t *testing.T) {
	t.Parallel()

	server, err := NewServer(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.ListenAndServe(ctx)
	}()

	teacherToken := mintToken(t, requestctx.Identity{
		UserID: "teacher-rivera",
		Name:   "Ms. Rivera",
		Role:   "teacher",
	})
	conn := waitForServing(t, server.GRPCAddr(), roomsgrpc.ServiceName)
	callCtx, callCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer callCancel()
	callCtx = metadata.AppendToOutgoingContext(callCtx, "authorization", "Bearer "+teacherToken)
	var grpcRooms roomsgrpc.ListRoomsResponse
	if err := conn.Invoke(callCtx, "/"+roomsgrpc.ServiceName+"/ListRooms", &roomsgrpc.ListRoomsRequest{}, &grpcRooms,
		gogrpc.CallContentSubtype(roomsgrpc.ContentSubtype)); err != nil {
		t.Fatalf("grpc list rooms: %v", err)
	}
	if len(grpcRooms.Rooms) != 2 {
		t.Fatalf("grpc rooms = %d, want 2 seeded rooms", len(grpcRooms.Rooms))
	}

	req, err := http.NewRequest(http.MethodGet, "http://"+server.HTTPAddr()+"/api/rooms", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+teacherToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var body struct {
		Rooms []struct {
			ID string `json:"id"`
		} `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode rooms: %v", err)
	}
	if len(body.Rooms) != 2 {
		t.Fatalf("rooms = %d, want 2 seeded rooms", len(body.Rooms))
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("listen and serve: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop after cancel")
	}
}

func TestSeedingIsSkippedOnRestart(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	first, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("first server: %v", err)
	}
	first.Close()
	first.httpListener.Close()
	first.grpcListener.Close()

	second, err := NewServer(context.Background(), cfg)
	if err != nil {
		t.Fatalf("second server: %v", err)
	}
	defer second.Close()
	defer second.httpListener.Close()
	defer second.grpcListener.Close()

	count, err := second.store.CountRooms(context.Background())
	if err != nil {
		t.Fatalf("count rooms: %v", err)
	}
	if count != 2 {
		t.Fatalf("rooms = %d, want 2", count)
	}
}

func TestOpenStoreFailsFastOnBadPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	start := time.Now()
	// A directory cannot be opened as a database file.
	if _, err := openStore(context.Background(), dir, time.Minute); err == nil {
		t.Fatal("expected error opening a directory as a store")
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("open took %s, want a permanent failure without retries", elapsed)
	}
}

func TestCloseIsSafeOnNil(t *testing.T) {
	t.Parallel()

	var server *Server
	server.Close()
	if err := server.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected error for nil server")
	}
}
