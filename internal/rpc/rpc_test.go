package rpc

import (
	"context"
	"errors"
	"io"
	"net"
	"reflect"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

func TestCodecRegistered(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	if c == nil {
		t.Fatal("relay codec not registered")
	}
	var out TenantRequest
	if err := c.Unmarshal(nil, &out); err != nil {
		t.Errorf("empty payload: %v", err)
	}
	b, err := c.Marshal(&Empty{})
	if err != nil || len(b) != 0 {
		t.Errorf("Marshal(Empty) = %x, %v; want no bytes", b, err)
	}
}

func TestCodecWritesProtobuf(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	b, err := c.Marshal(&Rule{ID: "r1", TenantID: "acme", FromJID: "a@g.us", ToJID: "b@g.us"})
	if err != nil {
		t.Fatal(err)
	}

	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		t.Fatalf("payload is not a protobuf Struct: %v", err)
	}
	if got := s.Fields["from_jid"].GetStringValue(); got != "a@g.us" {
		t.Errorf("from_jid = %q, want a@g.us", got)
	}
}

func TestCodecRoundTrip(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	at := time.Date(2026, 3, 1, 12, 30, 0, 123000000, time.UTC)
	img := "https://pps.example/g1.jpg"

	tests := []struct {
		name string
		in   any
		out  any
	}{
		{"rule", &Rule{ID: "r1", TenantID: "acme", FromJID: "a@g.us", ToJID: "b@g.us", Timestamp: 1772368200123}, &Rule{}},
		{"health", &HealthResponse{Status: "ok", UptimeSec: 86400 * 400, Tenants: 3, Connected: 2, PID: 4242}, &HealthResponse{}},
		{"status", &StatusResponse{TenantID: "acme", State: "OPEN", IsConnected: true, LastConnected: &at}, &StatusResponse{}},
		{"groups", &ListGroupsResponse{Groups: []Group{
			{JID: "g1@g.us", Subject: "Ops", ImageURL: &img, Participants: []Participant{{JID: "p@s.whatsapp.net", IsAdmin: true}}},
			{JID: "g2@g.us", PendingPfpFetch: true},
		}}, &ListGroupsResponse{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := c.Marshal(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if err := c.Unmarshal(b, tt.out); err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(tt.in, tt.out) {
				t.Errorf("round trip = %+v, want %+v", tt.out, tt.in)
			}
		})
	}
}

func TestCodecPassesProtoMessages(t *testing.T) {
	c := encoding.GetCodec(CodecName)
	b, err := c.Marshal(wrapperspb.String("hello"))
	if err != nil {
		t.Fatal(err)
	}
	var out wrapperspb.StringValue
	if err := c.Unmarshal(b, &out); err != nil {
		t.Fatal(err)
	}
	if out.GetValue() != "hello" {
		t.Errorf("value = %q, want hello", out.GetValue())
	}
}

// stubServer answers a few calls; the rest report Unimplemented.
type stubServer struct {
	RelayServer
	updates []TenantUpdate
}

func (s *stubServer) CreateSession(_ context.Context, req *TenantRequest) (*CreateSessionResponse, error) {
	if req.TenantID == "" {
		return nil, status.Error(codes.InvalidArgument, "tenant id required")
	}
	return &CreateSessionResponse{Result: "qr", Value: "data:image/png;base64,AA=="}, nil
}

func (s *stubServer) SaveRules(_ context.Context, req *SaveRulesRequest) (*SaveRulesResponse, error) {
	resp := &SaveRulesResponse{}
	for _, r := range req.Rules {
		resp.Results = append(resp.Results, RuleResult{Rule: r, Status: RuleCreated})
	}
	return resp, nil
}

func (s *stubServer) Health(context.Context, *Empty) (*HealthResponse, error) {
	return &HealthResponse{Status: "ok", Tenants: 2}, nil
}

func (s *stubServer) WatchTenant(req *TenantRequest, stream WatchTenantServer) error {
	for _, u := range s.updates {
		u.TenantID = req.TenantID
		if err := stream.Send(&u); err != nil {
			return err
		}
	}
	return nil
}

func startStub(t *testing.T, srv RelayServer) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterRelayServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return NewClient(conn)
}

func TestUnaryRoundTrip(t *testing.T) {
	c := startStub(t, &stubServer{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	resp, err := c.CreateSession(ctx, "acme")
	if err != nil {
		t.Fatalf("CreateSession error = %v", err)
	}
	if resp.Result != "qr" || resp.Value == "" {
		t.Errorf("resp = %+v", resp)
	}

	results, err := c.SaveRules(ctx, []Rule{{TenantID: "acme", FromJID: "a@g.us", ToJID: "b@g.us"}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Status != RuleCreated || results[0].Rule.FromJID != "a@g.us" {
		t.Errorf("results = %+v", results)
	}

	h, err := c.Health(ctx)
	if err != nil || h.Status != "ok" || h.Tenants != 2 {
		t.Errorf("health = %+v, %v", h, err)
	}
}

func TestUnaryStatusErrors(t *testing.T) {
	c := startStub(t, &stubServer{})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.CreateSession(ctx, "")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestWatchTenantStream(t *testing.T) {
	srv := &stubServer{updates: []TenantUpdate{
		{Kind: "qr", Value: "data:image/png;base64,AA=="},
		{Kind: "status", Value: "connected"},
	}}
	c := startStub(t, srv)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	w, err := c.WatchTenant(ctx, "acme")
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for {
		u, err := w.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Recv error = %v", err)
		}
		if u.TenantID != "acme" {
			t.Errorf("tenant = %q", u.TenantID)
		}
		got = append(got, u.Value)
	}
	if len(got) != 2 || got[1] != "connected" {
		t.Errorf("values = %v", got)
	}
}
