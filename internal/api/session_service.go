package api

import (
	"context"
	"strings"

	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

const watchBuffer = 64

func (s *RelayService) CreateSession(ctx context.Context, req *rpc.TenantRequest) (*rpc.CreateSessionResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	res, err := s.sessions.CreateSession(ctx, req.TenantID)
	if err != nil {
		return nil, s.toStatus("create session", err)
	}
	return &rpc.CreateSessionResponse{Result: string(res.Kind), Value: res.Value}, nil
}

func (s *RelayService) CloseSession(ctx context.Context, req *rpc.TenantRequest) (*rpc.Empty, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	if err := s.sessions.CloseSession(ctx, req.TenantID); err != nil {
		return nil, s.toStatus("close session", err)
	}
	return &rpc.Empty{}, nil
}

func (s *RelayService) Logout(ctx context.Context, req *rpc.TenantRequest) (*rpc.Empty, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	if err := s.sessions.Logout(ctx, req.TenantID); err != nil {
		return nil, s.toStatus("logout", err)
	}
	return &rpc.Empty{}, nil
}

func (s *RelayService) SendMessage(ctx context.Context, req *rpc.SendMessageRequest) (*rpc.SendMessageResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.To) == "" || req.Text == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "recipient and text are required")
	}
	id, err := s.sessions.Send(ctx, req.TenantID, req.To, protocol.Text{Body: req.Text})
	if err != nil {
		return nil, s.toStatus("send message", err)
	}
	return &rpc.SendMessageResponse{MessageID: id}, nil
}

func (s *RelayService) GetQR(_ context.Context, req *rpc.TenantRequest) (*rpc.QRResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	u, ok := s.sessions.Pairing(req.TenantID)
	if !ok {
		return nil, grpcstatus.Errorf(codes.NotFound, "no QR or pairing code pending for %s", req.TenantID)
	}
	return &rpc.QRResponse{Kind: string(u.Kind), Value: u.Value, At: u.At}, nil
}

func (s *RelayService) GetStatus(_ context.Context, req *rpc.TenantRequest) (*rpc.StatusResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	conn, _ := s.sessions.Status(req.TenantID)
	return &rpc.StatusResponse{
		TenantID:         req.TenantID,
		State:            string(s.sessions.State(req.TenantID)),
		IsConnected:      conn.IsConnected,
		LastConnected:    conn.LastConnected,
		LastDisconnected: conn.LastDisconnected,
	}, nil
}

func (s *RelayService) IsConnected(_ context.Context, req *rpc.TenantRequest) (*rpc.IsConnectedResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	return &rpc.IsConnectedResponse{Connected: s.sessions.IsConnected(req.TenantID)}, nil
}

func (s *RelayService) GeneratePairingCode(ctx context.Context, req *rpc.PairingCodeRequest) (*rpc.PairingCodeResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	code, err := s.sessions.RequestPairingCode(ctx, req.TenantID, req.Phone)
	if err != nil {
		return nil, s.toStatus("generate pairing code", err)
	}
	return &rpc.PairingCodeResponse{Code: code}, nil
}

// WatchTenant streams the latest QR/status value, then every new one, until
// the client goes away.
func (s *RelayService) WatchTenant(req *rpc.TenantRequest, stream rpc.WatchTenantServer) error {
	if err := requireTenant(req.TenantID); err != nil {
		return err
	}
	ch, unsub := s.sessions.Watch(req.TenantID, watchBuffer)
	defer unsub()

	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return nil
			}
			u, ok := evt.Payload.(status.Update)
			if !ok {
				continue
			}
			if err := stream.Send(&rpc.TenantUpdate{
				TenantID: req.TenantID,
				Kind:     string(u.Kind),
				Value:    u.Value,
				At:       u.At,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
