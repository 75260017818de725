package api

import (
	"context"
	"time"

	"github.com/matheus3301/wprelay/internal/groups"
	"github.com/matheus3301/wprelay/internal/rpc"
)

func (s *RelayService) GetTenant(ctx context.Context, req *rpc.TenantRequest) (*rpc.Tenant, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	p, err := s.sessions.Profile(ctx, req.TenantID)
	if err != nil {
		return nil, s.toStatus("get tenant", err)
	}
	return &rpc.Tenant{
		TenantID:   p.TenantID,
		Name:       p.Name,
		Number:     p.Number,
		Avatar:     p.Avatar,
		IsLoggedIn: p.IsLoggedIn,
		IsValid:    p.IsValid,
	}, nil
}

func (s *RelayService) ListGroups(ctx context.Context, req *rpc.TenantRequest) (*rpc.ListGroupsResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	records, err := s.sessions.Groups(ctx, req.TenantID)
	if err != nil {
		return nil, s.toStatus("list groups", err)
	}
	resp := &rpc.ListGroupsResponse{Groups: make([]rpc.Group, 0, len(records))}
	for _, r := range records {
		resp.Groups = append(resp.Groups, groupToRPC(r))
	}
	return resp, nil
}

func (s *RelayService) ListTenants(ctx context.Context, _ *rpc.Empty) (*rpc.ListTenantsResponse, error) {
	infos, err := s.sessions.Tenants(ctx)
	if err != nil {
		return nil, s.toStatus("list tenants", err)
	}
	resp := &rpc.ListTenantsResponse{Tenants: make([]rpc.TenantSummary, 0, len(infos))}
	for _, info := range infos {
		sum := rpc.TenantSummary{
			TenantID:    info.TenantID,
			State:       string(info.State),
			IsConnected: info.Connection.IsConnected,
		}
		if p := info.Profile; p != nil {
			sum.Name = p.Name
			sum.Number = p.Number
			sum.IsValid = p.IsValid
		}
		resp.Tenants = append(resp.Tenants, sum)
	}
	return resp, nil
}

func (s *RelayService) Health(ctx context.Context, _ *rpc.Empty) (*rpc.HealthResponse, error) {
	infos, err := s.sessions.Tenants(ctx)
	if err != nil {
		return nil, s.toStatus("health", err)
	}
	resp := &rpc.HealthResponse{
		Status:    "ok",
		UptimeSec: int64(time.Since(s.startedAt) / time.Second),
		Tenants:   len(infos),
		PID:       s.pid,
	}
	for _, info := range infos {
		if info.Connection.IsConnected {
			resp.Connected++
		}
	}
	return resp, nil
}

func groupToRPC(r groups.Record) rpc.Group {
	g := rpc.Group{
		JID:             r.JID,
		Subject:         r.Subject,
		Topic:           r.Topic,
		Owner:           r.Owner,
		CreatedAt:       r.CreatedAt,
		Announce:        r.Announce,
		Locked:          r.Locked,
		IsCommunity:     r.IsCommunity,
		ImageURL:        r.ImageURL,
		PendingPfpFetch: r.PendingPfpFetch,
		Participants:    make([]rpc.Participant, 0, len(r.Participants)),
	}
	for _, p := range r.Participants {
		g.Participants = append(g.Participants, rpc.Participant{
			JID:          p.JID,
			IsAdmin:      p.IsAdmin,
			IsSuperAdmin: p.IsSuperAdmin,
		})
	}
	return g
}
