package api

import (
	"context"
	"errors"

	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// SaveRules stores each rule independently. Invalid and duplicate rules are
// reported per rule and do not fail the batch.
func (s *RelayService) SaveRules(ctx context.Context, req *rpc.SaveRulesRequest) (*rpc.SaveRulesResponse, error) {
	resp := &rpc.SaveRulesResponse{Results: make([]rpc.RuleResult, 0, len(req.Rules))}
	for _, in := range req.Rules {
		r := ruleFromRPC(in)
		res := rpc.RuleResult{Status: rpc.RuleCreated}

		err := layout.ValidateTenantID(r.TenantID)
		if err == nil {
			err = s.rules.CreateRule(ctx, &r)
		}
		switch {
		case err == nil:
		case errors.Is(err, layout.ErrInvalidTenantID), errors.Is(err, store.ErrInvalidRule):
			res.Status = rpc.RuleInvalid
			res.Error = err.Error()
		case errors.Is(err, store.ErrDuplicateRule):
			res.Status = rpc.RuleDuplicate
			res.Error = err.Error()
		default:
			return nil, s.toStatus("save rule", err)
		}
		res.Rule = ruleToRPC(r)
		resp.Results = append(resp.Results, res)
	}
	s.logger.Info("forwarding rules saved", zap.Int("count", len(req.Rules)))
	return resp, nil
}

func (s *RelayService) ListRules(ctx context.Context, req *rpc.TenantRequest) (*rpc.ListRulesResponse, error) {
	if err := requireTenant(req.TenantID); err != nil {
		return nil, err
	}
	rules, err := s.rules.ListRules(ctx, req.TenantID)
	if err != nil {
		return nil, s.toStatus("list rules", err)
	}
	resp := &rpc.ListRulesResponse{Rules: make([]rpc.Rule, 0, len(rules))}
	for _, r := range rules {
		resp.Rules = append(resp.Rules, ruleToRPC(r))
	}
	return resp, nil
}

func (s *RelayService) GetRule(ctx context.Context, req *rpc.RuleRequest) (*rpc.RuleResponse, error) {
	if req.ID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "rule id is required")
	}
	r, err := s.rules.GetRule(ctx, req.TenantID, req.ID)
	if err != nil {
		return nil, s.toStatus("get rule", err)
	}
	if r == nil {
		return nil, grpcstatus.Errorf(codes.NotFound, "rule %s not found", req.ID)
	}
	return &rpc.RuleResponse{Rule: ruleToRPC(*r)}, nil
}

func (s *RelayService) DeleteRule(ctx context.Context, req *rpc.RuleRequest) (*rpc.Empty, error) {
	if req.ID == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "rule id is required")
	}
	if err := s.rules.DeleteRule(ctx, req.TenantID, req.ID); err != nil {
		return nil, s.toStatus("delete rule", err)
	}
	return &rpc.Empty{}, nil
}

func ruleFromRPC(r rpc.Rule) store.ForwardingRule {
	return store.ForwardingRule{
		ID:              r.ID,
		TenantID:        r.TenantID,
		FromJID:         protocol.NormalizeJID(r.FromJID),
		ToJID:           protocol.NormalizeJID(r.ToJID),
		FromDisplayName: r.FromDisplayName,
		ToDisplayName:   r.ToDisplayName,
		Timestamp:       r.Timestamp,
	}
}

func ruleToRPC(r store.ForwardingRule) rpc.Rule {
	return rpc.Rule{
		ID:              r.ID,
		TenantID:        r.TenantID,
		FromJID:         r.FromJID,
		ToJID:           r.ToJID,
		FromDisplayName: r.FromDisplayName,
		ToDisplayName:   r.ToDisplayName,
		Timestamp:       r.Timestamp,
	}
}
