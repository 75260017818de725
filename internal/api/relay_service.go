// Package api implements the wprelay.v1.Relay gRPC service on top of the
// session orchestrator and the record store.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/matheus3301/wprelay/internal/bus"
	"github.com/matheus3301/wprelay/internal/groups"
	"github.com/matheus3301/wprelay/internal/layout"
	"github.com/matheus3301/wprelay/internal/orchestrator"
	"github.com/matheus3301/wprelay/internal/protocol"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/status"
	"github.com/matheus3301/wprelay/internal/store"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Sessions is the orchestrator surface the service needs.
type Sessions interface {
	CreateSession(ctx context.Context, tenantID string) (orchestrator.Result, error)
	RequestPairingCode(ctx context.Context, tenantID, phone string) (string, error)
	CloseSession(ctx context.Context, tenantID string) error
	Logout(ctx context.Context, tenantID string) error
	Send(ctx context.Context, tenantID, to string, content protocol.Content) (string, error)
	Status(tenantID string) (status.ConnectionStatus, bool)
	IsConnected(tenantID string) bool
	State(tenantID string) status.State
	Pairing(tenantID string) (status.Update, bool)
	Watch(tenantID string, bufSize int) (<-chan bus.Event, func())
	Profile(ctx context.Context, tenantID string) (*store.TenantProfile, error)
	Groups(ctx context.Context, tenantID string) ([]groups.Record, error)
	Tenants(ctx context.Context) ([]orchestrator.TenantInfo, error)
}

// Rules is the forwarding rule store.
type Rules interface {
	CreateRule(ctx context.Context, r *store.ForwardingRule) error
	ListRules(ctx context.Context, tenantID string) ([]store.ForwardingRule, error)
	GetRule(ctx context.Context, tenantID, id string) (*store.ForwardingRule, error)
	DeleteRule(ctx context.Context, tenantID, id string) error
}

// RelayService implements rpc.RelayServer.
type RelayService struct {
	sessions  Sessions
	rules     Rules
	logger    *zap.Logger
	startedAt time.Time
	pid       int
}

var _ rpc.RelayServer = (*RelayService)(nil)

// NewRelayService creates the service.
func NewRelayService(sessions Sessions, rules Rules, pid int, logger *zap.Logger) *RelayService {
	return &RelayService{
		sessions:  sessions,
		rules:     rules,
		logger:    logger,
		startedAt: time.Now(),
		pid:       pid,
	}
}

func requireTenant(id string) error {
	if err := layout.ValidateTenantID(id); err != nil {
		return grpcstatus.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

// toStatus maps domain errors onto gRPC status codes.
func (s *RelayService) toStatus(op string, err error) error {
	code := codes.Internal
	switch {
	case errors.Is(err, layout.ErrInvalidTenantID),
		errors.Is(err, orchestrator.ErrInvalidPhoneNumber),
		errors.Is(err, store.ErrInvalidRule):
		code = codes.InvalidArgument
	case errors.Is(err, orchestrator.ErrAlreadyConnected),
		errors.Is(err, orchestrator.ErrNoActiveSession),
		errors.Is(err, orchestrator.ErrNoGroups),
		errors.Is(err, protocol.ErrNotConnected):
		code = codes.FailedPrecondition
	case errors.Is(err, orchestrator.ErrAuthRejected):
		code = codes.Unauthenticated
	case errors.Is(err, orchestrator.ErrSessionClosed):
		code = codes.Aborted
	case errors.Is(err, orchestrator.ErrTenantNotFound), errors.Is(err, store.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, store.ErrDuplicateRule):
		code = codes.AlreadyExists
	case errors.Is(err, orchestrator.ErrShuttingDown):
		code = codes.Unavailable
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	}
	if code == codes.Internal {
		s.logger.Error("request failed", zap.String("op", op), zap.Error(err))
	}
	return grpcstatus.Errorf(code, "%s: %v", op, err)
}
