package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "wprelay.v1.Relay"

// RelayServer is implemented by the daemon's API layer.
type RelayServer interface {
	CreateSession(context.Context, *TenantRequest) (*CreateSessionResponse, error)
	CloseSession(context.Context, *TenantRequest) (*Empty, error)
	Logout(context.Context, *TenantRequest) (*Empty, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	GetQR(context.Context, *TenantRequest) (*QRResponse, error)
	GetStatus(context.Context, *TenantRequest) (*StatusResponse, error)
	IsConnected(context.Context, *TenantRequest) (*IsConnectedResponse, error)
	GeneratePairingCode(context.Context, *PairingCodeRequest) (*PairingCodeResponse, error)
	GetTenant(context.Context, *TenantRequest) (*Tenant, error)
	ListGroups(context.Context, *TenantRequest) (*ListGroupsResponse, error)
	SaveRules(context.Context, *SaveRulesRequest) (*SaveRulesResponse, error)
	ListRules(context.Context, *TenantRequest) (*ListRulesResponse, error)
	GetRule(context.Context, *RuleRequest) (*RuleResponse, error)
	DeleteRule(context.Context, *RuleRequest) (*Empty, error)
	ListTenants(context.Context, *Empty) (*ListTenantsResponse, error)
	Health(context.Context, *Empty) (*HealthResponse, error)
	WatchTenant(*TenantRequest, WatchTenantServer) error
}

// WatchTenantServer is the server side of a WatchTenant stream.
type WatchTenantServer interface {
	Send(*TenantUpdate) error
	Context() context.Context
}

type watchTenantServer struct {
	grpc.ServerStream
}

func (s *watchTenantServer) Send(u *TenantUpdate) error { return s.SendMsg(u) }

// RegisterRelayServer attaches srv to s.
func RegisterRelayServer(s grpc.ServiceRegistrar, srv RelayServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// ServiceDesc describes wprelay.v1.Relay to grpc.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RelayServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateSession", RelayServer.CreateSession),
		unary("CloseSession", RelayServer.CloseSession),
		unary("Logout", RelayServer.Logout),
		unary("SendMessage", RelayServer.SendMessage),
		unary("GetQR", RelayServer.GetQR),
		unary("GetStatus", RelayServer.GetStatus),
		unary("IsConnected", RelayServer.IsConnected),
		unary("GeneratePairingCode", RelayServer.GeneratePairingCode),
		unary("GetTenant", RelayServer.GetTenant),
		unary("ListGroups", RelayServer.ListGroups),
		unary("SaveRules", RelayServer.SaveRules),
		unary("ListRules", RelayServer.ListRules),
		unary("GetRule", RelayServer.GetRule),
		unary("DeleteRule", RelayServer.DeleteRule),
		unary("ListTenants", RelayServer.ListTenants),
		unary("Health", RelayServer.Health),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchTenant",
			Handler:       watchTenantHandler,
			ServerStreams: true,
		},
	},
	Metadata: "wprelay/v1/relay",
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// unary adapts a typed RelayServer method to a grpc.MethodDesc.
func unary[Req, Resp any](name string, call func(RelayServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(RelayServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(RelayServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchTenantHandler(srv any, stream grpc.ServerStream) error {
	in := new(TenantRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RelayServer).WatchTenant(in, &watchTenantServer{stream})
}
