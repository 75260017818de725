package rpc

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls a Relay server over an established connection.
type Client struct {
	conn grpc.ClientConnInterface
}

// Dial connects to the daemon's unix socket.
func Dial(socketPath string, opts ...grpc.DialOption) (*Client, *grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)
	conn, err := grpc.NewClient("unix://"+socketPath, opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewClient(conn), conn, nil
}

// NewClient wraps conn.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

func invoke[Resp any](ctx context.Context, c *Client, method string, req any) (*Resp, error) {
	out := new(Resp)
	if err := c.conn.Invoke(ctx, fullMethod(method), req, out, grpc.CallContentSubtype(CodecName)); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateSession(ctx context.Context, tenantID string) (*CreateSessionResponse, error) {
	return invoke[CreateSessionResponse](ctx, c, "CreateSession", &TenantRequest{TenantID: tenantID})
}

func (c *Client) CloseSession(ctx context.Context, tenantID string) error {
	_, err := invoke[Empty](ctx, c, "CloseSession", &TenantRequest{TenantID: tenantID})
	return err
}

func (c *Client) Logout(ctx context.Context, tenantID string) error {
	_, err := invoke[Empty](ctx, c, "Logout", &TenantRequest{TenantID: tenantID})
	return err
}

func (c *Client) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	return invoke[SendMessageResponse](ctx, c, "SendMessage", req)
}

func (c *Client) GetQR(ctx context.Context, tenantID string) (*QRResponse, error) {
	return invoke[QRResponse](ctx, c, "GetQR", &TenantRequest{TenantID: tenantID})
}

func (c *Client) GetStatus(ctx context.Context, tenantID string) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c, "GetStatus", &TenantRequest{TenantID: tenantID})
}

func (c *Client) IsConnected(ctx context.Context, tenantID string) (bool, error) {
	resp, err := invoke[IsConnectedResponse](ctx, c, "IsConnected", &TenantRequest{TenantID: tenantID})
	if err != nil {
		return false, err
	}
	return resp.Connected, nil
}

func (c *Client) GeneratePairingCode(ctx context.Context, tenantID, phone string) (string, error) {
	resp, err := invoke[PairingCodeResponse](ctx, c, "GeneratePairingCode", &PairingCodeRequest{TenantID: tenantID, Phone: phone})
	if err != nil {
		return "", err
	}
	return resp.Code, nil
}

func (c *Client) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	return invoke[Tenant](ctx, c, "GetTenant", &TenantRequest{TenantID: tenantID})
}

func (c *Client) ListGroups(ctx context.Context, tenantID string) ([]Group, error) {
	resp, err := invoke[ListGroupsResponse](ctx, c, "ListGroups", &TenantRequest{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return resp.Groups, nil
}

func (c *Client) SaveRules(ctx context.Context, rules []Rule) ([]RuleResult, error) {
	resp, err := invoke[SaveRulesResponse](ctx, c, "SaveRules", &SaveRulesRequest{Rules: rules})
	if err != nil {
		return nil, err
	}
	return resp.Results, nil
}

func (c *Client) ListRules(ctx context.Context, tenantID string) ([]Rule, error) {
	resp, err := invoke[ListRulesResponse](ctx, c, "ListRules", &TenantRequest{TenantID: tenantID})
	if err != nil {
		return nil, err
	}
	return resp.Rules, nil
}

func (c *Client) GetRule(ctx context.Context, tenantID, id string) (*Rule, error) {
	resp, err := invoke[RuleResponse](ctx, c, "GetRule", &RuleRequest{TenantID: tenantID, ID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Rule, nil
}

func (c *Client) DeleteRule(ctx context.Context, tenantID, id string) error {
	_, err := invoke[Empty](ctx, c, "DeleteRule", &RuleRequest{TenantID: tenantID, ID: id})
	return err
}

func (c *Client) ListTenants(ctx context.Context) ([]TenantSummary, error) {
	resp, err := invoke[ListTenantsResponse](ctx, c, "ListTenants", &Empty{})
	if err != nil {
		return nil, err
	}
	return resp.Tenants, nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	return invoke[HealthResponse](ctx, c, "Health", &Empty{})
}

// WatchTenant opens the tenant's QR/status stream. Cancel ctx to stop it.
func (c *Client) WatchTenant(ctx context.Context, tenantID string) (*Watcher, error) {
	stream, err := c.conn.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchTenant"), grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&TenantRequest{TenantID: tenantID}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &Watcher{stream: stream}, nil
}

// Watcher receives WatchTenant updates.
type Watcher struct {
	stream grpc.ClientStream
}

// Recv blocks for the next update. It returns io.EOF when the server ends
// the stream.
func (w *Watcher) Recv() (*TenantUpdate, error) {
	u := new(TenantUpdate)
	if err := w.stream.RecvMsg(u); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return u, nil
}
