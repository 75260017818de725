package rpc

import "time"

// Empty is used where a call carries no fields.
type Empty struct{}

// TenantRequest addresses one tenant.
type TenantRequest struct {
	TenantID string `json:"tenant_id"`
}

// CreateSessionResponse carries the first result of opening a session:
// a QR data URL, a pairing code, "open" or "already_live".
type CreateSessionResponse struct {
	Result string `json:"result"`
	Value  string `json:"value,omitempty"`
}

type SendMessageRequest struct {
	TenantID string `json:"tenant_id"`
	To       string `json:"to"`
	Text     string `json:"text"`
}

type SendMessageResponse struct {
	MessageID string `json:"message_id"`
}

// QRResponse is the tenant's current QR data URL or pairing code.
type QRResponse struct {
	Kind  string    `json:"kind"`
	Value string    `json:"value"`
	At    time.Time `json:"at"`
}

type StatusResponse struct {
	TenantID         string     `json:"tenant_id"`
	State            string     `json:"state"`
	IsConnected      bool       `json:"is_connected"`
	LastConnected    *time.Time `json:"last_connected,omitempty"`
	LastDisconnected *time.Time `json:"last_disconnected,omitempty"`
}

type IsConnectedResponse struct {
	Connected bool `json:"connected"`
}

type PairingCodeRequest struct {
	TenantID string `json:"tenant_id"`
	Phone    string `json:"phone"`
}

type PairingCodeResponse struct {
	Code string `json:"code"`
}

// Tenant is a stored tenant profile.
type Tenant struct {
	TenantID   string `json:"tenant_id"`
	Name       string `json:"name"`
	Number     string `json:"number"`
	Avatar     string `json:"avatar,omitempty"`
	IsLoggedIn bool   `json:"is_logged_in"`
	IsValid    bool   `json:"is_valid"`
}

type Participant struct {
	JID          string `json:"jid"`
	IsAdmin      bool   `json:"is_admin,omitempty"`
	IsSuperAdmin bool   `json:"is_super_admin,omitempty"`
}

type Group struct {
	JID             string        `json:"jid"`
	Subject         string        `json:"subject"`
	Topic           string        `json:"topic,omitempty"`
	Owner           string        `json:"owner,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	Announce        bool          `json:"announce"`
	Locked          bool          `json:"locked"`
	IsCommunity     bool          `json:"is_community"`
	ImageURL        *string       `json:"image_url"`
	PendingPfpFetch bool          `json:"pending_pfp_fetch"`
	Participants    []Participant `json:"participants"`
}

type ListGroupsResponse struct {
	Groups []Group `json:"groups"`
}

// Rule is a forwarding rule. ID and Timestamp are assigned on save when empty.
type Rule struct {
	ID              string `json:"id"`
	TenantID        string `json:"tenant_id"`
	FromJID         string `json:"from_jid"`
	ToJID           string `json:"to_jid"`
	FromDisplayName string `json:"from_display_name,omitempty"`
	ToDisplayName   string `json:"to_display_name,omitempty"`
	Timestamp       int64  `json:"timestamp"`
}

type SaveRulesRequest struct {
	Rules []Rule `json:"rules"`
}

// Rule save outcomes.
const (
	RuleCreated   = "created"
	RuleDuplicate = "duplicate"
	RuleInvalid   = "invalid"
)

type RuleResult struct {
	Rule   Rule   `json:"rule"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type SaveRulesResponse struct {
	Results []RuleResult `json:"results"`
}

type ListRulesResponse struct {
	Rules []Rule `json:"rules"`
}

// RuleRequest addresses a rule by id. An empty TenantID matches any tenant.
type RuleRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	ID       string `json:"id"`
}

type RuleResponse struct {
	Rule Rule `json:"rule"`
}

type TenantSummary struct {
	TenantID    string `json:"tenant_id"`
	State       string `json:"state"`
	IsConnected bool   `json:"is_connected"`
	Name        string `json:"name,omitempty"`
	Number      string `json:"number,omitempty"`
	IsValid     bool   `json:"is_valid"`
}

type ListTenantsResponse struct {
	Tenants []TenantSummary `json:"tenants"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	UptimeSec int64  `json:"uptime_sec"`
	Tenants   int    `json:"tenants"`
	Connected int    `json:"connected"`
	PID       int    `json:"pid"`
}

// TenantUpdate is one value on a WatchTenant stream.
type TenantUpdate struct {
	TenantID string    `json:"tenant_id"`
	Kind     string    `json:"kind"`
	Value    string    `json:"value"`
	At       time.Time `json:"at"`
}
