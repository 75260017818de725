package store

// TenantProfile is the persisted identity of a tenant's linked account.
type TenantProfile struct {
	TenantID   string
	Name       string
	Number     string
	Avatar     string
	IsValid    bool // credentials were last known authorized
	IsLoggedIn bool // a session is expected to be live
	UpdatedAt  int64
}

// ForwardingRule relays inbound content from FromJID to ToJID for a tenant.
type ForwardingRule struct {
	ID              string
	TenantID        string
	FromJID         string
	ToJID           string
	FromDisplayName string
	ToDisplayName   string
	Timestamp       int64
}
