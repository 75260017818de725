package views

import (
	"strings"
	"testing"

	"github.com/matheus3301/wprelay/internal/qr"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/tui/ui"
)

func TestDisplayText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"thumbs 👍🏻", "thumbs 👍"},
		{"family 👨‍👩‍👧", "family 👨👩👧"},
		{"[red]tag", "[red[]tag"},
	}
	for _, tt := range tests {
		if got := displayText(tt.in); got != tt.want {
			t.Errorf("displayText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTenantListSelection(t *testing.T) {
	tl := NewTenantList(ui.DefaultTheme())
	tl.Update([]rpc.TenantSummary{
		{TenantID: "a", State: "OPEN", IsConnected: true},
		{TenantID: "b", State: "IDLE"},
	})
	tl.Select(2, 0)
	if got := tl.Selected(); got != "b" {
		t.Fatalf("Selected() = %q, want b", got)
	}

	// A refresh that reorders rows keeps the same tenant selected.
	tl.Update([]rpc.TenantSummary{
		{TenantID: "0", State: "IDLE"},
		{TenantID: "a", State: "OPEN"},
		{TenantID: "b", State: "IDLE"},
	})
	if got := tl.Selected(); got != "b" {
		t.Errorf("Selected() after refresh = %q, want b", got)
	}
	if tl.GetRowCount() != 4 {
		t.Errorf("rows = %d, want header + 3", tl.GetRowCount())
	}
}

func TestQRViewRendersDataURL(t *testing.T) {
	url, err := qr.DataURL("2@abc,def")
	if err != nil {
		t.Fatal(err)
	}
	v := NewQRView(ui.DefaultTheme())
	v.SetTenant("acme")
	v.ShowUpdate(&rpc.TenantUpdate{Kind: "qr", Value: url})

	text := v.GetText(true)
	if !strings.Contains(text, "Scan this QR code") || !strings.ContainsAny(text, "█▀▄") {
		t.Errorf("view text = %q", text)
	}

	v.ShowUpdate(&rpc.TenantUpdate{Kind: "pairing_code", Value: "ABCD-EFGH"})
	if !strings.Contains(v.GetText(true), "ABCD-EFGH") {
		t.Errorf("pairing code not shown: %q", v.GetText(true))
	}
}
