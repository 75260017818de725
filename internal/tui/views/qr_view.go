package views

import (
	"fmt"

	"github.com/matheus3301/wprelay/internal/qr"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/tui/ui"
	"github.com/rivo/tview"
)

// QRView follows one tenant's QR/status stream.
type QRView struct {
	*tview.TextView
	theme  *ui.Theme
	tenant string
}

// NewQRView creates the pairing view.
func NewQRView(theme *ui.Theme) *QRView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitleColor(theme.TitleColor)
	return &QRView{TextView: tv, theme: theme}
}

// SetTenant resets the view for a new tenant.
func (v *QRView) SetTenant(id string) {
	v.tenant = id
	v.SetTitle(" Pairing: " + displayText(id) + " ")
	v.ShowMessage("Waiting for the daemon...")
}

// ShowUpdate renders one stream value.
func (v *QRView) ShowUpdate(u *rpc.TenantUpdate) {
	switch u.Kind {
	case "qr":
		block, err := qr.TerminalFromDataURL(u.Value)
		if err != nil {
			v.ShowMessage("Cannot render QR: " + err.Error())
			return
		}
		v.Clear()
		_, _ = fmt.Fprintf(v, "\n  Scan this QR code with WhatsApp:\n\n%s\n  [::d]Waiting for scan...", block)
	case "pairing_code":
		v.Clear()
		_, _ = fmt.Fprintf(v, "\n\n  Enter this code on the phone:\n\n  [::b]%s[::-]", tview.Escape(u.Value))
	case "status":
		v.ShowMessage(v.statusText(u.Value))
	default:
		v.ShowMessage(tview.Escape(u.Kind + ": " + u.Value))
	}
}

// ShowMessage replaces the view content with msg.
func (v *QRView) ShowMessage(msg string) {
	v.Clear()
	_, _ = fmt.Fprintf(v, "\n\n%s", msg)
}

func (v *QRView) statusText(value string) string {
	switch value {
	case "connected":
		return fmt.Sprintf("[%s::b]Connected[-::-]", ui.Tag(v.theme.ConnectedColor))
	case "reconnecting":
		return fmt.Sprintf("[%s]Reconnecting...[-]", ui.Tag(v.theme.PendingColor))
	case "expired":
		return fmt.Sprintf("[%s]QR expired.[-] Press c to request a new one.", ui.Tag(v.theme.FailedColor))
	case "closed":
		return "Session closed."
	default:
		return tview.Escape(value)
	}
}
