package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/tui/model"
	"github.com/matheus3301/wprelay/internal/tui/ui"
	"github.com/rivo/tview"
)

// StatusBar shows daemon health, key hints and the flash message.
type StatusBar struct {
	*tview.TextView
	theme  *ui.Theme
	health *rpc.HealthResponse
	hints  []string
	flash  string
	level  model.FlashLevel
}

// NewStatusBar creates an empty status bar.
func NewStatusBar(theme *ui.Theme) *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(theme.StatusBarBg)
	return &StatusBar{TextView: tv, theme: theme}
}

// SetHealth updates the daemon summary; nil means unreachable.
func (sb *StatusBar) SetHealth(h *rpc.HealthResponse) {
	sb.health = h
	sb.render()
}

// SetHints updates the key hints.
func (sb *StatusBar) SetHints(hints []string) {
	sb.hints = hints
	sb.render()
}

// SetFlash sets the transient message.
func (sb *StatusBar) SetFlash(msg string, level model.FlashLevel) {
	sb.flash = msg
	sb.level = level
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	daemon := fmt.Sprintf("[%s]daemon unreachable[-]", ui.Tag(sb.theme.FailedColor))
	if h := sb.health; h != nil {
		daemon = fmt.Sprintf("relayd pid %d | %d/%d connected | up %s",
			h.PID, h.Connected, h.Tenants, (time.Duration(h.UptimeSec) * time.Second).String())
	}

	line := fmt.Sprintf(" [::b]%s[-:-:-] | %s | %s", daemon, strings.Join(sb.hints, " "), time.Now().Format("15:04"))
	if sb.flash != "" {
		color := sb.theme.FlashInfoColor
		if sb.level == model.FlashErr {
			color = sb.theme.FlashErrColor
		}
		line += fmt.Sprintf(" | [%s]%s[-]", ui.Tag(color), tview.Escape(sb.flash))
	}
	_, _ = fmt.Fprint(sb, line)
}
