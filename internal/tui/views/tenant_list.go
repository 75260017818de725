// Package views holds the monitor's tview widgets.
package views

import (
	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wprelay/internal/rpc"
	"github.com/matheus3301/wprelay/internal/tui/ui"
	"github.com/rivo/tview"
)

// TenantList is the tenant table.
type TenantList struct {
	*tview.Table
	theme   *ui.Theme
	tenants []rpc.TenantSummary
}

// NewTenantList creates an empty tenant table.
func NewTenantList(theme *ui.Theme) *TenantList {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetFixed(1, 0)
	table.SetBorder(true).
		SetTitle(" Tenants ").
		SetTitleColor(theme.TitleColor).
		SetBorderColor(theme.BorderColor).
		SetBackgroundColor(theme.BgColor)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.TableCursorFg).
		Background(theme.TableCursorBg))
	return &TenantList{Table: table, theme: theme}
}

var headers = []string{"TENANT", "STATE", "LINK", "NAME", "NUMBER", "CREDS"}

// Update redraws the table and keeps the selected tenant selected.
func (tl *TenantList) Update(tenants []rpc.TenantSummary) {
	selected := tl.Selected()
	tl.tenants = tenants
	tl.Clear()

	for col, h := range headers {
		tl.SetCell(0, col, tview.NewTableCell(" "+h).
			SetSelectable(false).
			SetTextColor(tl.theme.TableHeaderFg))
	}

	for i, t := range tenants {
		row := i + 1
		link, linkColor := "down", tl.theme.FailedColor
		if t.IsConnected {
			link, linkColor = "up", tl.theme.ConnectedColor
		}
		creds, credsColor := "invalid", tl.theme.FailedColor
		if t.IsValid {
			creds, credsColor = "valid", tl.theme.ConnectedColor
		}

		tl.SetCell(row, 0, tview.NewTableCell(" "+displayText(t.TenantID)).SetExpansion(1))
		tl.SetCell(row, 1, tview.NewTableCell(" "+t.State).SetTextColor(tl.stateColor(t.State)))
		tl.SetCell(row, 2, tview.NewTableCell(" "+link).SetTextColor(linkColor))
		tl.SetCell(row, 3, tview.NewTableCell(" "+displayText(t.Name)).SetMaxWidth(30).SetExpansion(2))
		tl.SetCell(row, 4, tview.NewTableCell(" "+t.Number))
		tl.SetCell(row, 5, tview.NewTableCell(" "+creds).SetTextColor(credsColor))

		if t.TenantID == selected {
			tl.Select(row, 0)
		}
	}
}

// Selected returns the tenant id under the cursor, or "".
func (tl *TenantList) Selected() string {
	row, _ := tl.GetSelection()
	idx := row - 1 // header
	if idx >= 0 && idx < len(tl.tenants) {
		return tl.tenants[idx].TenantID
	}
	return ""
}

func (tl *TenantList) stateColor(state string) tcell.Color {
	switch state {
	case "OPEN":
		return tl.theme.ConnectedColor
	case "LOGGED_OUT", "UNAUTHORIZED":
		return tl.theme.FailedColor
	case "IDLE":
		return tl.theme.FgColor
	default:
		return tl.theme.PendingColor
	}
}
