// Package tui is the relay monitor: a tenant table with live status and an
// in-terminal QR view for pairing.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/matheus3301/wprelay/internal/tui/keys"
	"github.com/matheus3301/wprelay/internal/tui/model"
	"github.com/matheus3301/wprelay/internal/tui/ui"
	"github.com/matheus3301/wprelay/internal/tui/views"
	"github.com/rivo/tview"
)

const (
	pageTenants = "tenants"
	pageQR      = "qr"

	refreshInterval = 3 * time.Second
	callTimeout     = 70 * time.Second
)

// App is the monitor application shell.
type App struct {
	app       *tview.Application
	pages     *tview.Pages
	monitor   *model.Monitor
	registry  *keys.Registry
	statusBar *views.StatusBar
	list      *views.TenantList
	qrView    *views.QRView
	ctx       context.Context
	cancel    context.CancelFunc

	// Only touched on the UI goroutine.
	watchTenant string
	watchCancel context.CancelFunc
}

// NewApp creates the monitor.
func NewApp(relay model.Relay) *App {
	ctx, cancel := context.WithCancel(context.Background())
	theme := ui.DefaultTheme()

	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		monitor:   model.NewMonitor(relay),
		registry:  keys.NewRegistry(),
		statusBar: views.NewStatusBar(theme),
		list:      views.NewTenantList(theme),
		qrView:    views.NewQRView(theme),
		ctx:       ctx,
		cancel:    cancel,
	}

	a.setupBindings()
	a.setupLayout()
	return a
}

func (a *App) setupBindings() {
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'q',
		Description: "q:quit", Visible: true,
		Handler: a.Stop,
	})
	a.registry.AddGlobal(&keys.Action{
		Key: tcell.KeyRune, Rune: 'r',
		Description: "r:refresh", Visible: true,
		Handler: func() { go a.refresh() },
	})

	a.registry.AddPage(pageTenants, &keys.Action{
		Key: tcell.KeyEnter,
		Description: "enter:pair", Visible: true,
		Handler: func() {
			if id := a.list.Selected(); id != "" {
				a.openQR(id)
			}
		},
	})
	a.registry.AddPage(pageTenants, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Description: "c:connect", Visible: true,
		Handler: func() {
			if id := a.list.Selected(); id != "" {
				a.connect(id)
			}
		},
	})
	a.registry.AddPage(pageTenants, &keys.Action{
		Key: tcell.KeyRune, Rune: 'x',
		Description: "x:close", Visible: true,
		Handler: func() {
			if id := a.list.Selected(); id != "" {
				a.closeSession(id)
			}
		},
	})

	a.registry.AddPage(pageQR, &keys.Action{
		Key: tcell.KeyEscape,
		Description: "esc:back", Visible: true,
		Handler: a.showTenants,
	})
	a.registry.AddPage(pageQR, &keys.Action{
		Key: tcell.KeyRune, Rune: 'c',
		Description: "c:new QR", Visible: true,
		Handler: func() { a.connect(a.watchTenant) },
	})
}

func (a *App) setupLayout() {
	a.pages.AddPage(pageTenants, a.list, true, true)
	a.pages.AddPage(pageQR, a.qrView, true, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)
	a.app.SetRoot(root, true)
	a.statusBar.SetHints(a.registry.Hints(pageTenants))

	a.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		page, _ := a.pages.GetFrontPage()
		if a.registry.HandleEvent(page, event) {
			return nil
		}
		return event
	})
}

// refresh reloads the tenant table; safe to call from any goroutine.
func (a *App) refresh() {
	ctx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := a.monitor.Refresh(ctx); err != nil {
		a.monitor.Flash.Err(fmt.Errorf("refresh: %w", err))
		a.app.QueueUpdateDraw(func() {
			a.statusBar.SetHealth(nil)
			a.statusBar.SetFlash(a.monitor.Flash.Get())
		})
		return
	}
	a.app.QueueUpdateDraw(func() {
		a.list.Update(a.monitor.Tenants())
		a.statusBar.SetHealth(a.monitor.Health())
		a.statusBar.SetFlash(a.monitor.Flash.Get())
	})
}

func (a *App) connect(id string) {
	if id == "" {
		return
	}
	a.monitor.Flash.Info("connecting " + id + "...")
	a.statusBar.SetFlash(a.monitor.Flash.Get())
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, callTimeout)
		defer cancel()
		resp, err := a.monitor.Relay.CreateSession(ctx, id)
		if err != nil {
			a.monitor.Flash.Err(fmt.Errorf("connect %s: %w", id, err))
		} else {
			a.monitor.Flash.Info(fmt.Sprintf("%s: %s", id, resp.Result))
		}
		a.refresh()
	}()
}

func (a *App) closeSession(id string) {
	go func() {
		ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
		defer cancel()
		if err := a.monitor.Relay.CloseSession(ctx, id); err != nil {
			a.monitor.Flash.Err(fmt.Errorf("close %s: %w", id, err))
		} else {
			a.monitor.Flash.Info(id + " closed")
		}
		a.refresh()
	}()
}

// openQR switches to the pairing page and follows the tenant's stream.
func (a *App) openQR(id string) {
	a.stopWatch()
	ctx, cancel := context.WithCancel(a.ctx)
	a.watchTenant = id
	a.watchCancel = cancel

	a.qrView.SetTenant(id)
	a.pages.SwitchToPage(pageQR)
	a.app.SetFocus(a.qrView)
	a.statusBar.SetHints(a.registry.Hints(pageQR))

	go a.watch(ctx, id)
}

func (a *App) watch(ctx context.Context, id string) {
	w, err := a.monitor.Relay.WatchTenant(ctx, id)
	if err != nil {
		a.app.QueueUpdateDraw(func() { a.qrView.ShowMessage("Watch error: " + err.Error()) })
		return
	}
	for {
		u, err := w.Recv()
		if errors.Is(err, io.EOF) || ctx.Err() != nil {
			return
		}
		if err != nil {
			a.app.QueueUpdateDraw(func() { a.qrView.ShowMessage("Stream error: " + err.Error()) })
			return
		}
		a.app.QueueUpdateDraw(func() { a.qrView.ShowUpdate(u) })
	}
}

func (a *App) stopWatch() {
	if a.watchCancel != nil {
		a.watchCancel()
		a.watchCancel = nil
		a.watchTenant = ""
	}
}

func (a *App) showTenants() {
	a.stopWatch()
	a.pages.SwitchToPage(pageTenants)
	a.app.SetFocus(a.list)
	a.statusBar.SetHints(a.registry.Hints(pageTenants))
}

// Run starts the monitor and blocks until it exits.
func (a *App) Run() error {
	go func() {
		a.refresh()
		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				a.refresh()
			case <-a.ctx.Done():
				return
			}
		}
	}()
	return a.app.Run()
}

// Stop shuts the monitor down.
func (a *App) Stop() {
	a.cancel()
	a.app.Stop()
}
