package keys

import (
	"slices"
	"testing"

	"github.com/gdamore/tcell/v2"
)

func TestPageBindingShadowsGlobal(t *testing.T) {
	r := NewRegistry()
	var fired []string
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'c', Description: "c:global", Handler: func() { fired = append(fired, "global") }})
	r.AddPage("tenants", &Action{Key: tcell.KeyRune, Rune: 'c', Description: "c:connect", Handler: func() { fired = append(fired, "page") }})

	ev := tcell.NewEventKey(tcell.KeyRune, 'c', tcell.ModNone)
	if !r.HandleEvent("tenants", ev) {
		t.Fatal("no binding matched")
	}
	if !r.HandleEvent("qr", ev) {
		t.Fatal("global binding did not match on another page")
	}
	if !slices.Equal(fired, []string{"page", "global"}) {
		t.Errorf("fired = %v", fired)
	}
}

func TestSpecialKeys(t *testing.T) {
	r := NewRegistry()
	hit := false
	r.AddPage("qr", &Action{Key: tcell.KeyEscape, Handler: func() { hit = true }})

	if r.HandleEvent("qr", tcell.NewEventKey(tcell.KeyRune, 'x', tcell.ModNone)) {
		t.Error("rune matched an escape binding")
	}
	r.HandleEvent("qr", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone))
	if !hit {
		t.Error("escape binding not triggered")
	}
}

func TestHintsOrder(t *testing.T) {
	r := NewRegistry()
	r.AddGlobal(&Action{Key: tcell.KeyRune, Rune: 'q', Description: "q:quit", Visible: true})
	r.AddPage("tenants", &Action{Key: tcell.KeyRune, Rune: 'c', Description: "c:connect", Visible: true})
	r.AddPage("tenants", &Action{Key: tcell.KeyEnter, Description: "enter", Visible: false})
	r.AddPage("tenants", &Action{Key: tcell.KeyRune, Rune: 'x', Description: "x:close", Visible: true})

	got := r.Hints("tenants")
	if !slices.Equal(got, []string{"c:connect", "x:close", "q:quit"}) {
		t.Errorf("hints = %v", got)
	}
}
