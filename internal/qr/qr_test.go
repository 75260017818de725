package qr

import (
	"encoding/base64"
	"strings"
	"testing"

	qrcode "github.com/skip2/go-qrcode"
)

func TestDataURL(t *testing.T) {
	url, err := DataURL("2@abc,def,ghi")
	if err != nil {
		t.Fatal(err)
	}
	payload, ok := strings.CutPrefix(url, "data:image/png;base64,")
	if !ok {
		t.Fatalf("missing data URL prefix: %.40s", url)
	}
	png, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		t.Fatal(err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Error("payload is not a PNG")
	}
}

func TestTerminal(t *testing.T) {
	out := Terminal("2@abc,def,ghi")
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 10 {
		t.Fatalf("got %d lines, want a full QR block", len(lines))
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("no block characters rendered")
	}
}

func TestModulesRoundTrip(t *testing.T) {
	content := "2@abc,def,ghi"
	url, err := DataURL(content)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Modules(url)
	if err != nil {
		t.Fatal(err)
	}

	code, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		t.Fatal(err)
	}
	code.DisableBorder = true
	want := code.Bitmap()

	if len(got) != len(want) {
		t.Fatalf("got %d rows, want %d", len(got), len(want))
	}
	for y := range want {
		for x := range want[y] {
			if got[y][x] != want[y][x] {
				t.Fatalf("module (%d,%d) = %v, want %v", x, y, got[y][x], want[y][x])
			}
		}
	}
}

func TestTerminalFromDataURL(t *testing.T) {
	url, err := DataURL("2@abc,def,ghi")
	if err != nil {
		t.Fatal(err)
	}
	out, err := TerminalFromDataURL(url)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.ContainsAny(out, "█▀▄") {
		t.Error("no block characters rendered")
	}

	if _, err := TerminalFromDataURL("ABCD-EFGH"); err == nil {
		t.Error("expected error for a pairing code")
	}
}
