// Package ui holds the monitor's color theme.
package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds color constants for the monitor.
type Theme struct {
	BgColor        tcell.Color
	FgColor        tcell.Color
	BorderColor    tcell.Color
	TitleColor     tcell.Color
	TableHeaderFg  tcell.Color
	TableCursorFg  tcell.Color
	TableCursorBg  tcell.Color
	ConnectedColor tcell.Color
	PendingColor   tcell.Color
	FailedColor    tcell.Color
	FlashInfoColor tcell.Color
	FlashErrColor  tcell.Color
	StatusBarBg    tcell.Color
}

// DefaultTheme returns a k9s-inspired dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:        tcell.ColorBlack,
		FgColor:        tcell.ColorCadetBlue,
		BorderColor:    tcell.ColorDodgerBlue,
		TitleColor:     tcell.ColorFuchsia,
		TableHeaderFg:  tcell.ColorWhite,
		TableCursorFg:  tcell.ColorBlack,
		TableCursorBg:  tcell.ColorAqua,
		ConnectedColor: tcell.ColorLime,
		PendingColor:   tcell.ColorOrange,
		FailedColor:    tcell.ColorOrangeRed,
		FlashInfoColor: tcell.ColorNavajoWhite,
		FlashErrColor:  tcell.ColorOrangeRed,
		StatusBarBg:    tcell.ColorDarkSlateGray,
	}
}

// Tag returns a tview color tag name for c.
func Tag(c tcell.Color) string {
	for name, val := range tcell.ColorNames {
		if val == c {
			return name
		}
	}
	return fmt.Sprintf("#%06x", c.Hex())
}
