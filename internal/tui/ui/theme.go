package ui

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

// Theme holds the colors of the chat UI.
type Theme struct {
	BgColor           tcell.Color
	FgColor           tcell.Color
	BorderColor       tcell.Color
	TitleColor        tcell.Color
	TableHeaderFg     tcell.Color
	TableCursorFg     tcell.Color
	TableCursorBg     tcell.Color
	CrumbActiveFg     tcell.Color
	CrumbActiveBg     tcell.Color
	CrumbInactiveFg   tcell.Color
	CrumbInactiveBg   tcell.Color
	MenuKeyColor      tcell.Color
	CounterColor      tcell.Color
	OwnColor          tcell.Color
	PartnerColor      tcell.Color
	NoticeColor       tcell.Color
	LinkUpColor       tcell.Color
	LinkDownColor     tcell.Color
	FlashInfoColor    tcell.Color
	FlashWarnColor    tcell.Color
	FlashErrColor     tcell.Color
	PromptBorderColor tcell.Color
}

// DefaultTheme returns the dark theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:           tcell.ColorBlack,
		FgColor:           tcell.ColorSilver,
		BorderColor:       tcell.ColorTeal,
		TitleColor:        tcell.ColorAqua,
		TableHeaderFg:     tcell.ColorWhite,
		TableCursorFg:     tcell.ColorBlack,
		TableCursorBg:     tcell.ColorTeal,
		CrumbActiveFg:     tcell.ColorBlack,
		CrumbActiveBg:     tcell.ColorAqua,
		CrumbInactiveFg:   tcell.ColorBlack,
		CrumbInactiveBg:   tcell.ColorTeal,
		MenuKeyColor:      tcell.ColorDodgerBlue,
		CounterColor:      tcell.ColorPapayaWhip,
		OwnColor:          tcell.ColorLimeGreen,
		PartnerColor:      tcell.ColorAqua,
		NoticeColor:       tcell.ColorGray,
		LinkUpColor:       tcell.ColorLimeGreen,
		LinkDownColor:     tcell.ColorOrangeRed,
		FlashInfoColor:    tcell.ColorNavajoWhite,
		FlashWarnColor:    tcell.ColorOrange,
		FlashErrColor:     tcell.ColorOrangeRed,
		PromptBorderColor: tcell.ColorDodgerBlue,
	}
}

// Tag returns c as a tview color tag value.
func Tag(c tcell.Color) string {
	return fmt.Sprintf("#%06x", c.Hex())
}
