package app

import "time"

// Events flow from every producer (connection callbacks, transfer
// goroutines, the input reader, the ticker) into one buffered channel.
// The reactor is the sole consumer, which is what lets the session stay
// lock-free.

// KeyKind classifies a decoded terminal key press.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyPageUp
	KeyPageDown
	KeyTab
	KeyEscape
	KeyCtrlW
	KeyCtrlF
	KeyCtrlN
	KeyCtrlP
	KeyCtrlC
)

// KeyEvent is one key press from the input reader. Rune is set only
// for KeyRune.
type KeyEvent struct {
	Kind KeyKind
	Rune rune
}

// TickEvent drives time-based work: pending rejoins and presence polls.
type TickEvent struct {
	Now time.Time
}
