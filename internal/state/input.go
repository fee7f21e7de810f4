package state

import "unicode/utf8"

// InputState is the single-line text editor backing the input box: text,
// a byte-offset cursor, and submitted-line history.
type InputState struct {
	Text         string
	Cursor       int
	History      []string
	HistoryIndex int // -1 when editing new text
}

func NewInputState() InputState {
	return InputState{HistoryIndex: -1}
}

// InsertRune inserts r at the cursor and advances past it.
func (in *InputState) InsertRune(r rune) {
	in.Text = in.Text[:in.Cursor] + string(r) + in.Text[in.Cursor:]
	in.Cursor += utf8.RuneLen(r)
}

// DeleteBack removes the rune before the cursor (Backspace).
func (in *InputState) DeleteBack() {
	if in.Cursor == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(in.Text[:in.Cursor])
	in.Text = in.Text[:in.Cursor-size] + in.Text[in.Cursor:]
	in.Cursor -= size
}

// DeleteForward removes the rune after the cursor (Delete).
func (in *InputState) DeleteForward() {
	if in.Cursor >= len(in.Text) {
		return
	}
	_, size := utf8.DecodeRuneInString(in.Text[in.Cursor:])
	in.Text = in.Text[:in.Cursor] + in.Text[in.Cursor+size:]
}

func (in *InputState) MoveLeft() {
	if in.Cursor == 0 {
		return
	}
	_, size := utf8.DecodeLastRuneInString(in.Text[:in.Cursor])
	in.Cursor -= size
}

func (in *InputState) MoveRight() {
	if in.Cursor >= len(in.Text) {
		return
	}
	_, size := utf8.DecodeRuneInString(in.Text[in.Cursor:])
	in.Cursor += size
}

func (in *InputState) MoveHome() { in.Cursor = 0 }
func (in *InputState) MoveEnd()  { in.Cursor = len(in.Text) }

// DeleteWordBack removes the word before the cursor (Ctrl+W).
func (in *InputState) DeleteWordBack() {
	if in.Cursor == 0 {
		return
	}
	pos := in.Cursor
	for pos > 0 && in.Text[pos-1] == ' ' {
		pos--
	}
	for pos > 0 && in.Text[pos-1] != ' ' {
		pos--
	}
	in.Text = in.Text[:pos] + in.Text[in.Cursor:]
	in.Cursor = pos
}

// TakeText extracts the current line, resets the editor, and records the
// line in history if non-empty.
func (in *InputState) TakeText() string {
	text := in.Text
	in.Text = ""
	in.Cursor = 0
	in.HistoryIndex = -1
	if text != "" {
		in.History = append(in.History, text)
	}
	return text
}

// HistoryUp recalls the previous submitted line.
func (in *InputState) HistoryUp() {
	if len(in.History) == 0 {
		return
	}
	switch {
	case in.HistoryIndex < 0:
		in.HistoryIndex = len(in.History) - 1
	case in.HistoryIndex > 0:
		in.HistoryIndex--
	default:
		return
	}
	in.Text = in.History[in.HistoryIndex]
	in.Cursor = len(in.Text)
}

// HistoryDown recalls the next submitted line, or clears the editor when
// moving past the newest entry.
func (in *InputState) HistoryDown() {
	if in.HistoryIndex < 0 {
		return
	}
	if in.HistoryIndex+1 < len(in.History) {
		in.HistoryIndex++
		in.Text = in.History[in.HistoryIndex]
		in.Cursor = len(in.Text)
		return
	}
	in.HistoryIndex = -1
	in.Text = ""
	in.Cursor = 0
}
