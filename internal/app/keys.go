package app

import (
	"strings"

	"github.com/matt0x6f/driftwood/internal/state"
)

// HandleKey routes a key press according to the focused panel and
// returns the actions the dispatcher must carry out.
func HandleKey(s *state.Session, ev KeyEvent) []state.Action {
	// Global bindings work regardless of focus.
	switch ev.Kind {
	case KeyCtrlC:
		s.ShouldQuit = true
		s.QuitMessage = s.Config.Behavior.QuitMessage
		return []state.Action{state.Quit{Message: s.QuitMessage}}
	case KeyCtrlF:
		s.CycleFocus()
		return nil
	case KeyCtrlN:
		s.SelectNextBuffer()
		return nil
	case KeyCtrlP:
		s.SelectPrevBuffer()
		return nil
	}

	switch s.Focus {
	case state.FocusInput:
		return handleInputKey(s, ev)
	case state.FocusMessageArea:
		handleScrollKey(s, ev)
	case state.FocusServerTree:
		handleTreeKey(s, ev)
	case state.FocusUserList:
		// Read-only panel; only the global bindings act here.
	}
	return nil
}

func handleInputKey(s *state.Session, ev KeyEvent) []state.Action {
	in := &s.Input
	switch ev.Kind {
	case KeyRune:
		in.InsertRune(ev.Rune)
	case KeyBackspace:
		in.DeleteBack()
	case KeyDelete:
		in.DeleteForward()
	case KeyLeft:
		in.MoveLeft()
	case KeyRight:
		in.MoveRight()
	case KeyHome:
		in.MoveHome()
	case KeyEnd:
		in.MoveEnd()
	case KeyCtrlW:
		in.DeleteWordBack()
	case KeyUp:
		in.HistoryUp()
	case KeyDown:
		in.HistoryDown()
	case KeyPageUp:
		scrollActive(s, scrollPage)
	case KeyPageDown:
		scrollActive(s, -scrollPage)
	case KeyTab:
		completeNick(s)
	case KeyEscape:
		if s.ChannelBrowser.Visible {
			s.ChannelBrowser.Visible = false
		}
	case KeyEnter:
		text := in.TakeText()
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return HandleInput(s, text)
	}
	return nil
}

const scrollPage = 10

func scrollActive(s *state.Session, delta int) {
	buf := s.Buffers[s.Active]
	if buf == nil {
		return
	}
	buf.ScrollOffset += delta
	if max := len(buf.Messages) - 1; buf.ScrollOffset > max {
		buf.ScrollOffset = max
	}
	if buf.ScrollOffset < 0 {
		buf.ScrollOffset = 0
	}
}

func handleScrollKey(s *state.Session, ev KeyEvent) {
	switch ev.Kind {
	case KeyUp:
		scrollActive(s, 1)
	case KeyDown:
		scrollActive(s, -1)
	case KeyPageUp:
		scrollActive(s, scrollPage)
	case KeyPageDown:
		scrollActive(s, -scrollPage)
	case KeyHome:
		if buf := s.Buffers[s.Active]; buf != nil && len(buf.Messages) > 0 {
			buf.ScrollOffset = len(buf.Messages) - 1
		}
	case KeyEnd:
		scrollActive(s, -1 << 30)
	}
}

func handleTreeKey(s *state.Session, ev KeyEvent) {
	switch ev.Kind {
	case KeyUp:
		s.SelectPrevBuffer()
	case KeyDown:
		s.SelectNextBuffer()
	}
}

// completeNick expands the word before the cursor to a roster nick in
// the active channel. At the start of the line the completion gets a
// ": " suffix, mid-line a plain space.
func completeNick(s *state.Session) {
	if s.Active.Kind != state.KindChannel {
		return
	}
	srv := s.Server(s.Active.ServerID)
	if srv == nil {
		return
	}

	in := &s.Input
	start := in.Cursor
	for start > 0 && in.Text[start-1] != ' ' {
		start--
	}
	partial := in.Text[start:in.Cursor]
	if partial == "" {
		return
	}

	for _, u := range srv.Users[channelForKey(srv, s.Active.Target)] {
		if !strings.HasPrefix(strings.ToLower(u.Nick), strings.ToLower(partial)) {
			continue
		}
		completion := u.Nick
		if start == 0 {
			completion += ": "
		} else {
			completion += " "
		}
		in.Text = in.Text[:start] + completion + in.Text[in.Cursor:]
		in.Cursor = start + len(completion)
		return
	}
}

// channelForKey recovers the roster key's original casing, since buffer
// targets are case-folded but rosters are keyed as the server sent them.
func channelForKey(srv *state.ServerState, folded string) string {
	for ch := range srv.Users {
		if strings.EqualFold(ch, folded) {
			return ch
		}
	}
	return folded
}
