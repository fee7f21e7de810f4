package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt0x6f/driftwood/internal/state"
)

func pressString(s *state.Session, text string) {
	for _, r := range text {
		HandleKey(s, KeyEvent{Kind: KeyRune, Rune: r})
	}
}

func TestTypingAndSubmit(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	pressString(s, "hello")
	assert.Equal(t, "hello", s.Input.Text)

	actions := HandleKey(s, KeyEvent{Kind: KeyEnter})
	require.Len(t, actions, 1)
	assert.Equal(t, "hello", actions[0].(state.SendMessage).Text)
	assert.Empty(t, s.Input.Text)
}

func TestEnterOnBlankLineDoesNothing(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	pressString(s, "   ")
	assert.Empty(t, HandleKey(s, KeyEvent{Kind: KeyEnter}))
}

func TestFocusCyclingAndGlobalKeys(t *testing.T) {
	s, _ := commandSession(t)

	HandleKey(s, KeyEvent{Kind: KeyCtrlF})
	assert.Equal(t, state.FocusServerTree, s.Focus)

	// Typing is ignored outside input focus.
	HandleKey(s, KeyEvent{Kind: KeyRune, Rune: 'x'})
	assert.Empty(t, s.Input.Text)
}

func TestBufferSwitchingKeys(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")
	s.SetActive(state.StatusKey(0))

	HandleKey(s, KeyEvent{Kind: KeyCtrlN})
	assert.Equal(t, state.ChannelKey(0, "#go"), s.Active)
	HandleKey(s, KeyEvent{Kind: KeyCtrlP})
	assert.Equal(t, state.StatusKey(0), s.Active)
}

func TestCtrlCQuits(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleKey(s, KeyEvent{Kind: KeyCtrlC})

	require.Len(t, actions, 1)
	assert.IsType(t, state.Quit{}, actions[0])
	assert.True(t, s.ShouldQuit)
}

func TestHistoryKeys(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	pressString(s, "first line")
	HandleKey(s, KeyEvent{Kind: KeyEnter})

	HandleKey(s, KeyEvent{Kind: KeyUp})
	assert.Equal(t, "first line", s.Input.Text)
	HandleKey(s, KeyEvent{Kind: KeyDown})
	assert.Empty(t, s.Input.Text)
}

func TestScrollingClamps(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")
	for i := 0; i < 5; i++ {
		s.AddMessage(s.Active, s.NewMessage("a", "line", state.KindNormal))
	}

	HandleKey(s, KeyEvent{Kind: KeyPageUp})
	buf := s.Buffers[s.Active]
	assert.Equal(t, 4, buf.ScrollOffset, "clamped to history length")

	HandleKey(s, KeyEvent{Kind: KeyPageDown})
	assert.Equal(t, 0, buf.ScrollOffset)
}

func TestNickCompletionAtLineStart(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")
	srv.AddChannelUser("#go", "alice", state.PrefixNone)
	srv.AddChannelUser("#go", "albert", state.PrefixNone)

	pressString(s, "ali")
	HandleKey(s, KeyEvent{Kind: KeyTab})

	assert.Equal(t, "alice: ", s.Input.Text)
	assert.Equal(t, len("alice: "), s.Input.Cursor)
}

func TestNickCompletionMidLine(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")
	srv.AddChannelUser("#go", "alice", state.PrefixNone)

	pressString(s, "thanks ali")
	HandleKey(s, KeyEvent{Kind: KeyTab})

	assert.Equal(t, "thanks alice ", s.Input.Text)
}

func TestNickCompletionNoMatchLeavesLine(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")
	srv.AddChannelUser("#go", "alice", state.PrefixNone)

	pressString(s, "zz")
	HandleKey(s, KeyEvent{Kind: KeyTab})

	assert.Equal(t, "zz", s.Input.Text)
}
