package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt0x6f/driftwood/internal/config"
	"github.com/matt0x6f/driftwood/internal/state"
)

func commandSession(t *testing.T) (*state.Session, *state.ServerState) {
	t.Helper()
	cfg := config.Default()
	s := state.NewSession(&cfg)
	s.SetClock(func() time.Time { return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC) })
	srv := &state.ServerState{ID: 0, Name: "libera", Host: "irc.libera.chat", Status: state.StatusConnected}
	srv.SetNick("driftwood")
	s.AddServer(srv)
	return s, srv
}

func inChannel(s *state.Session, srv *state.ServerState, channel string) {
	srv.Channels = append(srv.Channels, channel)
	srv.Users[channel] = nil
	s.EnsureBuffer(state.ChannelKey(srv.ID, channel))
	s.SetActive(state.ChannelKey(srv.ID, channel))
}

func TestPlainTextSendsToActiveBuffer(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	actions := HandleInput(s, "hello world")

	require.Len(t, actions, 1)
	assert.Equal(t, state.SendMessage{ServerID: 0, Target: "#go", Text: "hello world"}, actions[0])

	// Own line is echoed locally.
	buf := s.Buffers[state.ChannelKey(0, "#go")]
	require.NotEmpty(t, buf.Messages)
	last := buf.Messages[len(buf.Messages)-1]
	assert.Equal(t, "driftwood", last.Sender)
	assert.Equal(t, "hello world", last.Text)
}

func TestPlainTextInStatusBufferIsRejected(t *testing.T) {
	s, _ := commandSession(t)
	s.SetActive(state.StatusKey(0))

	actions := HandleInput(s, "hello")

	assert.Empty(t, actions)
	buf := s.Buffers[state.StatusKey(0)]
	assert.Equal(t, state.KindError, buf.Messages[len(buf.Messages)-1].Kind)
}

func TestDoubleSlashEscapesCommand(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	actions := HandleInput(s, "//join is an odd thing to say")

	require.Len(t, actions, 1)
	assert.Equal(t, "/join is an odd thing to say", actions[0].(state.SendMessage).Text)
}

func TestJoinCommand(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/join #go")
	require.Len(t, actions, 1)
	assert.Equal(t, state.JoinChannel{ServerID: 0, Channel: "#go"}, actions[0])

	// Bare names get a # prepended.
	actions = HandleInput(s, "/join rust")
	require.Len(t, actions, 1)
	assert.Equal(t, "#rust", actions[0].(state.JoinChannel).Channel)
}

func TestPartDefaultsToActiveChannel(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	actions := HandleInput(s, "/part")
	require.Len(t, actions, 1)
	assert.Equal(t, "#go", actions[0].(state.PartChannel).Channel)

	actions = HandleInput(s, "/part #rust moving on")
	require.Len(t, actions, 1)
	part := actions[0].(state.PartChannel)
	assert.Equal(t, "#rust", part.Channel)
	assert.Equal(t, "moving on", part.Reason)
}

func TestMeCommand(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	actions := HandleInput(s, "/me waves")

	require.Len(t, actions, 1)
	assert.Equal(t, state.SendEmote{ServerID: 0, Target: "#go", Text: "waves"}, actions[0])
	buf := s.Buffers[state.ChannelKey(0, "#go")]
	assert.Equal(t, state.KindAction, buf.Messages[len(buf.Messages)-1].Kind)
}

func TestMsgOpensQueryBuffer(t *testing.T) {
	s, _ := commandSession(t)
	s.SetActive(state.StatusKey(0))

	actions := HandleInput(s, "/msg alice hi there")

	require.Len(t, actions, 1)
	assert.Equal(t, state.SendPrivmsg{ServerID: 0, Target: "alice", Text: "hi there"}, actions[0])
	require.NotNil(t, s.Buffers[state.QueryKey(0, "alice")])
}

func TestQueryActivatesBuffer(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/query alice")

	assert.Empty(t, actions)
	assert.Equal(t, state.QueryKey(0, "alice"), s.Active)
}

func TestServerConnectByName(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/server connect oftc")

	require.Len(t, actions, 1)
	connect := actions[0].(state.ConnectServer)
	assert.Equal(t, "oftc", connect.Name)
	assert.Equal(t, "irc.oftc.net", connect.Host)
	assert.Equal(t, 6697, connect.Port)
	assert.True(t, connect.TLS)
}

func TestServerConnectUnknownName(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/server connect nowhere")

	assert.Empty(t, actions)
}

func TestServerAdd(t *testing.T) {
	s, _ := commandSession(t)

	HandleInput(s, "/server add example irc.example.org 6667 false")

	entry, ok := s.Config.FindServer("example")
	require.True(t, ok)
	assert.Equal(t, "irc.example.org", entry.Host)
	assert.Equal(t, 6667, entry.Port)
	assert.False(t, entry.TLS)
}

func TestServerPassword(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/server password libera hunter2")
	require.Len(t, actions, 1)
	assert.Equal(t, state.StoreNickPassword{Network: "libera", Password: "hunter2"}, actions[0])

	// Omitting the password clears the stored entry.
	actions = HandleInput(s, "/server password libera")
	require.Len(t, actions, 1)
	assert.Equal(t, state.StoreNickPassword{Network: "libera", Password: ""}, actions[0])
}

func TestServerPasswordUnknownServer(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/server password nosuch hunter2")

	assert.Empty(t, actions)
	buf := s.Buffers[s.Active]
	assert.Contains(t, buf.Messages[len(buf.Messages)-1].Text, "Unknown server")
}

func TestDccCommands(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/dcc accept 3")
	require.Len(t, actions, 1)
	assert.Equal(t, state.DccAccept{TransferID: 3}, actions[0])

	actions = HandleInput(s, "/dcc cancel 3")
	require.Len(t, actions, 1)
	assert.Equal(t, state.DccCancel{TransferID: 3}, actions[0])

	assert.Empty(t, HandleInput(s, "/dcc accept notanumber"))
}

func TestModeInChannelShorthand(t *testing.T) {
	s, srv := commandSession(t)
	inChannel(s, srv, "#go")

	actions := HandleInput(s, "/mode +o alice")

	require.Len(t, actions, 1)
	mode := actions[0].(state.SendMode)
	assert.Equal(t, "#go", mode.Target)
	assert.Equal(t, "+o alice", mode.Modes)
}

func TestIgnoreAndNotifyCommands(t *testing.T) {
	s, _ := commandSession(t)

	HandleInput(s, "/ignore Troll")
	assert.True(t, s.IsIgnored("troll"))
	HandleInput(s, "/unignore troll")
	assert.False(t, s.IsIgnored("troll"))

	actions := HandleInput(s, "/notify alice")
	assert.True(t, s.InNotify("alice"))
	require.Len(t, actions, 1)
	assert.Equal(t, []string{"alice"}, actions[0].(state.SendIson).Nicks)

	HandleInput(s, "/unnotify alice")
	assert.False(t, s.InNotify("alice"))
}

func TestListStartsChannelBrowser(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/list")

	require.Len(t, actions, 1)
	assert.Equal(t, state.RequestList{ServerID: 0}, actions[0])
	assert.True(t, s.ChannelBrowser.Loading)
	assert.Equal(t, 0, s.ChannelBrowser.ServerID)
}

func TestQuitCommand(t *testing.T) {
	s, _ := commandSession(t)

	actions := HandleInput(s, "/quit see you")

	require.Len(t, actions, 1)
	assert.Equal(t, state.Quit{Message: "see you"}, actions[0])
	assert.True(t, s.ShouldQuit)
	assert.Equal(t, "see you", s.QuitMessage)
}

func TestUnknownCommandReportsError(t *testing.T) {
	s, _ := commandSession(t)
	s.SetActive(state.StatusKey(0))

	assert.Empty(t, HandleInput(s, "/frobnicate"))
	buf := s.Buffers[state.StatusKey(0)]
	assert.Contains(t, buf.Messages[len(buf.Messages)-1].Text, "Unknown command")
}
