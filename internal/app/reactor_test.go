package app

import (
	"testing"
	"time"

	"github.com/ergochat/irc-go/ircmsg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matt0x6f/driftwood/internal/dcc"
	"github.com/matt0x6f/driftwood/internal/irc"
	"github.com/matt0x6f/driftwood/internal/state"
)

func line(source, command string, params ...string) ircmsg.Message {
	return ircmsg.MakeMessage(nil, source, command, params...)
}

func testReactor(t *testing.T) (*Reactor, *state.Session, *state.ServerState) {
	t.Helper()
	s, srv := commandSession(t)
	queue := make(chan interface{}, 64)
	r := New(s, queue, irc.NewManager(queue), dcc.NewManager(queue), nil, nil, nil)
	return r, s, srv
}

func TestKickRejoinReleasedOnlyAfterDelay(t *testing.T) {
	r, s, srv := testReactor(t)
	s.Config.Behavior.AutoRejoinOnKick = true
	s.Config.Behavior.RejoinDelaySecs = 3

	base := s.Now()
	srv.Channels = []string{"#go"}
	srv.Users["#go"] = nil
	s.EnsureBuffer(state.ChannelKey(0, "#go"))

	r.handle(irc.LineEvent{ServerID: 0, Msg: line("op!u@h", "KICK", "#go", "driftwood", "bye")})
	require.Len(t, s.PendingRejoins, 1)
	assert.Equal(t, base.Add(3*time.Second), s.PendingRejoins[0].At)

	// Ticks before the deadline leave the rejoin pending.
	r.handle(TickEvent{Now: base.Add(1 * time.Second)})
	assert.Len(t, s.PendingRejoins, 1)
	r.handle(TickEvent{Now: base.Add(2900 * time.Millisecond)})
	assert.Len(t, s.PendingRejoins, 1)

	// At the deadline the rejoin fires exactly once.
	r.handle(TickEvent{Now: base.Add(3 * time.Second)})
	assert.Empty(t, s.PendingRejoins)
	r.handle(TickEvent{Now: base.Add(4 * time.Second)})
	assert.Empty(t, s.PendingRejoins)
}

func TestTickPollsIsonAtInterval(t *testing.T) {
	r, s, _ := testReactor(t)
	s.AddNotify("alice")
	base := s.Now()

	r.handle(TickEvent{Now: base.Add(isonInterval)})
	first := s.LastIsonCheck
	assert.Equal(t, base.Add(isonInterval), first)

	// A tick inside the interval does not reset the clock.
	r.handle(TickEvent{Now: base.Add(isonInterval + 10*time.Second)})
	assert.Equal(t, first, s.LastIsonCheck)

	r.handle(TickEvent{Now: base.Add(2 * isonInterval)})
	assert.Equal(t, base.Add(2*isonInterval), s.LastIsonCheck)
}

func TestTickWithoutNotifySkipsIson(t *testing.T) {
	r, s, _ := testReactor(t)
	base := s.Now()

	r.handle(TickEvent{Now: base.Add(isonInterval)})

	assert.True(t, s.LastIsonCheck.IsZero())
}

func TestConnectedEventMovesStatus(t *testing.T) {
	r, s, srv := testReactor(t)
	srv.Status = state.StatusConnecting

	r.handle(irc.ConnectedEvent{ServerID: 0})

	assert.Equal(t, state.StatusConnected, srv.Status)
	buf := s.Buffers[state.StatusKey(0)]
	assert.Contains(t, buf.Messages[len(buf.Messages)-1].Text, "Connected")
}

func TestDisconnectClearsChannels(t *testing.T) {
	r, _, srv := testReactor(t)
	srv.Channels = []string{"#go"}
	srv.Users["#go"] = []state.ChannelUser{{Nick: "alice"}}

	r.handle(irc.DisconnectedEvent{ServerID: 0, Reason: "ping timeout"})

	assert.Equal(t, state.StatusDisconnected, srv.Status)
	assert.Empty(t, srv.Channels)
	assert.Empty(t, srv.Users)
}

func TestDccProgressAndCompletion(t *testing.T) {
	r, s, _ := testReactor(t)
	tr := &state.DccTransfer{ID: 7, ServerID: 0, Filename: "f.bin", Size: 100, Status: state.TransferActive}
	s.Transfers = append(s.Transfers, tr)

	r.handle(dcc.ProgressEvent{TransferID: 7, Received: 50})
	assert.Equal(t, uint64(50), tr.Received)

	r.handle(dcc.CompletedEvent{TransferID: 7, Path: "/tmp/f.bin", Received: 100})
	assert.Equal(t, state.TransferCompleted, tr.Status)
	assert.Equal(t, uint64(100), tr.Received)
}

func TestDccFailureRecordsError(t *testing.T) {
	r, s, _ := testReactor(t)
	tr := &state.DccTransfer{ID: 8, ServerID: 0, Status: state.TransferActive}
	s.Transfers = append(s.Transfers, tr)

	r.handle(dcc.FailedEvent{TransferID: 8, Err: assert.AnError})

	assert.Equal(t, state.TransferFailed, tr.Status)
	assert.NotEmpty(t, tr.Error)
}

func TestDispatchErrorBecomesBufferLine(t *testing.T) {
	r, s, _ := testReactor(t)

	// No live connection exists, so sending fails and the failure
	// surfaces as an error line instead of being swallowed.
	r.dispatchAll([]state.Action{state.SendMessage{ServerID: 0, Target: "#go", Text: "hi"}})

	buf := s.Buffers[s.Active]
	require.NotEmpty(t, buf.Messages)
	assert.Equal(t, state.KindError, buf.Messages[len(buf.Messages)-1].Kind)
}

type fakeKeychain struct {
	stored map[string]string
}

func (f *fakeKeychain) NickPassword(network string) (string, error) {
	return f.stored[network], nil
}

func (f *fakeKeychain) StoreNickPassword(network, password string) error {
	if f.stored == nil {
		f.stored = make(map[string]string)
	}
	if password == "" {
		delete(f.stored, network)
		return nil
	}
	f.stored[network] = password
	return nil
}

func TestStoreNickPasswordWritesKeychain(t *testing.T) {
	r, s, _ := testReactor(t)
	kc := &fakeKeychain{}
	r.keychain = kc

	r.dispatchAll([]state.Action{state.StoreNickPassword{Network: "libera", Password: "hunter2"}})

	assert.Equal(t, "hunter2", kc.stored["libera"])
	buf := s.Buffers[s.Active]
	assert.Contains(t, buf.Messages[len(buf.Messages)-1].Text, "Stored password")

	r.dispatchAll([]state.Action{state.StoreNickPassword{Network: "libera", Password: ""}})

	_, ok := kc.stored["libera"]
	assert.False(t, ok)
	assert.Contains(t, buf.Messages[len(buf.Messages)-1].Text, "Cleared stored password")
}

func TestStoreNickPasswordWithoutKeychain(t *testing.T) {
	r, s, _ := testReactor(t)

	r.dispatchAll([]state.Action{state.StoreNickPassword{Network: "libera", Password: "hunter2"}})

	buf := s.Buffers[s.Active]
	require.NotEmpty(t, buf.Messages)
	assert.Equal(t, state.KindError, buf.Messages[len(buf.Messages)-1].Kind)
}

func TestConnectServerAllocatesState(t *testing.T) {
	r, s, _ := testReactor(t)
	s.NextServerID = 1

	r.connectServer(state.ConnectServer{Name: "oftc", Host: "127.0.0.1", Port: 1, Nick: "driftwood"})

	srv := s.Server(1)
	require.NotNil(t, srv)
	assert.Equal(t, "oftc", srv.Name)
	assert.Equal(t, state.StatusConnecting, srv.Status)
	require.NotNil(t, s.Buffers[state.StatusKey(1)])
}

func TestConnectServerReusesExistingState(t *testing.T) {
	r, s, srv := testReactor(t)
	srv.Status = state.StatusDisconnected

	r.connectServer(state.ConnectServer{Name: "libera", Host: "127.0.0.1", Port: 1, Nick: "driftwood"})

	assert.Len(t, s.Servers, 1)
	assert.Equal(t, state.StatusConnecting, srv.Status)
}
