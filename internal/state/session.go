package state

import (
	"net/netip"
	"sort"
	"strings"
	"time"

	"github.com/matt0x6f/driftwood/internal/config"
)

// ConnStatus is the connection lifecycle of a server. Transitions follow
// the strict cycle Disconnected -> Connecting -> Connected -> Disconnected.
type ConnStatus int

const (
	StatusDisconnected ConnStatus = iota
	StatusConnecting
	StatusConnected
)

func (s ConnStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ChannelUser is one roster entry: a nick and its mode prefix.
type ChannelUser struct {
	Nick   string
	Prefix Prefix
}

// ServerState is the runtime state of one live or pending connection.
// Only the reactor goroutine mutates it.
type ServerState struct {
	ID           int
	Name         string
	Host         string
	Port         int
	TLS          bool
	Nick         string
	NickLower    string
	Status       ConnStatus
	Channels     []string
	Users        map[string][]ChannelUser
	Topics       map[string]string
	Away         bool
	AltNicks     []string
	AltNickIndex int
	NickPassword string
}

// SetStatus applies a lifecycle transition, ignoring any move that would
// skip a step in the cycle. Disconnected is reachable from any state.
func (s *ServerState) SetStatus(next ConnStatus) bool {
	switch next {
	case StatusDisconnected:
		s.Status = StatusDisconnected
		return true
	case StatusConnecting:
		if s.Status != StatusDisconnected {
			return false
		}
	case StatusConnected:
		if s.Status != StatusConnecting {
			return false
		}
	}
	s.Status = next
	return true
}

// SetNick commits a confirmed nickname change.
func (s *ServerState) SetNick(nick string) {
	s.Nick = nick
	s.NickLower = strings.ToLower(nick)
}

// IsSelf reports whether nick is our own on this server.
func (s *ServerState) IsSelf(nick string) bool {
	return strings.ToLower(nick) == s.NickLower
}

// InChannel reports whether we are joined to channel.
func (s *ServerState) InChannel(channel string) bool {
	for _, c := range s.Channels {
		if strings.EqualFold(c, channel) {
			return true
		}
	}
	return false
}

// TransferStatus is the lifecycle of a DCC transfer. Transitions are
// forward-only: Pending -> Active -> {Completed, Failed, Cancelled}.
type TransferStatus int

const (
	TransferPending TransferStatus = iota
	TransferActive
	TransferCompleted
	TransferFailed
	TransferCancelled
)

func (s TransferStatus) String() string {
	switch s {
	case TransferPending:
		return "pending"
	case TransferActive:
		return "active"
	case TransferCompleted:
		return "completed"
	case TransferFailed:
		return "failed"
	default:
		return "cancelled"
	}
}

// Terminal reports whether the status allows no further transitions.
func (s TransferStatus) Terminal() bool {
	return s == TransferCompleted || s == TransferFailed || s == TransferCancelled
}

// DccTransfer is the reactor's record of one file transfer. The live socket
// and file handle belong exclusively to the transfer task; this is metadata.
type DccTransfer struct {
	ID       int
	ServerID int
	From     string
	Filename string
	Size     uint64
	Received uint64
	IP       netip.Addr
	Port     uint16
	Status   TransferStatus
	Error    string
}

// Transition moves the transfer forward through its lifecycle. Backward
// moves and transitions out of a terminal state are rejected.
func (t *DccTransfer) Transition(next TransferStatus) bool {
	if t.Status.Terminal() {
		return false
	}
	switch next {
	case TransferPending:
		return false
	case TransferActive:
		if t.Status != TransferPending {
			return false
		}
	case TransferCancelled:
		// Cancel is allowed from Pending or Active.
	default:
		if t.Status != TransferActive {
			return false
		}
	}
	t.Status = next
	return true
}

// PendingRejoin is a delayed channel rejoin scheduled after a self-kick.
// It is consumed exactly once, at or after the deadline, by the tick.
type PendingRejoin struct {
	ServerID int
	Channel  string
	At       time.Time
}

// FocusPanel identifies which panel has keyboard focus.
type FocusPanel int

const (
	FocusInput FocusPanel = iota
	FocusServerTree
	FocusMessageArea
	FocusUserList
)

// ChannelListEntry is one row of the server's LIST output.
type ChannelListEntry struct {
	Name  string
	Users int
	Topic string
}

// ChannelBrowser collects LIST output while a fetch is in flight. While
// Loading is set, 321/322/323 feed the browser instead of the status buffer.
type ChannelBrowser struct {
	Visible  bool
	Loading  bool
	ServerID int
	Entries  []ChannelListEntry
}

// Session is the single authoritative state store. Exactly one goroutine
// (the reactor) mutates it; producers communicate through the event queue.
type Session struct {
	Config *config.Config

	Servers      []*ServerState
	Buffers      map[BufferKey]*Buffer
	Active       BufferKey
	Input        InputState
	Focus        FocusPanel
	Transfers    []*DccTransfer
	PendingRejoins []PendingRejoin

	Ignored     map[string]struct{}
	Notify      map[string]struct{}
	KnownOnline map[string]struct{}

	ChannelBrowser ChannelBrowser

	NextServerID   int
	NextTransferID int

	ShouldQuit  bool
	QuitMessage string
	PendingBell bool

	// NewMessages accumulates appended lines for the chat logger; the
	// reactor drains it after every event.
	NewMessages []LoggedMessage

	LastIsonCheck time.Time

	timestampFormat string
	now             func() time.Time
}

// LoggedMessage pairs an appended message with the buffer it landed in.
type LoggedMessage struct {
	Key     BufferKey
	Message Message
}

// NewSession builds an empty session around the loaded config. The
// highlights buffer always exists and starts active.
func NewSession(cfg *config.Config) *Session {
	s := &Session{
		Config:          cfg,
		Buffers:         map[BufferKey]*Buffer{HighlightsKey(): {}},
		Active:          HighlightsKey(),
		Input:           NewInputState(),
		Focus:           FocusInput,
		Ignored:         make(map[string]struct{}),
		Notify:          make(map[string]struct{}),
		KnownOnline:     make(map[string]struct{}),
		timestampFormat: cfg.UI.TimestampFormat,
		now:             time.Now,
	}
	return s
}

// SetClock overrides the session clock. Tests use this to pin timestamps.
func (s *Session) SetClock(now func() time.Time) { s.now = now }

// Now returns the session's current time.
func (s *Session) Now() time.Time { return s.now() }

func (s *Session) AllocServerID() int {
	id := s.NextServerID
	s.NextServerID++
	return id
}

func (s *Session) AllocTransferID() int {
	id := s.NextTransferID
	s.NextTransferID++
	return id
}

// AddServer registers a server and ensures its status buffer exists. The
// first server's status buffer becomes active.
func (s *Session) AddServer(srv *ServerState) {
	if srv.Users == nil {
		srv.Users = make(map[string][]ChannelUser)
	}
	if srv.Topics == nil {
		srv.Topics = make(map[string]string)
	}
	key := StatusKey(srv.ID)
	s.EnsureBuffer(key)
	if len(s.Servers) == 0 {
		s.SetActive(key)
	}
	s.Servers = append(s.Servers, srv)
}

// Server returns the server with the given id, or nil.
func (s *Session) Server(id int) *ServerState {
	for _, srv := range s.Servers {
		if srv.ID == id {
			return srv
		}
	}
	return nil
}

// Transfer returns the transfer with the given id, or nil.
func (s *Session) Transfer(id int) *DccTransfer {
	for _, t := range s.Transfers {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// EnsureBuffer returns the buffer for key, creating it if absent.
func (s *Session) EnsureBuffer(key BufferKey) *Buffer {
	if b, ok := s.Buffers[key]; ok {
		return b
	}
	b := &Buffer{}
	s.Buffers[key] = b
	return b
}

// SortedKeys returns the buffer keys in render order.
func (s *Session) SortedKeys() []BufferKey {
	keys := make([]BufferKey, 0, len(s.Buffers))
	for k := range s.Buffers {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	return keys
}

// AddMessage appends a message to the buffer for key, bumping the unread
// counter when the buffer is not the active one.
func (s *Session) AddMessage(key BufferKey, msg Message) {
	buf := s.EnsureBuffer(key)
	buf.AddMessage(msg, s.Config.UI.MaxScrollback)
	if key != s.Active {
		buf.UnreadCount++
	}
	s.NewMessages = append(s.NewMessages, LoggedMessage{Key: key, Message: msg})
}

// NewMessage builds a message stamped with the session clock.
func (s *Session) NewMessage(sender, text string, kind MessageKind) Message {
	return Message{
		Timestamp: s.now().Format(s.timestampFormat),
		Sender:    sender,
		Text:      text,
		Kind:      kind,
	}
}

// SystemMessage appends an informational line to the buffer for key.
func (s *Session) SystemMessage(key BufferKey, text string) {
	s.AddMessage(key, s.NewMessage("***", text, KindSystem))
}

// ErrorMessage appends an error line to the buffer for key.
func (s *Session) ErrorMessage(key BufferKey, text string) {
	s.AddMessage(key, s.NewMessage("!!!", text, KindError))
}

// AddHighlight mirrors a message into the global highlights buffer with a
// source label. The mention flag is forced regardless of scroll position so
// cross-server pings are never missed.
func (s *Session) AddHighlight(sourceLabel string, msg Message) {
	key := HighlightsKey()
	copied := msg
	copied.Text = "[" + sourceLabel + "] " + msg.Text
	buf := s.EnsureBuffer(key)
	buf.AddMessage(copied, s.Config.UI.MaxScrollback)
	if key != s.Active {
		buf.UnreadCount++
		buf.HasMention = true
	}
	s.NewMessages = append(s.NewMessages, LoggedMessage{Key: key, Message: copied})
}

// SetActive switches the active buffer and clears its unread state.
func (s *Session) SetActive(key BufferKey) {
	if buf, ok := s.Buffers[key]; ok {
		buf.UnreadCount = 0
		buf.HasMention = false
	}
	s.Active = key
}

// ActiveServerID returns the server the active buffer belongs to, or -1 for
// the highlights buffer.
func (s *Session) ActiveServerID() int {
	if s.Active.Kind == KindHighlights {
		return -1
	}
	return s.Active.ServerID
}

// CycleFocus advances keyboard focus through the four panels.
func (s *Session) CycleFocus() {
	switch s.Focus {
	case FocusInput:
		s.Focus = FocusServerTree
	case FocusServerTree:
		s.Focus = FocusMessageArea
	case FocusMessageArea:
		s.Focus = FocusUserList
	default:
		s.Focus = FocusInput
	}
}

// SelectNextBuffer activates the buffer after the current one in render order.
func (s *Session) SelectNextBuffer() {
	keys := s.SortedKeys()
	if len(keys) == 0 {
		return
	}
	idx := 0
	for i, k := range keys {
		if k == s.Active {
			idx = i
			break
		}
	}
	s.SetActive(keys[(idx+1)%len(keys)])
}

// SelectPrevBuffer activates the buffer before the current one in render order.
func (s *Session) SelectPrevBuffer() {
	keys := s.SortedKeys()
	if len(keys) == 0 {
		return
	}
	idx := 0
	for i, k := range keys {
		if k == s.Active {
			idx = i
			break
		}
	}
	s.SetActive(keys[(idx-1+len(keys))%len(keys)])
}

// IsIgnored reports whether nick is in the ignore set (case-folded).
func (s *Session) IsIgnored(nick string) bool {
	_, ok := s.Ignored[strings.ToLower(nick)]
	return ok
}

// Ignore adds nick to the ignore set.
func (s *Session) Ignore(nick string) { s.Ignored[strings.ToLower(nick)] = struct{}{} }

// Unignore removes nick from the ignore set.
func (s *Session) Unignore(nick string) { delete(s.Ignored, strings.ToLower(nick)) }

// AddNotify adds nick to the notify set.
func (s *Session) AddNotify(nick string) { s.Notify[strings.ToLower(nick)] = struct{}{} }

// RemoveNotify removes nick from the notify set.
func (s *Session) RemoveNotify(nick string) { delete(s.Notify, strings.ToLower(nick)) }

// InNotify reports whether nick is in the notify set (case-folded).
func (s *Session) InNotify(nick string) bool {
	_, ok := s.Notify[strings.ToLower(nick)]
	return ok
}

// NotifyNicks returns the notify set as a sorted slice.
func (s *Session) NotifyNicks() []string {
	nicks := make([]string, 0, len(s.Notify))
	for n := range s.Notify {
		nicks = append(nicks, n)
	}
	sort.Strings(nicks)
	return nicks
}
