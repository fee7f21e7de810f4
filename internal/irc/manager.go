package irc

import (
	"crypto/tls"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"

	"github.com/matt0x6f/driftwood/internal/logger"
)

// ConnectOptions carries everything needed to establish one connection.
type ConnectOptions struct {
	Host               string
	Port               int
	TLS                bool
	AcceptInvalidCerts bool
	Nick               string
	Username           string
	Realname           string
	ServerPassword     string
	SASLMechanism      string
	SASLUser           string
	SASLPassword       string
	QuitMessage        string
}

// Manager owns the live IRC connections. Inbound lines are pushed onto
// the shared event queue; the reactor calls the send methods back on
// its own goroutine. The conns map is mutex-guarded because connection
// teardown can race with dispatch.
type Manager struct {
	queue chan<- interface{}

	mu    sync.Mutex
	conns map[int]*ircevent.Connection
}

// NewManager builds a manager emitting onto queue.
func NewManager(queue chan<- interface{}) *Manager {
	return &Manager{
		queue: queue,
		conns: make(map[int]*ircevent.Connection),
	}
}

// reconnectDisabled pins ircevent's reconnect timer effectively forever.
// A zero ReconnectFreq is not "off": the library substitutes its default
// and silently redials after a drop, bypassing the user-driven connect
// flow and the Connecting status transition.
const reconnectDisabled = time.Duration(math.MaxInt64)

// newConnection builds the ircevent connection for opts, without any of
// the queue callbacks.
func newConnection(opts ConnectOptions) *ircevent.Connection {
	conn := &ircevent.Connection{
		Server:        fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		Nick:          opts.Nick,
		User:          opts.Username,
		RealName:      opts.Realname,
		UseTLS:        opts.TLS,
		Password:      opts.ServerPassword,
		QuitMessage:   opts.QuitMessage,
		ReconnectFreq: reconnectDisabled,
	}
	if opts.TLS && opts.AcceptInvalidCerts {
		conn.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	if opts.SASLUser != "" && strings.EqualFold(opts.SASLMechanism, "PLAIN") {
		conn.SASLLogin = opts.SASLUser
		conn.SASLPassword = opts.SASLPassword
	}
	return conn
}

// Connect dials a server asynchronously. The outcome arrives on the
// queue as a ConnectedEvent or ErrorEvent; every subsequent server line
// arrives as a LineEvent.
func (m *Manager) Connect(serverID int, opts ConnectOptions) {
	conn := newConnection(opts)

	conn.AddConnectCallback(func(e ircmsg.Message) {
		m.queue <- ConnectedEvent{ServerID: serverID}
	})
	conn.AddDisconnectCallback(func(e ircmsg.Message) {
		m.queue <- DisconnectedEvent{ServerID: serverID, Reason: "connection closed"}
	})
	conn.AddCallback("", func(e ircmsg.Message) {
		m.queue <- LineEvent{ServerID: serverID, Msg: e}
	})

	if opts.SASLUser != "" && strings.HasPrefix(strings.ToUpper(opts.SASLMechanism), "SCRAM-") {
		attachSCRAM(conn, opts.SASLMechanism, opts.SASLUser, opts.SASLPassword)
	}

	m.mu.Lock()
	m.conns[serverID] = conn
	m.mu.Unlock()

	go func() {
		logger.Log.Info().Int("server", serverID).Str("addr", conn.Server).Bool("tls", opts.TLS).Msg("connecting")
		if err := conn.Connect(); err != nil {
			m.mu.Lock()
			delete(m.conns, serverID)
			m.mu.Unlock()
			m.queue <- ErrorEvent{ServerID: serverID, Err: err}
			return
		}
		conn.Loop()
	}()
}

// conn returns the live connection for a server or an error.
func (m *Manager) conn(serverID int) (*ircevent.Connection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.conns[serverID]
	if !ok {
		return nil, fmt.Errorf("server %d is not connected", serverID)
	}
	return c, nil
}

// Disconnect quits and drops the connection for a server.
func (m *Manager) Disconnect(serverID int) error {
	m.mu.Lock()
	c, ok := m.conns[serverID]
	delete(m.conns, serverID)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("server %d is not connected", serverID)
	}
	c.Quit()
	return nil
}

// Shutdown quits every live connection.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	conns := make([]*ircevent.Connection, 0, len(m.conns))
	for _, c := range m.conns {
		conns = append(conns, c)
	}
	m.conns = make(map[int]*ircevent.Connection)
	m.mu.Unlock()
	for _, c := range conns {
		c.Quit()
	}
}

// sanitizeOutbound strips CTCP framing bytes from user text so typed
// input can never smuggle a protocol-level CTCP message.
func sanitizeOutbound(text string) string {
	return strings.ReplaceAll(text, "\x01", "")
}

// Privmsg sends user chat text to a channel or nick.
func (m *Manager) Privmsg(serverID int, target, text string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Privmsg(target, sanitizeOutbound(text))
}

// Emote sends a CTCP ACTION, the wire form of /me.
func (m *Manager) Emote(serverID int, target, text string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Privmsg(target, "\x01ACTION "+sanitizeOutbound(text)+"\x01")
}

// Notice sends a NOTICE.
func (m *Manager) Notice(serverID int, target, text string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Notice(target, sanitizeOutbound(text))
}

// CtcpRequest sends a CTCP query via PRIVMSG.
func (m *Manager) CtcpRequest(serverID int, target, command, args string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	payload := strings.ToUpper(command)
	if payload == "PING" {
		payload += fmt.Sprintf(" %d", time.Now().UnixMilli())
	} else if args != "" {
		payload += " " + args
	}
	return c.Privmsg(target, "\x01"+payload+"\x01")
}

// CtcpReply answers a CTCP query via NOTICE, as the protocol requires.
func (m *Manager) CtcpReply(serverID int, target, command, text string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	payload := strings.ToUpper(command)
	if text != "" {
		payload += " " + text
	}
	return c.Notice(target, "\x01"+payload+"\x01")
}

// Join joins a channel.
func (m *Manager) Join(serverID int, channel string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Join(channel)
}

// Part leaves a channel with an optional reason.
func (m *Manager) Part(serverID int, channel, reason string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	if reason == "" {
		return c.Part(channel)
	}
	return c.Send("PART", channel, reason)
}

// Nick requests a nickname change.
func (m *Manager) Nick(serverID int, nick string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	c.SetNick(nick)
	return nil
}

// Kick removes a user from a channel.
func (m *Manager) Kick(serverID int, channel, user, reason string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	if reason == "" {
		return c.Send("KICK", channel, user)
	}
	return c.Send("KICK", channel, user, reason)
}

// Mode sends a raw mode change.
func (m *Manager) Mode(serverID int, target, modes string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	params := append([]string{target}, strings.Fields(modes)...)
	return c.Send("MODE", params...)
}

// Topic sets a channel topic.
func (m *Manager) Topic(serverID int, channel, topic string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Send("TOPIC", channel, topic)
}

// Whois queries WHOIS for a nick.
func (m *Manager) Whois(serverID int, nick string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Send("WHOIS", nick)
}

// Who sends a WHO query.
func (m *Manager) Who(serverID int, target string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Send("WHO", target)
}

// Away sets away status; an empty message clears it.
func (m *Manager) Away(serverID int, message string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	if message == "" {
		return c.Send("AWAY")
	}
	return c.Send("AWAY", message)
}

// List requests the server channel list.
func (m *Manager) List(serverID int) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Send("LIST")
}

// Ison polls online presence for the given nicks.
func (m *Manager) Ison(serverID int, nicks []string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	return c.Send("ISON", strings.Join(nicks, " "))
}

// Raw sends a raw protocol line as typed by the user.
func (m *Manager) Raw(serverID int, line string) error {
	c, err := m.conn(serverID)
	if err != nil {
		return err
	}
	c.SendRaw(line)
	return nil
}
