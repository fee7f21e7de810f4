package irc

import "github.com/ergochat/irc-go/ircmsg"

// LineEvent carries one server line into the reactor queue.
type LineEvent struct {
	ServerID int
	Msg      ircmsg.Message
}

// ConnectedEvent fires once registration with the server completes.
type ConnectedEvent struct {
	ServerID int
}

// DisconnectedEvent fires when the connection drops, whether requested
// or not.
type DisconnectedEvent struct {
	ServerID int
	Reason   string
}

// ErrorEvent reports a connection-level failure (dial, TLS, write).
type ErrorEvent struct {
	ServerID int
	Err      error
}
