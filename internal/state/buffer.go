package state

import "strings"

// BufferKind discriminates the identity of a conversation buffer.
type BufferKind int

const (
	// KindHighlights is the global cross-server mentions buffer. Sorts first.
	KindHighlights BufferKind = iota
	// KindStatus is a per-server console buffer.
	KindStatus
	// KindChannel is a (server, channel) conversation.
	KindChannel
	// KindQuery is a (server, nick) private conversation.
	KindQuery
)

// BufferKey identifies one scrollable conversation. Keys are comparable and
// totally ordered so the buffer list renders in a stable sequence.
type BufferKey struct {
	Kind     BufferKind
	ServerID int
	Target   string
}

func HighlightsKey() BufferKey           { return BufferKey{Kind: KindHighlights} }
func StatusKey(serverID int) BufferKey   { return BufferKey{Kind: KindStatus, ServerID: serverID} }
// Targets are case-folded so "#Go" and "#go" land in the same buffer.
func ChannelKey(serverID int, channel string) BufferKey {
	return BufferKey{Kind: KindChannel, ServerID: serverID, Target: strings.ToLower(channel)}
}
func QueryKey(serverID int, nick string) BufferKey {
	return BufferKey{Kind: KindQuery, ServerID: serverID, Target: strings.ToLower(nick)}
}

// Less imposes the total order: highlights, then status buffers by server,
// then channels, then queries.
func (k BufferKey) Less(other BufferKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	if k.ServerID != other.ServerID {
		return k.ServerID < other.ServerID
	}
	return k.Target < other.Target
}

// MessageKind is the semantic tag of a chat line.
type MessageKind int

const (
	KindNormal MessageKind = iota
	KindAction
	KindSystem
	KindError
	KindJoin
	KindPart
	KindQuit
	KindNotice
)

// Message is one immutable chat line owned by exactly one buffer.
type Message struct {
	Timestamp string
	Sender    string
	Text      string
	Kind      MessageKind
}

// Buffer is an append-only bounded sequence of messages plus the view state
// the panels need: scroll position, unread counter, mention flag.
type Buffer struct {
	Messages     []Message
	ScrollOffset int
	UnreadCount  int
	HasMention   bool
}

// AddMessage appends a message, evicting the oldest once max is exceeded.
// Eviction decrements a positive scroll offset so the visible window does
// not silently jump.
func (b *Buffer) AddMessage(msg Message, max int) {
	b.Messages = append(b.Messages, msg)
	if max > 0 && len(b.Messages) > max {
		b.Messages = b.Messages[1:]
		if b.ScrollOffset > 0 {
			b.ScrollOffset--
		}
	}
}
