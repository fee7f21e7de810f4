package irc

import (
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircmsg"
)

// Inbound is a decoded server line. The variant set is closed: every
// protocol command maps to exactly one of the types below, with Other
// as the catch-all, so reaction code can switch exhaustively.
type Inbound interface {
	isInbound()
}

// TextMessage is a PRIVMSG or NOTICE.
type TextMessage struct {
	From   string
	Target string
	Text   string
	Notice bool
}

// MembershipKind distinguishes the roster-affecting commands.
type MembershipKind int

const (
	MemberJoin MembershipKind = iota
	MemberPart
	MemberQuit
	MemberKick
	MemberNick
)

// MembershipChange is a JOIN, PART, QUIT, KICK, or NICK. Target holds
// the kick victim or the new nickname; Channel is empty for QUIT and
// NICK, which affect every shared channel.
type MembershipChange struct {
	Kind    MembershipKind
	Nick    string
	Channel string
	Target  string
	Reason  string
}

// ModeDelta is one applied mode flag with its argument, if any.
type ModeDelta struct {
	Add  bool
	Mode rune
	Arg  string
}

// ModeChange is a channel MODE line split into individual deltas.
type ModeChange struct {
	Channel string
	By      string
	Deltas  []ModeDelta
}

// TopicChange is a TOPIC command (not the 332 numeric).
type TopicChange struct {
	Channel string
	By      string
	Topic   string
}

// Numeric is any three-digit reply.
type Numeric struct {
	Code int
	Args []string
}

// Ping must be answered to keep the connection alive. The connection
// layer replies before the line reaches the reactor; the variant exists
// so the decode stays total.
type Ping struct {
	Token string
}

// Other is any command without a dedicated variant.
type Other struct {
	Command string
	Args    []string
}

func (TextMessage) isInbound()      {}
func (MembershipChange) isInbound() {}
func (ModeChange) isInbound()       {}
func (TopicChange) isInbound()      {}
func (Numeric) isInbound()          {}
func (Ping) isInbound()             {}
func (Other) isInbound()            {}

// Decode maps a raw server line onto its Inbound variant. Lines that
// do not carry enough parameters for their command decode to Other.
func Decode(msg ircmsg.Message) Inbound {
	if code, err := strconv.Atoi(msg.Command); err == nil && len(msg.Command) == 3 {
		return Numeric{Code: code, Args: msg.Params}
	}

	switch msg.Command {
	case "PRIVMSG", "NOTICE":
		if len(msg.Params) < 2 {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		return TextMessage{
			From:   msg.Nick(),
			Target: msg.Params[0],
			Text:   msg.Params[1],
			Notice: msg.Command == "NOTICE",
		}
	case "JOIN":
		if len(msg.Params) < 1 {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		return MembershipChange{Kind: MemberJoin, Nick: msg.Nick(), Channel: msg.Params[0]}
	case "PART":
		if len(msg.Params) < 1 {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		reason := ""
		if len(msg.Params) > 1 {
			reason = msg.Params[1]
		}
		return MembershipChange{Kind: MemberPart, Nick: msg.Nick(), Channel: msg.Params[0], Reason: reason}
	case "QUIT":
		reason := ""
		if len(msg.Params) > 0 {
			reason = msg.Params[0]
		}
		return MembershipChange{Kind: MemberQuit, Nick: msg.Nick(), Reason: reason}
	case "KICK":
		if len(msg.Params) < 2 {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		reason := ""
		if len(msg.Params) > 2 {
			reason = msg.Params[2]
		}
		return MembershipChange{
			Kind:    MemberKick,
			Nick:    msg.Nick(),
			Channel: msg.Params[0],
			Target:  msg.Params[1],
			Reason:  reason,
		}
	case "NICK":
		if len(msg.Params) < 1 {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		return MembershipChange{Kind: MemberNick, Nick: msg.Nick(), Target: msg.Params[0]}
	case "MODE":
		if len(msg.Params) < 2 || !strings.HasPrefix(msg.Params[0], "#") && !strings.HasPrefix(msg.Params[0], "&") {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		return ModeChange{
			Channel: msg.Params[0],
			By:      msg.Nick(),
			Deltas:  parseModeString(msg.Params[1], msg.Params[2:]),
		}
	case "TOPIC":
		if len(msg.Params) < 2 {
			return Other{Command: msg.Command, Args: msg.Params}
		}
		return TopicChange{Channel: msg.Params[0], By: msg.Nick(), Topic: msg.Params[1]}
	case "PING":
		token := ""
		if len(msg.Params) > 0 {
			token = msg.Params[0]
		}
		return Ping{Token: token}
	default:
		return Other{Command: msg.Command, Args: msg.Params}
	}
}

// Mode letters that consume an argument. Membership modes (qaohv) and
// ban-style list modes always do; the limit mode only when set.
const argModesAlways = "qaohvbek"

func modeTakesArg(mode rune, add bool) bool {
	if strings.ContainsRune(argModesAlways, mode) {
		return true
	}
	return mode == 'l' && add
}

func parseModeString(modes string, args []string) []ModeDelta {
	var deltas []ModeDelta
	add := true
	next := 0
	for _, r := range modes {
		switch r {
		case '+':
			add = true
		case '-':
			add = false
		default:
			delta := ModeDelta{Add: add, Mode: r}
			if modeTakesArg(r, add) && next < len(args) {
				delta.Arg = args[next]
				next++
			}
			deltas = append(deltas, delta)
		}
	}
	return deltas
}
