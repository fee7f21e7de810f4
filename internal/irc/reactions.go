package irc

import (
	"fmt"
	"strings"
	"time"

	"github.com/matt0x6f/driftwood/internal/dcc"
	"github.com/matt0x6f/driftwood/internal/logger"
	"github.com/matt0x6f/driftwood/internal/state"
)

// React applies one decoded line to the session and returns the actions
// the reactor must dispatch in response. Only the reactor goroutine
// calls this, so the session is mutated without locks.
func React(s *state.Session, serverID int, ev Inbound) []state.Action {
	srv := s.Server(serverID)
	if srv == nil {
		logger.Log.Warn().Int("server", serverID).Msg("line for unknown server dropped")
		return nil
	}

	switch v := ev.(type) {
	case TextMessage:
		return reactText(s, srv, v)
	case MembershipChange:
		return reactMembership(s, srv, v)
	case ModeChange:
		reactMode(s, srv, v)
	case TopicChange:
		srv.Topics[v.Channel] = v.Topic
		s.SystemMessage(state.ChannelKey(srv.ID, v.Channel),
			fmt.Sprintf("%s changed the topic to: %s", v.By, v.Topic))
	case Numeric:
		return reactNumeric(s, srv, v)
	case Ping:
		// Answered at the connection layer.
	case Other:
		logger.Log.Debug().Str("command", v.Command).Strs("args", v.Args).Msg("unhandled command")
	}
	return nil
}

func reactText(s *state.Session, srv *state.ServerState, msg TextMessage) []state.Action {
	// The ignore set silences chat lines only; membership events from
	// ignored users still apply.
	if s.IsIgnored(msg.From) {
		return nil
	}

	if payload, ok := ctcpPayload(msg.Text); ok {
		if msg.Notice {
			reactCtcpReply(s, srv, msg.From, payload)
			return nil
		}
		return reactCtcpQuery(s, srv, msg, payload)
	}

	if msg.Notice {
		reactNotice(s, srv, msg)
		return nil
	}

	if srv.IsSelf(msg.Target) {
		reactPrivateMessage(s, srv, msg.From, msg.Text, state.KindNormal)
		return nil
	}

	reactChannelMessage(s, srv, msg.From, msg.Target, msg.Text, state.KindNormal)
	return nil
}

// ctcpPayload extracts the body of a CTCP-framed message.
func ctcpPayload(text string) (string, bool) {
	if len(text) >= 2 && text[0] == '\x01' && text[len(text)-1] == '\x01' {
		return text[1 : len(text)-1], true
	}
	return "", false
}

func reactCtcpQuery(s *state.Session, srv *state.ServerState, msg TextMessage, payload string) []state.Action {
	command, rest, _ := strings.Cut(payload, " ")
	key := state.StatusKey(srv.ID)
	cfg := s.Config.CTCP

	switch strings.ToUpper(command) {
	case "ACTION":
		if srv.IsSelf(msg.Target) {
			reactPrivateMessage(s, srv, msg.From, rest, state.KindAction)
		} else {
			reactChannelMessage(s, srv, msg.From, msg.Target, rest, state.KindAction)
		}
	case "DCC":
		dcc.HandleOffer(s, srv.ID, msg.From, rest)
	case "VERSION":
		if cfg.ReplyVersion {
			s.SystemMessage(key, fmt.Sprintf("CTCP VERSION request from %s", msg.From))
			return []state.Action{state.SendCtcpReply{ServerID: srv.ID, Target: msg.From, Command: "VERSION", Text: cfg.VersionString}}
		}
	case "PING":
		if cfg.ReplyPing {
			s.SystemMessage(key, fmt.Sprintf("CTCP PING request from %s", msg.From))
			return []state.Action{state.SendCtcpReply{ServerID: srv.ID, Target: msg.From, Command: "PING", Text: rest}}
		}
	case "TIME":
		if cfg.ReplyTime {
			s.SystemMessage(key, fmt.Sprintf("CTCP TIME request from %s", msg.From))
			return []state.Action{state.SendCtcpReply{ServerID: srv.ID, Target: msg.From, Command: "TIME", Text: s.Now().Format(time.RFC1123)}}
		}
	case "FINGER":
		if cfg.ReplyFinger {
			s.SystemMessage(key, fmt.Sprintf("CTCP FINGER request from %s", msg.From))
			return []state.Action{state.SendCtcpReply{ServerID: srv.ID, Target: msg.From, Command: "FINGER", Text: cfg.FingerString}}
		}
	default:
		logger.Log.Debug().Str("command", command).Str("from", msg.From).Msg("ignoring CTCP request")
	}
	return nil
}

func reactCtcpReply(s *state.Session, srv *state.ServerState, from, payload string) {
	command, rest, _ := strings.Cut(payload, " ")
	s.SystemMessage(state.StatusKey(srv.ID),
		fmt.Sprintf("CTCP %s reply from %s: %s", strings.ToUpper(command), from, rest))
}

func reactNotice(s *state.Session, srv *state.ServerState, msg TextMessage) {
	key := state.StatusKey(srv.ID)
	if !srv.IsSelf(msg.Target) {
		key = state.ChannelKey(srv.ID, msg.Target)
	}
	s.AddMessage(key, s.NewMessage(msg.From, msg.Text, state.KindNotice))
}

func reactPrivateMessage(s *state.Session, srv *state.ServerState, from, text string, kind state.MessageKind) {
	key := state.QueryKey(srv.ID, from)
	line := s.NewMessage(from, text, kind)
	s.AddMessage(key, line)

	s.AddHighlight(srv.Name, line)
	if s.Config.Behavior.BellOnPM {
		s.PendingBell = true
	}
}

func reactChannelMessage(s *state.Session, srv *state.ServerState, from, channel, text string, kind state.MessageKind) {
	key := state.ChannelKey(srv.ID, channel)
	line := s.NewMessage(from, text, kind)
	s.AddMessage(key, line)

	if containsFold(text, srv.Nick) {
		if buf := s.Buffers[key]; buf != nil && key != s.Active {
			buf.HasMention = true
		}
		s.AddHighlight(srv.Name, line)
		if s.Config.Behavior.BellOnMention {
			s.PendingBell = true
		}
	}
}

// containsFold reports whether text contains nick, ignoring case.
func containsFold(text, nick string) bool {
	if nick == "" {
		return false
	}
	return strings.Contains(strings.ToLower(text), strings.ToLower(nick))
}

func reactMembership(s *state.Session, srv *state.ServerState, m MembershipChange) []state.Action {
	switch m.Kind {
	case MemberJoin:
		reactJoin(s, srv, m)
	case MemberPart:
		reactPart(s, srv, m)
	case MemberQuit:
		reactQuit(s, srv, m)
	case MemberKick:
		reactKick(s, srv, m)
	case MemberNick:
		reactNickChange(s, srv, m)
	}
	return nil
}

func reactJoin(s *state.Session, srv *state.ServerState, m MembershipChange) {
	key := state.ChannelKey(srv.ID, m.Channel)
	if srv.IsSelf(m.Nick) {
		if !srv.InChannel(m.Channel) {
			srv.Channels = append(srv.Channels, m.Channel)
		}
		srv.Users[m.Channel] = nil
		s.EnsureBuffer(key)
		s.SetActive(key)
		s.SystemMessage(key, fmt.Sprintf("You have joined %s", m.Channel))
		return
	}
	srv.AddChannelUser(m.Channel, m.Nick, state.PrefixNone)
	srv.SortRoster(m.Channel)
	s.AddMessage(key, s.NewMessage("-->", fmt.Sprintf("%s has joined %s", m.Nick, m.Channel), state.KindJoin))
}

func reactPart(s *state.Session, srv *state.ServerState, m MembershipChange) {
	key := state.ChannelKey(srv.ID, m.Channel)
	if srv.IsSelf(m.Nick) {
		removeChannel(srv, m.Channel)
		s.SystemMessage(key, fmt.Sprintf("You have left %s", m.Channel))
		// Never leave the view on a channel we are no longer in.
		if s.Active == key {
			s.SetActive(state.StatusKey(srv.ID))
		}
		return
	}
	srv.RemoveChannelUser(m.Channel, m.Nick)
	text := fmt.Sprintf("%s has left %s", m.Nick, m.Channel)
	if m.Reason != "" {
		text += " (" + m.Reason + ")"
	}
	s.AddMessage(key, s.NewMessage("<--", text, state.KindPart))
}

func reactQuit(s *state.Session, srv *state.ServerState, m MembershipChange) {
	channels := srv.RemoveUserEverywhere(m.Nick)
	text := fmt.Sprintf("%s has quit", m.Nick)
	if m.Reason != "" {
		text += " (" + m.Reason + ")"
	}
	for _, ch := range channels {
		s.AddMessage(state.ChannelKey(srv.ID, ch), s.NewMessage("<--", text, state.KindQuit))
	}
	// A quitting watched nick goes offline immediately, no ISON needed.
	if s.InNotify(m.Nick) {
		delete(s.KnownOnline, strings.ToLower(m.Nick))
		s.SystemMessage(state.StatusKey(srv.ID), fmt.Sprintf("%s is offline", m.Nick))
	}
}

func reactKick(s *state.Session, srv *state.ServerState, m MembershipChange) {
	key := state.ChannelKey(srv.ID, m.Channel)
	if srv.IsSelf(m.Target) {
		removeChannel(srv, m.Channel)
		text := fmt.Sprintf("You were kicked from %s by %s", m.Channel, m.Nick)
		if m.Reason != "" {
			text += " (" + m.Reason + ")"
		}
		s.ErrorMessage(key, text)

		if s.Config.Behavior.AutoRejoinOnKick {
			delay := time.Duration(s.Config.Behavior.RejoinDelaySecs) * time.Second
			s.PendingRejoins = append(s.PendingRejoins, state.PendingRejoin{
				ServerID: srv.ID,
				Channel:  m.Channel,
				At:       s.Now().Add(delay),
			})
			s.SystemMessage(key, fmt.Sprintf("Rejoining %s in %d seconds", m.Channel, s.Config.Behavior.RejoinDelaySecs))
		}
		if s.Active == key {
			s.SetActive(state.StatusKey(srv.ID))
		}
		return
	}

	// The ignore set does not hide kicks of third parties, only the
	// kick line when the kicker is ignored.
	if s.IsIgnored(m.Nick) {
		srv.RemoveChannelUser(m.Channel, m.Target)
		return
	}
	srv.RemoveChannelUser(m.Channel, m.Target)
	text := fmt.Sprintf("%s was kicked by %s", m.Target, m.Nick)
	if m.Reason != "" {
		text += " (" + m.Reason + ")"
	}
	s.AddMessage(key, s.NewMessage("<--", text, state.KindPart))
}

func reactNickChange(s *state.Session, srv *state.ServerState, m MembershipChange) {
	wasSelf := srv.IsSelf(m.Nick)
	channels := srv.RenameUser(m.Nick, m.Target)

	var text string
	if wasSelf {
		srv.SetNick(m.Target)
		text = fmt.Sprintf("You are now known as %s", m.Target)
		s.SystemMessage(state.StatusKey(srv.ID), text)
	} else {
		text = fmt.Sprintf("%s is now known as %s", m.Nick, m.Target)
	}
	for _, ch := range channels {
		s.SystemMessage(state.ChannelKey(srv.ID, ch), text)
		srv.SortRoster(ch)
	}

	// An open query follows the peer to its new nick.
	oldKey := state.QueryKey(srv.ID, m.Nick)
	if buf, ok := s.Buffers[oldKey]; ok && !wasSelf {
		newKey := state.QueryKey(srv.ID, m.Target)
		if existing, exists := s.Buffers[newKey]; exists {
			existing.Messages = append(existing.Messages, buf.Messages...)
		} else {
			s.Buffers[newKey] = buf
		}
		delete(s.Buffers, oldKey)
		if s.Active == oldKey {
			s.SetActive(newKey)
		}
		s.SystemMessage(newKey, text)
	}
}

func reactMode(s *state.Session, srv *state.ServerState, m ModeChange) {
	rosterChanged := false
	for _, d := range m.Deltas {
		prefix := state.PrefixFromMode(d.Mode)
		if prefix == state.PrefixNone || d.Arg == "" {
			continue
		}
		srv.ApplyPrefix(m.Channel, d.Arg, prefix, d.Add)
		rosterChanged = true
	}
	if rosterChanged {
		srv.SortRoster(m.Channel)
	}
	s.SystemMessage(state.ChannelKey(srv.ID, m.Channel),
		fmt.Sprintf("%s sets mode %s", m.By, renderModeChange(m)))
}

func renderModeChange(m ModeChange) string {
	var b strings.Builder
	var args []string
	lastAdd := true
	first := true
	for _, d := range m.Deltas {
		if first || d.Add != lastAdd {
			if d.Add {
				b.WriteByte('+')
			} else {
				b.WriteByte('-')
			}
			lastAdd = d.Add
			first = false
		}
		b.WriteRune(d.Mode)
		if d.Arg != "" {
			args = append(args, d.Arg)
		}
	}
	out := b.String()
	if len(args) > 0 {
		out += " " + strings.Join(args, " ")
	}
	return out
}

func removeChannel(srv *state.ServerState, channel string) {
	for i, c := range srv.Channels {
		if strings.EqualFold(c, channel) {
			srv.Channels = append(srv.Channels[:i], srv.Channels[i+1:]...)
			break
		}
	}
	delete(srv.Users, channel)
}
