package irc

import (
	"fmt"
	"strings"

	"github.com/matt0x6f/driftwood/internal/state"
)

// Numeric replies the client renders specially. Everything else falls
// through to a generic print of the trailing parameter.
const (
	rplWelcome       = 1
	rplIson          = 303
	rplUnaway        = 305
	rplNowAway       = 306
	rplAway          = 301
	rplWhoisUser     = 311
	rplWhoisServer   = 312
	rplWhoisChannels = 319
	rplEndOfWhois    = 318
	rplWhoReply      = 352
	rplEndOfWho      = 315
	rplListStart     = 321
	rplList          = 322
	rplListEnd       = 323
	rplTopic         = 332
	rplNamReply      = 353
	rplEndOfNames    = 366
	rplMotdStart     = 375
	rplMotd          = 372
	rplEndOfMotd     = 376
	errNickInUse     = 433
)

func reactNumeric(s *state.Session, srv *state.ServerState, n Numeric) []state.Action {
	key := state.StatusKey(srv.ID)
	args := n.Args

	switch n.Code {
	case rplWelcome:
		return reactWelcome(s, srv, args)

	case rplIson:
		reactIsonReply(s, srv, args)

	case rplUnaway:
		srv.Away = false
		s.SystemMessage(key, "You are no longer marked as away")

	case rplNowAway:
		srv.Away = true
		s.SystemMessage(key, "You have been marked as away")

	case rplAway:
		if len(args) >= 3 {
			s.SystemMessage(key, fmt.Sprintf("%s is away: %s", args[1], args[2]))
		}

	case rplWhoisUser:
		if len(args) >= 6 {
			s.SystemMessage(key, fmt.Sprintf("%s is %s@%s (%s)", args[1], args[2], args[3], args[5]))
		}

	case rplWhoisServer:
		if len(args) >= 4 {
			s.SystemMessage(key, fmt.Sprintf("%s is on server %s (%s)", args[1], args[2], args[3]))
		}

	case rplWhoisChannels:
		if len(args) >= 3 {
			s.SystemMessage(key, fmt.Sprintf("%s is on channels: %s", args[1], args[2]))
		}

	case rplEndOfWhois:
		if len(args) >= 2 {
			s.SystemMessage(key, fmt.Sprintf("End of WHOIS for %s", args[1]))
		}

	case rplWhoReply:
		if len(args) >= 8 {
			s.SystemMessage(key, fmt.Sprintf("%s %s %s@%s (%s)", args[1], args[5], args[2], args[3], args[7]))
		}

	case rplEndOfWho:
		s.SystemMessage(key, "End of WHO list")

	case rplListStart:
		if s.ChannelBrowser.Loading && s.ChannelBrowser.ServerID == srv.ID {
			s.ChannelBrowser.Entries = nil
		} else {
			s.SystemMessage(key, "Channel list follows")
		}

	case rplList:
		reactListEntry(s, srv, args)

	case rplListEnd:
		if s.ChannelBrowser.Loading && s.ChannelBrowser.ServerID == srv.ID {
			s.ChannelBrowser.Loading = false
			s.ChannelBrowser.Visible = true
			s.SystemMessage(key, fmt.Sprintf("Channel list: %d channels", len(s.ChannelBrowser.Entries)))
		} else {
			s.SystemMessage(key, "End of channel list")
		}

	case rplTopic:
		if len(args) >= 3 {
			srv.Topics[args[1]] = args[2]
			s.SystemMessage(state.ChannelKey(srv.ID, args[1]), fmt.Sprintf("Topic: %s", args[2]))
		}

	case rplNamReply:
		reactNames(srv, args)

	case rplEndOfNames:
		if len(args) >= 2 {
			srv.SortRoster(args[1])
		}

	case rplMotdStart, rplMotd, rplEndOfMotd:
		if len(args) > 0 {
			s.AddMessage(key, s.NewMessage("", args[len(args)-1], state.KindSystem))
		}

	case errNickInUse:
		return reactNickInUse(s, srv, args)

	default:
		if len(args) > 0 {
			s.AddMessage(key, s.NewMessage("", args[len(args)-1], state.KindSystem))
		}
	}
	return nil
}

// reactWelcome finalizes registration: the server has committed to a
// nickname for us in the first parameter, whatever we asked for.
func reactWelcome(s *state.Session, srv *state.ServerState, args []string) []state.Action {
	key := state.StatusKey(srv.ID)
	if len(args) > 0 && args[0] != "" {
		srv.SetNick(args[0])
	}
	srv.AltNickIndex = 0
	if len(args) > 1 {
		s.SystemMessage(key, args[len(args)-1])
	}

	var actions []state.Action
	if srv.NickPassword != "" {
		actions = append(actions, state.SendPrivmsg{
			ServerID: srv.ID,
			Target:   "NickServ",
			Text:     "IDENTIFY " + srv.NickPassword,
		})
		s.SystemMessage(key, "Identifying with NickServ")
	}

	if cfgSrv, ok := s.Config.FindServer(srv.Name); ok {
		for _, ch := range cfgSrv.Channels {
			actions = append(actions, state.JoinChannel{ServerID: srv.ID, Channel: ch})
		}
	}
	return actions
}

// reactNickInUse walks the configured alternates, then falls back to
// appending an underscore. Nothing is committed locally; the change
// lands only when the server echoes NICK.
func reactNickInUse(s *state.Session, srv *state.ServerState, args []string) []state.Action {
	taken := srv.Nick
	if len(args) >= 2 {
		taken = args[1]
	}
	s.ErrorMessage(state.StatusKey(srv.ID), fmt.Sprintf("Nickname %s is already in use", taken))

	// Before RPL_WELCOME ircevent answers 433 itself with a suffixed
	// NICK; a second command from here would race it on the wire. The
	// alternates walk takes over once registration is complete.
	if srv.Status != state.StatusConnected {
		return nil
	}

	var next string
	if srv.AltNickIndex < len(srv.AltNicks) {
		next = srv.AltNicks[srv.AltNickIndex]
		srv.AltNickIndex++
	} else {
		next = taken + "_"
	}
	return []state.Action{state.ChangeNick{ServerID: srv.ID, Nick: next}}
}

// reactIsonReply diffs the server's view of who is online against ours
// and announces the changes for watched nicks.
func reactIsonReply(s *state.Session, srv *state.ServerState, args []string) {
	online := make(map[string]struct{})
	if len(args) > 0 {
		for _, nick := range strings.Fields(args[len(args)-1]) {
			online[strings.ToLower(nick)] = struct{}{}
		}
	}

	key := state.StatusKey(srv.ID)
	for _, nick := range s.NotifyNicks() {
		_, was := s.KnownOnline[nick]
		_, is := online[nick]
		switch {
		case is && !was:
			s.KnownOnline[nick] = struct{}{}
			s.SystemMessage(key, fmt.Sprintf("%s is online", nick))
		case was && !is:
			delete(s.KnownOnline, nick)
			s.SystemMessage(key, fmt.Sprintf("%s is offline", nick))
		}
	}
}

func reactListEntry(s *state.Session, srv *state.ServerState, args []string) {
	if len(args) < 2 {
		return
	}
	name := args[1]
	users := 0
	topic := ""
	if len(args) >= 3 {
		fmt.Sscanf(args[2], "%d", &users)
	}
	if len(args) >= 4 {
		topic = StripFormatting(args[3])
	}

	if s.ChannelBrowser.Loading && s.ChannelBrowser.ServerID == srv.ID {
		s.ChannelBrowser.Entries = append(s.ChannelBrowser.Entries, state.ChannelListEntry{
			Name:  name,
			Users: users,
			Topic: topic,
		})
		return
	}
	s.SystemMessage(state.StatusKey(srv.ID), fmt.Sprintf("%s (%d) %s", name, users, topic))
}

// reactNames folds one 353 line into the roster. Names arrive with
// their highest mode prefix attached, e.g. "@op +voiced plain".
func reactNames(srv *state.ServerState, args []string) {
	if len(args) < 4 {
		return
	}
	channel := args[2]
	for _, raw := range strings.Fields(args[3]) {
		prefix := state.PrefixNone
		for len(raw) > 0 {
			p := state.PrefixFromSymbol(rune(raw[0]))
			if p == state.PrefixNone {
				break
			}
			if p.Outranks(prefix) {
				prefix = p
			}
			raw = raw[1:]
		}
		if raw != "" {
			srv.AddChannelUser(channel, raw, prefix)
		}
	}
}
