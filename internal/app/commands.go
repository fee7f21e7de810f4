package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/matt0x6f/driftwood/internal/config"
	"github.com/matt0x6f/driftwood/internal/state"
)

// HandleInput turns one submitted input line into actions. Lines not
// starting with a slash (or escaped with a double slash) are chat text
// for the active buffer.
func HandleInput(s *state.Session, text string) []state.Action {
	if strings.HasPrefix(text, "//") {
		return sendToActive(s, text[1:])
	}
	if !strings.HasPrefix(text, "/") {
		return sendToActive(s, text)
	}

	command, args, _ := strings.Cut(text[1:], " ")
	args = strings.TrimSpace(args)

	switch strings.ToLower(command) {
	case "help":
		return cmdHelp(s)
	case "server":
		return cmdServer(s, args)
	case "join", "j":
		return cmdJoin(s, args)
	case "part", "leave":
		return cmdPart(s, args)
	case "nick":
		return cmdNick(s, args)
	case "msg":
		return cmdMsg(s, args)
	case "query", "q":
		return cmdQuery(s, args)
	case "me":
		return cmdMe(s, args)
	case "dcc":
		return cmdDcc(s, args)
	case "topic":
		return cmdTopic(s, args)
	case "kick":
		return cmdKick(s, args)
	case "mode":
		return cmdMode(s, args)
	case "notice":
		return cmdNotice(s, args)
	case "whois":
		return cmdWhois(s, args)
	case "who":
		return cmdWho(s, args)
	case "away":
		return cmdAway(s, args)
	case "list":
		return cmdList(s)
	case "ctcp":
		return cmdCtcp(s, args)
	case "quote", "raw":
		return cmdQuote(s, args)
	case "ignore":
		return cmdIgnore(s, args)
	case "unignore":
		return cmdUnignore(s, args)
	case "notify":
		return cmdNotify(s, args)
	case "unnotify":
		return cmdUnnotify(s, args)
	case "quit", "exit":
		return cmdQuit(s, args)
	default:
		s.ErrorMessage(s.Active, fmt.Sprintf("Unknown command: /%s (try /help)", command))
		return nil
	}
}

// activeConversation returns the server and target of the active buffer
// when it can carry chat, posting an error otherwise.
func activeConversation(s *state.Session) (*state.ServerState, string, bool) {
	if s.Active.Kind != state.KindChannel && s.Active.Kind != state.KindQuery {
		s.ErrorMessage(s.Active, "This buffer cannot receive messages")
		return nil, "", false
	}
	srv := s.Server(s.Active.ServerID)
	if srv == nil || srv.Status != state.StatusConnected {
		s.ErrorMessage(s.Active, "Not connected")
		return nil, "", false
	}
	return srv, s.Active.Target, true
}

// activeServer resolves the server behind the active buffer for
// commands that need a connection but not a conversation.
func activeServer(s *state.Session) (*state.ServerState, bool) {
	id := s.ActiveServerID()
	if id < 0 {
		s.ErrorMessage(s.Active, "Select a server buffer first")
		return nil, false
	}
	srv := s.Server(id)
	if srv == nil || srv.Status != state.StatusConnected {
		s.ErrorMessage(s.Active, "Not connected")
		return nil, false
	}
	return srv, true
}

func sendToActive(s *state.Session, text string) []state.Action {
	srv, target, ok := activeConversation(s)
	if !ok {
		return nil
	}
	// Own messages are echoed locally; servers do not repeat them back.
	s.AddMessage(s.Active, s.NewMessage(srv.Nick, text, state.KindNormal))
	return []state.Action{state.SendMessage{ServerID: srv.ID, Target: target, Text: text}}
}

func cmdHelp(s *state.Session) []state.Action {
	for _, line := range []string{
		"Commands:",
		"/server add <name> <host> [port] [tls] | connect <name> | disconnect | password <name> [pw] | list",
		"/join <#channel>    /part [#channel] [reason]    /topic [text]",
		"/nick <name>        /msg <target> <text>         /query <nick> [text]",
		"/me <text>          /notice <target> <text>      /ctcp <nick> <command>",
		"/kick <nick> [why]  /mode <target> <modes>       /away [message]",
		"/whois <nick>       /who <target>                /list",
		"/dcc list | accept <id> | cancel <id>",
		"/ignore [nick]      /unignore <nick>             /notify [nick]  /unnotify <nick>",
		"/quote <raw line>   /quit [message]",
	} {
		s.SystemMessage(s.Active, line)
	}
	return nil
}

func cmdServer(s *state.Session, args string) []state.Action {
	sub, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(sub) {
	case "list":
		for _, srv := range s.Config.Servers {
			status := "not connected"
			for _, live := range s.Servers {
				if strings.EqualFold(live.Name, srv.Name) {
					status = live.Status.String()
				}
			}
			s.SystemMessage(s.Active, fmt.Sprintf("%s (%s:%d, tls=%v) [%s]", srv.Name, srv.Host, srv.Port, srv.TLS, status))
		}
		return nil

	case "add":
		fields := strings.Fields(rest)
		if len(fields) < 2 {
			s.ErrorMessage(s.Active, "Usage: /server add <name> <host> [port] [tls]")
			return nil
		}
		entry := config.Server{Name: fields[0], Host: fields[1], Port: 6697, TLS: true, Nickname: defaultNick(s)}
		if len(fields) > 2 {
			port, err := strconv.Atoi(fields[2])
			if err != nil || port <= 0 || port > 65535 {
				s.ErrorMessage(s.Active, "Invalid port")
				return nil
			}
			entry.Port = port
		}
		if len(fields) > 3 {
			entry.TLS = fields[3] == "true" || fields[3] == "tls"
		}
		if _, exists := s.Config.FindServer(entry.Name); exists {
			s.ErrorMessage(s.Active, fmt.Sprintf("Server %q already exists", entry.Name))
			return nil
		}
		s.Config.Servers = append(s.Config.Servers, entry)
		s.SystemMessage(s.Active, fmt.Sprintf("Added server %s (%s:%d)", entry.Name, entry.Host, entry.Port))
		return nil

	case "connect":
		if rest == "" {
			s.ErrorMessage(s.Active, "Usage: /server connect <name>")
			return nil
		}
		entry, ok := s.Config.FindServer(rest)
		if !ok {
			s.ErrorMessage(s.Active, fmt.Sprintf("Unknown server %q (see /server list)", rest))
			return nil
		}
		return []state.Action{state.ConnectServer{
			Name: entry.Name,
			Host: entry.Host,
			Port: entry.Port,
			TLS:  entry.TLS,
			Nick: entry.Nickname,
		}}

	case "disconnect":
		srv, ok := activeServer(s)
		if !ok {
			return nil
		}
		return []state.Action{state.DisconnectServer{ServerID: srv.ID}}

	case "password":
		name, password, _ := strings.Cut(rest, " ")
		if name == "" {
			s.ErrorMessage(s.Active, "Usage: /server password <name> [password]  (omit the password to clear it)")
			return nil
		}
		entry, ok := s.Config.FindServer(name)
		if !ok {
			s.ErrorMessage(s.Active, fmt.Sprintf("Unknown server %q (see /server list)", name))
			return nil
		}
		// Key the keychain by the configured name, whatever case was typed.
		return []state.Action{state.StoreNickPassword{Network: entry.Name, Password: strings.TrimSpace(password)}}

	default:
		s.ErrorMessage(s.Active, "Usage: /server add|connect|disconnect|password|list")
		return nil
	}
}

func defaultNick(s *state.Session) string {
	if len(s.Config.Servers) > 0 {
		return s.Config.Servers[0].Nickname
	}
	return "driftwood"
}

func cmdJoin(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /join <#channel>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	channel := strings.Fields(args)[0]
	if !strings.HasPrefix(channel, "#") && !strings.HasPrefix(channel, "&") {
		channel = "#" + channel
	}
	return []state.Action{state.JoinChannel{ServerID: srv.ID, Channel: channel}}
}

func cmdPart(s *state.Session, args string) []state.Action {
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	channel := ""
	reason := s.Config.Behavior.PartMessage
	if args != "" && (strings.HasPrefix(args, "#") || strings.HasPrefix(args, "&")) {
		channel, args, _ = strings.Cut(args, " ")
		args = strings.TrimSpace(args)
	}
	if args != "" {
		reason = args
	}
	if channel == "" {
		if s.Active.Kind != state.KindChannel {
			s.ErrorMessage(s.Active, "Usage: /part <#channel> [reason]")
			return nil
		}
		channel = s.Active.Target
	}
	return []state.Action{state.PartChannel{ServerID: srv.ID, Channel: channel, Reason: reason}}
}

func cmdNick(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /nick <name>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.ChangeNick{ServerID: srv.ID, Nick: strings.Fields(args)[0]}}
}

func cmdMsg(s *state.Session, args string) []state.Action {
	target, text, _ := strings.Cut(args, " ")
	text = strings.TrimSpace(text)
	if target == "" || text == "" {
		s.ErrorMessage(s.Active, "Usage: /msg <target> <text>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	key := s.Active
	if !strings.HasPrefix(target, "#") && !strings.HasPrefix(target, "&") {
		key = state.QueryKey(srv.ID, target)
		s.EnsureBuffer(key)
	}
	s.AddMessage(key, s.NewMessage(srv.Nick, text, state.KindNormal))
	return []state.Action{state.SendPrivmsg{ServerID: srv.ID, Target: target, Text: text}}
}

func cmdQuery(s *state.Session, args string) []state.Action {
	nick, text, _ := strings.Cut(args, " ")
	text = strings.TrimSpace(text)
	if nick == "" {
		s.ErrorMessage(s.Active, "Usage: /query <nick> [text]")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	key := state.QueryKey(srv.ID, nick)
	s.EnsureBuffer(key)
	s.SetActive(key)
	if text == "" {
		return nil
	}
	s.AddMessage(key, s.NewMessage(srv.Nick, text, state.KindNormal))
	return []state.Action{state.SendPrivmsg{ServerID: srv.ID, Target: nick, Text: text}}
}

func cmdMe(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /me <text>")
		return nil
	}
	srv, target, ok := activeConversation(s)
	if !ok {
		return nil
	}
	s.AddMessage(s.Active, s.NewMessage(srv.Nick, args, state.KindAction))
	return []state.Action{state.SendEmote{ServerID: srv.ID, Target: target, Text: args}}
}

func cmdDcc(s *state.Session, args string) []state.Action {
	sub, rest, _ := strings.Cut(args, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(sub) {
	case "list", "":
		if len(s.Transfers) == 0 {
			s.SystemMessage(s.Active, "No DCC transfers")
			return nil
		}
		for _, t := range s.Transfers {
			s.SystemMessage(s.Active, fmt.Sprintf("#%d %s from %s: %d/%d bytes [%s]",
				t.ID, t.Filename, t.From, t.Received, t.Size, t.Status))
		}
		return nil

	case "accept":
		id, err := strconv.Atoi(rest)
		if err != nil {
			s.ErrorMessage(s.Active, "Usage: /dcc accept <id>")
			return nil
		}
		return []state.Action{state.DccAccept{TransferID: id}}

	case "cancel":
		id, err := strconv.Atoi(rest)
		if err != nil {
			s.ErrorMessage(s.Active, "Usage: /dcc cancel <id>")
			return nil
		}
		return []state.Action{state.DccCancel{TransferID: id}}

	default:
		s.ErrorMessage(s.Active, "Usage: /dcc list | accept <id> | cancel <id>")
		return nil
	}
}

func cmdTopic(s *state.Session, args string) []state.Action {
	if s.Active.Kind != state.KindChannel {
		s.ErrorMessage(s.Active, "Topic only works in a channel")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	if args == "" {
		topic := srv.Topics[channelForKey(srv, s.Active.Target)]
		if topic == "" {
			s.SystemMessage(s.Active, "No topic is set")
		} else {
			s.SystemMessage(s.Active, "Topic: "+topic)
		}
		return nil
	}
	return []state.Action{state.SetTopic{ServerID: srv.ID, Channel: s.Active.Target, Text: args}}
}

func cmdKick(s *state.Session, args string) []state.Action {
	nick, reason, _ := strings.Cut(args, " ")
	if nick == "" || s.Active.Kind != state.KindChannel {
		s.ErrorMessage(s.Active, "Usage: /kick <nick> [reason] (in a channel)")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SendKick{ServerID: srv.ID, Channel: s.Active.Target, User: nick, Reason: strings.TrimSpace(reason)}}
}

func cmdMode(s *state.Session, args string) []state.Action {
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	target, modes, _ := strings.Cut(args, " ")
	modes = strings.TrimSpace(modes)
	// "/mode +o nick" inside a channel applies to that channel.
	if strings.HasPrefix(target, "+") || strings.HasPrefix(target, "-") {
		if s.Active.Kind != state.KindChannel {
			s.ErrorMessage(s.Active, "Usage: /mode <target> <modes>")
			return nil
		}
		modes = strings.TrimSpace(args)
		target = s.Active.Target
	}
	if target == "" || modes == "" {
		s.ErrorMessage(s.Active, "Usage: /mode <target> <modes>")
		return nil
	}
	return []state.Action{state.SendMode{ServerID: srv.ID, Target: target, Modes: modes}}
}

func cmdNotice(s *state.Session, args string) []state.Action {
	target, text, _ := strings.Cut(args, " ")
	text = strings.TrimSpace(text)
	if target == "" || text == "" {
		s.ErrorMessage(s.Active, "Usage: /notice <target> <text>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SendNotice{ServerID: srv.ID, Target: target, Text: text}}
}

func cmdWhois(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /whois <nick>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SendWhois{ServerID: srv.ID, Nick: strings.Fields(args)[0]}}
}

func cmdWho(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /who <target>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SendWho{ServerID: srv.ID, Target: strings.Fields(args)[0]}}
}

func cmdAway(s *state.Session, args string) []state.Action {
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SetAway{ServerID: srv.ID, Message: args}}
}

func cmdList(s *state.Session) []state.Action {
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	s.ChannelBrowser = state.ChannelBrowser{Loading: true, ServerID: srv.ID}
	s.SystemMessage(s.Active, "Fetching channel list...")
	return []state.Action{state.RequestList{ServerID: srv.ID}}
}

func cmdCtcp(s *state.Session, args string) []state.Action {
	target, rest, _ := strings.Cut(args, " ")
	command, ctcpArgs, _ := strings.Cut(strings.TrimSpace(rest), " ")
	if target == "" || command == "" {
		s.ErrorMessage(s.Active, "Usage: /ctcp <nick> <command> [args]")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SendCtcp{ServerID: srv.ID, Target: target, Command: command, Args: strings.TrimSpace(ctcpArgs)}}
}

func cmdQuote(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /quote <raw line>")
		return nil
	}
	srv, ok := activeServer(s)
	if !ok {
		return nil
	}
	return []state.Action{state.SendRaw{ServerID: srv.ID, Line: args}}
}

func cmdIgnore(s *state.Session, args string) []state.Action {
	if args == "" {
		if len(s.Ignored) == 0 {
			s.SystemMessage(s.Active, "Ignore list is empty")
			return nil
		}
		nicks := make([]string, 0, len(s.Ignored))
		for n := range s.Ignored {
			nicks = append(nicks, n)
		}
		s.SystemMessage(s.Active, "Ignoring: "+strings.Join(nicks, ", "))
		return nil
	}
	nick := strings.Fields(args)[0]
	s.Ignore(nick)
	s.SystemMessage(s.Active, fmt.Sprintf("Now ignoring %s", nick))
	return nil
}

func cmdUnignore(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /unignore <nick>")
		return nil
	}
	nick := strings.Fields(args)[0]
	s.Unignore(nick)
	s.SystemMessage(s.Active, fmt.Sprintf("No longer ignoring %s", nick))
	return nil
}

func cmdNotify(s *state.Session, args string) []state.Action {
	if args == "" {
		nicks := s.NotifyNicks()
		if len(nicks) == 0 {
			s.SystemMessage(s.Active, "Notify list is empty")
			return nil
		}
		s.SystemMessage(s.Active, "Watching: "+strings.Join(nicks, ", "))
		return nil
	}
	nick := strings.Fields(args)[0]
	s.AddNotify(nick)
	s.SystemMessage(s.Active, fmt.Sprintf("Watching %s", nick))
	// Poll immediately so the user doesn't wait a full interval.
	if srv, ok := activeServer(s); ok {
		return []state.Action{state.SendIson{ServerID: srv.ID, Nicks: s.NotifyNicks()}}
	}
	return nil
}

func cmdUnnotify(s *state.Session, args string) []state.Action {
	if args == "" {
		s.ErrorMessage(s.Active, "Usage: /unnotify <nick>")
		return nil
	}
	nick := strings.Fields(args)[0]
	s.RemoveNotify(nick)
	delete(s.KnownOnline, strings.ToLower(nick))
	s.SystemMessage(s.Active, fmt.Sprintf("No longer watching %s", nick))
	return nil
}

func cmdQuit(s *state.Session, args string) []state.Action {
	msg := args
	if msg == "" {
		msg = s.Config.Behavior.QuitMessage
	}
	s.ShouldQuit = true
	s.QuitMessage = msg
	return []state.Action{state.Quit{Message: msg}}
}
