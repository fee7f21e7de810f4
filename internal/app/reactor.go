package app

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/matt0x6f/driftwood/internal/chatlog"
	"github.com/matt0x6f/driftwood/internal/dcc"
	"github.com/matt0x6f/driftwood/internal/irc"
	"github.com/matt0x6f/driftwood/internal/logger"
	"github.com/matt0x6f/driftwood/internal/state"
)

// Frontend is the rendering side of the client. The reactor never draws;
// it asks the frontend to redraw after every handled event and to ring
// on mention or PM bells.
type Frontend interface {
	Render(s *state.Session)
	Bell()
}

// Reactor consumes the shared event queue and is the only goroutine
// that touches the session. Every event is handled to completion,
// including all actions it produces, before the next one is taken.
type Reactor struct {
	session  *state.Session
	queue    chan interface{}
	irc      *irc.Manager
	dcc      *dcc.Manager
	log      *chatlog.Logger
	frontend Frontend
	keychain nickPasswordSource
}

// nickPasswordSource reads and writes stored NickServ passwords per
// network. The config value wins on read; this is the fallback.
type nickPasswordSource interface {
	NickPassword(network string) (string, error)
	StoreNickPassword(network, password string) error
}

// New assembles a reactor around an existing session and queue.
func New(session *state.Session, queue chan interface{}, ircMgr *irc.Manager, dccMgr *dcc.Manager, log *chatlog.Logger, frontend Frontend, keychain nickPasswordSource) *Reactor {
	return &Reactor{
		session:  session,
		queue:    queue,
		irc:      ircMgr,
		dcc:      dccMgr,
		log:      log,
		frontend: frontend,
		keychain: keychain,
	}
}

// Queue returns the producer side of the event channel.
func (r *Reactor) Queue() chan<- interface{} { return r.queue }

// Run consumes events until a quit is requested. It owns the session
// for its whole lifetime.
func (r *Reactor) Run() {
	for ev := range r.queue {
		r.handle(ev)
		r.finishEvent()
		if r.session.ShouldQuit {
			r.shutdown()
			return
		}
	}
}

func (r *Reactor) handle(ev interface{}) {
	s := r.session
	switch v := ev.(type) {
	case KeyEvent:
		r.dispatchAll(HandleKey(s, v))

	case TickEvent:
		r.handleTick(v.Now)

	case irc.LineEvent:
		r.dispatchAll(irc.React(s, v.ServerID, irc.Decode(v.Msg)))

	case irc.ConnectedEvent:
		if srv := s.Server(v.ServerID); srv != nil {
			srv.SetStatus(state.StatusConnected)
			s.SystemMessage(state.StatusKey(srv.ID), fmt.Sprintf("Connected to %s", srv.Host))
		}

	case irc.DisconnectedEvent:
		if srv := s.Server(v.ServerID); srv != nil {
			srv.SetStatus(state.StatusDisconnected)
			srv.Channels = nil
			srv.Users = make(map[string][]state.ChannelUser)
			s.SystemMessage(state.StatusKey(srv.ID), fmt.Sprintf("Disconnected from %s (%s)", srv.Host, v.Reason))
		}

	case irc.ErrorEvent:
		if srv := s.Server(v.ServerID); srv != nil {
			srv.SetStatus(state.StatusDisconnected)
			s.ErrorMessage(state.StatusKey(srv.ID), fmt.Sprintf("Connection error: %v", v.Err))
		}

	case dcc.ProgressEvent:
		if t := s.Transfer(v.TransferID); t != nil {
			t.Received = v.Received
		}

	case dcc.CompletedEvent:
		if t := s.Transfer(v.TransferID); t != nil {
			t.Received = v.Received
			t.Transition(state.TransferCompleted)
			s.SystemMessage(state.StatusKey(t.ServerID),
				fmt.Sprintf("DCC transfer #%d complete: %s (%d bytes)", t.ID, v.Path, v.Received))
		}

	case dcc.FailedEvent:
		if t := s.Transfer(v.TransferID); t != nil {
			t.Transition(state.TransferFailed)
			t.Error = v.Err.Error()
			s.ErrorMessage(state.StatusKey(t.ServerID),
				fmt.Sprintf("DCC transfer #%d failed: %v", t.ID, v.Err))
		}

	case state.Action:
		// Bootstrap path: startup pushes actions (auto-connect) straight
		// onto the queue before any input exists.
		r.dispatchAll([]state.Action{v})

	default:
		logger.Log.Warn().Type("event", ev).Msg("unhandled event")
	}
}

// dispatchAll carries out every action an event produced, in order.
// Dispatch failures become error lines in the active buffer; they never
// stop the remaining actions.
func (r *Reactor) dispatchAll(actions []state.Action) {
	for _, a := range actions {
		if err := r.dispatch(a); err != nil {
			r.session.ErrorMessage(r.session.Active, err.Error())
		}
	}
}

func (r *Reactor) dispatch(action state.Action) error {
	s := r.session
	switch a := action.(type) {
	case state.SendMessage:
		return r.irc.Privmsg(a.ServerID, a.Target, a.Text)
	case state.SendEmote:
		return r.irc.Emote(a.ServerID, a.Target, a.Text)
	case state.SendPrivmsg:
		return r.irc.Privmsg(a.ServerID, a.Target, a.Text)
	case state.SendNotice:
		return r.irc.Notice(a.ServerID, a.Target, a.Text)
	case state.JoinChannel:
		return r.irc.Join(a.ServerID, a.Channel)
	case state.PartChannel:
		return r.irc.Part(a.ServerID, a.Channel, a.Reason)
	case state.ChangeNick:
		return r.irc.Nick(a.ServerID, a.Nick)
	case state.SendKick:
		return r.irc.Kick(a.ServerID, a.Channel, a.User, a.Reason)
	case state.SendMode:
		return r.irc.Mode(a.ServerID, a.Target, a.Modes)
	case state.SetTopic:
		return r.irc.Topic(a.ServerID, a.Channel, a.Text)
	case state.SendWhois:
		return r.irc.Whois(a.ServerID, a.Nick)
	case state.SendWho:
		return r.irc.Who(a.ServerID, a.Target)
	case state.SetAway:
		return r.irc.Away(a.ServerID, a.Message)
	case state.SendRaw:
		return r.irc.Raw(a.ServerID, a.Line)
	case state.RequestList:
		return r.irc.List(a.ServerID)
	case state.SendCtcp:
		return r.irc.CtcpRequest(a.ServerID, a.Target, a.Command, a.Args)
	case state.SendCtcpReply:
		return r.irc.CtcpReply(a.ServerID, a.Target, a.Command, a.Text)
	case state.SendIson:
		return r.irc.Ison(a.ServerID, a.Nicks)

	case state.ConnectServer:
		r.connectServer(a)
		return nil
	case state.DisconnectServer:
		return r.irc.Disconnect(a.ServerID)

	case state.StoreNickPassword:
		if r.keychain == nil {
			return fmt.Errorf("no keychain available")
		}
		if err := r.keychain.StoreNickPassword(a.Network, a.Password); err != nil {
			return err
		}
		if a.Password == "" {
			s.SystemMessage(s.Active, fmt.Sprintf("Cleared stored password for %s", a.Network))
		} else {
			s.SystemMessage(s.Active, fmt.Sprintf("Stored password for %s", a.Network))
		}
		return nil

	case state.DccAccept:
		t := s.Transfer(a.TransferID)
		if t == nil {
			return fmt.Errorf("no DCC transfer #%d", a.TransferID)
		}
		path, err := r.dcc.Accept(t, s.Config.DCC)
		if err != nil {
			return err
		}
		s.SystemMessage(state.StatusKey(t.ServerID),
			fmt.Sprintf("Receiving %q from %s into %s", t.Filename, t.From, path))
		return nil

	case state.DccCancel:
		t := s.Transfer(a.TransferID)
		if t == nil {
			return fmt.Errorf("no DCC transfer #%d", a.TransferID)
		}
		if !t.Transition(state.TransferCancelled) {
			return fmt.Errorf("transfer #%d is already %s", t.ID, t.Status)
		}
		r.dcc.Cancel(t.ID)
		s.SystemMessage(state.StatusKey(t.ServerID), fmt.Sprintf("DCC transfer #%d cancelled", t.ID))
		return nil

	case state.Quit:
		// Teardown happens in shutdown once the loop exits.
		return nil
	}
	return fmt.Errorf("unhandled action %T", action)
}

// connectServer allocates session state for a new connection and hands
// the dial to the IRC manager. Reconnecting to a known server reuses
// its state.
func (r *Reactor) connectServer(a state.ConnectServer) {
	s := r.session

	var srv *state.ServerState
	for _, existing := range s.Servers {
		if existing.Name == a.Name {
			srv = existing
			break
		}
	}
	if srv == nil {
		srv = &state.ServerState{
			ID:   s.AllocServerID(),
			Name: a.Name,
			Host: a.Host,
			Port: a.Port,
			TLS:  a.TLS,
		}
		srv.SetNick(a.Nick)
		s.AddServer(srv)
	}
	if srv.Status != state.StatusDisconnected {
		s.ErrorMessage(state.StatusKey(srv.ID), fmt.Sprintf("Already %s to %s", srv.Status, srv.Host))
		return
	}

	cfgSrv, _ := s.Config.FindServer(a.Name)
	srv.AltNicks = cfgSrv.AltNicks
	srv.AltNickIndex = 0
	srv.NickPassword = cfgSrv.NickPassword
	if srv.NickPassword == "" && r.keychain != nil {
		if pw, err := r.keychain.NickPassword(a.Name); err == nil && pw != "" {
			srv.NickPassword = pw
		}
	}

	srv.SetStatus(state.StatusConnecting)
	s.SystemMessage(state.StatusKey(srv.ID), fmt.Sprintf("Connecting to %s:%d...", a.Host, a.Port))

	r.irc.Connect(srv.ID, irc.ConnectOptions{
		Host:               a.Host,
		Port:               a.Port,
		TLS:                a.TLS,
		AcceptInvalidCerts: cfgSrv.AcceptInvalidCerts,
		Nick:               a.Nick,
		Username:           orDefault(cfgSrv.Username, a.Nick),
		Realname:           orDefault(cfgSrv.Realname, a.Nick),
		ServerPassword:     cfgSrv.Password,
		SASLMechanism:      cfgSrv.SASLMechanism,
		SASLUser:           orDefault(cfgSrv.Username, a.Nick),
		SASLPassword:       cfgSrv.NickPassword,
		QuitMessage:        s.Config.Behavior.QuitMessage,
	})
}

func orDefault(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}

// isonInterval is how often watched nicks are polled.
const isonInterval = 60 * time.Second

// handleTick releases due rejoins and schedules presence polls.
func (r *Reactor) handleTick(now time.Time) {
	s := r.session

	if len(s.PendingRejoins) > 0 {
		remaining := s.PendingRejoins[:0]
		for _, rejoin := range s.PendingRejoins {
			if now.Before(rejoin.At) {
				remaining = append(remaining, rejoin)
				continue
			}
			if err := r.irc.Join(rejoin.ServerID, rejoin.Channel); err != nil {
				s.ErrorMessage(state.StatusKey(rejoin.ServerID), fmt.Sprintf("Rejoin failed: %v", err))
			}
		}
		s.PendingRejoins = remaining
	}

	if len(s.Notify) > 0 && now.Sub(s.LastIsonCheck) >= isonInterval {
		s.LastIsonCheck = now
		for _, srv := range s.Servers {
			if srv.Status == state.StatusConnected {
				if err := r.irc.Ison(srv.ID, s.NotifyNicks()); err != nil {
					logger.Log.Debug().Err(err).Int("server", srv.ID).Msg("ISON poll failed")
				}
			}
		}
	}
}

// finishEvent drains side effects accumulated while handling: chat log
// lines, the bell, and a redraw.
func (r *Reactor) finishEvent() {
	s := r.session

	for _, lm := range s.NewMessages {
		name := ""
		if srv := s.Server(lm.Key.ServerID); srv != nil {
			name = srv.Name
		}
		r.log.Record(name, lm.Key, lm.Message)
	}
	s.NewMessages = s.NewMessages[:0]

	if s.PendingBell {
		s.PendingBell = false
		if r.frontend != nil {
			r.frontend.Bell()
		}
		if err := beeep.Notify("driftwood", "New mention or private message", ""); err != nil {
			logger.Log.Debug().Err(err).Msg("desktop notification failed")
		}
	}

	if r.frontend != nil {
		r.frontend.Render(s)
	}
}

func (r *Reactor) shutdown() {
	logger.Log.Info().Msg("shutting down")
	r.dcc.Shutdown()
	r.irc.Shutdown()
	if err := r.log.Close(); err != nil {
		logger.Log.Error().Err(err).Msg("closing chat log")
	}
}
