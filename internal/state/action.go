package state

// Action is a side-effect requested while handling an event. Reactions and
// key handlers never touch sockets; they return actions and the dispatcher
// hands each one to the IRC or DCC manager.
type Action interface {
	isAction()
}

// SendMessage sends user-typed text to a channel or user.
type SendMessage struct {
	ServerID int
	Target   string
	Text     string
}

// SendEmote sends a CTCP ACTION (/me) to a channel or user.
type SendEmote struct {
	ServerID int
	Target   string
	Text     string
}

// SendPrivmsg sends a programmatic PRIVMSG (e.g. /msg, auto-identify).
type SendPrivmsg struct {
	ServerID int
	Target   string
	Text     string
}

// JoinChannel joins an IRC channel.
type JoinChannel struct {
	ServerID int
	Channel  string
}

// PartChannel leaves a channel with an optional reason.
type PartChannel struct {
	ServerID int
	Channel  string
	Reason   string
}

// ChangeNick requests a nickname change. The session nickname is only
// committed once the server confirms it with a NICK message.
type ChangeNick struct {
	ServerID int
	Nick     string
}

// ConnectServer establishes a new connection.
type ConnectServer struct {
	Name string
	Host string
	Port int
	TLS  bool
	Nick string
}

// DisconnectServer severs the outbound sender for a connection.
type DisconnectServer struct {
	ServerID int
}

// StoreNickPassword saves a NickServ password for a network in the OS
// keychain. An empty password clears the stored entry.
type StoreNickPassword struct {
	Network  string
	Password string
}

// DccAccept accepts a pending file transfer.
type DccAccept struct {
	TransferID int
}

// DccCancel cancels a file transfer.
type DccCancel struct {
	TransferID int
}

// Quit exits the client with an optional quit message.
type Quit struct {
	Message string
}

// SendKick removes a user from a channel.
type SendKick struct {
	ServerID int
	Channel  string
	User     string
	Reason   string
}

// SendMode sets channel or user modes.
type SendMode struct {
	ServerID int
	Target   string
	Modes    string
}

// SetTopic changes a channel topic.
type SetTopic struct {
	ServerID int
	Channel  string
	Text     string
}

// SendNotice sends a NOTICE.
type SendNotice struct {
	ServerID int
	Target   string
	Text     string
}

// SendWhois queries WHOIS for a nick.
type SendWhois struct {
	ServerID int
	Nick     string
}

// SendWho sends a WHO query.
type SendWho struct {
	ServerID int
	Target   string
}

// SetAway sets or clears away status (empty message clears).
type SetAway struct {
	ServerID int
	Message  string
}

// SendRaw sends a raw IRC line.
type SendRaw struct {
	ServerID int
	Line     string
}

// RequestList asks the server for its channel list.
type RequestList struct {
	ServerID int
}

// SendCtcp sends a CTCP request via PRIVMSG.
type SendCtcp struct {
	ServerID int
	Target   string
	Command  string
	Args     string
}

// SendCtcpReply sends a CTCP reply via NOTICE.
type SendCtcpReply struct {
	ServerID int
	Target   string
	Command  string
	Text     string
}

// SendIson polls the server for online presence of the given nicks.
type SendIson struct {
	ServerID int
	Nicks    []string
}

func (SendMessage) isAction()       {}
func (SendEmote) isAction()         {}
func (SendPrivmsg) isAction()       {}
func (JoinChannel) isAction()       {}
func (PartChannel) isAction()       {}
func (ChangeNick) isAction()        {}
func (ConnectServer) isAction()     {}
func (DisconnectServer) isAction()  {}
func (StoreNickPassword) isAction() {}
func (DccAccept) isAction()         {}
func (DccCancel) isAction()         {}
func (Quit) isAction()              {}
func (SendKick) isAction()          {}
func (SendMode) isAction()          {}
func (SetTopic) isAction()          {}
func (SendNotice) isAction()        {}
func (SendWhois) isAction()         {}
func (SendWho) isAction()           {}
func (SetAway) isAction()           {}
func (SendRaw) isAction()           {}
func (RequestList) isAction()       {}
func (SendCtcp) isAction()          {}
func (SendCtcpReply) isAction()     {}
func (SendIson) isAction()          {}
