package state

import (
	"sort"
	"strings"
)

// AddChannelUser inserts nick into the channel roster if not present.
func (s *ServerState) AddChannelUser(channel, nick string, prefix Prefix) {
	users := s.Users[channel]
	for _, u := range users {
		if strings.EqualFold(u.Nick, nick) {
			return
		}
	}
	s.Users[channel] = append(users, ChannelUser{Nick: nick, Prefix: prefix})
}

// RemoveChannelUser drops nick from the channel roster.
func (s *ServerState) RemoveChannelUser(channel, nick string) {
	users := s.Users[channel]
	for i, u := range users {
		if strings.EqualFold(u.Nick, nick) {
			s.Users[channel] = append(users[:i], users[i+1:]...)
			return
		}
	}
}

// RemoveUserEverywhere drops nick from every roster on this server and
// returns the channels it was removed from.
func (s *ServerState) RemoveUserEverywhere(nick string) []string {
	var channels []string
	for ch, users := range s.Users {
		for i, u := range users {
			if strings.EqualFold(u.Nick, nick) {
				s.Users[ch] = append(users[:i], users[i+1:]...)
				channels = append(channels, ch)
				break
			}
		}
	}
	sort.Strings(channels)
	return channels
}

// RenameUser rewrites nick across every roster and returns the channels the
// user occupies.
func (s *ServerState) RenameUser(oldNick, newNick string) []string {
	var channels []string
	for ch, users := range s.Users {
		for i, u := range users {
			if strings.EqualFold(u.Nick, oldNick) {
				users[i].Nick = newNick
				channels = append(channels, ch)
				break
			}
		}
	}
	sort.Strings(channels)
	return channels
}

// ApplyPrefix updates a roster entry for a mode grant or removal. A grant
// only upgrades the displayed prefix; a removal clears it only when the
// current prefix exactly matches the mode being removed, so removing voice
// from an operator leaves the @ intact.
func (s *ServerState) ApplyPrefix(channel, nick string, prefix Prefix, add bool) {
	users := s.Users[channel]
	for i, u := range users {
		if !strings.EqualFold(u.Nick, nick) {
			continue
		}
		if add {
			if prefix.Outranks(u.Prefix) {
				users[i].Prefix = prefix
			}
		} else if u.Prefix == prefix {
			users[i].Prefix = PrefixNone
		}
		return
	}
}

// SortRoster orders a channel roster by prefix precedence, then nick.
func (s *ServerState) SortRoster(channel string) {
	users := s.Users[channel]
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].Prefix != users[j].Prefix {
			return users[i].Prefix.Outranks(users[j].Prefix)
		}
		return strings.ToLower(users[i].Nick) < strings.ToLower(users[j].Nick)
	})
}
