package dcc

import (
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/matt0x6f/driftwood/internal/logger"
	"github.com/matt0x6f/driftwood/internal/state"
)

// Offer is a parsed DCC SEND request.
type Offer struct {
	Filename string
	IP       netip.Addr
	Port     uint16
	Size     uint64
}

// ParseSend parses the payload of a CTCP "DCC SEND" message: a filename
// (quoted when it contains spaces), a 32-bit big-endian IPv4 address as
// a decimal integer, a port, and the file size in bytes. Any malformed
// field makes the whole offer invalid.
func ParseSend(payload string) (Offer, bool) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Offer{}, false
	}

	var filename, rest string
	if payload[0] == '"' {
		end := strings.IndexByte(payload[1:], '"')
		if end < 0 {
			return Offer{}, false
		}
		filename = payload[1 : 1+end]
		rest = strings.TrimSpace(payload[end+2:])
	} else {
		idx := strings.IndexByte(payload, ' ')
		if idx < 0 {
			return Offer{}, false
		}
		filename = payload[:idx]
		rest = strings.TrimSpace(payload[idx+1:])
	}
	if filename == "" {
		return Offer{}, false
	}

	fields := strings.Fields(rest)
	if len(fields) != 3 {
		return Offer{}, false
	}

	ipNum, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return Offer{}, false
	}
	var octets [4]byte
	binary.BigEndian.PutUint32(octets[:], uint32(ipNum))
	ip := netip.AddrFrom4(octets)

	port, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil || port == 0 {
		return Offer{}, false
	}

	size, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Offer{}, false
	}

	return Offer{Filename: filename, IP: ip, Port: uint16(port), Size: size}, true
}

// HandleOffer runs the security pipeline over a CTCP DCC payload and, if
// it passes, records a pending transfer and announces it. Malformed
// offers are dropped without a trace; rejected ones produce a visible
// error line so the user knows a peer tried.
func HandleOffer(s *state.Session, serverID int, from, payload string) {
	if !strings.HasPrefix(payload, "SEND ") {
		logger.Log.Debug().Str("from", from).Str("payload", payload).Msg("ignoring non-SEND DCC request")
		return
	}

	offer, ok := ParseSend(strings.TrimPrefix(payload, "SEND "))
	if !ok {
		logger.Log.Warn().Str("from", from).Str("payload", payload).Msg("discarding malformed DCC SEND")
		return
	}

	key := state.StatusKey(serverID)
	cfg := s.Config.DCC

	if cfg.RejectPrivateIPs && IsUnroutableAddr(offer.IP) {
		s.ErrorMessage(key, fmt.Sprintf("Rejected DCC SEND %q from %s: sender address %s is not routable", offer.Filename, from, offer.IP))
		return
	}
	if cfg.MaxFileSize > 0 && offer.Size > cfg.MaxFileSize {
		s.ErrorMessage(key, fmt.Sprintf("Rejected DCC SEND %q from %s: %d bytes exceeds the configured limit", offer.Filename, from, offer.Size))
		return
	}

	name, err := SanitizeFilename(offer.Filename)
	if err != nil {
		s.ErrorMessage(key, fmt.Sprintf("Rejected DCC SEND from %s: %v", from, err))
		return
	}

	t := &state.DccTransfer{
		ID:       s.AllocTransferID(),
		ServerID: serverID,
		From:     from,
		Filename: name,
		Size:     offer.Size,
		IP:       offer.IP,
		Port:     offer.Port,
		Status:   state.TransferPending,
	}
	s.Transfers = append(s.Transfers, t)
	s.SystemMessage(key, fmt.Sprintf("DCC SEND offer from %s: %q (%d bytes, transfer #%d). Use /dcc accept %d to receive.",
		from, name, offer.Size, t.ID, t.ID))
}
