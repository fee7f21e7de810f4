package irc

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"github.com/ergochat/irc-go/ircevent"
	"github.com/ergochat/irc-go/ircmsg"
	"golang.org/x/crypto/pbkdf2"

	"github.com/matt0x6f/driftwood/internal/logger"
)

// scramClient runs the client side of SCRAM-SHA-256/512 (RFC 5802) over
// the IRC AUTHENTICATE exchange. Each call to step consumes one server
// message and yields the next line to send.
type scramClient struct {
	newHash func() hash.Hash

	username    string
	password    string
	clientNonce string

	phase       int
	firstBare   string
	serverFirst string
	serverKey   []byte
}

const (
	scramPhaseStart = iota
	scramPhaseFirstSent
	scramPhaseFinalSent
	scramPhaseDone
)

func newScramClient(mechanism, username, password string) (*scramClient, error) {
	var h func() hash.Hash
	switch strings.ToUpper(mechanism) {
	case "SCRAM-SHA-256":
		h = sha256.New
	case "SCRAM-SHA-512":
		h = sha512.New
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism %q", mechanism)
	}

	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}

	return &scramClient{
		newHash:     h,
		username:    username,
		password:    password,
		clientNonce: base64.RawStdEncoding.EncodeToString(nonce),
	}, nil
}

// step consumes one AUTHENTICATE payload from the server and returns
// the payload to send back.
func (sc *scramClient) step(input string) (string, error) {
	switch sc.phase {
	case scramPhaseStart:
		if input != "+" {
			return "", errors.New("expected empty challenge")
		}
		sc.firstBare = fmt.Sprintf("n=%s,r=%s", sc.username, sc.clientNonce)
		sc.phase = scramPhaseFirstSent
		return base64.StdEncoding.EncodeToString([]byte("n,," + sc.firstBare)), nil

	case scramPhaseFirstSent:
		decoded, err := base64.StdEncoding.DecodeString(input)
		if err != nil {
			return "", fmt.Errorf("decoding server-first: %w", err)
		}
		sc.serverFirst = string(decoded)
		final, err := sc.clientFinal(sc.serverFirst)
		if err != nil {
			return "", err
		}
		sc.phase = scramPhaseFinalSent
		return base64.StdEncoding.EncodeToString([]byte(final)), nil

	case scramPhaseFinalSent:
		decoded, err := base64.StdEncoding.DecodeString(input)
		if err != nil {
			return "", fmt.Errorf("decoding server-final: %w", err)
		}
		if err := sc.verifyServerFinal(string(decoded)); err != nil {
			return "", err
		}
		sc.phase = scramPhaseDone
		return "+", nil

	default:
		return "", errors.New("authentication already finished")
	}
}

func (sc *scramClient) clientFinal(serverFirst string) (string, error) {
	params := parseScramParams(serverFirst)

	serverNonce, ok := params["r"]
	if !ok || !strings.HasPrefix(serverNonce, sc.clientNonce) {
		return "", errors.New("server nonce does not extend client nonce")
	}
	saltB64, ok := params["s"]
	if !ok {
		return "", errors.New("server-first missing salt")
	}
	salt, err := base64.StdEncoding.DecodeString(saltB64)
	if err != nil {
		return "", fmt.Errorf("decoding salt: %w", err)
	}
	iterations, err := strconv.Atoi(params["i"])
	if err != nil || iterations <= 0 {
		return "", errors.New("server-first has invalid iteration count")
	}

	salted := pbkdf2.Key([]byte(sc.password), salt, iterations, sc.newHash().Size(), sc.newHash)
	clientKey := computeHMAC(salted, "Client Key", sc.newHash)
	storedKey := computeHash(clientKey, sc.newHash)
	sc.serverKey = computeHMAC(salted, "Server Key", sc.newHash)

	withoutProof := fmt.Sprintf("c=%s,r=%s", base64.StdEncoding.EncodeToString([]byte("n,,")), serverNonce)
	authMessage := sc.firstBare + "," + serverFirst + "," + withoutProof

	clientSignature := computeHMAC(storedKey, authMessage, sc.newHash)
	proof := xorBytes(clientKey, clientSignature)
	if proof == nil {
		return "", errors.New("key and signature length mismatch")
	}

	return withoutProof + ",p=" + base64.StdEncoding.EncodeToString(proof), nil
}

func (sc *scramClient) verifyServerFinal(serverFinal string) error {
	params := parseScramParams(serverFinal)
	if e, ok := params["e"]; ok {
		return fmt.Errorf("server rejected authentication: %s", e)
	}
	signature, ok := params["v"]
	if !ok {
		return errors.New("server-final missing verifier")
	}

	serverNonce := parseScramParams(sc.serverFirst)["r"]
	withoutProof := fmt.Sprintf("c=%s,r=%s", base64.StdEncoding.EncodeToString([]byte("n,,")), serverNonce)
	authMessage := sc.firstBare + "," + sc.serverFirst + "," + withoutProof
	expected := base64.StdEncoding.EncodeToString(computeHMAC(sc.serverKey, authMessage, sc.newHash))

	if signature != expected {
		return errors.New("server signature mismatch")
	}
	return nil
}

func parseScramParams(message string) map[string]string {
	params := make(map[string]string)
	for _, part := range strings.Split(message, ",") {
		if len(part) >= 2 && part[1] == '=' {
			params[part[:1]] = part[2:]
		}
	}
	return params
}

func computeHMAC(key []byte, data string, h func() hash.Hash) []byte {
	mac := hmac.New(h, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func computeHash(data []byte, h func() hash.Hash) []byte {
	hasher := h()
	hasher.Write(data)
	return hasher.Sum(nil)
}

func xorBytes(a, b []byte) []byte {
	if len(a) != len(b) {
		return nil
	}
	out := make([]byte, len(a))
	for i := range a {
		out[i] = a[i] ^ b[i]
	}
	return out
}

// attachSCRAM wires manual CAP negotiation and the AUTHENTICATE
// exchange onto a connection. The library handles PLAIN natively;
// SCRAM mechanisms go through here.
func attachSCRAM(conn *ircevent.Connection, mechanism, username, password string) {
	sc, err := newScramClient(mechanism, username, password)
	if err != nil {
		logger.Log.Error().Err(err).Msg("SASL disabled")
		return
	}

	abort := func() {
		conn.SendRaw("AUTHENTICATE *")
		conn.SendRaw("CAP END")
	}

	conn.AddConnectCallback(func(e ircmsg.Message) {
		conn.SendRaw("CAP LS 302")
	})

	conn.AddCallback("CAP", func(e ircmsg.Message) {
		if len(e.Params) < 3 {
			return
		}
		switch e.Params[1] {
		case "LS":
			if strings.Contains(e.Params[len(e.Params)-1], "sasl") {
				conn.SendRaw("CAP REQ :sasl")
			} else {
				logger.Log.Warn().Msg("server does not support SASL")
				conn.SendRaw("CAP END")
			}
		case "ACK":
			if strings.Contains(e.Params[2], "sasl") {
				conn.SendRaw("AUTHENTICATE " + strings.ToUpper(mechanism))
			} else {
				conn.SendRaw("CAP END")
			}
		case "NAK":
			conn.SendRaw("CAP END")
		}
	})

	conn.AddCallback("AUTHENTICATE", func(e ircmsg.Message) {
		if len(e.Params) == 0 {
			return
		}
		reply, err := sc.step(e.Params[0])
		if err != nil {
			logger.Log.Error().Err(err).Msg("SASL authentication failed")
			abort()
			return
		}
		conn.SendRaw("AUTHENTICATE " + reply)
	})

	// 903 RPL_SASLSUCCESS, 904 ERR_SASLFAIL
	conn.AddCallback("903", func(e ircmsg.Message) {
		logger.Log.Info().Msg("SASL authentication succeeded")
		conn.SendRaw("CAP END")
	})
	conn.AddCallback("904", func(e ircmsg.Message) {
		logger.Log.Warn().Msg("SASL authentication rejected")
		abort()
	})
}
