package irc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionDisablesAutoReconnect(t *testing.T) {
	conn := newConnection(ConnectOptions{Host: "irc.libera.chat", Port: 6697, TLS: true, Nick: "driftwood"})

	// ircevent replaces a zero ReconnectFreq with a two minute default
	// and redials on its own; reconnects here are strictly user driven.
	assert.Equal(t, reconnectDisabled, conn.ReconnectFreq)
	assert.Positive(t, conn.ReconnectFreq)
}

func TestNewConnectionAddressAndTLS(t *testing.T) {
	conn := newConnection(ConnectOptions{Host: "irc.libera.chat", Port: 6697, TLS: true, AcceptInvalidCerts: true, Nick: "driftwood"})

	assert.Equal(t, "irc.libera.chat:6697", conn.Server)
	assert.True(t, conn.UseTLS)
	require.NotNil(t, conn.TLSConfig)
	assert.True(t, conn.TLSConfig.InsecureSkipVerify)
}

func TestNewConnectionPlainSASL(t *testing.T) {
	conn := newConnection(ConnectOptions{
		Host:          "irc.libera.chat",
		Port:          6697,
		Nick:          "driftwood",
		SASLMechanism: "plain",
		SASLUser:      "driftwood",
		SASLPassword:  "hunter2",
	})

	assert.Equal(t, "driftwood", conn.SASLLogin)
	assert.Equal(t, "hunter2", conn.SASLPassword)
}
