package tlsconf

import (
	"crypto/tls"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handshake(t *testing.T, server, client *Config) error {
	t.Helper()
	ln, err := tls.Listen("tcp", "127.0.0.1:0", server.Server)
	require.NoError(t, err)
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.(*tls.Conn).Handshake()
	}()

	conn, err := tls.Dial("tcp", ln.Addr().String(), client.Client)
	if err == nil {
		_ = conn.Close()
	}
	<-done
	return err
}

func TestSamePassphraseConnects(t *testing.T) {
	srv, err := New("correct horse")
	require.NoError(t, err)
	cli, err := New("correct horse")
	require.NoError(t, err)

	assert.Equal(t, srv.Fingerprint(), cli.Fingerprint())
	assert.NoError(t, handshake(t, srv, cli))
}

func TestDifferentPassphraseFails(t *testing.T) {
	srv, err := New("one")
	require.NoError(t, err)
	cli, err := New("two")
	require.NoError(t, err)

	assert.NotEqual(t, srv.Fingerprint(), cli.Fingerprint())
	assert.ErrorIs(t, handshake(t, srv, cli), ErrKeyMismatch)
}

func TestEmptyPassphraseUsesDefault(t *testing.T) {
	a, err := New("")
	require.NoError(t, err)
	b, err := New(DefaultPassphrase)
	require.NoError(t, err)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotNil(t, a.ClientCredentials())
}
