//go:build !windows

package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPCBaseDirPrecedence(t *testing.T) {
	env := map[string]string{
		"XDG_RUNTIME_DIR": "/run/user/1000",
		"TMPDIR":          "/var/tmp",
		"TMP":             "/tmp/a",
		"TEMP":            "/tmp/b",
	}
	getenv := func(k string) string { return env[k] }

	assert.Equal(t, "/run/user/1000", ipcBaseDir(getenv))
	delete(env, "XDG_RUNTIME_DIR")
	assert.Equal(t, "/var/tmp", ipcBaseDir(getenv))
	delete(env, "TMPDIR")
	assert.Equal(t, "/tmp/a", ipcBaseDir(getenv))
	delete(env, "TMP")
	assert.Equal(t, "/tmp/b", ipcBaseDir(getenv))
	delete(env, "TEMP")
	assert.NotEmpty(t, ipcBaseDir(getenv))
}

func TestSocketCandidatesIncludeSandbox(t *testing.T) {
	got := socketCandidates("/run/user/1000")
	require.Len(t, got, 20)
	assert.Equal(t, "/run/user/1000/discord-ipc-0", got[0])
	assert.Equal(t, "/run/user/1000/app/com.discordapp.Discord/discord-ipc-0", got[1])
	assert.Equal(t, "/run/user/1000/app/com.discordapp.Discord/discord-ipc-9", got[19])
}

func TestDialNativeFindsSandboxedSocket(t *testing.T) {
	base, err := os.MkdirTemp("", "drpc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(base) })
	t.Setenv("XDG_RUNTIME_DIR", base)

	dir := filepath.Join(base, sandboxDir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	ln, err := net.Listen("unix", filepath.Join(dir, "discord-ipc-2"))
	if err != nil {
		t.Skipf("unix sockets unavailable: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	tr, err := dialNative(context.Background(), time.Second)
	require.NoError(t, err)
	defer tr.Close()

	peer := <-accepted
	defer peer.Close()

	conn := NewConn(tr, zerolog.Nop())
	go func() {
		_ = WriteMessage(peer, Message{Opcode: OpPong, Payload: "{}"})
	}()
	m, err := conn.TryRecv(time.Second)
	require.NoError(t, err)
	assert.Equal(t, OpPong, m.Opcode)
}

func TestDialerNoSocket(t *testing.T) {
	base, err := os.MkdirTemp("", "drpc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(base) })
	t.Setenv("XDG_RUNTIME_DIR", base)

	d := Dialer{ClientID: 1, DisableWebSocket: true, Timeout: 100 * time.Millisecond, Logger: zerolog.Nop()}
	_, err = d.Dial(context.Background())
	require.Error(t, err)
	assert.True(t, IsRefused(err))
}
