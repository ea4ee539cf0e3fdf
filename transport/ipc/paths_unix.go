//go:build !windows

package ipc

import (
	"fmt"
	"os"
	"path/filepath"
)

// sandboxDir is where flatpak installs expose the socket.
var sandboxDir = filepath.Join("app", "com.discordapp.Discord")

func ipcBaseDir(getenv func(string) string) string {
	for _, key := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if v := getenv(key); v != "" {
			return v
		}
	}
	if tmp := os.TempDir(); tmp != "" {
		return tmp
	}
	return "/tmp"
}

// socketCandidates lists every path probed, in order.
func socketCandidates(base string) []string {
	out := make([]string, 0, socketSlots*2)
	for i := 0; i < socketSlots; i++ {
		name := fmt.Sprintf("discord-ipc-%d", i)
		out = append(out, filepath.Join(base, name), filepath.Join(base, sandboxDir, name))
	}
	return out
}
