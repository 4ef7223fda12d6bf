//go:build unix

package logtrack

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// openFlags keeps a FIFO without a writer from blocking the open.
const openFlags = os.O_RDONLY | unix.O_NONBLOCK

func identityOf(fi os.FileInfo) FileIdentity {
	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return FileIdentity{}
	}
	return FileIdentity{Dev: uint64(st.Dev), Ino: uint64(st.Ino)} //nolint:unconvert
}
