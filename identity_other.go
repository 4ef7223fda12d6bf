//go:build !unix

package logtrack

import "os"

const openFlags = os.O_RDONLY

// Identity is not recorded here; classify relies on os.SameFile alone.
func identityOf(os.FileInfo) FileIdentity {
	return FileIdentity{}
}
