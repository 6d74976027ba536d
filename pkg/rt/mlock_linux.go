//go:build linux

package rt

import "golang.org/x/sys/unix"

// LockMemory pins current and future pages so realtime cycles never page-fault.
func LockMemory() error {
	return unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE)
}

// UnlockMemory undoes LockMemory.
func UnlockMemory() error {
	return unix.Munlockall()
}
