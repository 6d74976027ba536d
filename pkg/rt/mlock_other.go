//go:build !linux

package rt

import "errors"

var ErrUnsupported = errors.New("memory locking is not supported on this platform")

func LockMemory() error {
	return ErrUnsupported
}

func UnlockMemory() error {
	return nil
}
