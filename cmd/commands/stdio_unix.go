//go:build unix

package commands

import (
	"os"

	"golang.org/x/sys/unix"
)

// redirectFD points the descriptor of from at to and returns a new file
// holding what from referred to before. Writers that captured from, such
// as the logger, end up writing to to.
func redirectFD(from, to *os.File) (*os.File, error) {
	saved, err := unix.Dup(int(from.Fd()))
	if err != nil {
		return nil, err
	}
	if err := unix.Dup2(int(to.Fd()), int(from.Fd())); err != nil {
		unix.Close(saved)
		return nil, err
	}
	unix.CloseOnExec(saved)
	return os.NewFile(uintptr(saved), from.Name()), nil
}
