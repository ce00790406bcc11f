//go:build !unix

package commands

import "os"

// redirectFD is a no-op without dup2: from keeps its descriptor and is
// returned unchanged.
func redirectFD(from, _ *os.File) (*os.File, error) {
	return from, nil
}
