//go:build unix

package pipeweld

import (
	"os"

	"golang.org/x/sys/unix"
)

// termSignal is what Terminate and context cancellation send first,
// giving the child a chance to clean up before the kill escalation.
var termSignal os.Signal = unix.SIGTERM
