//go:build !unix

package pipeweld

import "os"

// No graceful signal exists here, so termination kills right away.
var termSignal os.Signal = os.Kill
