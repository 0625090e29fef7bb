package elevation

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// ExitFunc terminates the process. It is replaceable for tests.
type ExitFunc func(code int)

// emergencyShutdown is called when the thread cannot stop impersonating
// SYSTEM. Continuing would run the rest of the program with a borrowed
// identity, so the process exits.
func emergencyShutdown(logger *slog.Logger, exit ExitFunc, revertErr error, shutdownContext string) {
	criticalMsg := fmt.Sprintf("CRITICAL SECURITY FAILURE: Impersonation revert failed during %s", shutdownContext)

	logger.Error(criticalMsg,
		"error", revertErr,
		"timestamp", time.Now().UTC(),
		"process_id", os.Getpid(),
	)

	// The logger may be writing only to a file; make sure the operator sees it.
	fmt.Fprintf(os.Stderr, "FATAL: %s: %v\n", criticalMsg, revertErr)

	exit(1)
}
