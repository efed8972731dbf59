// Package runstatus defines the display strings for acquisition runtime
// states shared by the GUI and terminal front-ends.
package runstatus

import "strings"

const (
	Idle      = "Idle"
	Preparing = "Preparing"
	Acquiring = "Acquiring"
	Stopping  = "Stopping"
	Finished  = "Finished"
	Failed    = "Failed"
)

const (
	KeyIdle      = "idle"
	KeyPreparing = "preparing"
	KeyAcquiring = "acquiring"
	KeyStopping  = "stopping"
	KeyFinished  = "finished"
	KeyFailed    = "failed"
)

func Key(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}
