package entity

import "time"

// ServerState is the authoritative record of the device. Callers only ever see copies.
type ServerState struct {
	CurrentMode DeviceMode
	LastUpdated time.Time
	InFlight    bool
	// Revision increases on every begin, commit and abort so watchers can order snapshots.
	Revision uint64
}

// CommandRequest is one requested transition. TargetMode is the raw mode name as received.
type CommandRequest struct {
	TargetMode       string
	IdempotencyToken string
}

// Outcome classifies a CommandResult.
type Outcome int

const (
	OutcomeApplied Outcome = iota + 1
	OutcomeRejected
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CommandResult is returned synchronously for every CommandRequest.
type CommandResult struct {
	Outcome Outcome
	// Mode is the confirmed device mode; only meaningful when Outcome is OutcomeApplied.
	Mode DeviceMode
	// Err carries the typed reason for rejected and failed commands.
	Err error
	// CommandID is set for commands that reached the device link.
	CommandID string
	// Replayed is true when an idempotency token matched an earlier applied command.
	Replayed bool
}

// Reason is the human readable cause of a rejected or failed command.
func (r CommandResult) Reason() string {
	if r.Err == nil {
		return ""
	}

	return r.Err.Error()
}

// Applied -.
func Applied(mode DeviceMode, commandID string) CommandResult {
	return CommandResult{Outcome: OutcomeApplied, Mode: mode, CommandID: commandID}
}

// Rejected -.
func Rejected(err error) CommandResult {
	return CommandResult{Outcome: OutcomeRejected, Err: err}
}

// Failed -.
func Failed(err error, commandID string) CommandResult {
	return CommandResult{Outcome: OutcomeFailed, Err: err, CommandID: commandID}
}
