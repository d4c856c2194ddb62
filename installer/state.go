// SPDX-FileCopyrightText: Copyright 2026 Stacklok, Inc.
// SPDX-License-Identifier: Apache-2.0

package installer

// State tracks an install run through its phases. It is advanced
// strictly forward; a run that stops early reports the phase it
// stopped in via StateFailed plus the Result's failure details.
type State int

const (
	// StateParsingSpec is the initial phase: request validation.
	StateParsingSpec State = iota
	// StateCheckingInstalled filters out packages already present.
	StateCheckingInstalled
	// StateResolving computes the dependency closure.
	StateResolving
	// StateFetching downloads archives.
	StateFetching
	// StateVerifying checks checksums and signatures.
	StateVerifying
	// StateInstalling extracts archives and moves them into place.
	StateInstalling
	// StateUpdatingLock persists the new lock file.
	StateUpdatingLock
	// StateDone is the terminal success state.
	StateDone
	// StateFailed is the terminal failure state.
	StateFailed
)

var stateNames = map[State]string{
	StateParsingSpec:       "parsing-spec",
	StateCheckingInstalled: "checking-installed",
	StateResolving:         "resolving",
	StateFetching:          "fetching",
	StateVerifying:         "verifying",
	StateInstalling:        "installing",
	StateUpdatingLock:      "updating-lock",
	StateDone:              "done",
	StateFailed:            "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}
