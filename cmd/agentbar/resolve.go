package main

import (
	"fmt"
	"strings"

	"github.com/agentbar/agentbar/internal/slot"
	"github.com/agentbar/agentbar/internal/transcript"
)

// handleResolve prints the transcript path for one terminal session.
//
// Output is the whole contract: the resolved path on stdout, or nothing when
// resolution fails, exit code 0 in every case including too few arguments.
// Callers branch on output emptiness; a miss renders as an empty slot, never
// as a broken plugin or a blocked hook.
func handleResolve(args []string) {
	shutdown := initLogging(false)
	defer shutdown()

	if len(args) < 4 {
		return
	}

	tty := slot.ShortTTY(args[0])
	stateDir := args[1]
	candidateDir := args[2]

	// Fourth arg is the comma-joined live session ids; empty means nothing is
	// live. Device paths are tolerated and canonicalized.
	live := make(map[string]int)
	for _, id := range strings.Split(args[3], ",") {
		if id = strings.TrimSpace(id); id != "" {
			live[slot.ShortTTY(id)] = 0
		}
	}

	if path := transcript.Resolve(tty, stateDir, candidateDir, live); path != "" {
		fmt.Println(path)
	}
}
