package cliutil

import (
	"fmt"

	"github.com/agnivade/levenshtein"
)

// maxSuggestionDistance is the max edit distance for "did you mean" suggestions
const maxSuggestionDistance = 3

// UnknownCommandError returns an error for an unknown command, suggesting the
// closest valid one when there is a near match.
func UnknownCommandError(unknown string, validCommands []string) error {
	if best := closest(unknown, validCommands); best != "" {
		return fmt.Errorf("unknown command: %s (did you mean %q?)", unknown, best)
	}
	return fmt.Errorf("unknown command: %s", unknown)
}

// UnknownSubcommandError is UnknownCommandError scoped to the parent command.
func UnknownSubcommandError(parent, unknown string, validCommands []string) error {
	if best := closest(unknown, validCommands); best != "" {
		return fmt.Errorf("unknown %s subcommand: %s (did you mean %q?)", parent, unknown, best)
	}
	return fmt.Errorf("unknown %s subcommand: %s", parent, unknown)
}

// closest returns the candidate nearest to input, or "" when none is within
// maxSuggestionDistance. Ties go to the earlier candidate.
func closest(input string, candidates []string) string {
	var best string
	bestDist := maxSuggestionDistance + 1
	for _, c := range candidates {
		if dist := levenshtein.ComputeDistance(input, c); dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}
