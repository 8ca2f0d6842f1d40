// Package stacktrace trims runtime stacks down to this module's frames.
package stacktrace

import "strings"

// InternalPaths returns the "internal/<pkg>/<file>.go:<line>" locations found
// in a debug.Stack() dump, outermost call last.
func InternalPaths(stack []byte) []string {
	lines := strings.Split(string(stack), "\n")
	paths := make([]string, 0, len(lines)/2)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if !strings.Contains(line, ".go:") {
			continue
		}

		_, rel, ok := strings.Cut(line, "/internal/")
		if !ok {
			continue
		}
		rel, _, _ = strings.Cut(rel, " ")
		paths = append(paths, "internal/"+rel)
	}

	return paths
}
