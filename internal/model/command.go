package model

import (
	"strings"
)

// Command describes a process invocation without going through a shell.
// Args are passed to the program verbatim, so no quoting is required.
type Command struct {
	// Program is the executable name or path (e.g. "python").
	Program string `json:"program"`

	// Args are the ordered arguments passed to Program.
	Args []string `json:"args,omitempty"`
}

// NewCommand creates a Command for program with the given arguments.
func NewCommand(program string, args ...string) Command {
	return Command{Program: program, Args: args}
}

// With returns a copy of c with extra arguments appended.
// The receiver is never modified.
func (c Command) With(args ...string) Command {
	merged := make([]string, 0, len(c.Args)+len(args))
	merged = append(merged, c.Args...)
	merged = append(merged, args...)
	return Command{Program: c.Program, Args: merged}
}

// IsZero reports whether the command has no program.
func (c Command) IsZero() bool {
	return c.Program == ""
}

// String renders the command as a single shell-like line for display.
// Arguments containing whitespace or quotes are single-quoted.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Args)+1)
	parts = append(parts, quoteArg(c.Program))
	for _, arg := range c.Args {
		parts = append(parts, quoteArg(arg))
	}
	return strings.Join(parts, " ")
}

// quoteArg quotes s for display if it contains characters a shell would split on.
func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
