package config

import (
	"os"

	"golang.org/x/term"
)

// defaultLogFormat picks "human" when stdout is a terminal and "json"
// otherwise, the same TTY-detection idiom the teacher's CLI adapter uses to
// decide whether to render colored output.
func defaultLogFormat() string {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		return "human"
	}
	return "json"
}
