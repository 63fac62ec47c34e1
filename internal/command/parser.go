// Package command implements the approval-command parser embedded in
// review comments.
package command

import (
	"strconv"
	"strings"
)

// Kind discriminates the two recognized directives.
type Kind int

const (
	// None means the comment carried no directive addressed to the bot.
	None Kind = iota
	Approve
	CancelApprove
)

// Directive is the parsed outcome of one comment.
type Directive struct {
	Kind     Kind
	Priority uint64 // only meaningful when Kind == Approve
}

// Parse tokenizes note on whitespace, skips tokens until "@<botLogin>" is
// seen, then consumes up to two further tokens looking for "r+" (optionally
// followed by "p=<u64>") or "r-". Only the first "@<bot>" mention in a
// comment is honored.
func Parse(note, botLogin string) Directive {
	mention := "@" + botLogin
	fields := strings.Fields(note)

	idx := -1
	for i, f := range fields {
		if f == mention {
			idx = i
			break
		}
	}
	if idx == -1 {
		return Directive{Kind: None}
	}

	rest := fields[idx+1:]
	if len(rest) == 0 {
		return Directive{Kind: None}
	}

	switch rest[0] {
	case "r+":
		priority := uint64(0)
		if len(rest) > 1 {
			if p, ok := strings.CutPrefix(rest[1], "p="); ok {
				if parsed, err := strconv.ParseUint(p, 10, 64); err == nil {
					priority = parsed
				}
			}
		}
		return Directive{Kind: Approve, Priority: priority}
	case "r-":
		return Directive{Kind: CancelApprove}
	default:
		return Directive{Kind: None}
	}
}
