package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	cases := []struct {
		name string
		note string
		want Directive
	}{
		{"approve with priority and trailing noise", "@bot r+ p=7 extra", Directive{Kind: Approve, Priority: 7}},
		{"approve default priority", "@bot r+", Directive{Kind: Approve, Priority: 0}},
		{"no directive", "lgtm @bot", Directive{Kind: None}},
		{"first mention wins", "@bot r- @bot r+", Directive{Kind: CancelApprove}},
		{"cancel", "@bot r-", Directive{Kind: CancelApprove}},
		{"unparsable priority falls back to zero", "@bot r+ p=nope", Directive{Kind: Approve, Priority: 0}},
		{"bot not mentioned", "r+ p=3", Directive{Kind: None}},
		{"mention with nothing after", "thanks @bot", Directive{Kind: None}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.note, "bot")
			assert.Equal(t, tc.want, got)
		})
	}
}
