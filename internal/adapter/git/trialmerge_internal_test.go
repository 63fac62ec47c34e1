package git

import (
	"strings"
	"testing"

	"github.com/gifnksm/jaba-go/internal/review"
)

func TestMergeCommitMessage(t *testing.T) {
	mr := review.MergeRequest{
		IID:             42,
		Title:           "Add widget",
		Description:     "Implements the widget.\n\n",
		SourceNamespace: "group/core",
		SourceBranch:    "widget",
	}
	msg := mergeCommitMessage(mr, "alice")

	if !strings.HasPrefix(msg, "Auto merge of !42 - group/core:widget, r=alice\n\n") {
		t.Fatalf("unexpected message prefix: %q", msg)
	}
	if !strings.Contains(msg, "Add widget") {
		t.Fatalf("expected title in message: %q", msg)
	}
	if !strings.Contains(msg, "Implements the widget.") {
		t.Fatalf("expected description in message: %q", msg)
	}
	if !strings.HasSuffix(msg, "See merge request !42") {
		t.Fatalf("expected trailer, got: %q", msg)
	}
	if strings.Contains(msg, "widget.\n\n\n") {
		t.Fatalf("expected trailing newlines trimmed from description: %q", msg)
	}
}
