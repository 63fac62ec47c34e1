package git

import "testing"

func TestHasConflictMarker(t *testing.T) {
	cases := []struct {
		name   string
		status string
		want   bool
	}{
		{"clean tree", "", false},
		{"modified only", " M src/a.go\n", false},
		{"both modified conflict", "UU src/a.go\n", true},
		{"both added conflict", "AA src/a.go\n", true},
		{"deleted by them", "UD src/a.go\n", true},
		{"untracked file", "?? scratch.txt\n", false},
		{"mixed lines, one conflict", " M README.md\nUU src/a.go\n?? tmp\n", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := hasConflictMarker(tc.status)
			if got != tc.want {
				t.Errorf("hasConflictMarker(%q) = %v, want %v", tc.status, got, tc.want)
			}
		})
	}
}
