package tui

import (
	"reflect"
	"testing"
)

func TestComputeMatches(t *testing.T) {
	lines := []string{"STEP 1", "copying files", "STEP 2", "done"}

	if got := computeMatches(lines, "step"); !reflect.DeepEqual(got, []int{0, 2}) {
		t.Errorf("case-insensitive match failed: %v", got)
	}
	if got := computeMatches(lines, ""); got != nil {
		t.Errorf("empty pattern must match nothing, got %v", got)
	}
	if got := computeMatches(nil, "step"); got != nil {
		t.Errorf("no lines must match nothing, got %v", got)
	}
}

func TestNextMatchIdxWraps(t *testing.T) {
	if got := nextMatchIdx(2, 3, false); got != 0 {
		t.Errorf("forward wrap: got %d", got)
	}
	if got := nextMatchIdx(0, 3, true); got != 2 {
		t.Errorf("reverse wrap: got %d", got)
	}
	if got := nextMatchIdx(0, 0, false); got != 0 {
		t.Errorf("empty match list: got %d", got)
	}
}
