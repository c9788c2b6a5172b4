package buildinfo

import "testing"

func TestSummary(t *testing.T) {
	if got := Summary(); got != "dev (local)" {
		t.Fatalf("Summary() = %q", got)
	}
}
