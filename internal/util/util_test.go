package util

import "testing"

func TestExtractSnippet(t *testing.T) {
	src := "a\nb\nc\nd\ne"
	tests := []struct {
		start, end, ctx int
		want            string
	}{
		{3, 3, 1, "b\nc\nd"},
		{1, 1, 2, "a\nb\nc"},
		{5, 2, 0, "e"},
		{9, 9, 1, ""},
	}
	for _, tt := range tests {
		if got := ExtractSnippet(src, tt.start, tt.end, tt.ctx); got != tt.want {
			t.Errorf("ExtractSnippet(%d, %d, %d) = %q, want %q", tt.start, tt.end, tt.ctx, got, tt.want)
		}
	}
}

func TestLineOf(t *testing.T) {
	if got := LineOf("x\ny\nz", "z"); got != 3 {
		t.Errorf("LineOf = %d, want 3", got)
	}
	if got := LineOf("x", "q"); got != 0 {
		t.Errorf("LineOf missing = %d, want 0", got)
	}
}

func TestFingerprintIgnoresLineWithEntity(t *testing.T) {
	a := Fingerprint("R", "f.sol", "C.f", 10, "ctx")
	b := Fingerprint("R", "f.sol", "C.f", 20, "ctx")
	if a != b {
		t.Error("entity fingerprints differ by line")
	}
	if Fingerprint("R", "f.sol", "", 10, "ctx") == Fingerprint("R", "f.sol", "", 11, "ctx") {
		t.Error("line fingerprints collide")
	}
}
