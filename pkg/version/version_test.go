package version

import (
	"runtime"
	"strings"
	"testing"
)

func TestVersionStrings(t *testing.T) {
	v := String()
	if !strings.HasPrefix(v, "v") {
		t.Errorf("version string should start with v, got %s", v)
	}

	full := Full()
	if !strings.HasPrefix(full, "dhaccel ") {
		t.Errorf("full version should start with project name, got %s", full)
	}
	if !strings.Contains(full, v) || !strings.HasSuffix(full, runtime.Version()) {
		t.Errorf("full version missing version or runtime, got %s", full)
	}
}

func TestVersionCommit(t *testing.T) {
	old := Commit
	t.Cleanup(func() { Commit = old })

	Commit = "abc1234"
	if !strings.Contains(Full(), "(abc1234)") {
		t.Errorf("commit not included: %s", Full())
	}
}
