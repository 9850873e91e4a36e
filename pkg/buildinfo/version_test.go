package buildinfo

import (
	"strings"
	"testing"
)

func TestGetPrefersLdflags(t *testing.T) {
	oldV, oldC := Version, Commit
	t.Cleanup(func() { Version, Commit = oldV, oldC })
	Version, Commit = "v9.9.9", "abc123"

	got := Get()
	if got.Version != "v9.9.9" || got.Commit != "abc123" {
		t.Errorf("Get() = %+v", got)
	}
	if got.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
	if !strings.Contains(Template(), "version v9.9.9") {
		t.Errorf("Template() = %q", Template())
	}
	if !strings.Contains(String(), "commit: abc123") {
		t.Errorf("String() = %q", String())
	}
}
