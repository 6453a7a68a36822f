package version

import "testing"

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		version, commit, date string
		want                  string
	}{
		{"dev", "none", "unknown", "dev (development build)"},
		{"v0.3.0", "abc1234", "2026-01-31", "v0.3.0 (commit: abc1234, built: 2026-01-31)"},
	}

	for _, tt := range tests {
		if got := FormatVersion(tt.version, tt.commit, tt.date); got != tt.want {
			t.Errorf("FormatVersion(%q, %q, %q) = %q, want %q", tt.version, tt.commit, tt.date, got, tt.want)
		}
	}
}

func TestGetVersionComponents(t *testing.T) {
	old := [3]string{Version, Commit, Date}
	defer func() { Version, Commit, Date = old[0], old[1], old[2] }()

	Version, Commit, Date = "v1.2.3", "deadbee", "2026-02-01"
	v, c, d := GetVersionComponents()
	if v != "v1.2.3" || c != "deadbee" || d != "2026-02-01" {
		t.Errorf("unexpected components: %s %s %s", v, c, d)
	}
	if GetVersion() != "v1.2.3 (commit: deadbee, built: 2026-02-01)" {
		t.Errorf("unexpected version string %q", GetVersion())
	}
}
