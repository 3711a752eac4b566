package version

import "testing"

func TestString(t *testing.T) {
	oldV, oldSHA, oldBuilt := Version, GitSHA, BuildTime
	t.Cleanup(func() { Version, GitSHA, BuildTime = oldV, oldSHA, oldBuilt })

	Version, GitSHA, BuildTime = "0.3.1", "abc1234", "2024-03-01T22:00:00Z"
	want := "lidar-analyse 0.3.1 (abc1234, built 2024-03-01T22:00:00Z)"
	if got := String("lidar-analyse"); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
