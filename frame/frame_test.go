package frame

import "testing"

func TestInconsistentFrameError(t *testing.T) {
	err := &InconsistentFrame{Index: 3, WantW: 4, WantH: 4, WantC: 3, GotW: 4, GotH: 5, GotC: 3}
	want := "frame 3: inconsistent dimensions: want 4x4x3, got 4x5x3"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
