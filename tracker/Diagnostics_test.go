package tracker

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestTrackWritesRows checks the filename, column layout, and append
// behaviour of the diagnostics file
func TestTrackWritesRows(t *testing.T) {
	dir := t.TempDir()

	track, err := NewDiagnostics(dir, "ppo_hproj", "Pendulum-v0", "run1")
	if err != nil {
		t.Fatal(err)
	}

	expectedName := filepath.Join(dir, "ppo_hproj_Pendulum-v0_run1.dat")
	if track.Filename() != expectedName {
		t.Errorf("filename \n\twant(%v) \n\thave(%v)", expectedName,
			track.Filename())
	}

	row := Row{
		ValueLossBefore:  1,
		ValueLossAfter:   0.5,
		PolicyLossBefore: -0.25,
		PolicyLossAfter:  -0.75,
		Entropy:          1.42,
		AverageReturn:    -100,
		MSTDE:            0.01,
	}
	if err := track.Track(row); err != nil {
		t.Fatal(err)
	}
	if err := track.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(track.Filename())
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("line count \n\twant(%v) \n\thave(%v)", 1, len(lines))
	}

	var read Row
	n, err := fmt.Sscanf(lines[0], "%e %e %e %e %e %e %e",
		&read.ValueLossBefore, &read.ValueLossAfter,
		&read.PolicyLossBefore, &read.PolicyLossAfter, &read.Entropy,
		&read.AverageReturn, &read.MSTDE)
	if err != nil || n != 7 {
		t.Fatalf("could not parse row %q: read %v columns: %v", lines[0],
			n, err)
	}
	if read != row {
		t.Errorf("row \n\twant(%v) \n\thave(%v)", row, read)
	}

	// Reopening appends instead of truncating
	track, err = NewDiagnostics(dir, "ppo_hproj", "Pendulum-v0", "run1")
	if err != nil {
		t.Fatal(err)
	}
	if err := track.Track(row); err != nil {
		t.Fatal(err)
	}
	track.Close()

	data, err = os.ReadFile(track.Filename())
	if err != nil {
		t.Fatal(err)
	}
	lines = strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Errorf("line count after reopening \n\twant(%v) \n\thave(%v)",
			2, len(lines))
	}
}

// TestFilenameWithoutRun checks that an empty run name is omitted
func TestFilenameWithoutRun(t *testing.T) {
	dir := t.TempDir()

	track, err := NewDiagnostics(dir, "ppo_hproj", "MountainCarContinuous",
		"")
	if err != nil {
		t.Fatal(err)
	}
	defer track.Close()

	expected := filepath.Join(dir, "ppo_hproj_MountainCarContinuous.dat")
	if track.Filename() != expected {
		t.Errorf("filename \n\twant(%v) \n\thave(%v)", expected,
			track.Filename())
	}
}
