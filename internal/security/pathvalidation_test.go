package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmp := t.TempDir()
	results := filepath.Join(tmp, "results")
	elsewhere := filepath.Join(tmp, "elsewhere")
	for _, dir := range []string{results, elsewhere} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	link := filepath.Join(results, "escape")
	if err := os.Symlink(elsewhere, link); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	tests := []struct {
		name    string
		path    string
		dir     string
		wantErr bool
	}{
		{"new file", filepath.Join(results, "runs.csv"), results, false},
		{"new nested file", filepath.Join(results, "sweep", "chart.png"), results, false},
		{"dot dot", filepath.Join(results, "..", "runs.csv"), results, true},
		{"relative escape", "../../../etc/passwd", results, true},
		{"absolute outside", "/etc/passwd", results, true},
		{"through symlink", filepath.Join(link, "runs.csv"), results, true},
		{"symlink itself", link, results, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.path, tt.dir)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePathWithinDirectory(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathWithinAllowedDirs(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()

	if err := ValidatePathWithinAllowedDirs(filepath.Join(b, "runs.csv"), []string{a, b}); err != nil {
		t.Errorf("path in second dir rejected: %v", err)
	}
	err := ValidatePathWithinAllowedDirs("/etc/passwd", []string{a, b})
	if !errors.Is(err, ErrOutsideAllowedDirs) {
		t.Errorf("error = %v, want ErrOutsideAllowedDirs", err)
	}
	if err := ValidatePathWithinAllowedDirs(filepath.Join(a, "x"), nil); err == nil {
		t.Error("expected an error with no allowed dirs")
	}
}

func TestValidateOutputPath(t *testing.T) {
	if err := ValidateOutputPath(filepath.Join(t.TempDir(), "chart.png")); err != nil {
		t.Errorf("temp dir output rejected: %v", err)
	}
	if err := ValidateOutputPath("packing-density.png"); err != nil {
		t.Errorf("working dir output rejected: %v", err)
	}
	if err := ValidateOutputPath("/etc/packing.csv"); err == nil {
		t.Error("expected /etc to be rejected")
	}
}
