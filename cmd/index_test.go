package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandTargets(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"algebra.pdf", "geometry.pdf", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	tests := []struct {
		name    string
		args    []string
		want    int
		wantErr bool
	}{
		{
			name: "single file",
			args: []string{filepath.Join(dir, "algebra.pdf")},
			want: 1,
		},
		{
			name: "glob matches pdfs",
			args: []string{filepath.Join(dir, "*.pdf")},
			want: 2,
		},
		{
			name: "url passes through",
			args: []string{"https://example.org/photosynthesis"},
			want: 1,
		},
		{
			name: "mixed files and urls",
			args: []string{filepath.Join(dir, "notes.txt"), "http://example.org/a"},
			want: 2,
		},
		{
			name:    "missing file",
			args:    []string{filepath.Join(dir, "absent.pdf")},
			wantErr: true,
		},
		{
			name:    "glob with no matches",
			args:    []string{filepath.Join(dir, "*.epub")},
			wantErr: true,
		},
		{
			name: "no args",
			args: nil,
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			targets, err := expandTargets(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Errorf("expandTargets(%v) = %v, want error", tt.args, targets)
				}
				return
			}
			if err != nil {
				t.Fatalf("expandTargets(%v) error: %v", tt.args, err)
			}
			if len(targets) != tt.want {
				t.Errorf("expandTargets(%v) returned %d targets, want %d", tt.args, len(targets), tt.want)
			}
		})
	}
}

func TestExpandTargets_GlobResultsAreFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ch1.pdf", "ch2.pdf"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o600); err != nil {
			t.Fatalf("writing fixture: %v", err)
		}
	}

	targets, err := expandTargets([]string{filepath.Join(dir, "ch*.pdf")})
	if err != nil {
		t.Fatalf("expandTargets() error: %v", err)
	}
	for _, target := range targets {
		if _, err := os.Stat(target); err != nil {
			t.Errorf("expanded target %q does not exist: %v", target, err)
		}
	}
}

func TestIsURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.org/article", true},
		{"http://example.org", true},
		{"ftp://example.org/file.pdf", false},
		{"textbook.pdf", false},
		{"./chapters/ch1.pdf", false},
		{"", false},
		{"https//missing-colon.org", false},
	}

	for _, tt := range tests {
		if got := isURL(tt.in); got != tt.want {
			t.Errorf("isURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
