package runtimepath

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func TestDir_PrefersXDGRuntimeDir(t *testing.T) {
	want := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", want)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	if got != want {
		t.Fatalf("Dir = %q, want %q", got, want)
	}
}

func TestDir_WithoutXDGRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	t.Setenv("TMPDIR", t.TempDir())

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir: %v", err)
	}
	uid := strconv.Itoa(os.Getuid())
	runUser := filepath.Join("/run/user", uid)
	private := filepath.Join(os.TempDir(), "edgebar-runtime-"+uid)
	switch got {
	case runUser:
	case private:
		if !isDir(private) {
			t.Fatalf("fallback dir %q was not created", private)
		}
	default:
		t.Fatalf("Dir = %q, want %q or %q", got, runUser, private)
	}
}

func TestPaths(t *testing.T) {
	runtime := t.TempDir()
	data := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", runtime)
	t.Setenv("XDG_DATA_HOME", data)

	tests := []struct {
		name string
		fn   func() (string, error)
		want string
	}{
		{"socket", SocketPath, filepath.Join(runtime, "edgebar.sock")},
		{"data", DataDir, filepath.Join(data, "edgebar")},
		{"journal", JournalPath, filepath.Join(data, "edgebar", "journal.db")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.fn()
			if err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			if got != tt.want {
				t.Fatalf("%s = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestDataDir_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("HOME", home)

	got, err := DataDir()
	if err != nil {
		t.Fatalf("DataDir: %v", err)
	}
	if want := filepath.Join(home, ".local", "share", "edgebar"); got != want {
		t.Fatalf("DataDir = %q, want %q", got, want)
	}
}
