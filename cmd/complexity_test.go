package cmd

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/config"
)

func writeTestFile(t *testing.T, root, rel string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("const x = 1;\n"), 0o644); err != nil {
		t.Fatalf("Writing %s: %v", rel, err)
	}
}

func TestCollectSourceFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "src/app.ts")
	writeTestFile(t, root, "src/util.TS") // extension match is case-insensitive
	writeTestFile(t, root, "src/notes.md")
	writeTestFile(t, root, "node_modules/dep/index.ts")

	files, err := collectSourceFiles(root, config.WatcherSettings{
		Extensions:     []string{".ts"},
		IgnorePatterns: []string{"node_modules/**"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"src/app.ts", "src/util.TS"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Expected %v, got %v", want, files)
	}
}

func TestCollectSourceFilesHonorsSubtrees(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "src/app.ts")
	writeTestFile(t, root, "scripts/build.ts")

	files, err := collectSourceFiles(root, config.WatcherSettings{
		Paths:      []string{"src"},
		Extensions: []string{".ts"},
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"src/app.ts"}
	if !reflect.DeepEqual(files, want) {
		t.Errorf("Expected %v, got %v", want, files)
	}
}
