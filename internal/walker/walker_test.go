package walker

import (
	"os"
	"path/filepath"
	"testing"

	"dirsize/internal/tree"
)

func createFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for f, content := range files {
		fullPath := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
}

func TestScan_AllFiles(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{
		"file1.txt":              "12345",
		"file2.go":               "123",
		"subdir/file3.txt":       "1",
		"subdir/nested/file4.md": "1234567890",
	})

	result, err := Scan(tmpDir, []string{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Files != 4 {
		t.Errorf("Expected 4 files, got %d", result.Files)
	}
	if got := result.Tree.Size(result.Root); got != 19 {
		t.Errorf("Expected total size 19, got %d", got)
	}

	subdir, ok := result.Tree.FindChild(result.Root, "subdir")
	if !ok || !result.Tree.IsContainer(subdir) {
		t.Fatal("subdir should be a directory")
	}
	if got := result.Tree.Size(subdir); got != 11 {
		t.Errorf("Expected subdir size 11, got %d", got)
	}
}

func TestScan_WithExclusions(t *testing.T) {
	tmpDir := t.TempDir()

	files := map[string]bool{
		"file1.txt":           false, // should be included
		"file2.tmp":           true,  // should be excluded (*.tmp)
		"file3.log":           true,  // should be excluded (*.log)
		"node_modules/lib.js": true,  // should be excluded (node_modules/)
		"src/main.go":         false, // should be included
		"dist/output.js":      true,  // should be excluded (dist/)
		".git/config":         true,  // should be excluded (.git/)
	}
	contents := make(map[string]string, len(files))
	for f := range files {
		contents[f] = "content"
	}
	createFiles(t, tmpDir, contents)

	exclusions := []string{"*.tmp", "*.log", "node_modules/", "dist/", ".git/"}

	result, err := Scan(tmpDir, exclusions)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Files != 2 {
		t.Errorf("Expected 2 files, got %d", result.Files)
	}
	for _, name := range []string{"node_modules", "dist", ".git", "file2.tmp"} {
		if _, ok := result.Tree.FindChild(result.Root, name); ok {
			t.Errorf("%s should have been excluded", name)
		}
	}
}

func TestScan_EmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	result, err := Scan(tmpDir, []string{})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if result.Files != 0 {
		t.Errorf("Expected 0 files, got %d", result.Files)
	}
	empty, ok := result.Tree.FindChild(result.Root, "empty")
	if !ok || !result.Tree.IsContainer(empty) {
		t.Error("Empty directories should be kept")
	}
	if result.Tree.Name(result.Root) != filepath.Base(tmpDir) {
		t.Errorf("Root should be named after the scanned directory, got %q", result.Tree.Name(result.Root))
	}
}

func TestScan_NonExistentDirectory(t *testing.T) {
	if _, err := Scan("/nonexistent/directory", []string{}); err == nil {
		t.Error("Scan should return error for nonexistent directory")
	}
}

func TestScan_GlobPatternExclusion(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{
		"test.go":      "content",
		"test_test.go": "content",
		"main_test.go": "content",
		"main.go":      "content",
	})

	result, err := Scan(tmpDir, []string{"*_test.go"})
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	names := tree.Names(result.Tree, tree.Walk(result.Tree, result.Root))
	if len(names) != 3 {
		t.Errorf("Expected root plus 2 files, got %v", names)
	}
}

func TestScan_SymlinksIgnored(t *testing.T) {
	tmpDir := t.TempDir()
	createFiles(t, tmpDir, map[string]string{"real.txt": "123"})
	if err := os.Symlink(filepath.Join(tmpDir, "real.txt"), filepath.Join(tmpDir, "link.txt")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	result, err := Scan(tmpDir, nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if _, ok := result.Tree.FindChild(result.Root, "link.txt"); ok {
		t.Error("Symlinks should not be recorded")
	}
	if result.Tree.Size(result.Root) != 3 {
		t.Errorf("Expected size 3, got %d", result.Tree.Size(result.Root))
	}
}
