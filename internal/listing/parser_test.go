package listing

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"dirsize/internal/testutil"
	"dirsize/internal/tree"
)

func assertWalk(t *testing.T, tr *tree.Tree, root tree.NodeID, want []string) {
	t.Helper()
	got := tree.Names(tr, tree.Walk(tr, root))
	if len(got) != len(want) {
		t.Fatalf("expected %d nodes, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("walk[%d]: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestParse(t *testing.T) {
	t.Run("example listing", func(t *testing.T) {
		tr, root, err := ParseString(testutil.ExampleListing, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if tr.Name(root) != "/" {
			t.Errorf("expected root name '/', got %q", tr.Name(root))
		}
		if got := tr.Size(root); got != testutil.ExampleTotalSize {
			t.Errorf("expected size %d, got %d", testutil.ExampleTotalSize, got)
		}
		assertWalk(t, tr, root, testutil.ExampleWalk)
	})

	t.Run("every node shares the root", func(t *testing.T) {
		tr, root, err := ParseString(testutil.ExampleListing, nil)
		if err != nil {
			t.Fatal(err)
		}
		for _, id := range tree.Walk(tr, root) {
			if tr.Root(id) != root {
				t.Errorf("node %q has a different root", tr.Name(id))
			}
		}
	})

	t.Run("malformed lines are skipped and reported", func(t *testing.T) {
		input := strings.Join([]string{
			"- / (dir)",
			"# a comment",
			"  - a (file, size=10)",
			"  - b (link)",
			"  - c (file)",
			"  - d (file, size=5)",
		}, "\n")

		var skipped []*tree.LineError
		tr, root, err := ParseString(input, &Options{OnSkip: func(e *tree.LineError) {
			skipped = append(skipped, e)
		}})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if got := tr.Size(root); got != 15 {
			t.Errorf("expected size 15, got %d", got)
		}
		if len(skipped) != 3 {
			t.Fatalf("expected 3 skipped lines, got %d", len(skipped))
		}
		wantLines := []int{2, 4, 5}
		for i, e := range skipped {
			if e.Line != wantLines[i] {
				t.Errorf("skipped[%d]: expected line %d, got %d", i, wantLines[i], e.Line)
			}
			if !errors.Is(e, tree.ErrMalformedLine) {
				t.Errorf("skipped[%d]: expected ErrMalformedLine, got %v", i, e.Err)
			}
		}
	})

	t.Run("skipped lines leave the cursor in place", func(t *testing.T) {
		input := strings.Join([]string{
			"- r (dir)",
			"  - a (dir)",
			"-  (dir)",
			"- b (file)",
			"    - f (file, size=4)",
		}, "\n")

		var skipped int
		tr, root, err := ParseString(input, &Options{OnSkip: func(*tree.LineError) { skipped++ }})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if skipped != 2 {
			t.Errorf("expected 2 skipped lines, got %d", skipped)
		}
		assertWalk(t, tr, root, []string{"r", "a", "f"})
		a, _ := tr.FindChild(root, "a")
		if tr.Size(a) != 4 {
			t.Errorf("expected f under a, got size %d", tr.Size(a))
		}
	})

	t.Run("dedent across several levels", func(t *testing.T) {
		input := `- r (dir)
  - x (dir)
    - y (dir)
      - z (dir)
        - deep (file, size=1)
  - top (file, size=2)`

		tr, root, err := ParseString(input, nil)
		if err != nil {
			t.Fatal(err)
		}
		top, ok := tr.FindChild(root, "top")
		if !ok {
			t.Fatal("expected top to be a child of the root")
		}
		if tr.Size(top) != 2 || tr.Size(root) != 3 {
			t.Errorf("unexpected sizes: top=%d root=%d", tr.Size(top), tr.Size(root))
		}
	})

	t.Run("indent jump of more than one level", func(t *testing.T) {
		input := `- r (dir)
      - far (file, size=7)
  - near (file, size=1)`

		tr, root, err := ParseString(input, nil)
		if err != nil {
			t.Fatal(err)
		}
		assertWalk(t, tr, root, []string{"r", "far", "near"})
		if tr.Size(root) != 8 {
			t.Errorf("expected size 8, got %d", tr.Size(root))
		}
	})

	t.Run("custom indent width", func(t *testing.T) {
		input := "- r (dir)\n    - s (dir)\n        - f (file, size=3)\n    - g (file, size=4)"

		tr, root, err := ParseString(input, &Options{IndentWidth: 4})
		if err != nil {
			t.Fatal(err)
		}
		s, ok := tr.FindChild(root, "s")
		if !ok || tr.Size(s) != 3 {
			t.Error("expected s to hold only f")
		}
		if tr.Size(root) != 7 {
			t.Errorf("expected size 7, got %d", tr.Size(root))
		}
	})

	t.Run("windows line endings", func(t *testing.T) {
		input := "- r (dir)\r\n  - f (file, size=9)\r\n"
		tr, root, err := ParseString(input, nil)
		if err != nil {
			t.Fatal(err)
		}
		if tr.Size(root) != 9 {
			t.Errorf("expected size 9, got %d", tr.Size(root))
		}
	})
}

func TestParse_EmptyInput(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"blank lines":  "\n\n",
		"only garbage": "hello\nworld",
		"only files":   "- f (file, size=1)",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			tr, _, err := ParseString(input, nil)
			if !errors.Is(err, tree.ErrEmptyInput) {
				t.Errorf("expected ErrEmptyInput, got %v", err)
			}
			if tr != nil {
				t.Error("expected nil tree")
			}
		})
	}
}

func TestRender_RoundTrip(t *testing.T) {
	tr, root, err := ParseString(testutil.ExampleListing, nil)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := Render(&buf, tr, root, nil); err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if got := strings.TrimRight(buf.String(), "\n"); got != testutil.ExampleListing {
		t.Errorf("render should reproduce the listing:\n%s", got)
	}

	again, againRoot, err := Parse(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	assertWalk(t, again, againRoot, testutil.ExampleWalk)
}
