package tools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchSubstring(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go":     "package main\nfunc Hello() {}\n",
		"b.go":     "package main\nfunc hello() {}\n",
		"sub/c.md": "hello there\n",
	})

	tool := &SearchTool{Root: root, MaxResults: 100, ContextLines: 0}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "hello"}))
	if !res.Success {
		t.Fatalf("search failed: %s", res.Error)
	}
	out := res.Content.(string)
	for _, want := range []string{"a.go:2", "b.go:2", "c.md:1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	// Case sensitive drops the capitalized match.
	res = tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "hello", CaseSensitive: true}))
	if strings.Contains(res.Content.(string), "a.go") {
		t.Error("case sensitive search matched Hello")
	}
}

func TestSearchRegex(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go": "func Alpha() {}\nfunc beta() {}\nvar gamma int\n",
	})

	tool := &SearchTool{Root: root, MaxResults: 100}
	res := tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: `^func \w+`, PatternType: "regex", CaseSensitive: true}))
	if !res.Success {
		t.Fatalf("search failed: %s", res.Error)
	}
	out := res.Content.(string)
	if !strings.Contains(out, "Alpha") || !strings.Contains(out, "beta") {
		t.Errorf("regex missed functions:\n%s", out)
	}
	if strings.Contains(out, "gamma") {
		t.Errorf("regex matched non-function line:\n%s", out)
	}

	res = tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "[unclosed", PatternType: "regex"}))
	if res.Success {
		t.Fatal("invalid regex should fail")
	}
}

func TestSearchExactAndFuzzy(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt": "TODO\nTODO: fix this\nTheOldDog\n",
	})
	tool := &SearchTool{Root: root, MaxResults: 100}

	res := tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "TODO", PatternType: "exact", CaseSensitive: true}))
	out := res.Content.(string)
	if !strings.Contains(out, "a.txt:1") || strings.Contains(out, "a.txt:2") {
		t.Errorf("exact match wrong:\n%s", out)
	}

	res = tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "tod", PatternType: "fuzzy"}))
	out = res.Content.(string)
	if !strings.Contains(out, "TheOldDog") {
		t.Errorf("fuzzy subsequence missed TheOldDog:\n%s", out)
	}
}

func TestSearchFiltersAndCap(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go":            "needle\nneedle\nneedle\n",
		"b.md":            "needle\n",
		"vendor/v.go":     "needle\n",
		"sub/skipme/x.go": "needle\n",
	})
	tool := &SearchTool{Root: root, MaxResults: 100}

	res := tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{
		Pattern:     "needle",
		FileTypes:   []string{"go"},
		ExcludeDirs: []string{"vendor", "skipme"},
	}))
	out := res.Content.(string)
	if strings.Contains(out, "b.md") || strings.Contains(out, "vendor") || strings.Contains(out, "skipme") {
		t.Errorf("filters not applied:\n%s", out)
	}
	if !strings.Contains(out, "a.go") {
		t.Errorf("expected a.go matches:\n%s", out)
	}

	res = tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "needle", MaxResults: 2}))
	if !strings.Contains(res.Message, "truncated") {
		t.Errorf("message = %q, want truncation notice", res.Message)
	}
}

func TestSearchSkipsBinaryExtensions(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.go":    "needle\n",
		"app.log": "needle\n",
		"img.png": "needle\n",
	})
	tool := &SearchTool{Root: root, MaxResults: 100}

	res := tool.Call(context.Background(), NewSession(), mustArgs(t, searchArgs{Pattern: "needle"}))
	out := res.Content.(string)
	if strings.Contains(out, "app.log") || strings.Contains(out, "img.png") {
		t.Errorf("binary/log extensions not excluded:\n%s", out)
	}
	if !strings.Contains(out, "a.go") {
		t.Errorf("expected a.go match:\n%s", out)
	}
}

func TestMatcherSpans(t *testing.T) {
	sub, err := buildMatcher("needle", "substring", false)
	if err != nil {
		t.Fatal(err)
	}
	spans, ok := sub("a needle and a Needle")
	if !ok || len(spans) != 2 {
		t.Fatalf("substring spans = %v, %v", spans, ok)
	}
	if spans[0] != [2]int{2, 8} || spans[1] != [2]int{15, 21} {
		t.Errorf("substring spans = %v", spans)
	}

	re, err := buildMatcher(`\d+`, "regex", true)
	if err != nil {
		t.Fatal(err)
	}
	spans, ok = re("a1 b22")
	if !ok || len(spans) != 2 || spans[0] != [2]int{1, 2} || spans[1] != [2]int{4, 6} {
		t.Errorf("regex spans = %v, %v", spans, ok)
	}

	exact, err := buildMatcher("TODO", "exact", true)
	if err != nil {
		t.Fatal(err)
	}
	spans, ok = exact("  TODO  ")
	if !ok || len(spans) != 1 || spans[0] != [2]int{2, 6} {
		t.Errorf("exact spans = %v, %v", spans, ok)
	}

	fz, err := buildMatcher("hreq", "fuzzy", false)
	if err != nil {
		t.Fatal(err)
	}
	spans, ok = fz("handleRequest")
	if !ok || len(spans) != 1 || spans[0] != [2]int{0, 9} {
		t.Errorf("fuzzy span = %v, %v", spans, ok)
	}
}

func TestFuzzyMatch(t *testing.T) {
	cases := []struct {
		hay, needle string
		want        bool
	}{
		{"handleRequest", "hreq", true},
		{"HandleRequest", "HREQ", true},
		{"handleRequest", "qrh", false},
		{"abc", "abc", true},
		{"abc", "", true},
		{"", "a", false},
	}
	for _, tc := range cases {
		if got := fuzzyMatch(tc.hay, tc.needle); got != tc.want {
			t.Errorf("fuzzyMatch(%q, %q) = %v, want %v", tc.hay, tc.needle, got, tc.want)
		}
	}
}
