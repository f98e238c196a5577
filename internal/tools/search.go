package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

// SearchTool searches file contents across the workspace. It supports
// substring, regex, exact-line, and fuzzy subsequence matching, with glob
// and extension filters and bounded results.
type SearchTool struct {
	Root         string
	MaxResults   int
	ContextLines int
}

type searchArgs struct {
	Pattern       string   `json:"pattern"`
	FilePattern   string   `json:"file_pattern"`
	Directory     string   `json:"directory"`
	CaseSensitive bool     `json:"case_sensitive"`
	PatternType   string   `json:"pattern_type"`
	FileTypes     []string `json:"file_types"`
	ExcludeDirs   []string `json:"exclude_dirs"`
	ExcludeFiles  []string `json:"exclude_files"`
	MaxResults    int      `json:"max_results"`
	ContextLines  int      `json:"context_lines"`
	GroupByFile   bool     `json:"group_by_file"`
}

type searchMatch struct {
	File    string   `json:"file"`
	Line    int      `json:"line"`
	Text    string   `json:"text"`
	Spans   [][2]int `json:"spans,omitempty"` // byte offsets of each in-line match
	Context []string `json:"context,omitempty"`
}

func (t *SearchTool) Name() string { return "search_files" }

func (t *SearchTool) Description() string {
	return "Search file contents for a pattern. pattern_type selects substring (default), regex, exact line, or fuzzy subsequence matching. Results are capped by max_results."
}

func (t *SearchTool) JSONSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Text or pattern to search for",
			},
			"file_pattern": map[string]any{
				"type":        "string",
				"description": "Glob matched against file names, e.g. \"*.go\"",
			},
			"directory": map[string]any{
				"type":        "string",
				"description": "Directory to search under. Defaults to the workspace root.",
			},
			"case_sensitive": map[string]any{
				"type":        "boolean",
				"description": "Match case exactly. Defaults to false.",
			},
			"pattern_type": map[string]any{
				"type":        "string",
				"enum":        []string{"substring", "regex", "exact", "fuzzy"},
				"description": "How to interpret the pattern. Defaults to \"substring\".",
			},
			"file_types": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "File extensions to include, e.g. [\"go\", \"md\"]",
			},
			"exclude_dirs": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Directory names to skip",
			},
			"exclude_files": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "File name globs to skip",
			},
			"max_results": map[string]any{
				"type":        "integer",
				"description": "Maximum number of matches to return",
			},
			"context_lines": map[string]any{
				"type":        "integer",
				"description": "Lines of context around each match",
			},
			"group_by_file": map[string]any{
				"type":        "boolean",
				"description": "Group output by file instead of a flat list",
			},
		},
		"required": []string{"pattern"},
	}
}

// lineMatcher reports whether a line matches and where, as [start, end) byte
// offset pairs.
type lineMatcher func(line string) ([][2]int, bool)

func buildMatcher(pattern, patternType string, caseSensitive bool) (lineMatcher, error) {
	switch patternType {
	case "", "substring":
		return func(line string) ([][2]int, bool) {
			hay, needle := line, pattern
			if !caseSensitive {
				hay, needle = strings.ToLower(line), strings.ToLower(pattern)
			}
			var spans [][2]int
			for from := 0; from <= len(hay)-len(needle); {
				i := strings.Index(hay[from:], needle)
				if i < 0 {
					break
				}
				start := from + i
				spans = append(spans, [2]int{start, start + len(needle)})
				from = start + len(needle)
			}
			return spans, len(spans) > 0
		}, nil
	case "regex":
		expr := pattern
		if !caseSensitive {
			expr = "(?i)" + expr
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid regex %q: %v", pattern, err)
		}
		return func(line string) ([][2]int, bool) {
			found := re.FindAllStringIndex(line, -1)
			if len(found) == 0 {
				return nil, false
			}
			spans := make([][2]int, len(found))
			for i, p := range found {
				spans[i] = [2]int{p[0], p[1]}
			}
			return spans, true
		}, nil
	case "exact":
		return func(line string) ([][2]int, bool) {
			trimmed := strings.TrimSpace(line)
			got, want := trimmed, pattern
			if !caseSensitive {
				got, want = strings.ToLower(trimmed), strings.ToLower(pattern)
			}
			if got != want {
				return nil, false
			}
			lead := strings.Index(line, trimmed)
			return [][2]int{{lead, lead + len(trimmed)}}, true
		}, nil
	case "fuzzy":
		return func(line string) ([][2]int, bool) {
			span, ok := fuzzySpan(line, pattern)
			if !ok {
				return nil, false
			}
			return [][2]int{span}, true
		}, nil
	default:
		return nil, fmt.Errorf("unknown pattern_type %q", patternType)
	}
}

// fuzzyMatch reports whether needle appears in hay as an in-order
// subsequence. Matching is case-insensitive.
func fuzzyMatch(hay, needle string) bool {
	_, ok := fuzzySpan(hay, needle)
	return ok
}

// fuzzySpan returns the byte span from the first to the last matched rune.
func fuzzySpan(hay, needle string) ([2]int, bool) {
	if needle == "" {
		return [2]int{}, true
	}
	nr := []rune(strings.ToLower(needle))
	j := 0
	start := 0
	for i, r := range strings.ToLower(hay) {
		if r == nr[j] {
			if j == 0 {
				start = i
			}
			j++
			if j == len(nr) {
				return [2]int{start, i + utf8.RuneLen(r)}, true
			}
		}
	}
	return [2]int{}, false
}

func (t *SearchTool) Call(ctx context.Context, session *Session, raw json.RawMessage) Result {
	var args searchArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return Errorf("invalid arguments: %v", err)
	}
	if strings.TrimSpace(args.Pattern) == "" {
		return Errorf("pattern must not be empty")
	}
	if args.Directory == "" {
		args.Directory = "."
	}
	if args.MaxResults <= 0 {
		args.MaxResults = t.MaxResults
	}
	if args.ContextLines < 0 {
		args.ContextLines = 0
	}
	if args.ContextLines == 0 {
		args.ContextLines = t.ContextLines
	}

	matcher, err := buildMatcher(args.Pattern, args.PatternType, args.CaseSensitive)
	if err != nil {
		return Errorf("%v", err)
	}

	abs, err := ResolvePath(t.Root, args.Directory)
	if err != nil {
		return Errorf("%v", err)
	}

	excludeDirs := make(map[string]bool, len(args.ExcludeDirs))
	for _, d := range args.ExcludeDirs {
		excludeDirs[d] = true
	}
	extAllowed := func(name string) bool {
		if len(args.FileTypes) == 0 {
			return true
		}
		ext := strings.TrimPrefix(filepath.Ext(name), ".")
		for _, want := range args.FileTypes {
			if strings.EqualFold(ext, strings.TrimPrefix(want, ".")) {
				return true
			}
		}
		return false
	}

	var matches []searchMatch
	truncated := false

	walkErr := filepath.WalkDir(abs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != abs && (strings.HasPrefix(name, ".") || skippedDirs[name] || excludeDirs[name]) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !extAllowed(name) {
			return nil
		}
		if skippedExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		if args.FilePattern != "" {
			if ok, _ := filepath.Match(args.FilePattern, name); !ok {
				return nil
			}
		}
		for _, glob := range args.ExcludeFiles {
			if ok, _ := filepath.Match(glob, name); ok {
				return nil
			}
		}

		fileMatches, err := t.searchFile(path, matcher, args.ContextLines)
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(abs, path)
		for _, m := range fileMatches {
			if len(matches) >= args.MaxResults {
				truncated = true
				return fs.SkipAll
			}
			m.File = rel
			matches = append(matches, m)
		}
		return nil
	})
	if walkErr != nil && walkErr != fs.SkipAll {
		if ctx.Err() != nil {
			return Errorf("search canceled")
		}
		return Errorf("search %s: %v", args.Directory, walkErr)
	}

	summary := fmt.Sprintf("Found %d match(es) for %q", len(matches), args.Pattern)
	if truncated {
		summary += fmt.Sprintf(" (truncated at %d)", args.MaxResults)
	}
	return Ok(formatMatches(matches, args.GroupByFile), summary)
}

func (t *SearchTool) searchFile(path string, match lineMatcher, contextLines int) ([]searchMatch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, nil
	}
	lines := strings.Split(string(data), "\n")

	var out []searchMatch
	for i, line := range lines {
		spans, ok := match(line)
		if !ok {
			continue
		}
		m := searchMatch{Line: i + 1, Text: line, Spans: spans}
		if contextLines > 0 {
			start := max(0, i-contextLines)
			end := min(len(lines), i+contextLines+1)
			m.Context = lines[start:end]
		}
		out = append(out, m)
	}
	return out, nil
}

func formatMatches(matches []searchMatch, groupByFile bool) string {
	if len(matches) == 0 {
		return "No matches found."
	}
	var b strings.Builder
	if groupByFile {
		var current string
		for _, m := range matches {
			if m.File != current {
				current = m.File
				fmt.Fprintf(&b, "%s:\n", m.File)
			}
			fmt.Fprintf(&b, "  %d: %s\n", m.Line, m.Text)
		}
		return b.String()
	}
	for _, m := range matches {
		col := 1
		if len(m.Spans) > 0 {
			col = m.Spans[0][0] + 1
		}
		fmt.Fprintf(&b, "%s:%d:%d: %s\n", m.File, m.Line, col, m.Text)
		for _, c := range m.Context {
			fmt.Fprintf(&b, "    | %s\n", c)
		}
	}
	return b.String()
}
