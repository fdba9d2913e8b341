// Package source reads documents from disk as ordered lists of non-empty
// paragraphs. Word, PDF, Markdown and plain text files are supported.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrNoText is returned when a document has no non-empty paragraph.
var ErrNoText = errors.New("document has no text")

type parseFunc func(data []byte) ([]string, error)

var parsers = map[string]parseFunc{
	".docx":     parseDOCX,
	".pdf":      parsePDF,
	".md":       parseMarkdown,
	".markdown": parseMarkdown,
	".txt":      parseText,
}

// Supported reports whether name has a readable extension.
func Supported(name string) bool {
	_, ok := parsers[strings.ToLower(filepath.Ext(name))]
	return ok
}

// List returns the base names of supported files directly inside dir, sorted.
// Hidden files and Word lock files (~$name.docx) are ignored.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
			continue
		}
		if Supported(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Paragraphs reads the file at path and returns its non-empty paragraphs in
// document order.
func Paragraphs(path string) ([]string, error) {
	parse, ok := parsers[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Base(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	paras, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	paras = compact(paras)
	if len(paras) == 0 {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoText)
	}
	return paras, nil
}

// Text joins paragraphs into the whole-document text sent for extraction.
func Text(paragraphs []string) string {
	return strings.Join(paragraphs, "\n")
}

// compact trims every paragraph and drops the empty ones.
func compact(paras []string) []string {
	out := paras[:0]
	for _, p := range paras {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitBlocks splits plain text into paragraphs. Blank lines separate
// paragraphs when present; otherwise every line is its own paragraph.
func splitBlocks(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	hasBlank := false
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			hasBlank = true
			break
		}
	}
	if !hasBlank {
		return lines
	}

	var (
		paras []string
		cur   []string
	)
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			if len(cur) > 0 {
				paras = append(paras, strings.Join(cur, " "))
				cur = nil
			}
			continue
		}
		cur = append(cur, strings.TrimSpace(l))
	}
	if len(cur) > 0 {
		paras = append(paras, strings.Join(cur, " "))
	}
	return paras
}

func parseText(data []byte) ([]string, error) {
	return splitBlocks(string(data)), nil
}
