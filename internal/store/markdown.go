package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var frontmatterRegex = regexp.MustCompile(`(?s)^\s*---\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|$)`)

// Frontmatter is the YAML header of a Markdown companion file.
type Frontmatter struct {
	Title    string   `yaml:"title"`
	Excerpt  string   `yaml:"excerpt"`
	Date     string   `yaml:"date"`
	Category string   `yaml:"category"`
	Author   string   `yaml:"author"`
	Image    string   `yaml:"image"`
	Keywords []string `yaml:"keywords"`
}

// MarkdownPath returns the companion file path for slug.
func MarkdownPath(dir, slug string) string {
	return filepath.Join(dir, slug+".md")
}

// RenderMarkdown builds the companion file: frontmatter followed by the body.
func RenderMarkdown(fm Frontmatter, body string) ([]byte, error) {
	if fm.Keywords == nil {
		fm.Keywords = []string{}
	}
	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(body))
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// WriteMarkdown writes <slug>.md into dir.
func WriteMarkdown(dir, slug string, fm Frontmatter, body string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create content directory: %w", err)
	}

	data, err := RenderMarkdown(fm, body)
	if err != nil {
		return "", err
	}

	path := MarkdownPath(dir, slug)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write markdown file %s: %w", path, err)
	}
	return path, nil
}

// ParseMarkdown splits a companion file into frontmatter and body. Files
// without frontmatter yield an empty Frontmatter and the whole text as body.
func ParseMarkdown(data []byte) (Frontmatter, string, error) {
	var fm Frontmatter
	text := string(data)

	m := frontmatterRegex.FindStringSubmatchIndex(text)
	if m == nil {
		return fm, text, nil
	}
	if err := yaml.Unmarshal([]byte(text[m[2]:m[3]]), &fm); err != nil {
		return fm, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	return fm, strings.TrimLeft(text[m[1]:], "\r\n"), nil
}

// StripFrontmatter removes a leading YAML frontmatter block.
func StripFrontmatter(text string) string {
	if m := frontmatterRegex.FindStringIndex(text); m != nil {
		return strings.TrimLeft(text[m[1]:], "\r\n")
	}
	return text
}

// ReadMarkdown loads and parses the companion file for slug.
func ReadMarkdown(dir, slug string) (Frontmatter, string, error) {
	data, err := os.ReadFile(MarkdownPath(dir, slug))
	if err != nil {
		return Frontmatter{}, "", fmt.Errorf("failed to read markdown for %s: %w", slug, err)
	}
	return ParseMarkdown(data)
}

// ListMarkdownFiles returns the .md file names in dir, sorted.
func ListMarkdownFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read content directory %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
