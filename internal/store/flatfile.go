package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/faisworld/fais-web-sub000/internal/core"
)

// ErrInsertionPointNotFound means the blogPosts array literal could not be
// located in the generated source file.
var ErrInsertionPointNotFound = errors.New("blogPosts array not found in index file")

var (
	emptyArrayRegex = regexp.MustCompile(`(export const blogPosts:\s*BlogPost\[\]\s*=\s*\[)\s*\];`)
	arrayRegex      = regexp.MustCompile(`(?ms)(export const blogPosts:\s*BlogPost\[\]\s*=\s*\[)(.*?)^\s*\];`)
	titleFieldRegex = regexp.MustCompile(`(?m)^\s*title:\s*"((?:[^"\\]|\\.)*)"`)
	objectRegex     = regexp.MustCompile(`(?s)\{([^{}]*)\}`)
	fieldRegex      = regexp.MustCompile(`(\w+):\s*("(?:[^"\\]|\\.)*"|true|false)`)
)

// FlatFileIndex treats a generated TypeScript module exporting
// `blogPosts: BlogPost[]` as the blog index. Records are spliced into the array
// literal as text; the file is never parsed into an AST.
type FlatFileIndex struct {
	path string
}

// NewFlatFileIndex returns an index over the TypeScript file at path.
func NewFlatFileIndex(path string) *FlatFileIndex {
	return &FlatFileIndex{path: path}
}

// Path returns the backing file path.
func (f *FlatFileIndex) Path() string { return f.path }

func (f *FlatFileIndex) read() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read index file %s: %w", f.path, err)
	}
	return string(data), nil
}

// ExistsBySlug implements Index. The slug must appear verbatim as a slug field.
func (f *FlatFileIndex) ExistsBySlug(_ context.Context, slug string) (bool, error) {
	text, err := f.read()
	if err != nil {
		return false, err
	}
	return strings.Contains(text, `slug: "`+escapeTS(slug)+`"`), nil
}

// Titles implements Index.
func (f *FlatFileIndex) Titles(_ context.Context) ([]string, error) {
	text, err := f.read()
	if err != nil {
		return nil, err
	}

	matches := titleFieldRegex.FindAllStringSubmatch(text, -1)
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, unescapeTS(m[1]))
	}
	return titles, nil
}

// InsertFront implements Index by splicing the serialized record right after
// the opening bracket of the blogPosts array.
func (f *FlatFileIndex) InsertFront(_ context.Context, record core.ArticleRecord) error {
	text, err := f.read()
	if err != nil {
		return err
	}

	literal := RecordLiteral(record)

	var updated string
	if loc := emptyArrayRegex.FindStringSubmatchIndex(text); loc != nil {
		// loc[2]:loc[3] is the "... = [" prefix.
		updated = text[:loc[3]] + "\n" + literal + "\n];" + text[loc[1]:]
	} else if loc := arrayRegex.FindStringSubmatchIndex(text); loc != nil {
		updated = text[:loc[3]] + "\n" + literal + "," + text[loc[3]:]
	} else {
		return fmt.Errorf("%w: %s", ErrInsertionPointNotFound, f.path)
	}

	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("failed to stat index file: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(updated), info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write index file %s: %w", f.path, err)
	}
	return nil
}

// List implements Index. It reads the object literals back field by field.
func (f *FlatFileIndex) List(_ context.Context, limit int) ([]core.ArticleRecord, error) {
	text, err := f.read()
	if err != nil {
		return nil, err
	}

	loc := arrayRegex.FindStringSubmatchIndex(text)
	if loc == nil {
		if emptyArrayRegex.MatchString(text) {
			return []core.ArticleRecord{}, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrInsertionPointNotFound, f.path)
	}
	body := text[loc[4]:loc[5]]

	var records []core.ArticleRecord
	for _, obj := range objectRegex.FindAllStringSubmatch(body, -1) {
		records = append(records, parseRecordLiteral(obj[1]))
		if limit > 0 && len(records) == limit {
			break
		}
	}
	return records, nil
}

// RecordLiteral serializes a record as a TypeScript object literal.
func RecordLiteral(r core.ArticleRecord) string {
	var b strings.Builder
	field := func(name, value string) {
		fmt.Fprintf(&b, "    %s: \"%s\",\n", name, escapeTS(value))
	}

	b.WriteString("  {\n")
	field("id", r.ID)
	field("slug", r.Slug)
	field("title", r.Title)
	field("excerpt", r.Excerpt)
	field("date", r.Date)
	field("publishedAt", r.PublishedAt.UTC().Format(time.RFC3339))
	field("readTime", r.ReadTime)
	field("category", string(r.Category))
	field("coverImage", r.CoverImage)
	fmt.Fprintf(&b, "    featured: %t,\n", r.Featured)
	field("author", r.Author)
	field("authorImage", r.AuthorImage)
	b.WriteString("  }")
	return b.String()
}

func parseRecordLiteral(body string) core.ArticleRecord {
	var r core.ArticleRecord
	for _, m := range fieldRegex.FindAllStringSubmatch(body, -1) {
		name, raw := m[1], m[2]
		value := raw
		if strings.HasPrefix(raw, `"`) {
			value = unescapeTS(raw[1 : len(raw)-1])
		}
		switch name {
		case "id":
			r.ID = value
		case "slug":
			r.Slug = value
		case "title":
			r.Title = value
		case "excerpt":
			r.Excerpt = value
		case "date":
			r.Date = value
		case "publishedAt":
			if t, err := time.Parse(time.RFC3339, value); err == nil {
				r.PublishedAt = t
			}
		case "readTime":
			r.ReadTime = value
		case "category":
			r.Category = core.Category(value)
		case "coverImage":
			r.CoverImage = value
		case "featured":
			r.Featured = value == "true"
		case "author":
			r.Author = value
		case "authorImage":
			r.AuthorImage = value
		}
	}
	if r.PublishedAt.IsZero() && r.Date != "" {
		if t, err := time.Parse(DisplayDateLayout, r.Date); err == nil {
			r.PublishedAt = t
		}
	}
	return r
}

var tsEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", "",
)

func escapeTS(s string) string {
	return tsEscaper.Replace(s)
}

func unescapeTS(s string) string {
	if unquoted, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return unquoted
	}
	return s
}
