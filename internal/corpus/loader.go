package corpus

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	amanerrors "github.com/Aman-CERP/amandocs/internal/errors"
	"github.com/Aman-CERP/amandocs/internal/gitignore"
)

// DefaultExtensions are the file types LoadDir reads.
var DefaultExtensions = []string{".md", ".mdx", ".markdown", ".txt", ".html", ".htm"}

// DefaultExclude skips build output and dependency trees.
var DefaultExclude = []string{"node_modules", ".git", ".amandocs", "_site", "dist"}

var versionFolderRegex = regexp.MustCompile(`^v\d+(\.\d+){0,2}([-.][0-9A-Za-z.]+)?$`)

// IsVersionFolder reports whether a top-level directory names a docs version.
func IsVersionFolder(name string) bool {
	switch name {
	case "drafts", "next":
		return true
	}
	return versionFolderRegex.MatchString(name)
}

// IgnoreFileNames are the gitignore-style files honored while walking.
var IgnoreFileNames = []string{".gitignore", ".amandocsignore"}

// LoadOptions configures LoadDir.
type LoadOptions struct {
	Extensions []string
	// Exclude holds directory names or glob patterns matched against the
	// slash-separated path relative to the root.
	Exclude []string
}

// LoadDir walks root and returns one Document per supported file, sorted
// by ID. Unreadable metadata aborts with an IndexBuildError naming the file.
func LoadDir(ctx context.Context, root string, opts LoadOptions) ([]Document, error) {
	opts = opts.WithDefaults()
	exts := opts.extensionSet()

	info, err := os.Stat(root)
	if err != nil {
		return nil, amanerrors.New(amanerrors.ErrCodeCorpusMalformed, "corpus root not readable", err).
			WithDetail("root", root)
	}
	if !info.IsDir() {
		return nil, amanerrors.New(amanerrors.ErrCodeCorpusMalformed, "corpus root is not a directory", nil).
			WithDetail("root", root)
	}

	ignore := gitignore.New()
	var docs []Document
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && (excluded(rel, d.Name(), opts.Exclude) || ignore.Match(rel, true)) {
				return filepath.SkipDir
			}
			return addIgnoreFiles(ignore, path, rel)
		}
		if excluded(rel, d.Name(), opts.Exclude) || !exts[strings.ToLower(filepath.Ext(path))] || ignore.Match(rel, false) {
			return nil
		}

		doc, err := loadFile(path, rel)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		if amanerrors.GetCode(err) != "" {
			return nil, err
		}
		return nil, amanerrors.New(amanerrors.ErrCodeCorpusMalformed, "failed to walk corpus", err).
			WithDetail("root", root)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	slog.Debug("corpus_loaded", slog.String("root", root), slog.Int("documents", len(docs)))
	return docs, nil
}

// addIgnoreFiles loads the ignore files found in dir. Their rules apply
// below dir only.
func addIgnoreFiles(m *gitignore.Matcher, dir, rel string) error {
	if rel == "." {
		rel = ""
	}
	for _, name := range IgnoreFileNames {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := m.AddFromFile(p, rel); err != nil {
			return err
		}
	}
	return nil
}

// WithDefaults fills unset fields with DefaultExtensions and DefaultExclude.
// An empty but non-nil Exclude disables exclusion.
func (o LoadOptions) WithDefaults() LoadOptions {
	if len(o.Extensions) == 0 {
		o.Extensions = DefaultExtensions
	}
	if o.Exclude == nil {
		o.Exclude = DefaultExclude
	}
	return o
}

func (o LoadOptions) extensionSet() map[string]bool {
	exts := make(map[string]bool, len(o.Extensions))
	for _, e := range o.Extensions {
		exts[strings.ToLower(e)] = true
	}
	return exts
}

// ExcludesDir reports whether LoadDir skips the directory at rel or any of
// its parents. rel is slash-separated and relative to the corpus root.
func (o LoadOptions) ExcludesDir(rel string) bool {
	o = o.WithDefaults()
	rel = strings.Trim(filepath.ToSlash(rel), "/")
	if rel == "" || rel == "." {
		return false
	}
	parts := strings.Split(rel, "/")
	for i := range parts {
		if excluded(strings.Join(parts[:i+1], "/"), parts[i], o.Exclude) {
			return true
		}
	}
	return false
}

// IncludesFile reports whether LoadDir would read the file at rel.
func (o LoadOptions) IncludesFile(rel string) bool {
	o = o.WithDefaults()
	rel = filepath.ToSlash(rel)
	if !o.extensionSet()[strings.ToLower(filepath.Ext(rel))] {
		return false
	}
	if dir := filepath.ToSlash(filepath.Dir(rel)); dir != "." && o.ExcludesDir(dir) {
		return false
	}
	return !excluded(rel, filepath.Base(rel), o.Exclude)
}

func excluded(rel, name string, patterns []string) bool {
	for _, p := range patterns {
		if p == name {
			return true
		}
		if ok, _ := filepath.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func loadFile(path, rel string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, amanerrors.New(amanerrors.ErrCodeCorpusMalformed, "failed to read document", err).
			WithDetail("path", rel)
	}
	info, err := os.Stat(path)
	if err != nil {
		return Document{}, amanerrors.New(amanerrors.ErrCodeCorpusMalformed, "failed to stat document", err).
			WithDetail("path", rel)
	}

	doc := Document{
		ID:        strings.TrimSuffix(rel, filepath.Ext(rel)),
		Path:      rel,
		UpdatedAt: info.ModTime().UTC().Truncate(time.Second),
	}
	doc.Version, doc.Category = placement(rel)

	switch strings.ToLower(filepath.Ext(rel)) {
	case ".html", ".htm":
		err = parseHTML(&doc, data)
	default:
		err = parseMarkdown(&doc, data)
	}
	if err != nil {
		return Document{}, amanerrors.New(amanerrors.ErrCodeCorpusMalformed,
			fmt.Sprintf("malformed document %s", rel), err).WithDetail("path", rel)
	}

	if doc.Title == "" {
		doc.Title = titleFromFilename(rel)
	}
	return doc.WithHash(), nil
}

// placement derives version and category from the directory layout:
// <version>/<category>/.../file or <category>/.../file.
func placement(rel string) (version, category string) {
	parts := strings.Split(rel, "/")
	dirs := parts[:len(parts)-1]
	if len(dirs) > 0 && IsVersionFolder(dirs[0]) {
		version = dirs[0]
		dirs = dirs[1:]
	}
	if len(dirs) > 0 {
		category = dirs[0]
	}
	return version, category
}

func parseMarkdown(doc *Document, data []byte) error {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return err
	}

	doc.Body = string(body)
	doc.Title = strings.TrimSpace(fm.Title)
	if doc.Title == "" {
		doc.Title = firstHeading(body)
	}
	if fm.Category != "" {
		doc.Category = fm.Category
	}
	if fm.Version != "" {
		doc.Version = fm.Version
	}
	doc.Tags = fm.Tags
	if ts, ok := fm.updatedAt(); ok {
		doc.UpdatedAt = ts
	}
	return nil
}

// firstHeading returns the text of the first level-one heading.
func firstHeading(body []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	inFence := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "```") || strings.HasPrefix(line, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

func parseHTML(doc *Document, data []byte) error {
	page, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return err
	}

	page.Find("script, style, nav, header, footer, noscript").Remove()

	doc.Title = strings.TrimSpace(page.Find("title").First().Text())
	if doc.Title == "" {
		doc.Title = strings.TrimSpace(page.Find("h1").First().Text())
	}
	if v, ok := page.Find(`meta[name="category"]`).Attr("content"); ok && v != "" {
		doc.Category = v
	}
	if v, ok := page.Find(`meta[name="version"]`).Attr("content"); ok && v != "" {
		doc.Version = v
	}
	if v, ok := page.Find(`meta[name="keywords"]`).Attr("content"); ok {
		for _, kw := range strings.Split(v, ",") {
			if kw = strings.TrimSpace(kw); kw != "" {
				doc.Tags = append(doc.Tags, kw)
			}
		}
	}

	content := page.Find("main, article").First()
	if content.Length() == 0 {
		content = page.Find("body")
	}
	doc.Body = strings.Join(strings.Fields(content.Text()), " ")
	return nil
}

func titleFromFilename(rel string) string {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	if base == "" {
		return rel
	}
	return strings.ToUpper(base[:1]) + base[1:]
}
