package unifeed

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.abhg.dev/goldmark/frontmatter"
)

// AnnouncementMeta is the frontmatter of an importable announcement file.
// Both YAML ("---") and TOML ("+++") fences are accepted.
type AnnouncementMeta struct {
	Author   string   `yaml:"author,omitempty" toml:"author,omitempty"`
	Title    string   `yaml:"title,omitempty" toml:"title,omitempty"`
	Tags     []string `yaml:"tags,omitempty" toml:"tags,omitempty"`
	Date     string   `yaml:"date,omitempty" toml:"date,omitempty"`
	Time     string   `yaml:"time,omitempty" toml:"time,omitempty"`
	Priority string   `yaml:"priority,omitempty" toml:"priority,omitempty"`
}

// MarkdownParserFunc converts one raw markdown file into publishable input.
type MarkdownParserFunc func(input []byte) (PublishInput, error)

// DefaultMarkdownParser returns a MarkdownParserFunc built on goldmark with
// GFM, Typographer and frontmatter support.
func DefaultMarkdownParser() MarkdownParserFunc {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Typographer,
			&frontmatter.Extender{},
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)

	return func(input []byte) (PublishInput, error) {
		return MarkdownToInput(md, input)
	}
}

// MarkdownToInput renders the markdown body to HTML and decodes the
// frontmatter into publish input. The input still goes through the normal
// publish validation, so a file missing required metadata is rejected the
// same way a bad form submission is.
func MarkdownToInput(md goldmark.Markdown, content []byte) (PublishInput, error) {
	var buf bytes.Buffer
	ctx := parser.NewContext()
	if err := md.Convert(content, &buf, parser.WithContext(ctx)); err != nil {
		return PublishInput{}, fmt.Errorf("failed to convert markdown: %w", err)
	}

	meta := AnnouncementMeta{}
	if data := frontmatter.Get(ctx); data != nil {
		if err := data.Decode(&meta); err != nil {
			return PublishInput{}, fmt.Errorf("failed to decode frontmatter: %w", err)
		}
	}

	return PublishInput{
		Author:        meta.Author,
		Title:         meta.Title,
		Body:          buf.String(),
		TagsRaw:       strings.Join(meta.Tags, ", "),
		Priority:      meta.Priority,
		ScheduledDate: meta.Date,
		ScheduledTime: meta.Time,
	}, nil
}
