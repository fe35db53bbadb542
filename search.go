package unifeed

import (
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// ArchiveIndex is a full-text index over the whole post archive, including
// posts still gated out of the feed. It is a derived view: memory-only,
// rebuilt from persisted state whenever another context changes it, so it
// never competes with the storage medium as a source of truth.
type ArchiveIndex struct {
	mu     sync.Mutex
	index  bleve.Index
	logger *slog.Logger
}

// archiveDoc is the shape handed to bleve; field names line up with the
// index mapping.
type archiveDoc struct {
	Author   string    `json:"author"`
	Title    string    `json:"title"`
	Body     string    `json:"body"`
	Tags     []string  `json:"tags"`
	Priority string    `json:"priority"`
	Date     time.Time `json:"date"`
}

func NewArchiveIndex(logger *slog.Logger) *ArchiveIndex {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveIndex{logger: logger}
}

func archiveMapping() *mapping.IndexMappingImpl {
	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("author", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("title", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("body", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("tags", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("priority", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("date", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (a *ArchiveIndex) ensure() (bleve.Index, error) {
	if a.index != nil {
		return a.index, nil
	}
	index, err := bleve.NewMemOnly(archiveMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create archive index: %w", err)
	}
	a.index = index
	return index, nil
}

// Index adds or replaces a single post in the index.
func (a *ArchiveIndex) Index(post *Post) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	index, err := a.ensure()
	if err != nil {
		return err
	}

	doc := toArchiveDoc(post)
	if err := index.Index(strconv.FormatInt(post.ID, 10), doc); err != nil {
		return fmt.Errorf("failed to index post: %w", err)
	}
	return nil
}

// Rebuild replaces the whole index with the given collection.
func (a *ArchiveIndex) Rebuild(posts []*Post) error {
	fresh, err := bleve.NewMemOnly(archiveMapping())
	if err != nil {
		return fmt.Errorf("failed to create archive index: %w", err)
	}

	batch := fresh.NewBatch()
	for _, post := range posts {
		if err := batch.Index(strconv.FormatInt(post.ID, 10), toArchiveDoc(post)); err != nil {
			return fmt.Errorf("failed to batch post: %w", err)
		}
	}
	if err := fresh.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply index batch: %w", err)
	}

	a.mu.Lock()
	old := a.index
	a.index = fresh
	a.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			a.logger.Warn("failed to close stale archive index", slog.String("error", err.Error()))
		}
	}
	return nil
}

// Search matches the query against the archive and resolves hits back to
// posts in the given collection, newest-first per the index sort.
func (a *ArchiveIndex) Search(posts []*Post, query string, limit int) ([]*Post, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	index, err := a.ensure()
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = 10
	}

	request := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	request.SortBy([]string{"-date"})

	result, err := index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("error searching archive: %w", err)
	}

	byID := make(map[string]*Post, len(posts))
	for _, post := range posts {
		byID[strconv.FormatInt(post.ID, 10)] = post
	}

	matches := make([]*Post, 0, len(result.Hits))
	for _, hit := range result.Hits {
		if post, ok := byID[hit.ID]; ok {
			matches = append(matches, post)
		}
	}
	return matches, nil
}

func (a *ArchiveIndex) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index == nil {
		return nil
	}
	err := a.index.Close()
	a.index = nil
	return err
}

func toArchiveDoc(post *Post) archiveDoc {
	doc := archiveDoc{
		Author:   post.Author,
		Title:    post.Title,
		Body:     post.Body,
		Tags:     post.Tags,
		Priority: post.Priority,
	}
	if at, err := post.ScheduledAt(); err == nil {
		doc.Date = at
	}
	return doc
}
