package unifeed

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// Importer bulk-publishes announcement files from the local filesystem.
// Each .md file under the root becomes one post via the normal publish
// path, so imported posts get the same validation, identifiers and tag
// registry merging as form submissions.
type Importer struct {
	board  *Board
	parser MarkdownParserFunc
	logger *slog.Logger
}

func NewImporter(board *Board, parser MarkdownParserFunc, logger *slog.Logger) *Importer {
	if parser == nil {
		parser = DefaultMarkdownParser()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{board: board, parser: parser, logger: logger}
}

// ImportDir walks rootDir, publishing every markdown file found. Files that
// fail to parse or validate are logged and skipped; the walk itself failing
// is the only hard error. Returns the number of posts published.
func (im *Importer) ImportDir(ctx context.Context, rootDir string) (int, error) {
	imported := 0

	err := filepath.WalkDir(rootDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if entry.IsDir() || filepath.Ext(path) != ".md" {
			return nil
		}

		post, err := im.importFile(path)
		if err != nil {
			im.logger.Warn("skipping announcement file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}

		im.logger.Info("imported announcement",
			slog.String("path", path),
			slog.Int64("id", post.ID),
			slog.String("slug", post.Slug))
		imported++
		return nil
	})
	if err != nil {
		return imported, fmt.Errorf("error walking %s: %w", rootDir, err)
	}
	return imported, nil
}

func (im *Importer) importFile(path string) (*Post, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	input, err := im.parser(content)
	if err != nil {
		return nil, err
	}

	post, err := im.board.Publish(input)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrMissingSchedule) || errors.Is(err, ErrInvalidTime) {
			return nil, fmt.Errorf("invalid announcement metadata: %w", err)
		}
		return nil, err
	}
	return post, nil
}
