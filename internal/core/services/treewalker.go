package services

import (
	"context"
	"fmt"
	"path"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// TreeWalker emits a folder hierarchy to a sink in pre-order:
// every folder before its descendants, siblings in repository order.
type TreeWalker struct {
	repo        driven.RepositoryClient
	sink        driven.Sink
	pageSize    int
	readContent bool
}

// NewTreeWalker creates a walker. A page size of zero uses the tree default.
func NewTreeWalker(repo driven.RepositoryClient, sink driven.Sink, pageSize int, readContent bool) *TreeWalker {
	if pageSize <= 0 {
		pageSize = domain.DefaultTreePageSize
	}
	return &TreeWalker{
		repo:        repo,
		sink:        sink,
		pageSize:    pageSize,
		readContent: readContent,
	}
}

// Walk emits root and everything below it until the tree is exhausted or
// budget runs out. It returns the number of items this walk emitted.
// A failure anywhere aborts the whole walk; items already emitted stay emitted.
func (w *TreeWalker) Walk(ctx context.Context, root *domain.Node, budget *domain.Budget) (int, error) {
	start := budget.Count()
	err := w.walkFolder(ctx, root, "", budget)
	return budget.Count() - start, err
}

func (w *TreeWalker) walkFolder(ctx context.Context, folder *domain.Node, parentPath string, budget *domain.Budget) error {
	folderPath := folder.FolderPath()
	if folderPath == "" {
		folderPath = path.Join("/", parentPath, folder.Name())
	}

	if err := w.emit(ctx, domain.EmittedItem{Properties: folder.Properties.Clone()}, budget); err != nil {
		return err
	}
	if budget.Exhausted() {
		return nil
	}

	op := "list children of " + folderPath
	cursor, err := w.repo.ListChildren(ctx, folder, w.pageSize)
	if err != nil {
		return &domain.EnumerationError{Op: op, Err: err}
	}

	for child, err := range Items(ctx, cursor, op) {
		if err != nil {
			return err
		}

		if domain.IsFolder(child) {
			err = w.walkFolder(ctx, child, folderPath, budget)
		} else {
			err = w.emitLeaf(ctx, child, folderPath, budget)
		}
		if err != nil {
			return err
		}

		if budget.Exhausted() {
			return nil
		}
	}

	return nil
}

// emitLeaf emits a non-folder child tagged with its parent's path.
// Content is attached only to documents, and only when enabled and present.
func (w *TreeWalker) emitLeaf(ctx context.Context, node *domain.Node, parentPath string, budget *domain.Budget) error {
	props := node.Properties.Clone()
	props[domain.KeyParentFolderPath] = parentPath

	item := domain.EmittedItem{Properties: props}
	if w.readContent && domain.IsDocument(node) {
		content, err := w.repo.OpenContent(ctx, node)
		if err != nil {
			return fmt.Errorf("open content of %s: %w", node.Name(), err)
		}
		item.Content = content
	}

	return w.emit(ctx, item, budget)
}

func (w *TreeWalker) emit(ctx context.Context, item domain.EmittedItem, budget *domain.Budget) error {
	if err := ctx.Err(); err != nil {
		item.Content.Close() //nolint:errcheck // aborting
		return err
	}

	logger.Debug("Polling node: %s", item.Name())
	n, err := w.sink.Emit(ctx, item)
	if err != nil {
		return fmt.Errorf("emit %s: %w", item.Name(), err)
	}
	budget.Add(n)
	return nil
}
