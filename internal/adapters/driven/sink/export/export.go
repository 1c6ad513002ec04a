// Package export provides a sink that mirrors the polled folder tree into
// a billy.Filesystem: folders become directories, documents with content
// become files, and every item gets a "<name>.properties.json" sidecar.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/custodia-labs/cmis-poller/internal/core/domain"
	"github.com/custodia-labs/cmis-poller/internal/core/ports/driven"
	"github.com/custodia-labs/cmis-poller/internal/logger"
)

// SidecarSuffix is appended to an item's file name for its properties file.
const SidecarSuffix = ".properties.json"

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// Sink writes items below the root of fs.
type Sink struct {
	fs billy.Filesystem
}

var _ driven.Sink = (*Sink)(nil)

// New creates an export sink writing into fs.
func New(fs billy.Filesystem) *Sink {
	return &Sink{fs: fs}
}

// NewDir creates an export sink writing below dir on the local disk.
func NewDir(dir string) (*Sink, error) {
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return New(osfs.New(dir)), nil
}

// Emit writes one item. Query rows, which carry no folder location, are
// written to the export root.
func (s *Sink) Emit(ctx context.Context, item domain.EmittedItem) (int, error) {
	defer item.Content.Close()

	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if folderPath := item.Properties.String(domain.PropPath); folderPath != "" {
		return 1, s.writeFolder(folderPath, item.Properties)
	}

	name := item.Name()
	if name == "" {
		name = item.Properties.String(domain.PropObjectID)
	}
	if name == "" {
		return 0, fmt.Errorf("%w: item has neither a name nor an object id", domain.ErrInvalidInput)
	}

	dir := item.Properties.String(domain.KeyParentFolderPath)
	if dir == "" {
		dir = "/"
	}
	if err := s.fs.MkdirAll(dir, dirPerm); err != nil {
		return 0, fmt.Errorf("create %s: %w", dir, err)
	}

	target := path.Join(dir, path.Base(name))
	if item.HasContent() {
		if err := s.writeContent(target, item.Content); err != nil {
			return 0, err
		}
	}
	if err := s.writeSidecar(target, item.Properties); err != nil {
		return 0, err
	}

	logger.Debug("export: wrote %s", target)
	return 1, nil
}

func (s *Sink) writeFolder(folderPath string, props domain.Properties) error {
	folderPath = path.Clean(folderPath)
	if err := s.fs.MkdirAll(folderPath, dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", folderPath, err)
	}
	if folderPath == "/" {
		return nil
	}
	return s.writeSidecar(folderPath, props)
}

func (s *Sink) writeContent(target string, content io.Reader) error {
	f, err := s.fs.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePerm)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", target, err)
	}
	return nil
}

func (s *Sink) writeSidecar(target string, props domain.Properties) error {
	data, err := json.MarshalIndent(props, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal properties of %s: %w", target, err)
	}
	sidecar := target + SidecarSuffix
	if err := util.WriteFile(s.fs, sidecar, data, filePerm); err != nil {
		return fmt.Errorf("write %s: %w", sidecar, err)
	}
	return nil
}
