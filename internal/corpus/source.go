package corpus

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// Source hands out the reference set of a document type.
type Source interface {
	Set(dt constants.DocumentType) (*Set, error)
}

// Dir is a Source over a corpus root. Each document type is read once.
type Dir struct {
	root   string
	logger *slog.Logger

	mu    sync.Mutex
	cache map[constants.DocumentType]*Set
}

func NewDir(root string, logger *slog.Logger) *Dir {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{root: root, logger: logger, cache: map[constants.DocumentType]*Set{}}
}

func (d *Dir) Root() string { return d.root }

func (d *Dir) Set(dt constants.DocumentType) (*Set, error) {
	if !dt.Valid() {
		return nil, fmt.Errorf("corpus: unsupported document type %q", dt)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if s, ok := d.cache[dt]; ok {
		return s, nil
	}
	s, err := Load(d.root, dt, d.logger)
	if err != nil {
		return nil, err
	}
	d.cache[dt] = s
	return s, nil
}
