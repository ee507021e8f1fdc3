// Package corpus reads the per-document-type reference samples used for
// threshold calibration and few-shot prompting.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// Kind classifies a corpus file by its basename prefix.
type Kind int

const (
	KindUnknown Kind = iota
	KindInput        // data*: raw OCR text of a sample document
	KindResult       // result*: gold JSON extraction for a sample
	KindImage        // image*: page image of a sample document
)

var ignoredNames = []string{".DS_Store", ".gitignore"}

// Classify returns the kind of a corpus file from its basename.
func Classify(path string) Kind {
	base := filepath.Base(path)
	switch {
	case strings.HasPrefix(base, "result"):
		return KindResult
	case strings.HasPrefix(base, "data"):
		return KindInput
	case strings.HasPrefix(base, "image"):
		return KindImage
	default:
		return KindUnknown
	}
}

// Example is one sample document: its input text or image and its gold result.
type Example struct {
	Input     string // text for text corpora
	ImagePath string // image path for image corpora
	Result    string
}

// Set is the loaded corpus for one document type.
type Set struct {
	DocType   constants.DocumentType
	Inputs    []string // contents of data* files
	Results   []string // contents of result* files
	Images    []string // paths of image* files
	Unmatched []string // files with an unrecognized prefix
}

// Examples pairs inputs (or images) with results in path order.
func (s *Set) Examples() []Example {
	out := make([]Example, 0, len(s.Results))
	for i, res := range s.Results {
		ex := Example{Result: res}
		if i < len(s.Inputs) {
			ex.Input = s.Inputs[i]
		}
		if i < len(s.Images) {
			ex.ImagePath = s.Images[i]
		}
		if ex.Input == "" && ex.ImagePath == "" {
			break
		}
		out = append(out, ex)
	}
	return out
}

// Paths lists files under dir up to depth directory levels, where depth 1 means
// only files directly inside dir. Results are sorted for deterministic pairing.
func Paths(dir string, depth int) ([]string, error) {
	if depth < 1 {
		depth = 1
	}
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if levelOf(dir, path) >= depth {
				return filepath.SkipDir
			}
			return nil
		}
		for _, ignored := range ignoredNames {
			if strings.Contains(d.Name(), ignored) {
				return nil
			}
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func levelOf(root, dir string) int {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// Load reads root/<docType> at the document type's corpus depth.
func Load(root string, dt constants.DocumentType, logger *slog.Logger) (*Set, error) {
	return LoadDepth(root, dt, dt.CorpusDepth(), logger)
}

// LoadDepth is Load with an explicit depth.
func LoadDepth(root string, dt constants.DocumentType, depth int, logger *slog.Logger) (*Set, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dir := filepath.Join(root, string(dt))
	paths, err := Paths(dir, depth)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Set{DocType: dt}, nil
		}
		return nil, fmt.Errorf("walk corpus %s: %w", dir, err)
	}

	set := &Set{DocType: dt}
	for _, p := range paths {
		kind := Classify(p)
		switch kind {
		case KindImage:
			set.Images = append(set.Images, p)
			continue
		case KindUnknown:
			set.Unmatched = append(set.Unmatched, p)
			logger.Warn("corpus.file.unrecognized", "doc_type", dt, "path", p)
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read corpus file %s: %w", p, err)
		}
		if kind == KindInput {
			set.Inputs = append(set.Inputs, string(b))
		} else {
			set.Results = append(set.Results, string(b))
		}
	}
	logger.Debug("corpus.loaded",
		"doc_type", dt,
		"dir", dir,
		"depth", depth,
		"inputs", len(set.Inputs),
		"results", len(set.Results),
		"images", len(set.Images),
	)
	return set, nil
}
