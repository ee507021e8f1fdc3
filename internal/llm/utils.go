package llm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// MaxImageMB caps page images sent to a vision model.
const MaxImageMB = 20

// ReadImage loads an image for a multimodal request and returns its bytes and MIME type.
func ReadImage(path string) ([]byte, string, error) {
	if constants.MapExtToFormat(filepath.Ext(path)) != constants.IMAGE {
		return nil, "", fmt.Errorf("not an image: %s", filepath.Base(path))
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, "", err
	}
	if st.Size() > int64(MaxImageMB)<<20 {
		return nil, "", fmt.Errorf("image %s is larger than %d MB", filepath.Base(path), MaxImageMB)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, "", err
	}
	return b, constants.MimeTypeForExt(filepath.Ext(path)), nil
}
