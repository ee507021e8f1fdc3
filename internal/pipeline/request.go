package pipeline

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
)

// UnknownDocTypeMessage is returned when doc_type names no supported type.
const UnknownDocTypeMessage = "Tipo de documento no reconocido. Por favor, proporciona un tipo valido: IMSS, INFONAVIT, SAT"

// MaxFilenameLength bounds the uploaded file name.
const MaxFilenameLength = 255

var dataURLPrefix = regexp.MustCompile(`^data:(application|image)/(jpeg|jpg|pdf|png);base64,`)

// Request is a decoded recognition request.
type Request struct {
	Filename string
	DocType  constants.DocumentType
	Content  []byte
}

// NewRequest validates the raw request fields and decodes the file content.
// A data URL prefix on fileBase64 is dropped before decoding.
func NewRequest(filename, docType, fileBase64 string) (Request, error) {
	v := common.NewValidator().
		Field("filename", filename, common.Required, common.MaxLength(MaxFilenameLength)).
		Field("doc_type", docType, common.Required, common.WithMessage(UnknownDocTypeMessage, common.OneOf(constants.DocumentTypesAsStrings()...))).
		Field("file_base64", fileBase64, common.Required)
	if err := v.Err(); err != nil {
		return Request{}, err
	}

	dt, _ := constants.ParseDocumentType(docType)
	name := filepath.Base(strings.TrimSpace(filename))
	if constants.MapExtToFormat(filepath.Ext(name)) == "" {
		return Request{}, common.NewAppError(common.CodeInput,
			fmt.Sprintf("Formato de archivo no soportado: %s. Use pdf, jpg, jpeg o png.", name),
			common.ErrInvalidInput)
	}

	content, err := decodeBase64(fileBase64)
	if err != nil {
		return Request{}, common.NewAppError(common.CodeInput,
			"El campo file_base64 no contiene base64 válido.",
			fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
	}
	return Request{Filename: name, DocType: dt, Content: content}, nil
}

func decodeBase64(s string) ([]byte, error) {
	s = dataURLPrefix.ReplaceAllString(strings.TrimSpace(s), "")
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, s)
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// some clients drop the padding
		if b2, err2 := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "=")); err2 == nil {
			return b2, nil
		}
		return nil, err
	}
	return b, nil
}
