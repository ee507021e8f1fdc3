package pipeline

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
)

func TestNewRequest(t *testing.T) {
	raw := []byte("%PDF-1.4 fake")
	enc := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name     string
		filename string
		docType  string
		file     string
		wantErr  string
	}{
		{name: "plain", filename: "constancia.pdf", docType: "SAT", file: enc},
		{name: "data url", filename: "constancia.pdf", docType: "sat", file: "data:application/pdf;base64," + enc},
		{name: "unpadded", filename: "x.png", docType: "IMSS", file: base64.RawStdEncoding.EncodeToString(raw)},
		{name: "blank filename", filename: "  ", docType: "SAT", file: enc, wantErr: "El campo filename no puede estar vacío"},
		{name: "unknown type", filename: "a.pdf", docType: "CFE", file: enc, wantErr: "Tipo de documento no reconocido. Por favor, proporciona un tipo valido: IMSS, INFONAVIT, SAT"},
		{name: "empty file", filename: "a.pdf", docType: "SAT", file: "", wantErr: "El campo file_base64 no puede estar vacío"},
		{name: "bad extension", filename: "a.docx", docType: "SAT", file: enc, wantErr: "Formato de archivo no soportado: a.docx. Use pdf, jpg, jpeg o png."},
		{name: "long filename", filename: strings.Repeat("a", MaxFilenameLength) + ".pdf", docType: "SAT", file: enc, wantErr: "El campo filename no puede exceder 255 caracteres"},
		{name: "blank type", filename: "a.pdf", docType: " ", file: enc, wantErr: "El campo doc_type no puede estar vacío"},
		{name: "bad base64", filename: "a.pdf", docType: "SAT", file: "***", wantErr: "El campo file_base64 no contiene base64 válido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := NewRequest(tt.filename, tt.docType, tt.file)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidInput)
				assert.Equal(t, tt.wantErr, common.UserMessage(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, raw, req.Content)
			assert.True(t, req.DocType.Valid())
		})
	}
}

func TestNewRequest_StripsDirectories(t *testing.T) {
	req, err := NewRequest("../../etc/acta.JPG", "INFONAVIT", base64.StdEncoding.EncodeToString([]byte("x")))
	require.NoError(t, err)
	assert.Equal(t, "acta.JPG", req.Filename)
	assert.Equal(t, constants.INFONAVIT, req.DocType)
}

func TestNewRequest_CollectsAllErrors(t *testing.T) {
	_, err := NewRequest("", "", "")
	require.Error(t, err)
	assert.Equal(t,
		"El campo filename no puede estar vacío; El campo doc_type no puede estar vacío; El campo file_base64 no puede estar vacío",
		common.UserMessage(err))
}
