package llm

import (
	"fmt"
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/corpus"
)

// UnknownDocTypeMessage is returned by backends asked for an unsupported type.
const UnknownDocTypeMessage = "Tipo de documento no reconozido. Por favor, proporcione un tipo de documento válido: IMSS, INFONAVIT, SAT"

var outputFormats = map[constants.DocumentType]string{
	constants.IMSS:      `{"serie_y_folio": "string", "tipo_incapacidad": "string", "ramo_de_seguro": "string", "probable_riesgo_trabajo": "string", "dias_autorizados": "string", "fecha_a_partir": "date (DD/MM/YYYY)", "fecha_expedido": "date (DD/MM/YYYY)", "numero_de_seguridad_social": "string", "curp": "string", "nombre_del_asegurado": "string", "clave_patronal": "string", "nombre_del_patron": "string"}`,
	constants.INFONAVIT: `{"titulo": "string", "motivo": "ALTA|SUSPENSION", "folio": "string", "fecha_notificacion": "date (DD/MM/YYYY)", "fecha_emision": "date (DD/MM/YYYY)", "fecha_tramite": "date (DD/MM/YYYY)", "fecha_recepcion": "date (DD/MM/YYYY)", "numero_de_credito": "string", "descuento": {"oneOf": [{"cantidad": "string"}, {"porcentaje": "string"}, {"factor": "string"}]}, "rfc": "string", "numero_de_seguridad_social": "string", "rfc_patron": "string", "numero_de_registro_patronal": "string", "razon_social": "string", "sello_de_la_empresa": "true|false", "leyenda_aplicacion_descuento": "string"}`,
	constants.SAT:       `{"codigo_postal": "number", "curp": "string", "nombres": "string", "primer_apellido": "string", "segundo_apellido": "string", "rfc": "string", "estatus_en_el_padron": "string"}`,
}

// UnknownDocType builds the configuration error for an unsupported type.
func UnknownDocType(dt constants.DocumentType) error {
	return common.NewAppError(common.CodeConfig, UnknownDocTypeMessage, fmt.Errorf("%w: %q", common.ErrUnknownDocType, dt))
}

// OutputFormat returns the JSON shape the model must answer with for dt.
func OutputFormat(dt constants.DocumentType) (string, error) {
	f, ok := outputFormats[dt]
	if !ok {
		return "", UnknownDocType(dt)
	}
	return f, nil
}

// BuildTextPrompt composes the developer message for text extraction: the
// corpus examples as XML-tagged input/output pairs followed by the output format.
func BuildTextPrompt(dt constants.DocumentType, examples []corpus.Example) (string, error) {
	format, err := OutputFormat(dt)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your role is to extract relevant information from raw text. In between XML tags you will find %d examples of raw text inputs and information extracted outputs with the relevant entities to be recognized. \n\n", len(examples))
	for i, ex := range examples {
		n := i + 1
		fmt.Fprintf(&b, "<raw_text_input_example_%d>\n\n%s\n\n</raw_text_input_example_%d>\n\n", n, ex.Input, n)
		fmt.Fprintf(&b, "<information_extracted_output_example_%d>\n\n%s\n\n</information_extracted_output_example_%d>\n\n", n, ex.Result, n)
	}
	b.WriteString("\nYou will recive a new raw text by the user. Your task is to analyse the raw text, recognize the entities to be extracted, and create a JSON with the relevant entities. Use the following format for the output JSON:\n\n")
	b.WriteString(format)
	return b.String(), nil
}

// VisionPreamble introduces the example images of a vision request.
func VisionPreamble(n int) string {
	return fmt.Sprintf("The next %d images are examples of documents you will receive and next them the JSON's of the relevant information extracted in key pairs of each one, respectively.", n)
}

// VisionTask asks the model to parse the final image of a vision request.
func VisionTask(dt constants.DocumentType) (string, error) {
	format, err := OutputFormat(dt)
	if err != nil {
		return "", err
	}
	return "Your task is to parse the last image, recognize the entities to extract, and create a JSON with the relevant entities. Use the following format for the output JSON:\n\n" + format, nil
}
