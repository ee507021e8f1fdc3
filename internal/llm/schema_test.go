package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

func TestValidateAgainstSchema(t *testing.T) {
	complete := map[string]any{
		"codigo_postal":        float64(44100),
		"curp":                 "HEGA850101HDFLNS02",
		"nombres":              "JUAN",
		"primer_apellido":      "PEREZ",
		"segundo_apellido":     nil,
		"rfc":                  "PEPJ900515AB1",
		"estatus_en_el_padron": "ACTIVO",
	}
	assert.NoError(t, ValidateAgainstSchema(constants.SAT, complete))

	missing := map[string]any{"curp": "HEGA850101HDFLNS02"}
	assert.Error(t, ValidateAgainstSchema(constants.SAT, missing))

	wrongType := map[string]any{}
	for k, v := range complete {
		wrongType[k] = v
	}
	wrongType["nombres"] = []any{"JUAN"}
	assert.Error(t, ValidateAgainstSchema(constants.SAT, wrongType))

	assert.False(t, CheckSchema(constants.SAT, missing, nil))
	assert.True(t, CheckSchema(constants.SAT, complete, nil))
}

func TestValidateAgainstSchema_Descuento(t *testing.T) {
	values := map[string]any{}
	for _, k := range []string{
		"titulo", "motivo", "folio", "fecha_notificacion", "fecha_emision", "fecha_tramite",
		"fecha_recepcion", "numero_de_credito", "rfc", "numero_de_seguridad_social", "rfc_patron",
		"numero_de_registro_patronal", "razon_social", "sello_de_la_empresa", "leyenda_aplicacion_descuento",
	} {
		values[k] = nil
	}
	values["descuento"] = map[string]any{"factor": "25.931"}
	assert.NoError(t, ValidateAgainstSchema(constants.INFONAVIT, values))

	values["descuento"] = "25.931"
	assert.Error(t, ValidateAgainstSchema(constants.INFONAVIT, values))
}

func TestValidateAgainstSchema_UnknownType(t *testing.T) {
	assert.Error(t, ValidateAgainstSchema("CFE", map[string]any{}))
}
