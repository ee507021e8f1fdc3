package fields

import (
	"strings"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// FieldSpec binds a field name to its rule and its JSON type hint.
type FieldSpec struct {
	Name     string
	Rule     Rule
	JSONType string // "string", "object" or "" for any
}

// Schema lists the fields expected for one document type.
type Schema struct {
	DocType constants.DocumentType
	Fields  []FieldSpec
}

var imssSchema = Schema{
	DocType: constants.IMSS,
	Fields: []FieldSpec{
		{"serie_y_folio", SerieYFolio, "string"},
		{"tipo_incapacidad", Passthrough, "string"},
		{"ramo_de_seguro", RamoDeSeguro, "string"},
		{"probable_riesgo_trabajo", Lowercase, "string"},
		{"dias_autorizados", Passthrough, ""},
		{"fecha_a_partir", Date, "string"},
		{"fecha_expedido", Date, "string"},
		{"numero_de_seguridad_social", NSS, ""},
		{"curp", CURP, "string"},
		{"nombre_del_asegurado", Passthrough, "string"},
		{"clave_patronal", Passthrough, "string"},
		{"nombre_del_patron", Passthrough, "string"},
	},
}

var infonavitSchema = Schema{
	DocType: constants.INFONAVIT,
	Fields: []FieldSpec{
		{"titulo", Passthrough, "string"},
		{"motivo", Passthrough, "string"},
		{"folio", Passthrough, "string"},
		{"fecha_notificacion", Date, "string"},
		{"fecha_emision", Date, "string"},
		{"fecha_tramite", Date, "string"},
		{"fecha_recepcion", Date, "string"},
		{"numero_de_credito", Passthrough, ""},
		{"descuento", Passthrough, "object"},
		{"rfc", RFC, "string"},
		{"numero_de_seguridad_social", NSS, ""},
		{"rfc_patron", Passthrough, "string"},
		{"numero_de_registro_patronal", Passthrough, "string"},
		{"razon_social", Passthrough, "string"},
		{"sello_de_la_empresa", Passthrough, ""},
		{"leyenda_aplicacion_descuento", Passthrough, "string"},
	},
}

var satSchema = Schema{
	DocType: constants.SAT,
	Fields: []FieldSpec{
		{"codigo_postal", PostalCode, ""},
		{"curp", CURP, "string"},
		{"nombres", Passthrough, "string"},
		{"primer_apellido", Passthrough, "string"},
		{"segundo_apellido", Passthrough, "string"},
		{"rfc", RFC, "string"},
		{"estatus_en_el_padron", Passthrough, "string"},
	},
}

var schemas = map[constants.DocumentType]Schema{
	constants.IMSS:      imssSchema,
	constants.INFONAVIT: infonavitSchema,
	constants.SAT:       satSchema,
}

// rules by field name across every schema, for keys a model returns under a
// document type that does not declare them.
var rulesByName = func() map[string]Rule {
	m := map[string]Rule{}
	for _, dt := range constants.AllDocumentTypes() {
		for _, f := range schemas[dt].Fields {
			if _, ok := m[f.Name]; !ok && f.Rule != nil {
				m[f.Name] = f.Rule
			}
		}
	}
	return m
}()

// SchemaFor returns the schema of dt.
func SchemaFor(dt constants.DocumentType) (Schema, bool) {
	s, ok := schemas[dt]
	return s, ok
}

// Names returns the declared field names in order.
func (s Schema) Names() []string {
	out := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.Name
	}
	return out
}

// RuleFor resolves the rule for key: the schema binding first, then the same
// name in another schema, then any name containing "fecha" as a date.
func (s Schema) RuleFor(key string) Rule {
	for _, f := range s.Fields {
		if f.Name == key {
			return f.Rule
		}
	}
	if r, ok := rulesByName[key]; ok {
		return r
	}
	if strings.Contains(key, "fecha") {
		return Date
	}
	return Passthrough
}

// JSONSchema describes the expected model output for the document type. Every
// field may be null since a document can lack it.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Fields))
	for _, f := range s.Fields {
		switch f.JSONType {
		case "string":
			props[f.Name] = map[string]any{"type": []string{"string", "null"}}
		case "object":
			props[f.Name] = map[string]any{"type": []string{"object", "null"}}
		default:
			props[f.Name] = map[string]any{}
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   s.Names(),
	}
}
