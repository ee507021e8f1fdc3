// Package fields validates and normalizes extracted document fields.
//
// Field problems are values, not errors: an invalid field keeps its slot and
// carries an "Error: ..." message so partially bad extractions are returned whole.
package fields

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/mxdocs-extractor/constants"
)

// NoFieldsMessage is reported when an extraction carries no values at all.
const NoFieldsMessage = "No se extrajo ningún campo, favor de validar documento."

// Outcome is the result of validating one extraction. When Fatal is true,
// Message explains why and Fields is nil.
type Outcome struct {
	Fatal   bool
	Message string
	Fields  *Fields
}

// Validator applies the per-document-type rules.
type Validator struct {
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Validator)

// WithClock overrides the clock used for the date window.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) {
		if now != nil {
			v.now = now
		}
	}
}

func NewValidator(logger *slog.Logger, opts ...Option) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := &Validator{now: time.Now, logger: logger}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Validate checks values extracted for a document of type dt. values is
// normally map[string]any; anything else is a structural error. Fields already
// holding an error message from a previous pass are kept as they are.
func (v *Validator) Validate(dt constants.DocumentType, values any) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("fields.validate.panic", "doc_type", dt, "panic", r)
			out = Outcome{Fatal: true, Message: fmt.Sprint(r)}
		}
	}()

	if values == nil {
		return Outcome{Fatal: true, Message: NoFieldsMessage}
	}
	m, ok := values.(map[string]any)
	if !ok {
		if s, isStr := values.(string); isStr && s == "" {
			return Outcome{Fatal: true, Message: NoFieldsMessage}
		}
		return Outcome{Fatal: true, Message: fmt.Sprintf("Estructura de campos inválida: se esperaba un objeto y se recibió %T.", values)}
	}
	if len(m) == 0 {
		return Outcome{Fatal: true, Message: NoFieldsMessage}
	}

	schema, _ := SchemaFor(dt)
	now := v.now()
	res := newFields(len(m))
	for _, key := range orderKeys(m, schema) {
		raw := m[key]
		if IsErrorString(raw) {
			res.set(key, Invalid(raw.(string)))
			continue
		}
		res.set(key, schema.RuleFor(key)(key, raw, now))
	}

	if bad := res.Invalid(); len(bad) > 0 {
		v.logger.Debug("fields.validate.invalid", "doc_type", dt, "invalid", len(bad), "total", res.Len())
	}
	return Outcome{Fields: res}
}
