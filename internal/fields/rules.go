package fields

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Rule validates or normalizes a single field value.
type Rule func(key string, raw any, now time.Time) Value

var (
	reCURP = regexp.MustCompile(`^[A-Z]{4}[0-9]{6}[HM][A-Z]{5}[0-9]{2}$`)
	reRFC  = regexp.MustCompile(`^[A-ZÑ]{3,4}[0-9]{6}[A-V0-9]{2}[0-9A]$`)
	reDate = regexp.MustCompile(`^\d{2}/\d{2}/\d{2}(\d{2})?$`)
)

// curpLetterValues holds the substitution table of the CURP check digit.
var curpLetterValues = map[rune]int{
	'A': 10, 'B': 11, 'C': 12, 'D': 13, 'E': 14, 'F': 15, 'G': 16, 'H': 17,
	'I': 18, 'J': 19, 'K': 20, 'L': 21, 'M': 22, 'N': 23, 'Ñ': 24, 'O': 25,
	'P': 26, 'Q': 27, 'R': 28, 'S': 29, 'T': 30, 'U': 31, 'V': 32, 'W': 33,
	'X': 34, 'Y': 35, 'Z': 36,
}

// isMissing matches the values treated as "not extracted".
func isMissing(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return v == "" || v == "NA"
	}
	return false
}

// asString renders scalars as text. Numbers keep their shortest decimal form.
func asString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		if math.Trunc(v) == v && math.Abs(v) < 1e15 {
			return strconv.FormatInt(int64(v), 10), true
		}
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return asString(float64(v))
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	default:
		return "", false
	}
}

func display(raw any) string {
	if s, ok := asString(raw); ok {
		return s
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Sprint(raw)
	}
	return string(b)
}

func notFound(key string) Value {
	return Invalid(fmt.Sprintf("Error: No se encontró el %s", key))
}

// Passthrough accepts any present value.
func Passthrough(key string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return notFound(key)
	}
	return Valid(raw)
}

// SerieYFolio removes all whitespace.
func SerieYFolio(key string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return notFound(key)
	}
	s, ok := asString(raw)
	if !ok {
		return Valid(raw)
	}
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return notFound(key)
	}
	return Valid(s)
}

// Lowercase lowercases textual values and leaves anything else untouched.
func Lowercase(key string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return notFound(key)
	}
	s, ok := raw.(string)
	if !ok {
		return Valid(raw)
	}
	return Valid(strings.ToLower(strings.TrimSpace(s)))
}

// RamoDeSeguro lowercases and expands the bare "enfermedad" branch.
func RamoDeSeguro(key string, raw any, now time.Time) Value {
	v := Lowercase(key, raw, now)
	if s, ok := v.Raw().(string); ok && s == "enfermedad" {
		return Valid("enfermedad general")
	}
	return v
}

// NSS accepts 10 or 11 character social security numbers.
func NSS(key string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return notFound(key)
	}
	s, ok := asString(raw)
	if !ok {
		return Invalid(fmt.Sprintf("Error: El NSS '%s' es incorrecto.", display(raw)))
	}
	if n := utf8.RuneCountInString(s); n < 10 || n > 11 {
		return Invalid(fmt.Sprintf("Error: El NSS '%s' es incorrecto.", s))
	}
	return Valid(s)
}

// PostalCode requires exactly five characters.
func PostalCode(_ string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return Invalid("Error: No se encontró el código postal")
	}
	s, ok := asString(raw)
	if !ok || utf8.RuneCountInString(s) != 5 {
		return Invalid(fmt.Sprintf("Error: El código postal '%s' es incorrecto.", display(raw)))
	}
	return Valid(s)
}

// CURP checks the format and the check digit.
func CURP(_ string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return Invalid("Error: No se encontró el CURP")
	}
	s, ok := raw.(string)
	if !ok || !reCURP.MatchString(s) {
		return Invalid(fmt.Sprintf("Error: El CURP '%s' es incorrecto.", display(raw)))
	}
	digit, err := CURPCheckDigit(s)
	if err != nil || int(s[len(s)-1]-'0') != digit {
		return Invalid(fmt.Sprintf("Error: El dígito verificador del CURP '%s' es incorrecto.", s))
	}
	return Valid(s)
}

// CURPCheckDigit computes the check digit over the first 17 characters of curp.
func CURPCheckDigit(curp string) (int, error) {
	runes := []rune(curp)
	if len(runes) < 18 {
		return 0, fmt.Errorf("curp too short: %d characters", len(runes))
	}
	sum := 0
	for i, r := range runes[:17] {
		var v int
		switch {
		case r >= '0' && r <= '9':
			v = int(r - '0')
		default:
			lv, ok := curpLetterValues[r]
			if !ok {
				return 0, fmt.Errorf("curp: unexpected character %q at %d", r, i)
			}
			v = lv
		}
		sum += v * (18 - i)
	}
	return (10 - sum%10) % 10, nil
}

// RFC checks the taxpayer identifier format.
func RFC(_ string, raw any, _ time.Time) Value {
	if isMissing(raw) {
		return Invalid("Error: No se encontró el RFC")
	}
	s, ok := raw.(string)
	if !ok || !reRFC.MatchString(s) {
		return Invalid(fmt.Sprintf("Error: El RFC '%s' es incorrecto.", display(raw)))
	}
	return Valid(s)
}

// Date checks DD/MM/YY or DD/MM/YYYY, a window of five years around now, and
// the calendar. Two-digit years are read as 20YY.
func Date(_ string, raw any, now time.Time) Value {
	if isMissing(raw) {
		return Invalid("Error: No existe fecha")
	}
	s, ok := raw.(string)
	if !ok || !reDate.MatchString(s) {
		return Invalid(fmt.Sprintf("Error: El formato de la fecha '%s' es incorrecto.", display(raw)))
	}

	parts := strings.Split(s, "/")
	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil {
		return Invalid(fmt.Sprintf("Error: La fecha '%s' es invalida.", s))
	}
	if len(parts[2]) == 2 {
		year += 2000
	}

	current := now.Year()
	if year < current-5 || year > current+5 {
		return Invalid(fmt.Sprintf("Error: La fecha '%s' no se encuentra dentro del rango más/menos 5 años.", s))
	}
	if month < 1 || month > 12 {
		return Invalid(fmt.Sprintf("Error: El mes de la fecha '%s' es invalido.", s))
	}
	if day < 1 || day > daysIn(month, year) {
		return Invalid(fmt.Sprintf("Error: El día de la fecha '%s' es invalido.", s))
	}
	return Valid(s)
}

func daysIn(month, year int) int {
	switch month {
	case 2:
		if isLeap(year) {
			return 29
		}
		return 28
	case 4, 6, 9, 11:
		return 30
	default:
		return 31
	}
}

func isLeap(year int) bool {
	return year%4 == 0 && !(year%100 == 0 && year%400 != 0)
}
