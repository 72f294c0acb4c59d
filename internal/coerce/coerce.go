// Package coerce converts stored text cell values to and from typed values
// according to a column's declared data kind. The diff engine compares raw
// text; coercion is used for display and export formatting.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/types"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// TypedValue is the tagged variant produced by Parse. Exactly one payload
// field is meaningful, selected by Kind; Null means no value at all.
// Scale records the decimal places of the original decimal text so that
// formatting round-trips without dropping trailing zeros.
type TypedValue struct {
	Kind  string
	Null  bool
	Text  string
	Int   int64
	Dec   decimal.Decimal
	Scale int32
	Date  time.Time
	Bool  bool
}

// ValidKind reports whether kind names a supported column data kind.
func ValidKind(kind string) bool {
	switch kind {
	case models.KindText, models.KindInteger, models.KindDecimal, models.KindDate, models.KindBoolean:
		return true
	}
	return false
}

// Parse converts a stored text value to a typed value for the given kind.
// A nil or empty input yields a null typed value for all kinds.
func Parse(raw *string, kind string) (TypedValue, error) {
	if !ValidKind(kind) {
		return TypedValue{}, types.NewValidation("unknown data kind %q", kind)
	}

	if raw == nil || *raw == "" {
		return TypedValue{Kind: kind, Null: true}, nil
	}
	s := *raw

	switch kind {
	case models.KindInteger:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return TypedValue{}, types.NewValidation("value %q is not a whole number", s)
		}
		return TypedValue{Kind: kind, Int: n}, nil

	case models.KindDecimal:
		trimmed := strings.TrimSpace(s)
		d, err := decimal.NewFromString(trimmed)
		if err != nil {
			return TypedValue{}, types.NewValidation("value %q is not a finite number", s)
		}
		return TypedValue{Kind: kind, Dec: d, Scale: decimalScale(trimmed, d)}, nil

	case models.KindDate:
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return TypedValue{}, types.NewValidation("value %q is not a valid YYYY-MM-DD date", s)
		}
		return TypedValue{Kind: kind, Date: t}, nil

	case models.KindBoolean:
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "true", "1", "yes":
			return TypedValue{Kind: kind, Bool: true}, nil
		case "false", "0", "no":
			return TypedValue{Kind: kind, Bool: false}, nil
		}
		return TypedValue{}, types.NewValidation("value %q is not a boolean", s)
	}

	// text passthrough
	return TypedValue{Kind: kind, Text: s}, nil
}

// Format renders a typed value back to its canonical text representation.
// Null values render as the empty string.
func Format(v TypedValue) string {
	if v.Null {
		return ""
	}

	switch v.Kind {
	case models.KindInteger:
		return strconv.FormatInt(v.Int, 10)
	case models.KindDecimal:
		// Re-render at the original scale; String() would drop trailing
		// zeros ("0.00150" -> "0.0015") and actuarial rates keep theirs.
		return v.Dec.StringFixed(v.Scale)
	case models.KindDate:
		return v.Date.Format(dateLayout)
	case models.KindBoolean:
		if v.Bool {
			return "true"
		}
		return "false"
	}
	return v.Text
}

// JSONValue converts a typed value to its JSON representation. Dates render
// as YYYY-MM-DD strings; decimals keep their stored precision.
func JSONValue(v TypedValue) interface{} {
	if v.Null {
		return nil
	}
	switch v.Kind {
	case models.KindInteger:
		return v.Int
	case models.KindDecimal:
		return json.Number(v.Dec.StringFixed(v.Scale))
	case models.KindDate:
		return v.Date.Format(dateLayout)
	case models.KindBoolean:
		return v.Bool
	}
	return v.Text
}

// decimalScale derives the decimal-place count of the parsed text.
// Exponent notation falls back to the parsed exponent.
func decimalScale(s string, d decimal.Decimal) int32 {
	if strings.ContainsAny(s, "eE") {
		if exp := d.Exponent(); exp < 0 {
			return -exp
		}
		return 0
	}
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		return int32(len(s) - dot - 1)
	}
	return 0
}

// FormatRaw display-formats a raw stored value for the given kind.
// Values that fail to parse are returned unmodified so exports never drop
// data that predates a column kind change.
func FormatRaw(raw *string, kind string) string {
	v, err := Parse(raw, kind)
	if err != nil {
		if raw == nil {
			return ""
		}
		return *raw
	}
	return Format(v)
}
