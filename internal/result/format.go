package result

import (
	"math"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// mantissaBits is the significand width of a float64.
const mantissaBits = 53

// Precision is the number of significant digits needed to print any float64
// so that it reads back to the same value.
var Precision = 1 + int(math.Ceil(mantissaBits*math.Log10(2)))

// FormatNumber renders a number: integers in base 10, everything else in
// shortest-exponent form with Precision significant digits.
func FormatNumber(v cty.Value) string {
	bf := v.AsBigFloat()
	if bf.IsInt() {
		i, _ := bf.Int(nil)
		return i.String()
	}
	f, _ := bf.Float64()
	return strconv.FormatFloat(f, 'g', Precision, 64)
}

// cellSpecials are the characters a cell may only carry inside quotes.
const cellSpecials = ",\"\r\n"

// FormatValue renders a single cell of a record. Collections are written as
// compact JSON. A cell whose text holds a comma, quote or line break is
// quoted with Go escapes, so it never introduces a bare comma or newline.
func FormatValue(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	var text string
	switch v.Type() {
	case cty.Number:
		return FormatNumber(v)
	case cty.Bool:
		return strconv.FormatBool(v.True())
	case cty.String:
		text = v.AsString()
	default:
		b, err := ctyjson.Marshal(v, v.Type())
		if err != nil {
			return ""
		}
		text = string(b)
	}
	if NeedsQuoting(text) {
		return strconv.Quote(text)
	}
	return text
}

// NeedsQuoting reports whether text cannot stand as a bare cell.
func NeedsQuoting(text string) bool {
	return strings.ContainsAny(text, cellSpecials)
}

// FlatRecord builds the record of a flat-mode row: the kept cells followed
// by the final value of every column of every view. A nil map contributes
// no cells.
func FlatRecord(kept []string, m *Map) string {
	fields := append([]string(nil), kept...)
	if m != nil {
		for _, view := range m.views {
			for _, v := range view.Final() {
				fields = append(fields, FormatValue(v))
			}
		}
	}
	return strings.Join(fields, ",")
}

// ErrorRecord is written in place of a record when a row fails.
func ErrorRecord(row int64, msg string) string {
	msg = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(msg)
	return "error: row " + strconv.FormatInt(row, 10) + ": " + msg
}

// Dump renders every view with all its rows as HCL blocks:
//
//	view "summary" {
//	  step {
//	    time  = 0
//	    total = 2
//	  }
//	}
//
// A nil map dumps as the empty string.
func Dump(m *Map) string {
	if m == nil {
		return ""
	}
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, view := range m.views {
		if i > 0 {
			body.AppendNewline()
		}
		vb := body.AppendNewBlock("view", []string{view.Name}).Body()
		for t, row := range view.Rows {
			sb := vb.AppendNewBlock("step", nil).Body()
			sb.SetAttributeValue("time", cty.NumberIntVal(int64(t)))
			for c, name := range view.Columns {
				sb.SetAttributeValue(name, row[c])
			}
		}
	}
	return strings.TrimRight(string(hclwrite.Format(f.Bytes())), "\n")
}
