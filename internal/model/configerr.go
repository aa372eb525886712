package model

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
)

// CueErrorDetail is one configuration problem in a form fit for a log line.
type CueErrorDetail struct {
	Path    string // update_check.ttl
	Code    string // unknown_field, missing_required, invalid_enum, ...
	Message string
	Pos     CueErrorPosition
	Raw     string // message as reported by CUE
}

type CueErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

func (c CueErrorDetail) String() string {
	if c.Pos.Filename == "" {
		return fmt.Sprintf("%s: %s", c.Path, c.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s: %s", c.Pos.Filename, c.Pos.Line, c.Pos.Column, c.Path, c.Message)
}

const codeOther = "validation_error"

// first match wins, %s is the field name
var errorClasses = []struct {
	code   string
	rx     *regexp.Regexp
	format string
}{
	{"unknown_field", regexp.MustCompile(`(?i)not allowed|unknown field`), "field %s is not allowed"},
	{"missing_required", regexp.MustCompile(`(?i)incomplete value`), "field %s is required"},
	{"invalid_format", regexp.MustCompile(`(?i)does not match`), "field %s has an invalid format"},
	{"invalid_enum", regexp.MustCompile(`(?i)empty disjunction|must be one of|expected one of`), "field %s has an invalid value"},
	{"conflicting_values", regexp.MustCompile(`(?i)conflicting values|cannot unify|incompatible`), "conflicting values for %s"},
	{"type_mismatch", regexp.MustCompile(`(?i)expected .* got `), "field %s has a wrong type"},
	{"out_of_range", regexp.MustCompile(`(?i)invalid value .*out of bound`), "field %s is out of range"},
}

// CueErrDetails converts an error returned by LoadConfig into a list of
// details, one per position. Errors not coming from CUE produce a single
// detail with the error text.
func CueErrDetails(err error) []CueErrorDetail {
	if err == nil {
		return nil
	}

	var out []CueErrorDetail
	seen := make(map[CueErrorPosition]bool)
	for _, e := range cueerrors.Errors(err) {
		d := detail(e)
		if d.Pos.Filename != "" && seen[d.Pos] {
			continue
		}
		seen[d.Pos] = true
		out = append(out, d)
	}
	if len(out) == 0 {
		return []CueErrorDetail{{Code: codeOther, Message: err.Error(), Raw: err.Error()}}
	}
	return out
}

func detail(e cueerrors.Error) CueErrorDetail {
	format, args := e.Msg()
	raw := fmt.Sprintf(format, args...)
	if raw == "" {
		// promoted yaml or io error
		raw = e.Error()
	}
	path := configPath(e.Path())

	d := CueErrorDetail{
		Path:    path,
		Code:    codeOther,
		Message: raw,
		Pos:     firstPosition(e),
		Raw:     raw,
	}
	for _, c := range errorClasses {
		if c.rx.MatchString(raw) {
			d.Code = c.code
			d.Message = fmt.Sprintf(c.format, fieldName(path))
			break
		}
	}
	if hint := allowedValues(path); hint != "" {
		d.Message += ": " + hint
	}
	return d
}

// allowedValues lists the alternatives of a string disjunction in the schema.
func allowedValues(path string) string {
	if path == "" {
		return ""
	}
	v := lookupSchema(path)
	if !v.Exists() {
		return ""
	}
	op, args := v.Expr()
	if op != cue.OrOp {
		return ""
	}
	var values []string
	for _, a := range args {
		s, err := a.String()
		if err != nil || slices.Contains(values, s) {
			continue
		}
		values = append(values, s)
	}
	if len(values) < 2 {
		return ""
	}
	return "possible values (" + strings.Join(values, ", ") + ")"
}

// lookupSchema follows path through the schema, most fields are optional.
func lookupSchema(path string) cue.Value {
	v := schema
	for _, seg := range strings.Split(path, ".") {
		next := v.LookupPath(cue.MakePath(cue.Str(seg)))
		if !next.Exists() {
			next = v.LookupPath(cue.MakePath(cue.Str(seg).Optional()))
		}
		if !next.Exists() {
			return next
		}
		v = next
	}
	return v
}

func firstPosition(e cueerrors.Error) CueErrorPosition {
	for _, p := range cueerrors.Positions(e) {
		if p.Filename() == "" {
			continue
		}
		return CueErrorPosition{
			Filename: p.Filename(),
			Line:     p.Line(),
			Column:   p.Column(),
		}
	}
	return CueErrorPosition{}
}

// configPath drops the leading #Config definition.
func configPath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func fieldName(path string) string {
	if path == "" {
		return "config"
	}
	return path[strings.LastIndexByte(path, '.')+1:]
}
