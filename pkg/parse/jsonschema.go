package parse

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

const errorTemplateStr = `{{ range $i, $e := . }}{{ if $i }}; {{ end }}{{ $e }}{{ end }}`

var errorTemplate = template.Must(template.New("errorTmpl").Parse(errorTemplateStr))

type ValidationResult struct {
	Valid            bool
	ValidationErrors string
	Errors           []string
}

// ValidateJSON checks document against schema. An error is returned only
// when either side cannot be loaded; schema violations are reported in the
// result.
func ValidateJSON(schema []byte, document []byte) (*ValidationResult, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(document),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to validate json")
	}

	ret := &ValidationResult{Valid: result.Valid()}
	if ret.Valid {
		return ret, nil
	}

	for _, desc := range result.Errors() {
		ret.Errors = append(ret.Errors, desc.String())
	}
	var rendered bytes.Buffer
	if err := errorTemplate.Execute(&rendered, ret.Errors); err != nil {
		return nil, errors.Wrap(err, "error rendering the template")
	}
	ret.ValidationErrors = rendered.String()
	return ret, nil
}

// ExtractJSONObject returns the outermost {...} span of s, which lets
// replies wrapped in prose or fences still be decoded.
func ExtractJSONObject(s string) (string, bool) {
	if cb, ok := FirstCodeBlock(s); ok && strings.HasPrefix(strings.TrimSpace(cb.Code), "{") {
		s = cb.Code
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
