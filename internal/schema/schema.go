// Package schema validates documents against the JSON schemas embedded in
// the binary: the YAML configuration file and the metrics report.
package schema

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Embedded schema names.
const (
	Config  = "config.schema.json"
	Metrics = "metrics.schema.json"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("schema validation failed")

//go:embed schemas/*.json
var schemas embed.FS

// Validate checks doc against the named schema and returns one message per
// violation. A nil slice means doc is valid. doc is anything that encodes to
// JSON: decoded YAML, a map or a tagged struct.
func Validate(name string, doc any) ([]string, error) {
	raw, err := schemas.ReadFile("schemas/" + name)
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(raw), gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, fmt.Errorf("validate against %s: %w", name, err)
	}
	if result.Valid() {
		return nil, nil
	}

	errs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		errs = append(errs, e.String())
	}

	return errs, nil
}

// Check is Validate folded into a single error wrapping ErrInvalid.
func Check(name string, doc any) error {
	errs, err := Validate(name, doc)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %s", ErrInvalid, name, strings.Join(errs, "; "))
	}

	return nil
}
