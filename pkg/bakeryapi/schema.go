package bakeryapi

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Resources are registered under an absolute base so that relative $refs
// between schema files resolve.
const schemaBase = "https://bakery.invalid/schemas/"

type validator struct {
	schemas map[string]*jsonschema.Schema
}

var loadValidator = sync.OnceValues(newValidator)

func newValidator() (*validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		f, err := schemaFS.Open("schemas/" + e.Name())
		if err != nil {
			return nil, err
		}
		err = compiler.AddResource(schemaBase+e.Name(), f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("add schema %s: %w", e.Name(), err)
		}
		names = append(names, e.Name())
	}

	v := &validator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		s, err := compiler.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[strings.TrimSuffix(name, ".json")] = s
	}
	return v, nil
}

func (v *validator) validate(name string, body []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("bakeryapi: no schema named %q", name)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return &SchemaError{Schema: name, Err: err}
	}
	if err := s.Validate(doc); err != nil {
		return &SchemaError{Schema: name, Err: err}
	}
	return nil
}
