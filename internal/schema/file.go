package schema

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"
)

// LoadError is a schema file error with its source position when known.
type LoadError struct {
	Path    string
	Line    int
	Column  int
	Message string
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// LoadFile loads a schema file, choosing the format by extension
// (.cue, .yaml or .yml).
func LoadFile(path string) (*Static, error) {
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, &LoadError{Path: path, Message: "unknown schema format, want .cue, .yaml or .yml"}
	}
}

// LoadCUE loads entities from a CUE file of the form
//
//	entity: place: {
//		table:       "place" // optional
//		fields:      ["id", "address_id", "name"]
//		primary_key: ["id"]
//	}
func LoadCUE(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	return ParseCUE(path, data)
}

// ParseCUE parses CUE schema source. path is used in error messages.
func ParseCUE(path string, data []byte) (*Static, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, cueLoadError(path, err)
	}

	s := &Static{entities: make(map[string]Entity)}
	entities := v.LookupPath(cue.ParsePath("entity"))
	if !entities.Exists() {
		return s, nil
	}

	iter, err := entities.Fields()
	if err != nil {
		return nil, cueLoadError(path, err)
	}
	for iter.Next() {
		ev := iter.Value()
		e := Entity{Name: iter.Selector().Unquoted()}

		if t := ev.LookupPath(cue.ParsePath("table")); t.Exists() {
			if e.Table, err = t.String(); err != nil {
				return nil, cueLoadError(path, err)
			}
		}
		if err := ev.LookupPath(cue.ParsePath("fields")).Decode(&e.Fields); err != nil {
			return nil, cueLoadError(path, err)
		}
		if err := ev.LookupPath(cue.ParsePath("primary_key")).Decode(&e.PrimaryKey); err != nil {
			return nil, cueLoadError(path, err)
		}

		if err := s.Add(e); err != nil {
			return nil, posLoadError(path, ev.Pos(), err.Error())
		}
	}
	return s, nil
}

// cueLoadError keeps the first CUE error and its position.
func cueLoadError(path string, err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &LoadError{Path: path, Message: err.Error()}
	}
	first := errs[0]
	var pos token.Pos
	if ps := cueerrors.Positions(first); len(ps) > 0 {
		pos = ps[0]
	}
	return posLoadError(path, pos, first.Error())
}

func posLoadError(path string, pos token.Pos, msg string) *LoadError {
	le := &LoadError{Path: path, Message: msg}
	if pos.IsValid() {
		le.Line = pos.Line()
		le.Column = pos.Column()
	}
	return le
}

// yamlSchema is the YAML schema document.
type yamlSchema struct {
	Entities yaml.Node `yaml:"entities"`
}

type yamlEntity struct {
	Table      string   `yaml:"table"`
	Fields     []string `yaml:"fields"`
	PrimaryKey []string `yaml:"primary_key"`
}

// LoadYAML loads entities from a YAML file of the form
//
//	entities:
//	  place:
//	    table: place
//	    fields: [id, address_id, name]
//	    primary_key: [id]
//
// Entities keep their document order.
func LoadYAML(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	return ParseYAML(path, data)
}

// ParseYAML parses YAML schema source. path is used in error messages.
func ParseYAML(path string, data []byte) (*Static, error) {
	var doc yamlSchema
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}

	s := &Static{entities: make(map[string]Entity)}
	if doc.Entities.Kind == 0 {
		return s, nil
	}
	if doc.Entities.Kind != yaml.MappingNode {
		return nil, &LoadError{Path: path, Line: doc.Entities.Line, Column: doc.Entities.Column,
			Message: "entities must be a mapping"}
	}

	content := doc.Entities.Content
	for i := 0; i+1 < len(content); i += 2 {
		key, body := content[i], content[i+1]
		var ye yamlEntity
		if err := body.Decode(&ye); err != nil {
			return nil, &LoadError{Path: path, Line: body.Line, Column: body.Column, Message: err.Error()}
		}
		e := Entity{Name: key.Value, Table: ye.Table, Fields: ye.Fields, PrimaryKey: ye.PrimaryKey}
		if err := s.Add(e); err != nil {
			return nil, &LoadError{Path: path, Line: key.Line, Column: key.Column, Message: err.Error()}
		}
	}
	return s, nil
}
