package cv

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError reports a structurally invalid snapshot.
type ValidationError struct {
	Path    string // e.g. "roles.2.id"; empty when unknown
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "invalid document: " + e.Message
	}
	return fmt.Sprintf("invalid document: %s: %s", e.Path, e.Message)
}

// ValidationErrors collects every problem found in one snapshot.
type ValidationErrors []*ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// As lets errors.As find the first ValidationError in the list.
func (es ValidationErrors) As(target any) bool {
	if t, ok := target.(**ValidationError); ok && len(es) > 0 {
		*t = es[0]
		return true
	}
	return false
}

// IsValidationError reports whether err is, or wraps, a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Validate checks the invariants the merge engine depends on: every role, skill
// and technology tag has an identity, and ids are unique within a collection.
func Validate(doc Document) error {
	var errs ValidationErrors
	roleIDs := make(map[string]int)
	for i, r := range doc.Roles {
		if strings.TrimSpace(r.ID) == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("roles.%d.id", i), Message: "missing id"})
		} else if first, dup := roleIDs[r.ID]; dup {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("roles.%d.id", i), Message: fmt.Sprintf("duplicate id %q (first at roles.%d)", r.ID, first)})
		} else {
			roleIDs[r.ID] = i
		}
		for j, t := range r.Tech {
			if strings.TrimSpace(t.Name) == "" {
				errs = append(errs, &ValidationError{Path: fmt.Sprintf("roles.%d.technologies.%d.name", i, j), Message: "missing name"})
			}
		}
	}
	skillIDs := make(map[string]int)
	for i, s := range doc.Skills {
		if strings.TrimSpace(s.ID) == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("skills.%d.id", i), Message: "missing id"})
		} else if first, dup := skillIDs[s.ID]; dup {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("skills.%d.id", i), Message: fmt.Sprintf("duplicate id %q (first at skills.%d)", s.ID, first)})
		} else {
			skillIDs[s.ID] = i
		}
		if strings.TrimSpace(s.Name) == "" {
			errs = append(errs, &ValidationError{Path: fmt.Sprintf("skills.%d.name", i), Message: "missing name"})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

const bilingualDef = `{
	"type": ["object", "null"],
	"properties": {
		"sv": {"type": ["string", "null"]},
		"en": {"type": ["string", "null"]}
	},
	"additionalProperties": false
}`

var documentSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"definitions": {
		"bilingual": ` + bilingualDef + `,
		"date": {"type": ["string", "null"]},
		"role": {
			"type": "object",
			"required": ["id"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"title": {"type": "string"},
				"company": {"type": "string"},
				"location": {"type": "string"},
				"start": {"$ref": "#/definitions/date"},
				"end": {"$ref": "#/definitions/date"},
				"isCurrent": {"type": "boolean"},
				"visible": {"type": "boolean"},
				"description": {"$ref": "#/definitions/bilingual"},
				"technologies": {
					"type": ["array", "null"],
					"items": {
						"type": "object",
						"required": ["name"],
						"properties": {"name": {"type": "string", "minLength": 1}}
					}
				}
			}
		},
		"skill": {
			"type": "object",
			"required": ["id", "name"],
			"properties": {
				"id": {"type": "string", "minLength": 1},
				"name": {"type": "string", "minLength": 1},
				"level": {"type": "integer", "minimum": 0},
				"years": {"type": ["number", "null"]},
				"calculatedYears": {"type": ["number", "null"]},
				"overriddenYears": {"type": ["number", "null"]}
			}
		}
	},
	"properties": {
		"title": {"$ref": "#/definitions/bilingual"},
		"summary": {"$ref": "#/definitions/bilingual"},
		"roles": {"type": ["array", "null"], "items": {"$ref": "#/definitions/role"}},
		"skills": {"type": ["array", "null"], "items": {"$ref": "#/definitions/skill"}}
	}
}`

var (
	compiledSchema    *gojsonschema.Schema
	compiledSchemaErr error
	compileOnce       sync.Once
)

func schema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compiledSchemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(documentSchema))
	})
	return compiledSchema, compiledSchemaErr
}

// Decode parses a snapshot from JSON. The raw document is checked against the
// snapshot schema before decoding, so malformed bilingual records and entities
// without ids are reported with their path instead of being silently zeroed.
func Decode(data []byte) (Document, error) {
	s, err := schema()
	if err != nil {
		return Document{}, fmt.Errorf("compiling document schema: %w", err)
	}

	result, err := s.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return Document{}, &ValidationError{Message: fmt.Sprintf("not a JSON document: %v", err)}
	}
	if !result.Valid() {
		var errs ValidationErrors
		for _, re := range result.Errors() {
			errs = append(errs, &ValidationError{Path: re.Field(), Message: re.Description()})
		}
		return Document{}, errs
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decoding document: %w", err)
	}
	if err := Validate(doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Encode writes a snapshot as indented JSON.
func Encode(doc Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return data, nil
}
