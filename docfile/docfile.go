// Package docfile loads document descriptions from YAML files: objects,
// typed properties and expression bindings, ready for evaluation.
package docfile

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/teranos/reflow/engine"
	"github.com/teranos/reflow/errors"
	"github.com/teranos/reflow/formula"
	"github.com/teranos/reflow/object"
)

// File is the top-level YAML schema
type File struct {
	Name    string       `yaml:"name"`
	Objects []ObjectSpec `yaml:"objects"`
}

// ObjectSpec describes one document object
type ObjectSpec struct {
	Name        string           `yaml:"name"`
	Label       string           `yaml:"label,omitempty"`
	Properties  []PropertySpec   `yaml:"properties"`
	Expressions []ExpressionSpec `yaml:"expressions,omitempty"`
}

// PropertySpec describes one property slot
type PropertySpec struct {
	Name   string      `yaml:"name"`
	Kind   string      `yaml:"kind,omitempty"`
	Value  interface{} `yaml:"value,omitempty"`
	Unit   string      `yaml:"unit,omitempty"`
	Output bool        `yaml:"output,omitempty"`
}

// ExpressionSpec binds a formula to one of the object's properties
type ExpressionSpec struct {
	Target  string `yaml:"target"`
	Formula string `yaml:"formula"`
	Comment string `yaml:"comment,omitempty"`
}

// Load reads a document description from path and returns the constructed
// document plus one engine per object that declares expressions, keyed by
// object name. Engines are fully bound (each binding validated) but not
// yet executed.
func Load(path string) (*object.Document, map[string]*engine.Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to read document file %s", path)
	}
	return Parse(data, path)
}

// Parse builds a document and its engines from YAML bytes. The name
// argument is used for the document name when the file declares none.
func Parse(data []byte, name string) (*object.Document, map[string]*engine.Engine, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse document file")
	}
	if file.Name == "" {
		file.Name = name
	}

	doc := object.NewDocument(file.Name)

	// Two phases: all objects and properties first, then expressions, since
	// formulas may reference objects declared later in the file
	for _, objSpec := range file.Objects {
		obj, err := doc.AddObject(objSpec.Name)
		if err != nil {
			return nil, nil, err
		}
		if objSpec.Label != "" {
			obj.SetLabel(objSpec.Label)
		}

		for _, propSpec := range objSpec.Properties {
			// A unit implies a quantity slot unless the kind says otherwise
			if propSpec.Kind == "" && propSpec.Unit != "" {
				propSpec.Kind = "quantity"
			}
			kind, err := object.ParseValueKind(propSpec.Kind)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "object %q property %q", objSpec.Name, propSpec.Name)
			}
			value, err := convertValue(propSpec)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "object %q property %q", objSpec.Name, propSpec.Name)
			}
			if _, err := obj.AddProperty(object.PropertySpec{
				Name:   propSpec.Name,
				Kind:   kind,
				Value:  value,
				Output: propSpec.Output,
			}); err != nil {
				return nil, nil, err
			}
		}
	}

	engines := make(map[string]*engine.Engine)
	for _, objSpec := range file.Objects {
		if len(objSpec.Expressions) == 0 {
			continue
		}
		obj := doc.Object(objSpec.Name)
		eng := engine.New(obj)

		for _, exprSpec := range objSpec.Expressions {
			target, err := object.ParsePath(objSpec.Name + "." + exprSpec.Target)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "object %q expression target %q", objSpec.Name, exprSpec.Target)
			}
			expr, err := formula.Parse(obj, exprSpec.Formula)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "object %q expression for %q", objSpec.Name, exprSpec.Target)
			}
			if err := eng.Set(target, expr, exprSpec.Comment); err != nil {
				return nil, nil, errors.Wrapf(err, "object %q expression for %q", objSpec.Name, exprSpec.Target)
			}
		}
		engines[objSpec.Name] = eng
	}

	return doc, engines, nil
}

// convertValue maps a YAML value to a property value. A unit on the spec
// turns a numeric value into a quantity.
func convertValue(spec PropertySpec) (object.Value, error) {
	if spec.Value == nil {
		return nil, nil
	}
	v, err := convert(spec.Value)
	if err != nil {
		return nil, err
	}
	if spec.Unit != "" {
		n, ok := v.(float64)
		if !ok {
			return nil, errors.Newf("unit %q requires a numeric value, got %T", spec.Unit, spec.Value)
		}
		return object.Quantity{Value: n, Unit: spec.Unit}, nil
	}
	return v, nil
}

func convert(raw interface{}) (object.Value, error) {
	switch x := raw.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		return x, nil
	case bool:
		return x, nil
	case []interface{}:
		out := make([]object.Value, len(x))
		for i, elem := range x {
			v, err := convert(elem)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, errors.Newf("unsupported value type %T", raw)
	}
}
