package loader

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"gopkg.in/yaml.v3"

	"github.com/vk/matrixci/internal/condition"
	"github.com/vk/matrixci/internal/matrix"
	"github.com/vk/matrixci/internal/model"
)

// The YAML front-end accepts workflow-style documents:
//
//	pipeline:
//	  fail-fast: true
//	matrix:
//	  os: [linux, windows]
//	  ver: ["3.9", "3.12"]
//	  exclude:
//	    - os: windows
//	      ver: "3.9"
//	  include:
//	    - os: linux
//	      ver: "3.12"
//	      coverage: "true"
//	runtimes:
//	  ver:
//	    "3.12": python-3.12
//	steps:
//	  - name: tests
//	    uses: exec
//	    if: steps.lint.outcome == "succeeded"
//	    continue-on-error: true
//	    with:
//	      command: pytest
//
// The matrix section is decoded through yaml.Node rather than a map so that
// dimension declaration order, which fixes the job enumeration order, is
// preserved.
type yamlFile struct {
	Pipeline *yamlPipeline                `yaml:"pipeline"`
	Matrix   yaml.Node                    `yaml:"matrix"`
	Runtimes map[string]map[string]string `yaml:"runtimes"`
	Steps    []yamlStep                   `yaml:"steps"`
}

type yamlPipeline struct {
	FailFast *bool `yaml:"fail-fast"`
}

type yamlStep struct {
	Name            string            `yaml:"name"`
	Uses            string            `yaml:"uses"`
	If              string            `yaml:"if"`
	ContinueOnError bool              `yaml:"continue-on-error"`
	Platform        string            `yaml:"platform"`
	With            map[string]any    `yaml:"with"`
	Env             map[string]string `yaml:"env"`
}

func mergeYAMLFile(doc *model.Document, filePath string) error {
	raw, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	var parsed yamlFile
	if err := yaml.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	if parsed.Pipeline != nil && parsed.Pipeline.FailFast != nil {
		doc.FailFast = *parsed.Pipeline.FailFast
	}

	if err := mergeYAMLMatrix(doc, &parsed.Matrix); err != nil {
		return fmt.Errorf("%s: %w", filePath, err)
	}

	for dim, table := range parsed.Runtimes {
		doc.Runtimes = append(doc.Runtimes, model.RuntimeTable{
			Dimension: dim,
			Map:       table,
		})
	}

	for i := range parsed.Steps {
		step, err := stepFromYAML(&parsed.Steps[i], filePath)
		if err != nil {
			return err
		}
		doc.Steps = append(doc.Steps, step)
	}

	return nil
}

// mergeYAMLMatrix walks the matrix mapping in document order. Dimension
// entries are collected first so that include entries can be split into
// assignment and extra fields against the full dimension set.
func mergeYAMLMatrix(doc *model.Document, node *yaml.Node) error {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("matrix section must be a mapping")
	}

	var excludeNode, includeNode *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "exclude":
			excludeNode = value
		case "include":
			includeNode = value
		default:
			values, err := scalarSeq(value)
			if err != nil {
				return fmt.Errorf("dimension %q: %w", key.Value, err)
			}
			doc.Dimensions = append(doc.Dimensions, matrix.Dimension{
				Name:   key.Value,
				Values: values,
			})
		}
	}

	dimNames := make(map[string]bool, len(doc.Dimensions))
	for _, d := range doc.Dimensions {
		dimNames[d.Name] = true
	}

	if excludeNode != nil {
		entries, err := ruleSeq(excludeNode)
		if err != nil {
			return fmt.Errorf("exclude: %w", err)
		}
		for _, entry := range entries {
			doc.Excludes = append(doc.Excludes, matrix.Rule(entry))
		}
	}

	if includeNode != nil {
		entries, err := ruleSeq(includeNode)
		if err != nil {
			return fmt.Errorf("include: %w", err)
		}
		for _, entry := range entries {
			match := matrix.Rule{}
			extra := map[string]string{}
			for k, v := range entry {
				if dimNames[k] {
					match[k] = v
				} else {
					extra[k] = v
				}
			}
			doc.Includes = append(doc.Includes, matrix.IncludeRule{Match: match, Extra: extra})
		}
	}

	return nil
}

// scalarSeq reads a sequence of scalars as strings, using the raw scalar
// text so that unquoted numbers like 3.12 keep their written form.
func scalarSeq(node *yaml.Node) ([]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a sequence of values")
	}
	values := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("expected scalar values")
		}
		values = append(values, item.Value)
	}
	return values, nil
}

// ruleSeq reads a sequence of flat mappings as string-to-string entries.
func ruleSeq(node *yaml.Node) ([]map[string]string, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("expected a sequence of entries")
	}
	entries := make([]map[string]string, 0, len(node.Content))
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("expected mapping entries")
		}
		entry := map[string]string{}
		for i := 0; i+1 < len(item.Content); i += 2 {
			key, value := item.Content[i], item.Content[i+1]
			if value.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("entry field %q: expected a scalar value", key.Value)
			}
			entry[key.Value] = value.Value
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func stepFromYAML(s *yamlStep, filePath string) (*model.StepTemplate, error) {
	policy := model.PolicyFatal
	if s.ContinueOnError {
		policy = model.PolicyTolerant
	}

	var cond *condition.Condition
	if s.If != "" {
		parsed, err := condition.ParseString(s.If, filePath)
		if err != nil {
			return nil, fmt.Errorf("%s: step %q: %w", filePath, s.Name, err)
		}
		cond = parsed
	}

	args := map[string]hcl.Expression{}
	for name, value := range s.With {
		expr, err := argExpression(value, filePath)
		if err != nil {
			return nil, fmt.Errorf("%s: step %q argument %q: %w", filePath, s.Name, name, err)
		}
		args[name] = expr
	}

	return &model.StepTemplate{
		Action:    s.Uses,
		Name:      s.Name,
		Condition: cond,
		Policy:    policy,
		Platform:  s.Platform,
		Args:      args,
		Env:       s.Env,
	}, nil
}

// argExpression turns a YAML argument value into an HCL expression. String
// values are parsed as templates so "${matrix.ver}" interpolates per job
// just like the HCL front-end; other values become literals.
func argExpression(value any, filePath string) (hcl.Expression, error) {
	if s, ok := value.(string); ok {
		expr, diags := hclsyntax.ParseTemplate([]byte(s), filePath, hcl.InitialPos)
		if diags.HasErrors() {
			return nil, diags
		}
		return expr, nil
	}
	val, err := ctyFromAny(value)
	if err != nil {
		return nil, err
	}
	return &hclsyntax.LiteralValueExpr{Val: val}, nil
}

func ctyFromAny(value any) (cty.Value, error) {
	switch v := value.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case string:
		return cty.StringVal(v), nil
	case []any:
		if len(v) == 0 {
			return cty.EmptyTupleVal, nil
		}
		items := make([]cty.Value, 0, len(v))
		for _, item := range v {
			cv, err := ctyFromAny(item)
			if err != nil {
				return cty.NilVal, err
			}
			items = append(items, cv)
		}
		return cty.TupleVal(items), nil
	case map[string]any:
		if len(v) == 0 {
			return cty.EmptyObjectVal, nil
		}
		fields := make(map[string]cty.Value, len(v))
		for k, item := range v {
			cv, err := ctyFromAny(item)
			if err != nil {
				return cty.NilVal, err
			}
			fields[k] = cv
		}
		return cty.ObjectVal(fields), nil
	default:
		return cty.NilVal, fmt.Errorf("unsupported argument type %T", value)
	}
}
