package loader

import (
	"fmt"
	"sort"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/vk/matrixci/internal/condition"
	"github.com/vk/matrixci/internal/matrix"
	"github.com/vk/matrixci/internal/model"
	"github.com/vk/matrixci/internal/schema"
)

// mergeHCLFile parses one HCL document and folds it into the accumulating
// model. Exclude and include bodies are read as free-form attributes: keys
// naming declared dimensions become the rule's partial assignment, the
// special `extra` object and any other keys become extra fields.
func mergeHCLFile(doc *model.Document, filePath string, parser *hclparse.Parser) error {
	hclFile, diags := parser.ParseHCLFile(filePath)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse %s: %w", filePath, diags)
	}

	var parsed schema.PipelineFile
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &parsed); diags.HasErrors() {
		return fmt.Errorf("failed to decode %s: %w", filePath, diags)
	}

	if parsed.Pipeline != nil && parsed.Pipeline.FailFast != nil {
		doc.FailFast = *parsed.Pipeline.FailFast
	}

	for _, d := range parsed.Dimensions {
		doc.Dimensions = append(doc.Dimensions, matrix.Dimension{
			Name:   d.Name,
			Values: d.Values,
		})
	}

	dimNames := make(map[string]bool, len(doc.Dimensions))
	for _, d := range doc.Dimensions {
		dimNames[d.Name] = true
	}

	for _, block := range parsed.Excludes {
		rule, _, err := ruleFromBody(block.Body, dimNames, false)
		if err != nil {
			return fmt.Errorf("%s: invalid exclude: %w", filePath, err)
		}
		doc.Excludes = append(doc.Excludes, rule)
	}

	for _, block := range parsed.Includes {
		match, extra, err := ruleFromBody(block.Body, dimNames, true)
		if err != nil {
			return fmt.Errorf("%s: invalid include: %w", filePath, err)
		}
		doc.Includes = append(doc.Includes, matrix.IncludeRule{Match: match, Extra: extra})
	}

	for _, r := range parsed.Runtimes {
		doc.Runtimes = append(doc.Runtimes, model.RuntimeTable{
			Dimension: r.Dimension,
			Map:       r.Map,
		})
	}

	for _, s := range parsed.Steps {
		step, err := stepFromHCL(s, filePath)
		if err != nil {
			return err
		}
		doc.Steps = append(doc.Steps, step)
	}

	return nil
}

// ruleFromBody reads the attributes of an exclude or include body. With
// splitExtra set, keys outside the declared dimensions land in the extra
// map instead of the assignment. Attributes are evaluated without a scope;
// rule values must be literals.
func ruleFromBody(body hcl.Body, dimNames map[string]bool, splitExtra bool) (matrix.Rule, map[string]string, error) {
	attrs, diags := body.JustAttributes()
	if diags.HasErrors() {
		return nil, nil, diags
	}

	// Sort for deterministic diagnostics; map iteration order is random.
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	rule := matrix.Rule{}
	extra := map[string]string{}
	for _, name := range names {
		attr := attrs[name]
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, nil, diags
		}

		if splitExtra && name == "extra" && val.Type().IsObjectType() {
			for k, v := range val.AsValueMap() {
				s, err := stringify(v)
				if err != nil {
					return nil, nil, fmt.Errorf("extra field %q: %w", k, err)
				}
				extra[k] = s
			}
			continue
		}

		s, err := stringify(val)
		if err != nil {
			return nil, nil, fmt.Errorf("field %q: %w", name, err)
		}
		if splitExtra && !dimNames[name] {
			extra[name] = s
		} else {
			rule[name] = s
		}
	}
	return rule, extra, nil
}

func stringify(val cty.Value) (string, error) {
	conv, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", err
	}
	if conv.IsNull() {
		return "", fmt.Errorf("value is null")
	}
	return conv.AsString(), nil
}

func stepFromHCL(s *schema.StepBlock, filePath string) (*model.StepTemplate, error) {
	policy, err := model.ParsePolicy(s.OnFailure)
	if err != nil {
		return nil, fmt.Errorf("%s: step %q: %w", filePath, s.Name, err)
	}

	args := map[string]hcl.Expression{}
	if s.Arguments != nil {
		attrs, diags := s.Arguments.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("%s: step %q arguments: %w", filePath, s.Name, diags)
		}
		for name, attr := range attrs {
			args[name] = attr.Expr
		}
	}

	return &model.StepTemplate{
		Action:    s.Action,
		Name:      s.Name,
		Condition: condition.FromExpr(s.Condition),
		Policy:    policy,
		Platform:  s.Platform,
		Args:      args,
		Env:       s.Env,
	}, nil
}
