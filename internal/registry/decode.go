package registry

import (
	"fmt"
	"reflect"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeArgs fills an action input struct from resolved argument values.
// Fields are matched by their `mci` tag; arguments without a matching field
// are ignored so that action inputs can evolve without breaking existing
// documents. Each value is converted to the field's implied cty type first,
// so a document may pass a number where the handler wants a string.
func DecodeArgs(args map[string]cty.Value, target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("decode target must be a pointer to a struct, got %T", target)
	}

	st := v.Elem()
	t := st.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("mci")
		if name == "" || name == "-" {
			continue
		}
		val, ok := args[name]
		if !ok || val.IsNull() {
			continue
		}

		want, err := gocty.ImpliedType(st.Field(i).Interface())
		if err != nil {
			return fmt.Errorf("argument %q: unsupported field type: %w", name, err)
		}
		conv, err := convert.Convert(val, want)
		if err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
		if err := gocty.FromCtyValue(conv, st.Field(i).Addr().Interface()); err != nil {
			return fmt.Errorf("argument %q: %w", name, err)
		}
	}
	return nil
}
