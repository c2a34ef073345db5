package tool

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// MissingParamsError lists required parameters absent from an input.
type MissingParamsError struct {
	Tool    string
	Missing []string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("%s: missing required parameters: %s", e.Tool, strings.Join(e.Missing, ", "))
}

func (e *MissingParamsError) Unwrap() error { return ErrInvalidArgs }

// CheckInput reports required parameters that are absent or nil in input.
// Schemas are advisory, so callers decide what to do with the result.
func CheckInput(def Definition, input Input) error {
	var missing []string
	for name, p := range def.Parameters {
		if !p.Required {
			continue
		}
		if v, ok := input[name]; !ok || v == nil {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &MissingParamsError{Tool: def.Name, Missing: missing}
}

// Decode copies input into out with loose scalar coercion ("4" -> 4.0).
func Decode(input Input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}
