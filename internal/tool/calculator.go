package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

var (
	errInvalidOperands = errors.New("invalid operands: a and b must be numbers")
	errDivisionByZero  = errors.New("division by zero")
)

// CalculatorResult is returned by the calculator tool.
type CalculatorResult struct {
	Operation string  `json:"operation"`
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Result    float64 `json:"result"`
}

// MarshalJSON writes non-finite numbers as null.
func (r CalculatorResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Operation string   `json:"operation"`
		A         *float64 `json:"a"`
		B         *float64 `json:"b"`
		Result    *float64 `json:"result"`
	}{r.Operation, finite(r.A), finite(r.B), finite(r.Result)})
}

func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

type calculatorArgs struct {
	Operation string `json:"operation"`
	A         any    `json:"a"`
	B         any    `json:"b"`
}

// operand coerces v to a number. Numeric strings outside the float64
// range become ±Inf.
func operand(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	var f float64
	if err := mapstructure.WeakDecode(v, &f); err == nil {
		return f, !math.IsNaN(f)
	}
	s, ok := v.(string)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if errors.Is(err, strconv.ErrRange) {
		return f, true
	}
	return 0, false
}

// Calculator performs basic arithmetic on two operands.
type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

func (c *Calculator) Info() Definition {
	return Definition{
		Name:        "calculator",
		Description: "Performs basic arithmetic operations",
		Parameters: map[string]Parameter{
			"operation": {Type: "string", Description: "Operation: add, subtract, multiply, divide", Required: true},
			"a":         {Type: "number", Description: "First operand", Required: true},
			"b":         {Type: "number", Description: "Second operand", Required: true},
		},
	}
}

func (c *Calculator) Execute(ctx context.Context, input Input) (any, error) {
	var args calculatorArgs
	if err := Decode(input, &args); err != nil {
		return nil, errInvalidOperands
	}
	a, okA := operand(args.A)
	b, okB := operand(args.B)
	if !okA || !okB {
		return nil, errInvalidOperands
	}

	var result float64
	switch args.Operation {
	case "add":
		result = a + b
	case "subtract":
		result = a - b
	case "multiply":
		result = a * b
	case "divide":
		if b == 0 {
			return nil, errDivisionByZero
		}
		result = a / b
	default:
		return nil, fmt.Errorf("unknown operation: %s", args.Operation)
	}

	return CalculatorResult{Operation: args.Operation, A: a, B: b, Result: result}, nil
}
