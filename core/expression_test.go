package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func raw(v Value) *Expression { return &Expression{Kind: ExprRaw, Raw: v} }

func TestEvaluateArithmeticOverflowFailsMath(t *testing.T) {
	expr := &Expression{Kind: ExprAdd, Left: raw(ValueU32(math32Max)), Right: raw(ValueU32(1))}
	_, err := Evaluate(expr, Context{}, nil)
	require.Error(t, err)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrMath, coreErr.Kind)
	require.Equal(t, MathOverflow, coreErr.Math)
}

const math32Max = 1<<32 - 1

func TestEvaluateDivideByZero(t *testing.T) {
	expr := &Expression{Kind: ExprDivide, Left: raw(ValueU32(4)), Right: raw(ValueU32(0))}
	_, err := Evaluate(expr, Context{}, nil)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, MathDivideByZero, coreErr.Math)
}

func TestEvaluateAndShortCircuits(t *testing.T) {
	// Right operand is an unbound context lookup; And must never evaluate
	// it once the left operand is false.
	expr := &Expression{Kind: ExprAnd, Left: raw(ValueBool(false)), Right: &Expression{Kind: ExprContextValue, Name: "missing"}}
	v, err := Evaluate(expr, Context{}, nil)
	require.NoError(t, err)
	b, _ := v.AsBool()
	require.False(t, b)
}

func TestEvaluateWhereExtendsScope(t *testing.T) {
	expr := &Expression{
		Kind: ExprWhere,
		Bindings: []WhereBinding{
			{Name: "x", Value: raw(ValueU32(10))},
		},
		Body: &Expression{Kind: ExprAdd, Left: &Expression{Kind: ExprContextValue, Name: "x"}, Right: raw(ValueU32(5))},
	}
	v, err := Evaluate(expr, Context{}, nil)
	require.NoError(t, err)
	got, _ := v.AsU32()
	require.Equal(t, uint32(15), got)
}

func TestEvaluateContextValueUnbound(t *testing.T) {
	expr := &Expression{Kind: ExprContextValue, Name: "nope"}
	_, err := Evaluate(expr, Context{}, nil)
	var coreErr *Error
	require.ErrorAs(t, err, &coreErr)
	require.Equal(t, ErrUnboundName, coreErr.Kind)
}

func TestEvaluateIfBranches(t *testing.T) {
	expr := &Expression{
		Kind:      ExprIf,
		Condition: raw(ValueBool(true)),
		Then:      raw(ValueU32(1)),
		HasElse:   true,
		Else:      raw(ValueU32(2)),
	}
	v, err := Evaluate(expr, Context{}, nil)
	require.NoError(t, err)
	got, _ := v.AsU32()
	require.Equal(t, uint32(1), got)
}
