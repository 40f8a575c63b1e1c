package core

import (
	"io"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

// ExprKind tags the variant of an Expression node.
type ExprKind uint8

const (
	ExprRaw ExprKind = iota
	ExprContextValue
	ExprQuery
	ExprAdd
	ExprSubtract
	ExprMultiply
	ExprDivide
	ExprMod
	ExprRaiseTo
	ExprGreater
	ExprLess
	ExprEqual
	ExprNot
	ExprAnd
	ExprOr
	ExprContains
	ExprContainsAll
	ExprContainsAny
	ExprIf
	ExprWhere
)

// WhereBinding is a single `name: expression` pair inside a Where node.
type WhereBinding struct {
	Name  Name
	Value *Expression
}

// Expression is a node in the tree interpreted by Evaluate (spec.md §4.1).
// Only the fields relevant to Kind are populated; the rest are left zero.
type Expression struct {
	Kind ExprKind

	Raw   Value
	Name  Name
	Query QueryBox

	Left      *Expression // Add, Subtract, Multiply, Divide, Mod, RaiseTo, Greater, Less, Equal, And, Or, Contains, ContainsAll, ContainsAny
	Right     *Expression
	Operand   *Expression // Not
	Condition *Expression // If
	Then      *Expression
	HasElse   bool
	Else      *Expression
	Body      *Expression // Where
	Bindings  []WhereBinding
}

// Context binds names to values for ContextValue lookups, extended by
// nested Where scopes (spec.md §4.1 "Scoping").
type Context map[Name]Value

// Extend returns a new Context with bindings layered over c, shadowing any
// existing entries of the same name.
func (c Context) Extend(bindings map[Name]Value) Context {
	out := make(Context, len(c)+len(bindings))
	for k, v := range c {
		out[k] = v
	}
	for k, v := range bindings {
		out[k] = v
	}
	return out
}

// QueryExecutor is the minimal surface Expression.Query needs from the
// World State View: executing a QueryBox against it. The concrete *WSV
// implements this (query.go); the interface exists so expression.go has
// no compile-time dependency on wsv.go's full surface.
type QueryExecutor interface {
	ExecuteQuery(QueryBox) (Value, error)
}

// Evaluate interprets expr against ctx, consulting wsv only for the Query
// leaf variant. It is deterministic and free of observable side effects
// (spec.md §4.1 contract).
func Evaluate(expr *Expression, ctx Context, wsv QueryExecutor) (Value, error) {
	if expr == nil {
		return Value{}, errValidate("nil expression")
	}
	switch expr.Kind {
	case ExprRaw:
		return expr.Raw, nil

	case ExprContextValue:
		v, ok := ctx[expr.Name]
		if !ok {
			return Value{}, errUnbound(expr.Name.String())
		}
		return v, nil

	case ExprQuery:
		if wsv == nil {
			return Value{}, errValidate("no query executor available")
		}
		return wsv.ExecuteQuery(expr.Query)

	case ExprAdd, ExprSubtract, ExprMultiply, ExprDivide, ExprMod, ExprRaiseTo:
		return evalArithmetic(expr, ctx, wsv)

	case ExprGreater, ExprLess:
		return evalComparison(expr, ctx, wsv)

	case ExprEqual:
		l, err := Evaluate(expr.Left, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		r, err := Evaluate(expr.Right, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		return ValueBool(l.Equal(r)), nil

	case ExprNot:
		v, err := Evaluate(expr.Operand, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		b, err := v.AsBool()
		if err != nil {
			return Value{}, err
		}
		return ValueBool(!b), nil

	case ExprAnd:
		l, err := Evaluate(expr.Left, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		lb, err := l.AsBool()
		if err != nil {
			return Value{}, err
		}
		if !lb {
			return ValueBool(false), nil
		}
		r, err := Evaluate(expr.Right, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		rb, err := r.AsBool()
		if err != nil {
			return Value{}, err
		}
		return ValueBool(rb), nil

	case ExprOr:
		l, err := Evaluate(expr.Left, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		lb, err := l.AsBool()
		if err != nil {
			return Value{}, err
		}
		if lb {
			return ValueBool(true), nil
		}
		r, err := Evaluate(expr.Right, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		rb, err := r.AsBool()
		if err != nil {
			return Value{}, err
		}
		return ValueBool(rb), nil

	case ExprContains, ExprContainsAll, ExprContainsAny:
		return evalCollection(expr, ctx, wsv)

	case ExprIf:
		c, err := Evaluate(expr.Condition, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		cb, err := c.AsBool()
		if err != nil {
			return Value{}, err
		}
		if cb {
			return Evaluate(expr.Then, ctx, wsv)
		}
		if expr.HasElse {
			return Evaluate(expr.Else, ctx, wsv)
		}
		return Value{}, nil

	case ExprWhere:
		bindings := make(map[Name]Value, len(expr.Bindings))
		for _, b := range expr.Bindings {
			v, err := Evaluate(b.Value, ctx, wsv)
			if err != nil {
				return Value{}, err
			}
			bindings[b.Name] = v
		}
		return Evaluate(expr.Body, ctx.Extend(bindings), wsv)

	default:
		return Value{}, errValidate("unknown expression kind")
	}
}

func evalOperands(expr *Expression, ctx Context, wsv QueryExecutor) (uint32, uint32, error) {
	lv, err := Evaluate(expr.Left, ctx, wsv)
	if err != nil {
		return 0, 0, err
	}
	l, err := lv.AsU32()
	if err != nil {
		return 0, 0, err
	}
	rv, err := Evaluate(expr.Right, ctx, wsv)
	if err != nil {
		return 0, 0, err
	}
	r, err := rv.AsU32()
	if err != nil {
		return 0, 0, err
	}
	return l, r, nil
}

// evalArithmetic implements the checked u32 arithmetic laws of spec.md §8:
// overflow, division/modulo by zero, and RaiseTo overflow all fail with
// Math — never wrap or panic.
func evalArithmetic(expr *Expression, ctx Context, wsv QueryExecutor) (Value, error) {
	l, r, err := evalOperands(expr, ctx, wsv)
	if err != nil {
		return Value{}, err
	}
	switch expr.Kind {
	case ExprAdd:
		sum := uint64(l) + uint64(r)
		if sum > math.MaxUint32 {
			return Value{}, errMath(MathOverflow)
		}
		return ValueU32(uint32(sum)), nil
	case ExprSubtract:
		if r > l {
			return Value{}, errMath(MathOverflow)
		}
		return ValueU32(l - r), nil
	case ExprMultiply:
		product := uint64(l) * uint64(r)
		if product > math.MaxUint32 {
			return Value{}, errMath(MathOverflow)
		}
		return ValueU32(uint32(product)), nil
	case ExprDivide:
		if r == 0 {
			return Value{}, errMath(MathDivideByZero)
		}
		return ValueU32(l / r), nil
	case ExprMod:
		if r == 0 {
			return Value{}, errMath(MathModuloByZero)
		}
		return ValueU32(l % r), nil
	case ExprRaiseTo:
		result := uint64(1)
		base := uint64(l)
		for i := uint32(0); i < r; i++ {
			result *= base
			if result > math.MaxUint32 {
				return Value{}, errMath(MathOverflow)
			}
		}
		return ValueU32(uint32(result)), nil
	default:
		return Value{}, errValidate("not an arithmetic expression")
	}
}

func evalComparison(expr *Expression, ctx Context, wsv QueryExecutor) (Value, error) {
	l, r, err := evalOperands(expr, ctx, wsv)
	if err != nil {
		return Value{}, err
	}
	if expr.Kind == ExprGreater {
		return ValueBool(l > r), nil
	}
	return ValueBool(l < r), nil
}

func evalCollection(expr *Expression, ctx Context, wsv QueryExecutor) (Value, error) {
	cv, err := Evaluate(expr.Left, ctx, wsv)
	if err != nil {
		return Value{}, err
	}
	collection, err := cv.AsVec()
	if err != nil {
		return Value{}, err
	}
	switch expr.Kind {
	case ExprContains:
		elem, err := Evaluate(expr.Right, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		for _, item := range collection {
			if item.Equal(elem) {
				return ValueBool(true), nil
			}
		}
		return ValueBool(false), nil
	case ExprContainsAll, ExprContainsAny:
		rv, err := Evaluate(expr.Right, ctx, wsv)
		if err != nil {
			return Value{}, err
		}
		wanted, err := rv.AsVec()
		if err != nil {
			return Value{}, err
		}
		contains := func(v Value) bool {
			for _, item := range collection {
				if item.Equal(v) {
					return true
				}
			}
			return false
		}
		if expr.Kind == ExprContainsAny {
			for _, w := range wanted {
				if contains(w) {
					return ValueBool(true), nil
				}
			}
			return ValueBool(len(wanted) == 0), nil
		}
		for _, w := range wanted {
			if !contains(w) {
				return ValueBool(false), nil
			}
		}
		return ValueBool(true), nil
	default:
		return Value{}, errValidate("not a collection expression")
	}
}

// --- wire encoding ---------------------------------------------------------

type expressionWire struct {
	Kind        ExprKind
	RawVal      valueWire
	NameVal     Name
	QueryVal    queryWire
	Left        []expressionWire
	Right       []expressionWire
	Operand     []expressionWire
	Condition   []expressionWire
	Then        []expressionWire
	HasElse     bool
	Else        []expressionWire
	Body        []expressionWire
	BindNames   []Name
	BindValues  []expressionWire
}

func single(e *Expression) []expressionWire {
	if e == nil {
		return nil
	}
	return []expressionWire{e.toWire()}
}

func fromSingle(s []expressionWire) *Expression {
	if len(s) == 0 {
		return nil
	}
	e := s[0].fromWire()
	return &e
}

func (e *Expression) toWire() expressionWire {
	w := expressionWire{Kind: e.Kind, RawVal: e.Raw.toWire(), NameVal: e.Name, QueryVal: e.Query.toWire()}
	w.Left = single(e.Left)
	w.Right = single(e.Right)
	w.Operand = single(e.Operand)
	w.Condition = single(e.Condition)
	w.Then = single(e.Then)
	w.HasElse = e.HasElse
	w.Else = single(e.Else)
	w.Body = single(e.Body)
	w.BindNames = make([]Name, len(e.Bindings))
	w.BindValues = make([]expressionWire, len(e.Bindings))
	for i, b := range e.Bindings {
		w.BindNames[i] = b.Name
		w.BindValues[i] = b.Value.toWire()
	}
	return w
}

func (w expressionWire) fromWire() Expression {
	e := Expression{
		Kind:    w.Kind,
		Raw:     w.RawVal.fromWire(),
		Name:    w.NameVal,
		Query:   w.QueryVal.fromWire(),
		Left:    fromSingle(w.Left),
		Right:   fromSingle(w.Right),
		Operand: fromSingle(w.Operand),
		Condition: fromSingle(w.Condition),
		Then:    fromSingle(w.Then),
		HasElse: w.HasElse,
		Else:    fromSingle(w.Else),
		Body:    fromSingle(w.Body),
	}
	e.Bindings = make([]WhereBinding, len(w.BindNames))
	for i := range w.BindNames {
		v := w.BindValues[i].fromWire()
		e.Bindings[i] = WhereBinding{Name: w.BindNames[i], Value: &v}
	}
	return e
}

func (e Expression) EncodeRLP(w io.Writer) error { return rlp.Encode(w, e.toWire()) }

func (e *Expression) DecodeRLP(s *rlp.Stream) error {
	var w expressionWire
	if err := s.Decode(&w); err != nil {
		return err
	}
	*e = w.fromWire()
	return nil
}
