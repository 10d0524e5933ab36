// Package contracts defines the event, record and finding types shared by every hookstat component.
package contracts

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EventID is the opaque identifier the instrumentation engine assigns to a static code site.
// It is stable for one run only.
type EventID int64

// EventKind identifies which instrumentation hook produced an event.
type EventKind uint8

const (
	KindInvokeFunPre EventKind = iota + 1
	KindInvokeFun
	KindLiteral
	KindForInObject
	KindDeclare
	KindGetFieldPre
	KindGetField
	KindPutFieldPre
	KindPutField
	KindRead
	KindWrite
	KindFunctionEnter
	KindFunctionExit
	KindBinary
	KindUnary
	KindConditional
	KindInstrumentCode
	KindEndExecution
)

var kindNames = [...]string{
	KindInvokeFunPre:   "invokeFunPre",
	KindInvokeFun:      "invokeFun",
	KindLiteral:        "literal",
	KindForInObject:    "forinObject",
	KindDeclare:        "declare",
	KindGetFieldPre:    "getFieldPre",
	KindGetField:       "getField",
	KindPutFieldPre:    "putFieldPre",
	KindPutField:       "putField",
	KindRead:           "read",
	KindWrite:          "write",
	KindFunctionEnter:  "functionEnter",
	KindFunctionExit:   "functionExit",
	KindBinary:         "binary",
	KindUnary:          "unary",
	KindConditional:    "conditional",
	KindInstrumentCode: "instrumentCode",
	KindEndExecution:   "endExecution",
}

// HookKinds lists every kind that carries a code site, i.e. all kinds except the end signal.
func HookKinds() []EventKind {
	kinds := make([]EventKind, 0, len(kindNames)-2)
	for k := KindInvokeFunPre; k < KindEndExecution; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// Valid reports whether k is a known kind.
func (k EventKind) Valid() bool {
	return k >= KindInvokeFunPre && k <= KindEndExecution
}

// String returns the hook name of the kind.
func (k EventKind) String() string {
	if !k.Valid() {
		return "unknown"
	}
	return kindNames[k]
}

// ParseEventKind converts a hook name to an EventKind.
func ParseEventKind(s string) (EventKind, error) {
	for k := KindInvokeFunPre; k <= KindEndExecution; k++ {
		if kindNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid event kind: %q", s)
}

// MarshalText encodes the kind by its hook name.
func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid event kind: %d", uint8(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a hook name.
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Value describes a runtime value observed by the instrumentation engine.
// Ref names well-known builtins ("Object", "Object.prototype", ...) so that
// predicates can test identity without access to the target heap.
type Value struct {
	// Type is the runtime type: undefined, null, boolean, number, string, object, function or array.
	Type string `json:"type" msgpack:"type"`
	// Ref identifies a well-known builtin object, empty otherwise.
	Ref string `json:"ref,omitempty" msgpack:"ref,omitempty"`
	// Name is the function name for function values.
	Name string `json:"name,omitempty" msgpack:"name,omitempty"`
	// Number holds finite numeric values.
	Number float64 `json:"number,omitempty" msgpack:"number,omitempty"`
	// Str holds string values, and "NaN"/"Infinity"/"-Infinity" for non-finite numbers.
	Str string `json:"str,omitempty" msgpack:"str,omitempty"`
	Bool bool  `json:"bool,omitempty" msgpack:"bool,omitempty"`
	// Length is the array length for arrays.
	Length int `json:"length,omitempty" msgpack:"length,omitempty"`
	// OwnKeys lists the own property keys the engine captured for objects and arrays.
	OwnKeys []string `json:"own_keys,omitempty" msgpack:"own_keys,omitempty"`
	// Props holds captured property values, e.g. the fields of a property descriptor.
	Props map[string]Value `json:"props,omitempty" msgpack:"props,omitempty"`
}

// IsRef reports whether v is the builtin named ref.
func (v Value) IsRef(ref string) bool {
	return v.Ref != "" && v.Ref == ref
}

// IsArray reports whether v is an array.
func (v Value) IsArray() bool {
	return v.Type == "array"
}

// IsNormalNumber reports whether v is a finite number.
func (v Value) IsNormalNumber() bool {
	if v.Type != "number" || v.Str != "" {
		return false
	}
	return !math.IsNaN(v.Number) && !math.IsInf(v.Number, 0)
}

// PropertyKey renders v the way it is used as a property key.
func (v Value) PropertyKey() string {
	switch v.Type {
	case "number":
		if v.Str != "" {
			return v.Str
		}
		return jsNumberString(v.Number)
	case "boolean":
		return strconv.FormatBool(v.Bool)
	case "undefined", "null":
		return v.Type
	default:
		return v.Str
	}
}

// jsNumberString renders f like JavaScript's Number.prototype.toString:
// -0 is "0" and exponent notation is used below 1e-6 and from 1e21 on.
func jsNumberString(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}

	if abs := math.Abs(f); abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}

	// Go pads the exponent to two digits ("1e-07"), JavaScript does not
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
	return mant + "e" + sign + digits
}

// HasOwn reports whether key is among the captured own keys of v.
func (v Value) HasOwn(key string) bool {
	for _, k := range v.OwnKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Prop returns a captured property of v.
func (v Value) Prop(name string) (Value, bool) {
	p, ok := v.Props[name]
	return p, ok
}

// IsTrue reports whether v is the boolean true.
func (v Value) IsTrue() bool {
	return v.Type == "boolean" && v.Bool
}

// Call is the payload of invokeFunPre and invokeFun.
type Call struct {
	Func          Value   `json:"func" msgpack:"func"`
	Base          Value   `json:"base" msgpack:"base"`
	Args          []Value `json:"args" msgpack:"args"`
	Result        *Value  `json:"result,omitempty" msgpack:"result,omitempty"` // invokeFun only
	IsConstructor bool    `json:"is_constructor,omitempty" msgpack:"is_constructor,omitempty"`
	IsMethod      bool    `json:"is_method,omitempty" msgpack:"is_method,omitempty"`
}

// FieldAccess is the payload of getField(Pre) and putField(Pre).
type FieldAccess struct {
	Base         Value `json:"base" msgpack:"base"`
	Offset       Value `json:"offset" msgpack:"offset"`
	Val          Value `json:"val" msgpack:"val"`
	IsComputed   bool  `json:"is_computed,omitempty" msgpack:"is_computed,omitempty"`
	IsOpAssign   bool  `json:"is_op_assign,omitempty" msgpack:"is_op_assign,omitempty"`
	IsMethodCall bool  `json:"is_method_call,omitempty" msgpack:"is_method_call,omitempty"`
}

// Literal is the payload of literal.
type Literal struct {
	Val             Value `json:"val" msgpack:"val"`
	HasGetterSetter bool  `json:"has_getter_setter,omitempty" msgpack:"has_getter_setter,omitempty"`
}

// ForIn is the payload of forinObject.
type ForIn struct {
	Val Value `json:"val" msgpack:"val"`
}

// Declare is the payload of declare.
type Declare struct {
	Name          string `json:"name" msgpack:"name"`
	Val           Value  `json:"val" msgpack:"val"`
	IsArgument    bool   `json:"is_argument,omitempty" msgpack:"is_argument,omitempty"`
	ArgumentIndex int    `json:"argument_index,omitempty" msgpack:"argument_index,omitempty"`
	IsCatchParam  bool   `json:"is_catch_param,omitempty" msgpack:"is_catch_param,omitempty"`
}

// Variable is the payload of read and write.
type Variable struct {
	Name           string `json:"name" msgpack:"name"`
	Val            Value  `json:"val" msgpack:"val"`
	IsGlobal       bool   `json:"is_global,omitempty" msgpack:"is_global,omitempty"`
	IsPseudoGlobal bool   `json:"is_pseudo_global,omitempty" msgpack:"is_pseudo_global,omitempty"`
}

// FunctionEnter is the payload of functionEnter.
type FunctionEnter struct {
	Func Value   `json:"func" msgpack:"func"`
	This Value   `json:"this" msgpack:"this"`
	Args []Value `json:"args" msgpack:"args"`
}

// FunctionExit is the payload of functionExit.
type FunctionExit struct {
	ReturnVal Value  `json:"return_val" msgpack:"return_val"`
	Exception *Value `json:"exception,omitempty" msgpack:"exception,omitempty"`
}

// Operation is the payload of binary and unary. Right is nil for unary operators.
type Operation struct {
	Op     string `json:"op" msgpack:"op"`
	Left   Value  `json:"left" msgpack:"left"`
	Right  *Value `json:"right,omitempty" msgpack:"right,omitempty"`
	Result Value  `json:"result" msgpack:"result"`
}

// Conditional is the payload of conditional.
type Conditional struct {
	Result Value `json:"result" msgpack:"result"`
}

// Instrument is the payload of instrumentCode.
type Instrument struct {
	Source string `json:"source,omitempty" msgpack:"source,omitempty"`
}

// Event is a single hook invocation. Exactly one payload field matching Kind may be set;
// payloads are optional because several analyses only need the IID.
type Event struct {
	Kind EventKind `json:"kind" msgpack:"kind"`
	IID  EventID   `json:"iid" msgpack:"iid"`

	Call          *Call          `json:"call,omitempty" msgpack:"call,omitempty"`
	Field         *FieldAccess   `json:"field,omitempty" msgpack:"field,omitempty"`
	Literal       *Literal       `json:"literal,omitempty" msgpack:"literal,omitempty"`
	ForIn         *ForIn         `json:"forin,omitempty" msgpack:"forin,omitempty"`
	Declare       *Declare       `json:"declare,omitempty" msgpack:"declare,omitempty"`
	Variable      *Variable      `json:"variable,omitempty" msgpack:"variable,omitempty"`
	FunctionEnter *FunctionEnter `json:"function_enter,omitempty" msgpack:"function_enter,omitempty"`
	FunctionExit  *FunctionExit  `json:"function_exit,omitempty" msgpack:"function_exit,omitempty"`
	Operation     *Operation     `json:"operation,omitempty" msgpack:"operation,omitempty"`
	Conditional   *Conditional   `json:"conditional,omitempty" msgpack:"conditional,omitempty"`
	Instrument    *Instrument    `json:"instrument,omitempty" msgpack:"instrument,omitempty"`
}

// Validate checks that the kind is known and that no payload belonging to another kind is set.
func (e Event) Validate() error {
	if !e.Kind.Valid() {
		return fmt.Errorf("invalid event kind: %d", uint8(e.Kind))
	}

	payloads := [...]struct {
		name    string
		present bool
	}{
		{"call", e.Call != nil},
		{"field", e.Field != nil},
		{"literal", e.Literal != nil},
		{"forin", e.ForIn != nil},
		{"declare", e.Declare != nil},
		{"variable", e.Variable != nil},
		{"function_enter", e.FunctionEnter != nil},
		{"function_exit", e.FunctionExit != nil},
		{"operation", e.Operation != nil},
		{"conditional", e.Conditional != nil},
		{"instrument", e.Instrument != nil},
	}
	allowed := payloadFor(e.Kind)
	for _, p := range payloads {
		if p.present && p.name != allowed {
			return fmt.Errorf("%s event carries unexpected %s payload", e.Kind, p.name)
		}
	}
	return nil
}

// payloadFor returns the payload field name a kind may carry.
func payloadFor(k EventKind) string {
	switch k {
	case KindInvokeFunPre, KindInvokeFun:
		return "call"
	case KindGetFieldPre, KindGetField, KindPutFieldPre, KindPutField:
		return "field"
	case KindLiteral:
		return "literal"
	case KindForInObject:
		return "forin"
	case KindDeclare:
		return "declare"
	case KindRead, KindWrite:
		return "variable"
	case KindFunctionEnter:
		return "function_enter"
	case KindFunctionExit:
		return "function_exit"
	case KindBinary, KindUnary:
		return "operation"
	case KindConditional:
		return "conditional"
	case KindInstrumentCode:
		return "instrument"
	default:
		return ""
	}
}
