package class

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"kestrel/internal/value"
)

// Scalar is a Class for a plain Go type T addressed through *T.
type Scalar[T any] struct {
	tag  Tag
	name string
	push func(T) value.Value
	pop  func(value.Value) (T, error)
}

// NewScalar builds a class from conversion functions.
func NewScalar[T any](tag Tag, name string, push func(T) value.Value, pop func(value.Value) (T, error)) *Scalar[T] {
	return &Scalar[T]{tag: tag, name: name, push: push, pop: pop}
}

func (s *Scalar[T]) Tag() Tag     { return s.tag }
func (s *Scalar[T]) Name() string { return s.name }

func (s *Scalar[T]) Push(addr any) (value.Value, error) {
	p, ok := addr.(*T)
	if !ok || p == nil {
		return value.Null, fmt.Errorf("%w: %s cannot read %T", ErrTypeMismatch, s.name, addr)
	}
	return s.push(*p), nil
}

func (s *Scalar[T]) Pop(addr any, v value.Value) error {
	p, ok := addr.(*T)
	if !ok || p == nil {
		return fmt.Errorf("%w: %s cannot write %T", ErrTypeMismatch, s.name, addr)
	}
	out, err := s.pop(v)
	if err != nil {
		return err
	}
	*p = out
	return nil
}

func mismatch(want string, v value.Value) error {
	return fmt.Errorf("%w: expected %s, got %s", ErrTypeMismatch, want, v.Kind())
}

func popInt64(v value.Value) (int64, error) {
	n, ok := v.AsInt()
	if !ok {
		return 0, mismatch("integer", v)
	}
	return n, nil
}

func builtinClasses() []Class {
	return []Class{
		NewScalar(TagInt, "Int_Type",
			func(n int) value.Value { return value.Int(int64(n)) },
			func(v value.Value) (int, error) {
				n, err := popInt64(v)
				if err != nil {
					return 0, err
				}
				return safecast.Conv[int](n)
			}),
		NewScalar(TagInt32, "Int32_Type",
			func(n int32) value.Value { return value.Int(int64(n)) },
			func(v value.Value) (int32, error) {
				n, err := popInt64(v)
				if err != nil {
					return 0, err
				}
				return safecast.Conv[int32](n)
			}),
		NewScalar(TagInt64, "Int64_Type",
			func(n int64) value.Value { return value.Int(n) },
			popInt64),
		NewScalar(TagUint32, "UInt32_Type",
			func(n uint32) value.Value { return value.Int(int64(n)) },
			func(v value.Value) (uint32, error) {
				n, err := popInt64(v)
				if err != nil {
					return 0, err
				}
				return safecast.Conv[uint32](n)
			}),
		NewScalar(TagFloat64, "Double_Type",
			value.Float,
			func(v value.Value) (float64, error) {
				f, ok := v.AsFloat()
				if !ok {
					return 0, mismatch("number", v)
				}
				return f, nil
			}),
		NewScalar(TagFloat32, "Float_Type",
			func(f float32) value.Value { return value.Float(float64(f)) },
			func(v value.Value) (float32, error) {
				f, ok := v.AsFloat()
				if !ok {
					return 0, mismatch("number", v)
				}
				if math.Abs(f) > math.MaxFloat32 && !math.IsInf(f, 0) {
					return 0, fmt.Errorf("%w: %g overflows Float_Type", ErrTypeMismatch, f)
				}
				return float32(f), nil
			}),
		NewScalar(TagBool, "Char_Type",
			value.Bool,
			func(v value.Value) (bool, error) {
				b, ok := v.AsBool()
				if !ok {
					return false, mismatch("boolean", v)
				}
				return b, nil
			}),
		NewScalar(TagString, "String_Type",
			value.String,
			func(v value.Value) (string, error) {
				s, ok := v.AsString()
				if !ok {
					return "", mismatch("string", v)
				}
				return s, nil
			}),
	}
}
