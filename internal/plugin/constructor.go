package plugin

import (
	"fmt"
	"reflect"
)

// Constructor builds generator instances. It is a tagged variant: exactly one
// of the leveled or counted factories is set, and the tag says which.
type Constructor struct {
	sig     Signature
	leveled func() Leveled
	counted func() Counted
}

// LeveledConstructor wraps a factory for a difficulty-aware generator.
func LeveledConstructor(fn func() Leveled) Constructor {
	return Constructor{sig: SignatureLeveled, leveled: fn}
}

// CountedConstructor wraps a factory for a count-only generator.
func CountedConstructor(fn func() Counted) Constructor {
	return Constructor{sig: SignatureCounted, counted: fn}
}

// Signature returns the capability shape this constructor produces.
func (c Constructor) Signature() Signature {
	return c.sig
}

// Valid reports whether the constructor carries a factory matching its tag.
func (c Constructor) Valid() bool {
	switch c.sig {
	case SignatureLeveled:
		return c.leveled != nil
	case SignatureCounted:
		return c.counted != nil
	}
	return false
}

// New constructs a fresh generator instance. A factory that panics or
// returns a nil generator, including a typed nil pointer, yields an error.
func (c Constructor) New() (inst *Instance, err error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid constructor for signature %q", c.sig)
	}
	defer func() {
		if r := recover(); r != nil {
			inst, err = nil, fmt.Errorf("%s constructor panicked: %v", c.sig, r)
		}
	}()

	inst = &Instance{sig: c.sig}
	switch c.sig {
	case SignatureLeveled:
		inst.leveled = c.leveled()
		if isNil(inst.leveled) {
			return nil, fmt.Errorf("leveled constructor returned nil")
		}
	case SignatureCounted:
		inst.counted = c.counted()
		if isNil(inst.counted) {
			return nil, fmt.Errorf("counted constructor returned nil")
		}
	}
	return inst, nil
}

// isNil reports whether v is nil or an interface holding a nil pointer, map,
// slice, func or channel.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Instance is a live generator together with its signature.
type Instance struct {
	sig     Signature
	leveled Leveled
	counted Counted
}

// Signature returns the capability shape of the wrapped generator.
func (i *Instance) Signature() Signature {
	return i.sig
}

// Generate produces count problems. Counted generators ignore difficulty.
func (i *Instance) Generate(difficulty Difficulty, count int) ([]Problem, error) {
	if count < 0 {
		return nil, fmt.Errorf("problem count must be non-negative, got %d", count)
	}
	switch i.sig {
	case SignatureLeveled:
		if difficulty == "" {
			difficulty = Easy
		}
		return i.leveled.GenerateWorksheet(difficulty, count)
	case SignatureCounted:
		return i.counted.GenerateWorksheet(count)
	}
	return nil, fmt.Errorf("unknown capability signature %q", i.sig)
}
