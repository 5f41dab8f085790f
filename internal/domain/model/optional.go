package model

import "fmt"

// Optional holds a value that may be deliberately absent. The zero Optional
// is unset, which is distinct from a set zero value: Some(uint8(0)) is a
// brightness of zero, Optional[uint8]{} leaves brightness untouched.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// FromPtr returns an Optional holding *p, or an unset Optional when p is nil.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return Optional[T]{}
	}
	return Some(*p)
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the held value, or def when unset.
func (o Optional[T]) OrElse(def T) T {
	if !o.set {
		return def
	}
	return o.value
}

// Ptr returns a pointer to a copy of the held value, or nil when unset.
func (o Optional[T]) Ptr() *T {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}

func (o Optional[T]) String() string {
	if !o.set {
		return "-"
	}
	return fmt.Sprint(o.value)
}
