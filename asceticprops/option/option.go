// Package option holds the optional scalar used by query contexts and tree
// filters where a zero value is a legitimate setting (limit 0, depth 0, id 0).
package option

import "fmt"

// Option is either Some (carries a value) or Nothing.
type Option[T any] struct {
	val   T
	valid bool
}

func Some[T any](val T) Option[T] {
	return Option[T]{val: val, valid: true}
}

func Nothing[T any]() Option[T] {
	return Option[T]{}
}

// FromPtr maps nil to Nothing.
func FromPtr[T any](p *T) Option[T] {
	if p == nil {
		return Nothing[T]()
	}
	return Some(*p)
}

func (o Option[T]) IsSome() bool {
	return o.valid
}

func (o Option[T]) IsNothing() bool {
	return !o.valid
}

// Get returns the value and whether it is present.
func (o Option[T]) Get() (T, bool) {
	return o.val, o.valid
}

// Unwrap panics on Nothing.
func (o Option[T]) Unwrap() T {
	if !o.valid {
		panic("option: Unwrap on Nothing")
	}
	return o.val
}

func (o Option[T]) UnwrapOr(def T) T {
	if o.valid {
		return o.val
	}
	return def
}

// Ptr returns a pointer to a copy of the value, or nil.
func (o Option[T]) Ptr() *T {
	if !o.valid {
		return nil
	}
	v := o.val
	return &v
}

// Or returns o when it has a value, otherwise other.
func (o Option[T]) Or(other Option[T]) Option[T] {
	if o.valid {
		return o
	}
	return other
}

func Map[T any, U any](o Option[T], f func(T) U) Option[U] {
	if o.valid {
		return Some(f(o.val))
	}
	return Nothing[U]()
}

func (o Option[T]) String() string {
	if o.valid {
		return fmt.Sprintf("Some(%v)", o.val)
	}
	return "Nothing"
}
