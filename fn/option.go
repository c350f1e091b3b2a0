package fn

// Option represents a value which may or may not be there. This is very
// often preferable to nil-able pointers: the handshake and liveness state
// machines use it for peer_version and outstanding_ping, fields that are
// legitimately absent until a specific wire message arrives.
type Option[A any] struct {
	isSome bool
	some   A
}

// Some trivially injects a value into an optional context.
func Some[A any](a A) Option[A] {
	return Option[A]{
		isSome: true,
		some:   a,
	}
}

// None trivially constructs an empty option.
func None[A any]() Option[A] {
	return Option[A]{}
}

// UnwrapOr extracts the contained value, or the supplied default if the
// Option is empty.
func (o Option[A]) UnwrapOr(a A) A {
	if o.isSome {
		return o.some
	}

	return a
}

// WhenSome conditionally runs a side-effecting function against the
// contained value. A no-op on None.
func (o Option[A]) WhenSome(f func(A)) {
	if o.isSome {
		f(o.some)
	}
}

// IsSome returns true if the Option contains a value.
func (o Option[A]) IsSome() bool {
	return o.isSome
}

// IsNone returns true if the Option is empty.
func (o Option[A]) IsNone() bool {
	return !o.isSome
}
