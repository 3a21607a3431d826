package domain

// Value is the present-or-absent content of a slot as seen by an entrypoint.
type Value struct {
	V       any
	Present bool
}

// Some returns a present Value.
func Some(v any) Value {
	return Value{V: v, Present: true}
}

// None returns an absent Value.
func None() Value {
	return Value{}
}
