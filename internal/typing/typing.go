package typing

// Unit is the value carried by effects that only matter for their side effect.
type Unit = struct{}
