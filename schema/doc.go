// Package schema implements the tool argument validation subsystem. A schema
// is compiled once per tool at registration time (from a builder expression or
// a Go struct) and validates raw model-supplied arguments at call time:
// unknown keys are rejected, omitted optional keys receive their declared
// defaults, compatible primitives are coerced (numeric strings to numbers),
// and structural violations surface as *ValidationError with a field path.
//
// Validation is pure: the input map is never mutated and re-validating
// already-typed arguments returns an equal result.
package schema
