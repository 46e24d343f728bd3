package schema

// Object builds and compiles an object schema with the given properties.
// Pass property names as variadic arguments to mark them as required; every
// other property is optional. Unknown keys are always rejected at call time
// (additionalProperties is pinned to false).
//
// Example:
//
//	schema.Object(map[string]*schema.Property{
//	    "query": schema.String("Search query"),
//	    "limit": schema.Integer("Max results").Min(1).Max(100).Default(10),
//	}, "query")
func Object(properties map[string]*Property, required ...string) *Schema {
	props := make(map[string]any, len(properties))
	for name, prop := range properties {
		props[name] = prop.build()
	}

	raw := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}

	if len(required) > 0 {
		raw["required"] = required
	}

	return MustCompile(raw)
}

// Property represents a single property in an object schema. Builder methods
// return the receiver for chaining; call order is irrelevant.
type Property struct {
	typ          string
	description  string
	enum         []any
	minimum      *float64
	maximum      *float64
	exclusiveMin *float64
	exclusiveMax *float64
	minLength    *int
	maxLength    *int
	items        map[string]any
	def          any
}

func (p *Property) build() map[string]any {
	m := map[string]any{}

	if p.typ != "" {
		m["type"] = p.typ
	}
	if p.description != "" {
		m["description"] = p.description
	}
	if len(p.enum) > 0 {
		m["enum"] = p.enum
	}
	if p.minimum != nil {
		m["minimum"] = *p.minimum
	}
	if p.maximum != nil {
		m["maximum"] = *p.maximum
	}
	if p.exclusiveMin != nil {
		m["exclusiveMinimum"] = *p.exclusiveMin
	}
	if p.exclusiveMax != nil {
		m["exclusiveMaximum"] = *p.exclusiveMax
	}
	if p.minLength != nil {
		m["minLength"] = *p.minLength
	}
	if p.maxLength != nil {
		m["maxLength"] = *p.maxLength
	}
	if p.items != nil {
		m["items"] = p.items
	}
	if p.def != nil {
		m["default"] = p.def
	}

	return m
}

// String creates a string property.
func String(description string) *Property {
	return &Property{typ: "string", description: description}
}

// Integer creates an integer property.
func Integer(description string) *Property {
	return &Property{typ: "integer", description: description}
}

// Number creates a number property (floating point).
func Number(description string) *Property {
	return &Property{typ: "number", description: description}
}

// Boolean creates a boolean property.
func Boolean(description string) *Property {
	return &Property{typ: "boolean", description: description}
}

// Array creates an array property with the given item schema, e.g.
// schema.Array("List of tags", map[string]any{"type": "string"}).
func Array(description string, items map[string]any) *Property {
	return &Property{typ: "array", description: description, items: items}
}

// Enum restricts the property to the given values.
func (p *Property) Enum(values ...any) *Property {
	p.enum = values
	return p
}

// Min sets the inclusive minimum for number/integer properties.
func (p *Property) Min(min float64) *Property {
	p.minimum = &min
	return p
}

// Max sets the inclusive maximum for number/integer properties.
func (p *Property) Max(max float64) *Property {
	p.maximum = &max
	return p
}

// ExclusiveMin sets the exclusive minimum for number/integer properties.
func (p *Property) ExclusiveMin(min float64) *Property {
	p.exclusiveMin = &min
	return p
}

// ExclusiveMax sets the exclusive maximum for number/integer properties.
func (p *Property) ExclusiveMax(max float64) *Property {
	p.exclusiveMax = &max
	return p
}

// MinLength sets the minimum length for string properties.
func (p *Property) MinLength(n int) *Property {
	p.minLength = &n
	return p
}

// MaxLength sets the maximum length for string properties.
func (p *Property) MaxLength(n int) *Property {
	p.maxLength = &n
	return p
}

// Default declares the value filled in when the property is omitted. A
// property with a default is effectively optional.
func (p *Property) Default(v any) *Property {
	p.def = v
	return p
}
