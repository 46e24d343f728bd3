package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile(t *testing.T) {
	t.Run("valid schema", func(t *testing.T) {
		s, err := Compile(map[string]any{
			"type": "object",
			"properties": map[string]any{
				"name": map[string]any{"type": "string"},
			},
		})
		require.NoError(t, err)
		assert.NotNil(t, s)
	})

	t.Run("nil schema", func(t *testing.T) {
		_, err := Compile(nil)
		assert.Error(t, err)
	})

	t.Run("invalid schema", func(t *testing.T) {
		_, err := Compile(map[string]any{
			"type": "not-a-type",
		})
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	s := Object(map[string]*Property{
		"query":     String("Search query"),
		"limit":     Integer("Max results").Min(1).Max(100).Default(10),
		"verbose":   Boolean("Verbose output").Default(false),
		"threshold": Number("Score threshold"),
	}, "query")

	t.Run("valid arguments", func(t *testing.T) {
		out, err := s.Validate(map[string]any{
			"query": "golang",
			"limit": float64(5),
		})
		require.NoError(t, err)
		assert.Equal(t, "golang", out["query"])
		assert.Equal(t, float64(5), out["limit"])
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := s.Validate(map[string]any{
			"limit": float64(5),
		})
		require.Error(t, err)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Reason, "query")
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		_, err := s.Validate(map[string]any{
			"query":  "golang",
			"bogus":  true,
			"extras": "nope",
		})
		require.Error(t, err)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "unknown field", ve.Reason)
	})

	t.Run("defaults filled for omitted fields", func(t *testing.T) {
		out, err := s.Validate(map[string]any{"query": "golang"})
		require.NoError(t, err)
		assert.Equal(t, float64(10), out["limit"])
		assert.Equal(t, false, out["verbose"])
		_, hasThreshold := out["threshold"]
		assert.False(t, hasThreshold, "no default declared, must stay absent")
	})

	t.Run("constraint violation carries field path", func(t *testing.T) {
		_, err := s.Validate(map[string]any{
			"query": "golang",
			"limit": float64(500),
		})
		require.Error(t, err)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "limit", ve.Field)
	})

	t.Run("input map never mutated", func(t *testing.T) {
		args := map[string]any{"query": "golang"}
		_, err := s.Validate(args)
		require.NoError(t, err)
		assert.Len(t, args, 1)
	})

	t.Run("nil arguments treated as empty", func(t *testing.T) {
		_, err := s.Validate(nil)
		require.Error(t, err) // query is required
	})
}

func TestValidateCoercion(t *testing.T) {
	s := Object(map[string]*Property{
		"count": Integer("Item count"),
		"score": Number("Score"),
		"flag":  Boolean("Flag"),
	}, "count", "score", "flag")

	t.Run("numeric strings coerced", func(t *testing.T) {
		out, err := s.Validate(map[string]any{
			"count": "7",
			"score": "1.5",
			"flag":  "true",
		})
		require.NoError(t, err)
		assert.Equal(t, float64(7), out["count"])
		assert.Equal(t, 1.5, out["score"])
		assert.Equal(t, true, out["flag"])
	})

	t.Run("native ints coerced", func(t *testing.T) {
		out, err := s.Validate(map[string]any{
			"count": 7,
			"score": 2,
			"flag":  false,
		})
		require.NoError(t, err)
		assert.Equal(t, float64(7), out["count"])
		assert.Equal(t, float64(2), out["score"])
	})

	t.Run("non-numeric string not coerced", func(t *testing.T) {
		_, err := s.Validate(map[string]any{
			"count": "seven",
			"score": float64(1),
			"flag":  true,
		})
		require.Error(t, err)

		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "count", ve.Field)
	})

	t.Run("validation is idempotent", func(t *testing.T) {
		first, err := s.Validate(map[string]any{
			"count": "7",
			"score": "1.5",
			"flag":  "true",
		})
		require.NoError(t, err)

		second, err := s.Validate(first)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestBuilder(t *testing.T) {
	t.Run("exclusive bounds", func(t *testing.T) {
		s := Object(map[string]*Property{
			"max_items": Integer("Max items").ExclusiveMin(0).Max(100),
		}, "max_items")

		_, err := s.Validate(map[string]any{"max_items": float64(0)})
		assert.Error(t, err)

		out, err := s.Validate(map[string]any{"max_items": float64(100)})
		require.NoError(t, err)
		assert.Equal(t, float64(100), out["max_items"])
	})

	t.Run("enum", func(t *testing.T) {
		s := Object(map[string]*Property{
			"unit": String("Temperature unit").Enum("celsius", "fahrenheit"),
		}, "unit")

		_, err := s.Validate(map[string]any{"unit": "kelvin"})
		assert.Error(t, err)

		_, err = s.Validate(map[string]any{"unit": "celsius"})
		assert.NoError(t, err)
	})

	t.Run("string length", func(t *testing.T) {
		s := Object(map[string]*Property{
			"name": String("Name").MinLength(2).MaxLength(4),
		}, "name")

		_, err := s.Validate(map[string]any{"name": "x"})
		assert.Error(t, err)

		_, err = s.Validate(map[string]any{"name": "abcd"})
		assert.NoError(t, err)
	})

	t.Run("array items", func(t *testing.T) {
		s := Object(map[string]*Property{
			"tags": Array("Tags", map[string]any{"type": "string"}),
		})

		_, err := s.Validate(map[string]any{"tags": []any{"a", "b"}})
		assert.NoError(t, err)

		_, err = s.Validate(map[string]any{"tags": []any{"a", float64(1)}})
		assert.Error(t, err)
	})

	t.Run("raw shape", func(t *testing.T) {
		s := Object(map[string]*Property{
			"query": String("Search query"),
		}, "query")

		raw := s.Raw()
		assert.Equal(t, "object", raw["type"])
		assert.Equal(t, false, raw["additionalProperties"])
		assert.Equal(t, []string{"query"}, raw["required"])
	})
}

func TestFromStruct(t *testing.T) {
	type searchArgs struct {
		Query   string   `json:"query" description:"Search query"`
		Limit   int      `json:"limit,omitempty" description:"Max results"`
		Score   *float64 `json:"score" description:"Score threshold"`
		Tags    []string `json:"tags,omitempty"`
		private string
		Skipped string `json:"-"`
	}

	s, err := FromStruct(searchArgs{})
	require.NoError(t, err)

	raw := s.Raw()
	props, ok := raw["properties"].(map[string]any)
	require.True(t, ok)

	assert.Contains(t, props, "query")
	assert.Contains(t, props, "limit")
	assert.Contains(t, props, "score")
	assert.Contains(t, props, "tags")
	assert.NotContains(t, props, "private")
	assert.NotContains(t, props, "Skipped")

	assert.Equal(t, []string{"query"}, raw["required"])

	query, ok := props["query"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "Search query", query["description"])

	tags, ok := props["tags"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", tags["type"])

	t.Run("validates against derived schema", func(t *testing.T) {
		_, err := s.Validate(map[string]any{"limit": float64(3)})
		assert.Error(t, err, "query is required")

		out, err := s.Validate(map[string]any{"query": "golang"})
		require.NoError(t, err)
		assert.Equal(t, "golang", out["query"])
	})

	t.Run("rejects non-struct", func(t *testing.T) {
		_, err := FromStruct("not a struct")
		assert.Error(t, err)
	})
}
