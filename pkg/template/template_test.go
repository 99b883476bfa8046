package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name   string
		tpl    string
		fields map[string]any
		want   string
	}{
		{
			name:   "basic substitution",
			tpl:    "Hi {name}, your number is {phone}",
			fields: map[string]any{"name": "Ana", "phone": "11999999999"},
			want:   "Hi Ana, your number is 11999999999",
		},
		{
			name:   "all occurrences replaced",
			tpl:    "{name} {name} {name}",
			fields: map[string]any{"name": "Bob"},
			want:   "Bob Bob Bob",
		},
		{
			name:   "unmatched placeholder kept verbatim",
			tpl:    "Hello {name}, code {codigo}",
			fields: map[string]any{"name": "Ana"},
			want:   "Hello Ana, code {codigo}",
		},
		{
			name:   "case sensitive",
			tpl:    "{Name}",
			fields: map[string]any{"name": "Ana"},
			want:   "{Name}",
		},
		{
			name:   "numeric custom field",
			tpl:    "You owe {amount}",
			fields: map[string]any{"amount": float64(42)},
			want:   "You owe 42",
		},
		{
			name:   "nested custom field stringified",
			tpl:    "plan: {plan}",
			fields: map[string]any{"plan": map[string]any{"tier": "gold", "seats": float64(3)}},
			want:   `plan: {"seats":3,"tier":"gold"}`,
		},
		{
			name:   "value containing a placeholder is not re-expanded",
			tpl:    "{a} {b}",
			fields: map[string]any{"a": "{b}", "b": "x"},
			want:   "{b} x",
		},
		{
			name:   "empty template",
			tpl:    "",
			fields: map[string]any{"name": "Ana"},
			want:   "",
		},
		{
			name: "no fields",
			tpl:  "Hi {name}",
			want: "Hi {name}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tpl, tt.fields))
		})
	}
}

func TestRenderIsStable(t *testing.T) {
	tpl := "Hi {name}, {a} {b} {c}"
	fields := map[string]any{"name": "Ana", "a": "1", "b": "2", "c": map[string]any{"x": 1, "y": 2}}

	first := Render(tpl, fields)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Render(tpl, fields))
	}
}
