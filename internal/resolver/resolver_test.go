package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xkilldash9x/smartfill/internal/form"
	"github.com/xkilldash9x/smartfill/internal/llmclient"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) Generate(ctx context.Context, req llmclient.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

const profileText = "Name: Ada Lovelace\nEmail: ada@example.com"

func TestPrompt(t *testing.T) {
	r := New(nil, StaticProfile(profileText), Options{}, nil)

	t.Run("plain field", func(t *testing.T) {
		fc := form.FieldContext{
			Tag: "input", InputType: "email", ID: "email", Name: "user_email",
			Placeholder: "you@example.com", Label: "Email", Required: true,
			SurroundingText: "Email We never share it.",
		}
		want := profileText + "\n\n" +
			"Form Element Details:\n" +
			"Type: input (email)\n" +
			"ID: email\n" +
			"Name: user_email\n" +
			"Placeholder: you@example.com\n" +
			"Label: Email\n" +
			"Required: true\n" +
			"Surrounding text: Email We never share it.\n" +
			"\nValue to fill (respond with ONLY the value, no explanations):"
		assert.Equal(t, want, r.Prompt(fc))
	})

	t.Run("native options", func(t *testing.T) {
		fc := form.FieldContext{
			Tag: "select", InputType: "select-one", ID: "country",
			Options: []form.Option{{Value: "", Text: "Choose"}, {Value: "in", Text: "India"}, {Value: "fr"}},
			Catalog: &form.CatalogEntry{Field: "country", Options: []string{"ignored"}},
		}
		p := r.Prompt(fc)
		assert.Contains(t, p, "Type: select (select-one)\n")
		assert.Contains(t, p, "Required: false\n")
		assert.NotContains(t, p, "Surrounding text:")
		assert.Contains(t, p, "Available dropdown options (respond with exact text as shown):\n  1. Choose\n  2. India\n  3. fr\n")
		assert.NotContains(t, p, "Detected form options:", "native options take precedence")
	})

	t.Run("catalog options", func(t *testing.T) {
		fc := form.FieldContext{
			Tag: "input", InputType: "text", ID: "skills",
			Catalog: &form.CatalogEntry{Field: "Skills", Kind: form.KindOptions, Options: []string{"Go", "Rust"}},
		}
		assert.Contains(t, r.Prompt(fc), "Detected form options:\n  1. Go\n  2. Rust\n"+
			"For dropdown, date picker, or select options, respond with the exact text of the option to select.\n"+
			"\nValue to fill")
	})

	t.Run("date parts", func(t *testing.T) {
		fc := form.FieldContext{
			Tag: "input", ID: "birth",
			Catalog: &form.CatalogEntry{Field: "Date of Birth", Kind: form.KindDateParts, Date: &form.DateParts{
				Day: []string{"1", "2"}, Year: []string{"1990", "1991"},
			}},
		}
		p := r.Prompt(fc)
		assert.Contains(t, p, "Type: input\n")
		assert.Contains(t, p, "Detected form options:\n  Days: 1, 2\n  Years: 1990, 1991\n")
		assert.NotContains(t, p, "Months:")
	})
}

func TestResolve(t *testing.T) {
	fc := form.FieldContext{Tag: "input", InputType: "email", ID: "email", Label: "Email"}

	t.Run("success sends the prompt and knobs", func(t *testing.T) {
		client := new(mockClient)
		r := New(client, StaticProfile(profileText), Options{}, nil)
		want := llmclient.Request{Prompt: r.Prompt(fc), MaxOutputTokens: 100, Temperature: 0.2}
		client.On("Generate", mock.Anything, want).Return("  \"a@b.com\"\n", nil).Once()

		value, ok := r.Resolve(context.Background(), fc)
		assert.True(t, ok)
		assert.Equal(t, "a@b.com", value)
		client.AssertExpectations(t)
	})

	t.Run("zero temperature is sent as configured", func(t *testing.T) {
		client := new(mockClient)
		zero := float32(0)
		r := New(client, StaticProfile(profileText), Options{Temperature: &zero}, nil)
		want := llmclient.Request{Prompt: r.Prompt(fc), MaxOutputTokens: 100, Temperature: 0}
		client.On("Generate", mock.Anything, want).Return("a@b.com", nil).Once()

		_, ok := r.Resolve(context.Background(), fc)
		assert.True(t, ok)
		client.AssertExpectations(t)
	})

	t.Run("failure is none and logged", func(t *testing.T) {
		core, logs := observer.New(zapcore.WarnLevel)
		client := new(mockClient)
		client.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("network down")).Once()
		temperature := float32(0.5)
		r := New(client, nil, Options{MaxOutputTokens: 10, Temperature: &temperature}, zap.New(core))

		value, ok := r.Resolve(context.Background(), fc)
		assert.False(t, ok)
		assert.Empty(t, value)
		client.AssertNumberOfCalls(t, "Generate", 1)
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "resolver", logs.All()[0].LoggerName)
		assert.Equal(t, "email", logs.All()[0].ContextMap()["field"])
	})

	t.Run("blank answer is none", func(t *testing.T) {
		client := new(mockClient)
		client.On("Generate", mock.Anything, mock.Anything).Return("```\n\n```", nil).Once()
		_, ok := New(client, nil, Options{}, nil).Resolve(context.Background(), fc)
		assert.False(t, ok)
	})
}

func TestNormalize(t *testing.T) {
	r := New(nil, nil, Options{}, nil)
	tests := map[string]string{
		"  Ada  ":                         "Ada",
		"\"Ada Lovelace\"":                "Ada Lovelace",
		"'India'":                         "India",
		"```\nada@example.com\n```":       "ada@example.com",
		"```text\nLondon\n```":            "London",
		"```42```":                        "42",
		"<b>Bold</b> answer":              "Bold answer",
		"Tom &amp; Jerry":                 "Tom & Jerry",
		"<script>alert(1)</script>":       "",
		"\"unbalanced":                    "\"unbalanced",
		"":                                "",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, r.Normalize(in))
		})
	}
}
