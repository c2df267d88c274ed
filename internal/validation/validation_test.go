package validation

import (
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wd-ai-tools/ai-gateway/internal/apperrors"
)

type nested struct {
	Provider string  `json:"provider" validate:"oneof=openai google"`
	Temp     float64 `json:"temperature" validate:"gte=0,lte=2"`
}

type sample struct {
	Name  string   `json:"name" validate:"required"`
	Count int      `json:"count" validate:"min=1,max=50"`
	Tags  []string `json:"tags" validate:"min=1,dive,oneof=a b"`
	Inner nested   `json:"inner"`
}

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	require.Equal(t, apperrors.KindValidation, appErr.Kind)
	out := make(map[string]string, len(appErr.Fields))
	for _, f := range appErr.Fields {
		out[f.Field] = f.Reason
	}
	return out
}

func TestStructValid(t *testing.T) {
	err := Struct(sample{Name: "x", Count: 3, Tags: []string{"a"}, Inner: nested{Provider: "openai", Temp: 1}})
	assert.NoError(t, err)
}

func TestStructReportsEveryField(t *testing.T) {
	err := Struct(sample{Count: 51, Tags: []string{"a", "z"}, Inner: nested{Provider: "bogus", Temp: 3}})
	require.Error(t, err)

	fields := fieldsOf(t, err)
	assert.Equal(t, "is required", fields["name"])
	assert.Equal(t, "must be at most 50", fields["count"])
	assert.Equal(t, "must be one of [a b]", fields["tags[1]"])
	assert.Equal(t, "must be one of [openai google]", fields["inner.provider"])
	assert.Equal(t, "must be less than or equal to 2", fields["inner.temperature"])
	assert.Len(t, fields, 5)
}

func TestFromBindError(t *testing.T) {
	var target struct {
		Count int `json:"count"`
	}
	typeErr := json.Unmarshal([]byte(`{"count":"many"}`), &target)
	syntaxErr := json.Unmarshal([]byte(`{"count":`), &target)

	tests := []struct {
		name  string
		err   error
		field string
	}{
		{"type error", typeErr, "count"},
		{"syntax error", syntaxErr, "body"},
		{"empty body", io.EOF, "body"},
		{"other", errors.New("boom"), "body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromBindError(tt.err)
			fields := fieldsOf(t, err)
			assert.Contains(t, fields, tt.field)
		})
	}

	assert.NoError(t, FromBindError(nil))
}
