package utils

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readingForm struct {
	VoltageBefore *float64 `json:"voltage_before" binding:"required"`
	PF            float64  `json:"pf" binding:"gte=-1,lte=1"`
}

func TestFieldErrors(t *testing.T) {
	UseJSONFieldNames()

	err := binding.Validator.ValidateStruct(&readingForm{PF: 1.5})
	require.Error(t, err)

	fields, ok := FieldErrors(err, "[2].")
	require.True(t, ok)
	require.Len(t, fields, 2)
	assert.Equal(t, "[2].voltage_before", fields[0].Field)
	assert.Equal(t, "This field is required", fields[0].Message)
	assert.Equal(t, "[2].pf", fields[1].Field)
	assert.Equal(t, "Must be at most 1, got 1.5", fields[1].Message)

	_, ok = FieldErrors(errors.New("unexpected EOF"), "")
	assert.False(t, ok)
}

func TestToSnakeCase(t *testing.T) {
	assert.Equal(t, "voltage_before", toSnakeCase("VoltageBefore"))
	assert.Equal(t, "voltage_before", toSnakeCase("voltage_before"))
	assert.Equal(t, "pf", toSnakeCase("pf"))
}
