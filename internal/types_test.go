package internal

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/eavx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlotColumn(t *testing.T) {
	tests := []struct {
		typ    eavx.AttributeType
		column string
	}{
		{eavx.AttributeTypeString, "value_string"},
		{eavx.AttributeTypeText, "value_text"},
		{eavx.AttributeTypeInteger, "value_integer"},
		{eavx.AttributeTypeDecimal, "value_decimal"},
		{eavx.AttributeTypeBoolean, "value_boolean"},
		{eavx.AttributeTypeDate, "value_date"},
		{eavx.AttributeTypeDateTime, "value_datetime"},
		{eavx.AttributeTypeUUID, "value_uuid"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.column, SlotColumn(tt.typ))
	}
	assert.Equal(t, "", SlotColumn(eavx.AttributeType("bogus")))
}

func TestSetSlotPopulatesExactlyOne(t *testing.T) {
	row := &ValueRow{AttributeID: 1, EntityID: "9"}

	require.NoError(t, row.SetSlot(eavx.AttributeTypeInteger, int64(42)))
	require.NotNil(t, row.ValueInteger)
	assert.Equal(t, int64(42), *row.ValueInteger)
	assert.Nil(t, row.ValueString)
	assert.Nil(t, row.ValueDecimal)

	// Switching types clears the previous slot.
	require.NoError(t, row.SetSlot(eavx.AttributeTypeString, "hello"))
	assert.Nil(t, row.ValueInteger)
	require.NotNil(t, row.ValueString)
	assert.Equal(t, "hello", *row.ValueString)
}

func TestSetSlotNilClearsAll(t *testing.T) {
	row := &ValueRow{}
	require.NoError(t, row.SetSlot(eavx.AttributeTypeBoolean, true))
	require.NoError(t, row.SetSlot(eavx.AttributeTypeBoolean, nil))
	assert.Nil(t, row.ValueBoolean)
	assert.Nil(t, row.Slot(eavx.AttributeTypeBoolean))
}

func TestSetSlotRejectsMismatchedValue(t *testing.T) {
	row := &ValueRow{}
	err := row.SetSlot(eavx.AttributeTypeInteger, "not an int64")
	require.Error(t, err)
}

func TestSlotRoundTrip(t *testing.T) {
	id := uuid.New()
	ts := time.Date(2024, 5, 17, 13, 45, 0, 0, time.UTC)

	tests := []struct {
		name  string
		typ   eavx.AttributeType
		value any
	}{
		{"string", eavx.AttributeTypeString, "a"},
		{"text", eavx.AttributeTypeText, "long body"},
		{"integer", eavx.AttributeTypeInteger, int64(-5)},
		{"decimal", eavx.AttributeTypeDecimal, 2.5},
		{"boolean", eavx.AttributeTypeBoolean, false},
		{"date", eavx.AttributeTypeDate, ts.Truncate(24 * time.Hour)},
		{"datetime", eavx.AttributeTypeDateTime, ts},
		{"uuid", eavx.AttributeTypeUUID, id},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			row := &ValueRow{}
			require.NoError(t, row.SetSlot(tt.typ, tt.value))
			assert.Equal(t, tt.value, row.Slot(tt.typ))
		})
	}
}
