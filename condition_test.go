package eavx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalConditionField(t *testing.T) {
	cond, err := UnmarshalCondition([]byte(`{"f": "rating", "o": "gte", "v": 3}`))
	require.NoError(t, err)

	field, ok := cond.(*FieldCondition)
	require.True(t, ok)
	assert.True(t, field.IsLeaf())
	assert.Equal(t, "rating", field.Field)
	assert.Equal(t, OpGreaterEq, field.Op)
	assert.Equal(t, float64(3), field.Value)
}

func TestUnmarshalConditionDefaultsOperatorToEquals(t *testing.T) {
	cond, err := UnmarshalCondition([]byte(`{"f": "status", "v": "published"}`))
	require.NoError(t, err)

	field := cond.(*FieldCondition)
	assert.Equal(t, OpEquals, field.Op)
}

func TestUnmarshalConditionFieldMissingName(t *testing.T) {
	_, err := UnmarshalCondition([]byte(`{"f": "", "v": 1}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing field")
}

func TestUnmarshalConditionComposite(t *testing.T) {
	payload := []byte(`{
		"l": "and",
		"c": [
			{"f": "rating", "o": "gte", "v": 3},
			{"l": "or", "c": [
				{"f": "status", "v": "published"},
				{"sql": "created_at > now() - interval '1 day'"}
			]}
		]
	}`)

	cond, err := UnmarshalCondition(payload)
	require.NoError(t, err)

	root, ok := cond.(*CompositeCondition)
	require.True(t, ok)
	assert.False(t, root.IsLeaf())
	assert.Equal(t, LogicAnd, root.Logic)
	require.Len(t, root.Conditions, 2)

	nested, ok := root.Conditions[1].(*CompositeCondition)
	require.True(t, ok)
	assert.Equal(t, LogicOr, nested.Logic)
	require.Len(t, nested.Conditions, 2)

	raw, ok := nested.Conditions[1].(*RawCondition)
	require.True(t, ok)
	assert.Contains(t, raw.SQL, "created_at")
}

func TestUnmarshalConditionCompositeUnknownLogic(t *testing.T) {
	_, err := UnmarshalCondition([]byte(`{"l": "xor", "c": []}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown logic")
}

func TestUnmarshalConditionCompositeEmptyChildren(t *testing.T) {
	cond, err := UnmarshalCondition([]byte(`{"l": "and", "c": []}`))
	require.NoError(t, err)

	root := cond.(*CompositeCondition)
	assert.Empty(t, root.Conditions)
}

func TestUnmarshalConditionRaw(t *testing.T) {
	cond, err := UnmarshalCondition([]byte(`{"sql": "id = ANY(?)", "args": [[1, 2]]}`))
	require.NoError(t, err)

	raw, ok := cond.(*RawCondition)
	require.True(t, ok)
	assert.True(t, raw.IsLeaf())
	assert.Equal(t, "id = ANY(?)", raw.SQL)
	require.Len(t, raw.Args, 1)
}

func TestUnmarshalConditionRejectsUnknownShape(t *testing.T) {
	_, err := UnmarshalCondition([]byte(`{"what": "ever"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid condition payload")
}
