package eavx

import (
	"encoding/json"
	"fmt"
)

// FilterOp defines supported filter operations.
type FilterOp string

const (
	OpEquals      FilterOp = "equals"
	OpNotEquals   FilterOp = "not_equals"
	OpGreaterThan FilterOp = "gt"
	OpGreaterEq   FilterOp = "gte"
	OpLessThan    FilterOp = "lt"
	OpLessEq      FilterOp = "lte"
	OpIn          FilterOp = "in"
	OpNotIn       FilterOp = "not_in"
	OpStartsWith  FilterOp = "starts_with"
	OpContains    FilterOp = "contains"
)

// Logic is the boolean combinator of a composite condition.
type Logic string

const (
	LogicAnd Logic = "and"
	LogicOr  Logic = "or"
)

// Condition is a node of a query filter tree. Scopes walk the tree and
// rewrite leaves referencing virtual columns into value-store lookups.
type Condition interface {
	IsLeaf() bool
}

// CompositeCondition combines child conditions with AND/OR semantics.
type CompositeCondition struct {
	Logic      Logic       `json:"l"`
	Conditions []Condition `json:"c"`
}

func (c *CompositeCondition) IsLeaf() bool { return false }

// UnmarshalJSON customizes decoding so that nested conditions are turned into
// the appropriate concrete condition implementations.
func (c *CompositeCondition) UnmarshalJSON(data []byte) error {
	type compositeAlias struct {
		Logic      *Logic            `json:"l"`
		Conditions []json.RawMessage `json:"c"`
	}

	var alias compositeAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	if alias.Logic == nil {
		return fmt.Errorf("composite condition missing logic")
	}

	switch *alias.Logic {
	case LogicAnd, LogicOr:
		c.Logic = *alias.Logic
	default:
		return fmt.Errorf("unknown logic: %s", *alias.Logic)
	}

	if len(alias.Conditions) == 0 {
		c.Conditions = nil
		return nil
	}

	conditions := make([]Condition, 0, len(alias.Conditions))
	for _, raw := range alias.Conditions {
		child, err := UnmarshalCondition(raw)
		if err != nil {
			return err
		}
		conditions = append(conditions, child)
	}

	c.Conditions = conditions
	return nil
}

// FieldCondition filters on a single column, native or virtual.
type FieldCondition struct {
	Field string   `json:"f"`
	Op    FilterOp `json:"o"`
	Value any      `json:"v"`
}

func (f *FieldCondition) IsLeaf() bool { return true }

// UnmarshalJSON ensures the short-hand keys are present and defaults the
// operator to equality.
func (f *FieldCondition) UnmarshalJSON(data []byte) error {
	type fieldAlias struct {
		Field string   `json:"f"`
		Op    FilterOp `json:"o"`
		Value any      `json:"v"`
	}

	var alias fieldAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	if alias.Field == "" {
		return fmt.Errorf("field condition missing field 'f'")
	}
	if alias.Op == "" {
		alias.Op = OpEquals
	}

	f.Field = alias.Field
	f.Op = alias.Op
	f.Value = alias.Value
	return nil
}

// RawCondition carries an already-rewritten SQL fragment with positional
// placeholders. Scopes never rewrite raw nodes, which makes scope
// application idempotent.
type RawCondition struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args,omitempty"`
}

func (r *RawCondition) IsLeaf() bool { return true }

// UnmarshalCondition inspects the incoming JSON payload and instantiates the
// correct Condition implementation (composite, field or raw). This allows
// nested condition trees to be decoded directly from JSON inputs.
func UnmarshalCondition(data []byte) (Condition, error) {
	var discriminator struct {
		Logic *Logic  `json:"l"`
		Field *string `json:"f"`
		SQL   *string `json:"sql"`
	}

	if err := json.Unmarshal(data, &discriminator); err != nil {
		return nil, err
	}

	if discriminator.Logic != nil {
		var composite CompositeCondition
		if err := json.Unmarshal(data, &composite); err != nil {
			return nil, err
		}
		return &composite, nil
	}

	if discriminator.Field != nil {
		var field FieldCondition
		if err := json.Unmarshal(data, &field); err != nil {
			return nil, err
		}
		return &field, nil
	}

	if discriminator.SQL != nil {
		var raw RawCondition
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		return &raw, nil
	}

	return nil, fmt.Errorf("invalid condition payload: expected 'l', 'f' or 'sql'")
}
