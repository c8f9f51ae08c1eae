package internal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/eavx"
)

// ValueRow is one row of the value store: a single stored value for one
// (attribute, entity) pair. Exactly one typed slot is populated, matching
// the attribute's canonical type; the other slots stay nil.
type ValueRow struct {
	ID            int64
	AttributeID   int64
	EntityID      string
	ValueString   *string
	ValueText     *string
	ValueInteger  *int64
	ValueDecimal  *float64
	ValueBoolean  *bool
	ValueDate     *time.Time
	ValueDatetime *time.Time
	ValueUUID     *uuid.UUID
}

// SlotColumn returns the value-table column backing an attribute type.
func SlotColumn(t eavx.AttributeType) string {
	switch t {
	case eavx.AttributeTypeString:
		return "value_string"
	case eavx.AttributeTypeText:
		return "value_text"
	case eavx.AttributeTypeInteger:
		return "value_integer"
	case eavx.AttributeTypeDecimal:
		return "value_decimal"
	case eavx.AttributeTypeBoolean:
		return "value_boolean"
	case eavx.AttributeTypeDate:
		return "value_date"
	case eavx.AttributeTypeDateTime:
		return "value_datetime"
	case eavx.AttributeTypeUUID:
		return "value_uuid"
	default:
		return ""
	}
}

func (r *ValueRow) clearSlots() {
	r.ValueString = nil
	r.ValueText = nil
	r.ValueInteger = nil
	r.ValueDecimal = nil
	r.ValueBoolean = nil
	r.ValueDate = nil
	r.ValueDatetime = nil
	r.ValueUUID = nil
}

// SetSlot writes a canonical typed value into the slot matching the
// attribute type, clearing every other slot. A nil value clears all slots.
func (r *ValueRow) SetSlot(t eavx.AttributeType, typed any) error {
	r.clearSlots()
	if typed == nil {
		return nil
	}

	switch t {
	case eavx.AttributeTypeString:
		v, ok := typed.(string)
		if !ok {
			return fmt.Errorf("value type mismatch: expected string for %s slot", t)
		}
		r.ValueString = &v
	case eavx.AttributeTypeText:
		v, ok := typed.(string)
		if !ok {
			return fmt.Errorf("value type mismatch: expected string for %s slot", t)
		}
		r.ValueText = &v
	case eavx.AttributeTypeInteger:
		v, ok := typed.(int64)
		if !ok {
			return fmt.Errorf("value type mismatch: expected int64 for %s slot", t)
		}
		r.ValueInteger = &v
	case eavx.AttributeTypeDecimal:
		v, ok := typed.(float64)
		if !ok {
			return fmt.Errorf("value type mismatch: expected float64 for %s slot", t)
		}
		r.ValueDecimal = &v
	case eavx.AttributeTypeBoolean:
		v, ok := typed.(bool)
		if !ok {
			return fmt.Errorf("value type mismatch: expected bool for %s slot", t)
		}
		r.ValueBoolean = &v
	case eavx.AttributeTypeDate:
		v, ok := typed.(time.Time)
		if !ok {
			return fmt.Errorf("value type mismatch: expected time.Time for %s slot", t)
		}
		r.ValueDate = &v
	case eavx.AttributeTypeDateTime:
		v, ok := typed.(time.Time)
		if !ok {
			return fmt.Errorf("value type mismatch: expected time.Time for %s slot", t)
		}
		r.ValueDatetime = &v
	case eavx.AttributeTypeUUID:
		v, ok := typed.(uuid.UUID)
		if !ok {
			return fmt.Errorf("value type mismatch: expected uuid.UUID for %s slot", t)
		}
		r.ValueUUID = &v
	default:
		return fmt.Errorf("unsupported attribute type %q", t)
	}
	return nil
}

// Slot reads the canonical typed value out of the slot matching the
// attribute type, or nil when the slot is empty.
func (r *ValueRow) Slot(t eavx.AttributeType) any {
	switch t {
	case eavx.AttributeTypeString:
		if r.ValueString != nil {
			return *r.ValueString
		}
	case eavx.AttributeTypeText:
		if r.ValueText != nil {
			return *r.ValueText
		}
	case eavx.AttributeTypeInteger:
		if r.ValueInteger != nil {
			return *r.ValueInteger
		}
	case eavx.AttributeTypeDecimal:
		if r.ValueDecimal != nil {
			return *r.ValueDecimal
		}
	case eavx.AttributeTypeBoolean:
		if r.ValueBoolean != nil {
			return *r.ValueBoolean
		}
	case eavx.AttributeTypeDate:
		if r.ValueDate != nil {
			return *r.ValueDate
		}
	case eavx.AttributeTypeDateTime:
		if r.ValueDatetime != nil {
			return *r.ValueDatetime
		}
	case eavx.AttributeTypeUUID:
		if r.ValueUUID != nil {
			return *r.ValueUUID
		}
	}
	return nil
}
