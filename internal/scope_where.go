package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/lychee-technology/eavx"
)

// WhereScope rewrites filter leaves referencing virtual columns into
// membership tests against the value store. Raw leaves are left untouched,
// so applying the scope twice is a no-op.
type WhereScope struct {
	toolbox     *Toolbox
	valuesTable string
}

func NewWhereScope(toolbox *Toolbox, valuesTable string) *WhereScope {
	return &WhereScope{toolbox: toolbox, valuesTable: valuesTable}
}

func (s *WhereScope) Name() string { return eavx.ScopeWhere }

func (s *WhereScope) Scope(ctx context.Context, q *eavx.Query, sc *eavx.ScopeContext) error {
	if q.Where == nil {
		return nil
	}
	defs, err := s.toolbox.Attributes(ctx, sc.Bundle)
	if err != nil {
		return err
	}
	rewritten, err := s.rewrite(q.Where, defs)
	if err != nil {
		return err
	}
	q.Where = rewritten
	return nil
}

func (s *WhereScope) rewrite(cond eavx.Condition, defs map[string]eavx.AttributeDefinition) (eavx.Condition, error) {
	switch c := cond.(type) {
	case *eavx.CompositeCondition:
		children := make([]eavx.Condition, 0, len(c.Conditions))
		for _, child := range c.Conditions {
			next, err := s.rewrite(child, defs)
			if err != nil {
				return nil, err
			}
			children = append(children, next)
		}
		return &eavx.CompositeCondition{Logic: c.Logic, Conditions: children}, nil
	case *eavx.FieldCondition:
		name := c.Field
		if prefix := s.toolbox.TableAlias() + "."; strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
		}
		def, ok := defs[name]
		if !ok {
			return c, nil
		}
		return s.rewriteField(name, c, def)
	default:
		// RawCondition and anything unknown pass through unchanged.
		return cond, nil
	}
}

func (s *WhereScope) rewriteField(name string, c *eavx.FieldCondition, def eavx.AttributeDefinition) (eavx.Condition, error) {
	if !def.Searchable {
		return nil, eavx.NewNotSearchableError(s.toolbox.TableAlias(), name)
	}

	frag, args, err := s.slotPredicate(c.Op, c.Value, def)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf("%s IN (SELECT entity_id FROM %s WHERE eav_attribute_id = ? AND %s)",
		entityIDExpr(s.toolbox.TableAlias(), s.toolbox.PrimaryKey()),
		sanitizeIdentifier(s.valuesTable),
		frag,
	)
	return &eavx.RawCondition{SQL: sql, Args: append([]any{def.ID}, args...)}, nil
}

// slotPredicate renders the typed-slot comparison of a rewritten filter
// leaf, marshalling the operand into the column's canonical form.
func (s *WhereScope) slotPredicate(op eavx.FilterOp, value any, def eavx.AttributeDefinition) (string, []any, error) {
	slot := SlotColumn(def.Type)

	badOp := func() error {
		return eavx.NewError(eavx.ErrorTypeValidation, eavx.ErrCodeBadOperator,
			fmt.Sprintf("operator %q is not supported for %s column %q", op, def.Type, def.Name)).
			WithTable(s.toolbox.TableAlias()).WithColumn(def.Name)
	}
	marshal := func(raw any) (any, error) {
		v, err := MarshalValue(raw, def.Type)
		if err != nil {
			return nil, eavx.NewError(eavx.ErrorTypeValidation, eavx.ErrCodeMarshalFailed,
				fmt.Sprintf("cannot compare column %q: %v", def.Name, err)).
				WithTable(s.toolbox.TableAlias()).WithColumn(def.Name).WithCause(err)
		}
		return v, nil
	}

	switch op {
	case eavx.OpEquals, eavx.OpNotEquals, eavx.OpGreaterThan, eavx.OpGreaterEq, eavx.OpLessThan, eavx.OpLessEq:
		v, err := marshal(value)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("%s %s ?", slot, comparisonSQL[op]), []any{v}, nil

	case eavx.OpIn, eavx.OpNotIn:
		items, ok := value.([]any)
		if !ok || len(items) == 0 {
			return "", nil, badOp()
		}
		typed := make([]any, 0, len(items))
		for _, item := range items {
			v, err := marshal(item)
			if err != nil {
				return "", nil, err
			}
			typed = append(typed, v)
		}
		if op == eavx.OpIn {
			return fmt.Sprintf("%s = ANY(?)", slot), []any{typed}, nil
		}
		return fmt.Sprintf("%s <> ALL(?)", slot), []any{typed}, nil

	case eavx.OpStartsWith, eavx.OpContains:
		if def.Type != eavx.AttributeTypeString && def.Type != eavx.AttributeTypeText {
			return "", nil, badOp()
		}
		v, err := marshal(value)
		if err != nil {
			return "", nil, err
		}
		pattern := escapeLike(fmt.Sprintf("%v", v)) + "%"
		if op == eavx.OpContains {
			pattern = "%" + pattern
		}
		return fmt.Sprintf("%s LIKE ?", slot), []any{pattern}, nil
	}
	return "", nil, badOp()
}

var comparisonSQL = map[eavx.FilterOp]string{
	eavx.OpEquals:      "=",
	eavx.OpNotEquals:   "<>",
	eavx.OpGreaterThan: ">",
	eavx.OpGreaterEq:   ">=",
	eavx.OpLessThan:    "<",
	eavx.OpLessEq:      "<=",
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
