package internal

import (
	"context"
	"fmt"
	"strings"

	"github.com/lychee-technology/eavx"
)

// OrderScope rewrites sort clauses on virtual columns into correlated
// subqueries against the value store. Clauses already carrying a raw
// fragment are skipped.
type OrderScope struct {
	toolbox     *Toolbox
	valuesTable string
}

func NewOrderScope(toolbox *Toolbox, valuesTable string) *OrderScope {
	return &OrderScope{toolbox: toolbox, valuesTable: valuesTable}
}

func (s *OrderScope) Name() string { return eavx.ScopeOrder }

func (s *OrderScope) Scope(ctx context.Context, q *eavx.Query, sc *eavx.ScopeContext) error {
	if len(q.Order) == 0 {
		return nil
	}
	defs, err := s.toolbox.Attributes(ctx, sc.Bundle)
	if err != nil {
		return err
	}

	for i, clause := range q.Order {
		if clause.IsRaw() {
			continue
		}
		name := clause.Field
		if prefix := s.toolbox.TableAlias() + "."; strings.HasPrefix(name, prefix) {
			name = name[len(prefix):]
		}
		def, ok := defs[name]
		if !ok {
			continue
		}
		if !def.Searchable {
			return eavx.NewNotSearchableError(s.toolbox.TableAlias(), name)
		}

		direction := "ASC"
		if clause.Order == eavx.SortOrderDesc {
			direction = "DESC"
		}
		raw := fmt.Sprintf(
			"(SELECT %s FROM %s WHERE eav_attribute_id = ? AND entity_id = %s LIMIT 1) %s",
			SlotColumn(def.Type),
			sanitizeIdentifier(s.valuesTable),
			entityIDExpr(s.toolbox.TableAlias(), s.toolbox.PrimaryKey()),
			direction,
		)
		q.Order[i] = eavx.OrderBy{Raw: raw, RawArgs: []any{def.ID}}
	}
	return nil
}
