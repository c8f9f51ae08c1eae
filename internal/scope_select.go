package internal

import (
	"context"
	"strings"

	"github.com/lychee-technology/eavx"
)

// SelectScope resolves which virtual columns a query requests. Virtual
// selections are removed from the clause (the relational builder cannot
// render them) and recorded in the scope context for hydration; the
// table's primary key is forced into the select so entity ids can be
// derived from the result rows.
type SelectScope struct {
	toolbox *Toolbox
}

func NewSelectScope(toolbox *Toolbox) *SelectScope {
	return &SelectScope{toolbox: toolbox}
}

func (s *SelectScope) Name() string { return eavx.ScopeSelect }

// unqualify strips a "table." prefix when it names the scoped table.
func (s *SelectScope) unqualify(field string) string {
	if prefix := s.toolbox.TableAlias() + "."; strings.HasPrefix(field, prefix) {
		return field[len(prefix):]
	}
	return field
}

func (s *SelectScope) Scope(ctx context.Context, q *eavx.Query, sc *eavx.ScopeContext) error {
	defs, err := s.toolbox.Attributes(ctx, sc.Bundle)
	if err != nil {
		return err
	}
	if sc.Selected == nil {
		sc.Selected = make(map[string]string)
	}

	if len(q.Select) == 0 {
		// No explicit projection: every virtual column of the bundle is
		// attached under its own name.
		sc.SelectAll = true
		for name := range defs {
			sc.Selected[name] = name
		}
		return nil
	}

	kept := q.Select[:0]
	for _, sel := range q.Select {
		name := s.unqualify(sel.Field)
		if _, ok := defs[name]; !ok {
			kept = append(kept, sel)
			continue
		}
		alias := sel.Alias
		if alias == "" {
			alias = name
		}
		sc.Selected[alias] = name
	}
	q.Select = kept

	if len(sc.Selected) == 0 {
		return nil
	}

	// Hydration needs the primary key on every row to derive entity ids.
	present := make(map[string]bool, len(q.Select))
	for _, sel := range q.Select {
		present[s.unqualify(sel.Field)] = true
	}
	for _, pk := range s.toolbox.PrimaryKey() {
		if !present[pk] {
			q.Select = append(q.Select, eavx.Selection{Field: pk})
		}
	}
	return nil
}
