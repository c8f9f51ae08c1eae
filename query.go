package eavx

// SortOrder defines sort direction.
type SortOrder string

const (
	SortOrderAsc  SortOrder = "asc"
	SortOrderDesc SortOrder = "desc"
)

// Selection names one column requested by a query's select clause.
// Alias defaults to the field name when empty. Qualified references
// ("users.user-age") are accepted and resolved against the query's table.
type Selection struct {
	Field string `json:"field"`
	Alias string `json:"alias,omitempty"`
}

// OrderBy is one ordering clause. When a scope rewrites a virtual-column
// sort, it clears Field and fills Raw/RawArgs with a value-store projection.
type OrderBy struct {
	Field   string    `json:"field,omitempty"`
	Order   SortOrder `json:"order,omitempty"`
	Raw     string    `json:"raw,omitempty"`
	RawArgs []any     `json:"raw_args,omitempty"`
}

// IsRaw reports whether the clause has already been rewritten.
func (o OrderBy) IsRaw() bool { return o.Raw != "" }

// Query is the minimal clause model exchanged with the relational layer.
// Scopes rewrite it in place; the underlying query builder renders it.
type Query struct {
	Table  string      `json:"table"`
	Bundle *string     `json:"bundle,omitempty"`
	Select []Selection `json:"select,omitempty"`
	Where  Condition   `json:"where,omitempty"`
	Order  []OrderBy   `json:"order,omitempty"`
	Limit  int         `json:"limit,omitempty"`
	Offset int         `json:"offset,omitempty"`

	// EAV is the per-call tri-state override: nil follows the table's
	// standing enabled flag, true/false force the behavior for this call.
	EAV *bool `json:"eav,omitempty"`
}

// ScopeContext is the ephemeral per-query state accumulated while scopes
// run: which virtual columns the select clause requested, under which
// aliases, and the bundle in effect. It lives for one query only.
type ScopeContext struct {
	Bundle *string
	// Selected maps requested alias -> virtual column name.
	Selected map[string]string
	// SelectAll is set when no explicit select clause was given, meaning
	// every virtual column of the bundle is attached.
	SelectAll bool
}

// ScopedQuery bundles a rewritten query with its scope context so the
// hydration pipeline can reuse the select resolution.
type ScopedQuery struct {
	*Query
	Context ScopeContext
}

// Scope names, in their fixed application order.
const (
	ScopeSelect = "select"
	ScopeWhere  = "where"
	ScopeOrder  = "order"
)

// DefaultScopeOrder is the registered scope order: Select runs first so its
// alias resolution is available to the later stages.
func DefaultScopeOrder() []string {
	return []string{ScopeSelect, ScopeWhere, ScopeOrder}
}
