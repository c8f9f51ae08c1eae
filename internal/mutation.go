package internal

import (
	"context"
	"fmt"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

var columnNameRe = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// columnMutator applies virtual column definition changes for one table.
type columnMutator struct {
	toolbox  *Toolbox
	attrs    *AttributeRepository
	values   *ValueRepository
	tableCfg eavx.TableConfig
}

func newColumnMutator(toolbox *Toolbox, attrs *AttributeRepository, values *ValueRepository, cfg eavx.TableConfig) *columnMutator {
	return &columnMutator{toolbox: toolbox, attrs: attrs, values: values, tableCfg: cfg}
}

// validateSpec checks the caller-facing shape of a column spec. Violations
// are data, not failures: they come back as field errors.
func (m *columnMutator) validateSpec(spec eavx.ColumnSpec) *eavx.ValidationErrors {
	err := validation.ValidateStruct(&spec,
		validation.Field(&spec.Name,
			validation.Required,
			validation.Length(1, 63),
			validation.Match(columnNameRe).Error("must start with a letter and contain only lowercase letters, digits, '_' or '-'"),
		),
		validation.Field(&spec.Type, validation.Required),
	)
	if err == nil {
		return nil
	}

	var ve eavx.ValidationErrors
	if fields, ok := err.(validation.Errors); ok {
		for field, ferr := range fields {
			ve.Add(field, eavx.ErrCodeValidationFailed, ferr.Error())
		}
	} else {
		ve.Add("spec", eavx.ErrCodeValidationFailed, err.Error())
	}
	return &ve
}

// AddColumn defines a new virtual column or, with Overwrite set, replaces
// the type and flags of an existing one. Shape violations come back as
// validation errors; collisions with native columns, unknown types and
// un-overwritable duplicates are hard errors.
func (m *columnMutator) AddColumn(ctx context.Context, spec eavx.ColumnSpec) (*eavx.ValidationErrors, error) {
	if ve := m.validateSpec(spec); ve != nil && ve.HasErrors() {
		return ve, nil
	}

	table := m.toolbox.TableAlias()
	if m.tableCfg.IsNativeColumn(spec.Name) {
		return nil, eavx.NewColumnCollisionError(table, spec.Name)
	}
	typ, ok := eavx.ParseAttributeType(spec.Type)
	if !ok {
		return nil, eavx.NewUnknownTypeError(spec.Type).WithTable(table).WithColumn(spec.Name)
	}

	existing, err := m.attrs.FindDefinition(ctx, table, spec.Name, spec.Bundle)
	if err != nil {
		return nil, eavx.NewStorageError(
			fmt.Sprintf("looking up column %q", spec.Name), err).WithTable(table).WithColumn(spec.Name)
	}

	if existing != nil {
		if !spec.Overwrite {
			return nil, eavx.NewDuplicateColumnError(table, spec.Name)
		}
		existing.Type = typ
		existing.Searchable = spec.IsSearchable()
		existing.Extra = spec.Extra
		if err := m.attrs.UpdateDefinition(ctx, existing); err != nil {
			return nil, eavx.NewStorageError(
				fmt.Sprintf("updating column %q", spec.Name), err).WithTable(table).WithColumn(spec.Name)
		}
		m.toolbox.Invalidate()
		zap.S().Infow("virtual column updated", "table", table, "column", spec.Name, "type", typ)
		return nil, nil
	}

	def := &eavx.AttributeDefinition{
		TableAlias: table,
		Bundle:     spec.Bundle,
		Name:       spec.Name,
		Type:       typ,
		Searchable: spec.IsSearchable(),
		Extra:      spec.Extra,
	}
	if err := m.attrs.InsertDefinition(ctx, def); err != nil {
		return nil, eavx.NewStorageError(
			fmt.Sprintf("creating column %q", spec.Name), err).WithTable(table).WithColumn(spec.Name)
	}
	m.toolbox.Invalidate()
	zap.S().Infow("virtual column created", "table", table, "column", spec.Name, "type", typ)
	return nil, nil
}

// DropColumn removes a virtual column definition along with every value
// stored under it. The bool reports whether the column existed.
func (m *columnMutator) DropColumn(ctx context.Context, db Querier, name string, bundle *string) (bool, error) {
	table := m.toolbox.TableAlias()
	def, err := m.attrs.FindDefinition(ctx, table, name, bundle)
	if err != nil {
		return false, eavx.NewStorageError(
			fmt.Sprintf("looking up column %q", name), err).WithTable(table).WithColumn(name)
	}
	if def == nil {
		return false, nil
	}

	removed, err := m.values.DeleteForAttribute(ctx, db, def.ID)
	if err != nil {
		return false, eavx.NewStorageError(
			fmt.Sprintf("dropping values of column %q", name), err).WithTable(table).WithColumn(name)
	}
	if _, err := m.attrs.DeleteDefinition(ctx, def.ID); err != nil {
		return false, eavx.NewStorageError(
			fmt.Sprintf("dropping column %q", name), err).WithTable(table).WithColumn(name)
	}
	m.toolbox.Invalidate()
	zap.S().Infow("virtual column dropped",
		"table", table, "column", name, "values_removed", removed)
	return true, nil
}
