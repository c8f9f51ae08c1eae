package internal

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

// persistencePipeline routes a record's virtual fields into the value store
// after the relational layer saved or deleted the base row. Every write
// runs inside the caller's transaction so base row and values commit or
// roll back together.
type persistencePipeline struct {
	toolbox  *Toolbox
	values   *ValueRepository
	rebuild  *cacheRebuilder
	enabled  bool
	lockRows bool
}

func newPersistencePipeline(toolbox *Toolbox, values *ValueRepository, rebuild *cacheRebuilder, cfg eavx.TableConfig, lockRows bool) *persistencePipeline {
	return &persistencePipeline{
		toolbox:  toolbox,
		values:   values,
		rebuild:  rebuild,
		enabled:  cfg.Enabled,
		lockRows: lockRows,
	}
}

// AfterSave persists the record's virtual fields and refreshes its cache
// columns. The record's fields are overwritten with the canonical marshalled
// values so the caller observes what was stored.
func (p *persistencePipeline) AfterSave(ctx context.Context, tx pgx.Tx, record eavx.Record) error {
	if tx == nil {
		return eavx.NewNonAtomicSaveError(p.toolbox.TableAlias())
	}
	if !p.enabled {
		return nil
	}

	entityID, err := p.toolbox.EntityID(record)
	if err != nil {
		return err
	}
	bundle := recordBundle(record)
	defs, err := p.toolbox.Attributes(ctx, bundle)
	if err != nil {
		return err
	}

	// Only fields the record actually carries are touched; absent virtual
	// columns keep their stored values.
	touched := make(map[int64]eavx.AttributeDefinition)
	canonical := make(map[int64]any)
	for name, def := range defs {
		raw, ok := record.Get(name)
		if !ok {
			continue
		}
		var value any
		if raw != nil {
			value, err = MarshalValue(raw, def.Type)
			if err != nil {
				return eavx.NewError(eavx.ErrorTypeValidation, eavx.ErrCodeMarshalFailed,
					err.Error()).WithTable(p.toolbox.TableAlias()).WithColumn(name).WithCause(err)
			}
		}
		touched[def.ID] = def
		canonical[def.ID] = value
	}

	if len(touched) > 0 {
		existing, err := p.values.FetchForEntityLocked(ctx, tx, MapKeys(touched), entityID, p.lockRows)
		if err != nil {
			return err
		}
		byAttr := make(map[int64]*ValueRow, len(existing))
		for i := range existing {
			byAttr[existing[i].AttributeID] = &existing[i]
		}

		for attrID, def := range touched {
			value := canonical[attrID]
			row, exists := byAttr[attrID]

			if value == nil {
				if exists {
					if _, err := p.values.DeleteForEntity(ctx, tx, []int64{attrID}, entityID); err != nil {
						return err
					}
				}
				record.Set(def.Name, nil)
				continue
			}

			if !exists {
				row = &ValueRow{AttributeID: attrID, EntityID: entityID}
			}
			if err := row.SetSlot(def.Type, value); err != nil {
				return err
			}
			if err := p.values.Persist(ctx, tx, row); err != nil {
				return err
			}
			record.Set(def.Name, value)
		}

		zap.S().Debugw("persisted virtual values",
			"table", p.toolbox.TableAlias(), "entity", entityID, "fields", len(touched))
	}

	return p.rebuild.Rebuild(ctx, tx, record)
}

// AfterDelete removes every stored value of the record's entity, across all
// bundles, inside the caller's transaction.
func (p *persistencePipeline) AfterDelete(ctx context.Context, tx pgx.Tx, record eavx.Record) error {
	if tx == nil {
		return eavx.NewNonAtomicDeleteError(p.toolbox.TableAlias())
	}
	if !p.enabled {
		return nil
	}

	entityID, err := p.toolbox.EntityID(record)
	if err != nil {
		return err
	}
	defs, err := p.toolbox.Attributes(ctx, nil)
	if err != nil {
		return err
	}
	attrIDs := make([]int64, 0, len(defs))
	for _, def := range defs {
		attrIDs = append(attrIDs, def.ID)
	}

	removed, err := p.values.DeleteForEntity(ctx, tx, attrIDs, entityID)
	if err != nil {
		return err
	}
	zap.S().Debugw("deleted virtual values",
		"table", p.toolbox.TableAlias(), "entity", entityID, "rows", removed)
	return nil
}
