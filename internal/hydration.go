package internal

import (
	"context"

	"github.com/lychee-technology/eavx"
	"go.uber.org/zap"
)

// hydrationPipeline attaches stored virtual values and decoded cache
// columns onto fetched records.
type hydrationPipeline struct {
	toolbox  *Toolbox
	values   *ValueRepository
	enabled  bool
	holders  map[string][]string
	hydrator eavx.Hydrator
}

func newHydrationPipeline(toolbox *Toolbox, values *ValueRepository, cfg eavx.TableConfig) *hydrationPipeline {
	hydrator := cfg.Hydrator
	if hydrator == nil {
		hydrator = eavx.DefaultHydrator()
	}
	return &hydrationPipeline{
		toolbox:  toolbox,
		values:   values,
		enabled:  cfg.Enabled,
		holders:  cfg.CacheHolders(),
		hydrator: hydrator,
	}
}

// active resolves the per-call tri-state override against the table's
// standing flag.
func (p *hydrationPipeline) active(override *bool) bool {
	if override != nil {
		return *override
	}
	return p.enabled
}

type valueKey struct {
	entityID    string
	attributeID int64
}

// Run hydrates a page of records for an already-scoped query. Records whose
// hydrator returns keep=false are dropped from the result.
func (p *hydrationPipeline) Run(ctx context.Context, sq *eavx.ScopedQuery, records []eavx.Record) ([]eavx.Record, error) {
	if !p.active(sq.EAV) || len(records) == 0 {
		return records, nil
	}

	defs, err := p.toolbox.Attributes(ctx, sq.Context.Bundle)
	if err != nil {
		return nil, err
	}

	// alias -> definition, following the select scope's resolution.
	selected := make(map[string]eavx.AttributeDefinition, len(sq.Context.Selected))
	attrIDs := make([]int64, 0, len(sq.Context.Selected))
	for alias, name := range sq.Context.Selected {
		def, ok := defs[name]
		if !ok {
			continue
		}
		selected[alias] = def
		attrIDs = append(attrIDs, def.ID)
	}

	byKey := make(map[valueKey]*ValueRow)
	if len(attrIDs) > 0 {
		entityIDs := p.toolbox.ExtractEntityIDs(records)
		rows, err := p.values.FetchValues(ctx, attrIDs, entityIDs)
		if err != nil {
			return nil, err
		}
		for i := range rows {
			row := &rows[i]
			byKey[valueKey{row.EntityID, row.AttributeID}] = row
		}
	}

	kept := make([]eavx.Record, 0, len(records))
	for _, record := range records {
		p.decodeCacheColumns(record)

		values := make(map[string]any, len(selected))
		if len(selected) > 0 {
			entityID, err := p.toolbox.EntityID(record)
			if err == nil {
				for alias, def := range selected {
					if row, ok := byKey[valueKey{entityID, def.ID}]; ok {
						values[alias] = row.Slot(def.Type)
					} else {
						// Missing storage rows surface as explicit nulls.
						values[alias] = nil
					}
				}
			}
		}

		record, keep := p.hydrator.Hydrate(record, values)
		if keep {
			kept = append(kept, record)
		}
	}
	return kept, nil
}

// decodeCacheColumns replaces raw cache-holder payloads with decoded maps.
// Corrupt payloads degrade to an empty map instead of failing the read.
func (p *hydrationPipeline) decodeCacheColumns(record eavx.Record) {
	for holder := range p.holders {
		raw, ok := record.Get(holder)
		if !ok {
			continue
		}
		decoded, err := DecodeCachedColumn(raw)
		if err != nil {
			zap.S().Warnw("cache column decode failed",
				"table", p.toolbox.TableAlias(), "column", holder, "error", err)
			decoded = eavx.CachedColumn{}
		}
		record.Set(holder, decoded)
	}
}
