package internal

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lychee-technology/eavx"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

// cacheEncodingVersion tags serialized cache payloads so the format can
// evolve without ambiguity against legacy rows.
const cacheEncodingVersion = 0x01

// EncodeCachedColumn serializes a cache map into its storage payload.
// Empty maps encode to nil so the holder column stays NULL.
func EncodeCachedColumn(values eavx.CachedColumn) ([]byte, error) {
	if values.IsEmpty() {
		return nil, nil
	}
	body, err := msgpack.Marshal(map[string]any(values))
	if err != nil {
		return nil, fmt.Errorf("encode cache column: %w", err)
	}
	payload := make([]byte, 0, len(body)+1)
	payload = append(payload, cacheEncodingVersion)
	return append(payload, body...), nil
}

// DecodeCachedColumn parses a stored cache payload. NULL, empty, and
// already-decoded values yield an empty or pass-through map; unknown
// versions and corrupt payloads return an error.
func DecodeCachedColumn(raw any) (eavx.CachedColumn, error) {
	switch v := raw.(type) {
	case nil:
		return eavx.CachedColumn{}, nil
	case eavx.CachedColumn:
		return v, nil
	case map[string]any:
		return eavx.CachedColumn(v), nil
	case []byte:
		if len(v) == 0 {
			return eavx.CachedColumn{}, nil
		}
		if v[0] != cacheEncodingVersion {
			return nil, fmt.Errorf("unknown cache encoding version 0x%02x", v[0])
		}
		// Loose decoding widens numbers to int64/float64, matching the
		// canonical value forms.
		dec := msgpack.NewDecoder(bytes.NewReader(v[1:]))
		dec.UseLooseInterfaceDecoding(true)
		var decoded map[string]any
		if err := dec.Decode(&decoded); err != nil {
			return nil, fmt.Errorf("decode cache column: %w", err)
		}
		return eavx.CachedColumn(decoded), nil
	default:
		return nil, fmt.Errorf("unsupported cache payload type %T", raw)
	}
}

// cacheValue maps a canonical slot value to its cache representation.
// UUIDs are cached as strings so the payload stays self-describing.
func cacheValue(v any) any {
	if id, ok := v.(uuid.UUID); ok {
		return id.String()
	}
	return v
}

// cacheRebuilder recomputes the denormalized cache-holder columns of a
// record from its stored virtual values.
type cacheRebuilder struct {
	toolbox *Toolbox
	values  *ValueRepository
	holders map[string][]string
}

func newCacheRebuilder(toolbox *Toolbox, values *ValueRepository, cfg eavx.TableConfig) *cacheRebuilder {
	return &cacheRebuilder{toolbox: toolbox, values: values, holders: cfg.CacheHolders()}
}

// recordBundle reads the record's bundle discriminator, if it carries one.
func recordBundle(record eavx.Record) *string {
	raw, ok := record.Get("bundle")
	if !ok || raw == nil {
		return nil
	}
	s := fmt.Sprintf("%v", raw)
	if s == "" {
		return nil
	}
	return &s
}

// Rebuild recomputes every configured holder column of the record inside
// the caller's transaction and reflects the encoded payloads back onto it.
func (c *cacheRebuilder) Rebuild(ctx context.Context, q Querier, record eavx.Record) error {
	if len(c.holders) == 0 {
		return nil
	}

	entityID, err := c.toolbox.EntityID(record)
	if err != nil {
		return err
	}
	bundle := recordBundle(record)
	defs, err := c.toolbox.Attributes(ctx, bundle)
	if err != nil {
		return err
	}

	attrIDs := make([]int64, 0, len(defs))
	byID := make(map[int64]eavx.AttributeDefinition, len(defs))
	for _, def := range defs {
		attrIDs = append(attrIDs, def.ID)
		byID[def.ID] = def
	}
	rows, err := c.values.FetchForEntityLocked(ctx, q, attrIDs, entityID, false)
	if err != nil {
		return err
	}

	stored := make(map[string]any, len(rows))
	for i := range rows {
		def, ok := byID[rows[i].AttributeID]
		if !ok {
			continue
		}
		stored[def.Name] = cacheValue(rows[i].Slot(def.Type))
	}

	for holder, names := range c.holders {
		cached := eavx.CachedColumn{}
		if len(names) == 1 && names[0] == eavx.CacheWildcard {
			for name, value := range stored {
				cached[name] = value
			}
		} else {
			for _, name := range names {
				if value, ok := stored[name]; ok {
					cached[name] = value
				}
			}
		}

		payload, err := EncodeCachedColumn(cached)
		if err != nil {
			return err
		}
		if err := c.writeHolder(ctx, q, record, holder, payload); err != nil {
			return err
		}
		record.Set(holder, cached)
	}

	zap.S().Debugw("rebuilt cache columns",
		"table", c.toolbox.TableAlias(), "entity", entityID, "holders", len(c.holders))
	return nil
}

// writeHolder updates one holder column of the record's base row, matching
// on the full primary key.
func (c *cacheRebuilder) writeHolder(ctx context.Context, q Querier, record eavx.Record, holder string, payload []byte) error {
	pk := c.toolbox.PrimaryKey()
	where := make([]string, 0, len(pk))
	args := []any{payload}
	for i, field := range pk {
		value, ok := record.Get(field)
		if !ok {
			return eavx.NewEntityKeyMissingError(c.toolbox.TableAlias(), field)
		}
		where = append(where, fmt.Sprintf("%s = $%d", sanitizeIdentifier(field), i+2))
		args = append(args, value)
	}
	query := fmt.Sprintf("UPDATE %s SET %s = $1 WHERE %s",
		sanitizeIdentifier(c.toolbox.TableAlias()),
		sanitizeIdentifier(holder),
		strings.Join(where, " AND "),
	)
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update cache column %s: %w", holder, err)
	}
	return nil
}
