package internal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lychee-technology/eavx"
)

const dateLayout = "2006-01-02"

// MarshalValue converts a raw value into the canonical Go representation of
// the given attribute type: string, string, int64, float64, bool, time.Time
// (midnight UTC), time.Time (UTC), uuid.UUID. A nil raw value stays nil.
func MarshalValue(raw any, t eavx.AttributeType) (any, error) {
	if raw == nil {
		return nil, nil
	}

	switch t {
	case eavx.AttributeTypeString, eavx.AttributeTypeText:
		return toStringValue(raw)
	case eavx.AttributeTypeInteger:
		return toInt64Value(raw)
	case eavx.AttributeTypeDecimal:
		return toFloat64Value(raw)
	case eavx.AttributeTypeBoolean:
		return toBoolValue(raw)
	case eavx.AttributeTypeDate:
		ts, err := toTimeValue(raw)
		if err != nil {
			return nil, err
		}
		return truncateToDate(ts), nil
	case eavx.AttributeTypeDateTime:
		ts, err := toTimeValue(raw)
		if err != nil {
			return nil, err
		}
		return ts.UTC(), nil
	case eavx.AttributeTypeUUID:
		return toUUIDValue(raw)
	default:
		return nil, fmt.Errorf("unsupported attribute type %q", t)
	}
}

func toStringValue(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case *string:
		if v == nil {
			return "", fmt.Errorf("nil string pointer")
		}
		return *v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", raw)
	}
}

func toInt64Value(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("integer value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return float64ToInt64(float64(v))
	case float64:
		return float64ToInt64(v)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value %q", v)
		}
		return i, nil
	case []byte:
		return toInt64Value(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", raw)
	}
}

func float64ToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("numeric value %v is not an integer", f)
	}
	return int64(f), nil
}

func toFloat64Value(raw any) (float64, error) {
	switch v := raw.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid decimal value %q", v)
		}
		return f, nil
	case []byte:
		return toFloat64Value(string(v))
	default:
		return 0, fmt.Errorf("cannot convert %T to decimal", raw)
	}
}

func toBoolValue(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("invalid boolean value %q", v)
		}
		return b, nil
	case int:
		return v != 0, nil
	case int16:
		return v != 0, nil
	case int32:
		return v != 0, nil
	case int64:
		return v != 0, nil
	case float64:
		return v != 0, nil
	default:
		return false, fmt.Errorf("cannot convert %T to boolean", raw)
	}
}

func toTimeValue(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time pointer")
		}
		return *v, nil
	case string:
		s := strings.TrimSpace(v)
		if ts, err := time.Parse(time.RFC3339, s); err == nil {
			return ts, nil
		}
		if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return ts.UTC(), nil
		}
		if ts, err := time.Parse(dateLayout, s); err == nil {
			return ts.UTC(), nil
		}
		return time.Time{}, fmt.Errorf("invalid date/datetime value %q", v)
	case int64:
		return time.UnixMilli(v).UTC(), nil
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to date/datetime", raw)
	}
}

func truncateToDate(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func toUUIDValue(raw any) (uuid.UUID, error) {
	switch v := raw.(type) {
	case uuid.UUID:
		return v, nil
	case *uuid.UUID:
		if v == nil {
			return uuid.Nil, fmt.Errorf("nil uuid pointer")
		}
		return *v, nil
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid uuid value %q", v)
		}
		return id, nil
	case []byte:
		if len(v) == 16 {
			id, err := uuid.FromBytes(v)
			if err != nil {
				return uuid.Nil, err
			}
			return id, nil
		}
		return toUUIDValue(string(v))
	default:
		return uuid.Nil, fmt.Errorf("cannot convert %T to uuid", raw)
	}
}
