package mapping

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bft-labs/topicmap/internal/domain"
	"github.com/bft-labs/topicmap/internal/jsoncodec"
	"github.com/bft-labs/topicmap/internal/ports"
)

// truthy holds the lower-cased tokens that coerce to boolean true.
var truthy = map[string]struct{}{
	"true": {},
	"ok":   {},
	"yes":  {},
	"on":   {},
	"1":    {},
}

var (
	errNotNumeric = errors.New("not a number")
	errOutOfRange = errors.New("out of int64 range")
)

// int64Bound is 2^63. Rounded values must lie strictly within
// (-int64Bound, int64Bound) so that their magnitude is also an int64.
const int64Bound = 1 << 63

// coerce converts raw to the declared type. Numeric failures are logged and
// reported as absent. Integers round half away from zero and must fit in
// int64 together with their negation.
func coerce(raw any, typ domain.ValueType, logger ports.Logger, fields ...ports.Field) (any, bool) {
	if raw == nil {
		return nil, false
	}

	switch typ {
	case domain.TypeFloat:
		f, err := toFloat(raw)
		if err != nil {
			logger.Warn("cannot convert value to float", append(fields, ports.Any("value", raw), ports.Err(err))...)
			return nil, false
		}
		return f, true

	case domain.TypeInteger:
		f, err := toFloat(raw)
		if err != nil {
			logger.Warn("cannot convert value to integer", append(fields, ports.Any("value", raw), ports.Err(err))...)
			return nil, false
		}
		r := math.Round(f)
		if r <= -int64Bound || r >= int64Bound {
			logger.Warn("cannot convert value to integer", append(fields, ports.Any("value", raw), ports.Err(errOutOfRange))...)
			return nil, false
		}
		return int64(r), true

	case domain.TypeBoolean:
		_, ok := truthy[strings.ToLower(stringify(raw))]
		return ok, true

	case domain.TypeString:
		return stringify(raw), true

	default:
		return nil, false
	}
}

func toFloat(raw any) (float64, error) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case int32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case uint32:
		f = float64(v)
	case string:
		return parseFloat(v)
	case []byte:
		return parseFloat(string(v))
	default:
		return 0, fmt.Errorf("%w: %T", errNotNumeric, raw)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", errNotNumeric, f)
	}
	return f, nil
}

func parseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", errNotNumeric, s)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %q", errNotNumeric, s)
	}
	return f, nil
}

// stringify renders raw the way it appeared in the message: numbers without
// a trailing ".0", objects and arrays as compact JSON.
func stringify(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case map[string]any, []any:
		b, err := jsoncodec.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	default:
		return fmt.Sprint(v)
	}
}
