package configuration

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/mitchellh/mapstructure"
)

// curvePointsHookFunc returns a mapstructure decode hook that converts the
// interface{}-keyed maps produced by the YAML decoder into the map[int]int
// point maps used by CurveConfig.
func curvePointsHookFunc() mapstructure.DecodeHookFuncType {
	pointsType := reflect.TypeOf(map[int]int{})

	return func(
		f reflect.Type,
		t reflect.Type,
		data interface{},
	) (interface{}, error) {
		if t != pointsType {
			return data, nil
		}
		return parseIntMap(data)
	}
}

// parseIntMap converts various map types (from YAML decoding) into map[int]int.
func parseIntMap(data interface{}) (map[int]int, error) {
	result := make(map[int]int)
	switch v := data.(type) {
	case map[interface{}]interface{}:
		for k, val := range v {
			key, err := anyToInt(k)
			if err != nil {
				return nil, fmt.Errorf("invalid key %v: %w", k, err)
			}
			value, err := anyToInt(val)
			if err != nil {
				return nil, fmt.Errorf("invalid value %v: %w", val, err)
			}
			result[key] = value
		}
	case map[string]interface{}:
		for k, val := range v {
			key, err := anyToInt(k)
			if err != nil {
				return nil, fmt.Errorf("invalid key %q: %w", k, err)
			}
			value, err := anyToInt(val)
			if err != nil {
				return nil, fmt.Errorf("invalid value %v: %w", val, err)
			}
			result[key] = value
		}
	case map[int]int:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported point map type %T", data)
	}
	return result, nil
}

// anyToInt converts numeric and string values to int.
func anyToInt(v interface{}) (int, error) {
	switch val := v.(type) {
	case int:
		return val, nil
	case int64:
		return int(val), nil
	case float64:
		return int(val), nil
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, fmt.Errorf("cannot parse %q as int: %w", val, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}
