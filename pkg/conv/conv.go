// Package conv 读取流水线节点的 config。
//
// 节点 config 是 YAML（gopkg.in/yaml.v3）或 JSON（goccy/go-json）解码得到的 map[string]any：
// YAML 的整数解码为 int，JSON 的数字一律是 float64，这里把两种来源统一成 Go 类型。
package conv

import (
	"fmt"
	"math"
	"strconv"
)

// Get 按 key 取 T，缺失或类型不符时返回 defaultVal。
func Get[T any](m map[string]any, key string, defaultVal T) T {
	v, ok := m[key]
	if !ok {
		return defaultVal
	}
	t, ok := v.(T)
	if !ok {
		return defaultVal
	}
	return t
}

// Int 按 key 取整数，缺失时返回 defaultVal。带小数的数字或非数字值返回错误。
func Int(m map[string]any, key string, defaultVal int) (int, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return defaultVal, nil
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, fmt.Errorf("%s: expected integer, got %T", key, v)
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%s: expected integer, got %v", key, f)
	}
	return int(f), nil
}

// Float 按 key 取数字，ok 为 false 表示 key 不存在。
func Float(m map[string]any, key string) (val float64, ok bool, err error) {
	v, present := m[key]
	if !present || v == nil {
		return 0, false, nil
	}
	f, isNum := toFloat64(v)
	if !isNum {
		return 0, false, fmt.Errorf("%s: expected number, got %T", key, v)
	}
	return f, true, nil
}

// Strings 把 []any 转为 []string，数字按最短形式格式化（101 -> "101"），其他类型的元素被跳过。
func Strings(v any) []string {
	switch raw := v.(type) {
	case []string:
		return raw
	case []any:
		out := make([]string, 0, len(raw))
		for _, e := range raw {
			if s, ok := e.(string); ok {
				out = append(out, s)
				continue
			}
			if f, ok := toFloat64(e); ok {
				out = append(out, strconv.FormatFloat(f, 'f', -1, 64))
			}
		}
		return out
	default:
		return nil
	}
}

func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case int32:
		return float64(val), true
	case uint64:
		return float64(val), true
	default:
		return 0, false
	}
}
