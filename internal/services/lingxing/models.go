package lingxing

import (
	"strconv"
	"strings"
)

// Record 接口返回的单条记录。各端点字段差异大，统一用动态 map 承载。
type Record = map[string]interface{}

// Float 宽松数值转换：数值原样返回，数值型字符串解析后返回。
func Float(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// Int 整数转换；数值截断取整，字符串只接受纯整数格式。
func Int(v interface{}) (int, bool) {
	switch t := v.(type) {
	case float64:
		return int(t), true
	case int:
		return t, true
	case int64:
		return int(t), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err == nil {
			return int(n), true
		}
	}
	return 0, false
}

// Str 取字符串值，非字符串一律按空串处理。
func Str(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Dig 沿 keys 逐层下钻嵌套 map，任何一层缺失返回 false。
func Dig(m map[string]interface{}, keys ...string) (interface{}, bool) {
	var cur interface{} = m
	for _, k := range keys {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// DigMap 下钻并要求终点是对象。
func DigMap(m map[string]interface{}, keys ...string) (map[string]interface{}, bool) {
	v, ok := Dig(m, keys...)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]interface{})
	return obj, ok
}

// DigRecords 下钻并要求终点是记录数组；路径缺失或类型不符返回 nil。
func DigRecords(m map[string]interface{}, keys ...string) []Record {
	v, ok := Dig(m, keys...)
	if !ok {
		return nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	records := make([]Record, 0, len(list))
	for _, item := range list {
		if rec, ok := item.(map[string]interface{}); ok {
			records = append(records, rec)
		}
	}
	return records
}

// aggregateByStore 按 storeName 归并利润报表记录。
// 首次出现：数值保留，数值型字符串转成数值，其余原样。
// 再次出现：数值和可转换字符串累加，无法转换的字符串跳过。
// 店名为空的记录直接丢弃；归并结果按店名首次出现的顺序返回。
func aggregateByStore(records []Record) []Record {
	byStore := make(map[string]Record)
	var order []string

	for _, rec := range records {
		name := Str(rec["storeName"])
		if name == "" {
			continue
		}

		agg, seen := byStore[name]
		if !seen {
			agg = make(Record, len(rec))
			for k, v := range rec {
				switch t := v.(type) {
				case float64:
					agg[k] = t
				case string:
					if f, ok := Float(t); ok {
						agg[k] = f
					} else {
						agg[k] = t
					}
				default:
					agg[k] = v
				}
			}
			byStore[name] = agg
			order = append(order, name)
			continue
		}

		for k, v := range rec {
			switch t := v.(type) {
			case float64:
				prev, _ := Float(agg[k])
				agg[k] = prev + t
			case string:
				if f, ok := Float(t); ok {
					prev, _ := Float(agg[k])
					agg[k] = prev + f
				}
			}
		}
	}

	result := make([]Record, 0, len(order))
	for _, name := range order {
		result = append(result, byStore[name])
	}
	return result
}
