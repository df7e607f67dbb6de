package model

import (
	"fmt"

	apperrors "github.com/paiban/routecore/pkg/errors"
)

// 核心使用的属性键
const (
	DimenID         = "id"
	DimenType       = "type"
	DimenVehicleID  = "vehicle_id"
	DimenShiftIndex = "shift_index"
)

// ValueKind 属性值类型
type ValueKind int

const (
	KindString ValueKind = iota + 1
	KindInt
	KindFloat
	KindBool
)

// String 返回类型名称
func (k ValueKind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value 属性值（封闭的带标签变体）
type Value struct {
	kind ValueKind
	s    string
	i    int
	f    float64
	b    bool
}

// StringValue 创建字符串属性值
func StringValue(v string) Value { return Value{kind: KindString, s: v} }

// IntValue 创建整数属性值
func IntValue(v int) Value { return Value{kind: KindInt, i: v} }

// FloatValue 创建浮点属性值
func FloatValue(v float64) Value { return Value{kind: KindFloat, f: v} }

// BoolValue 创建布尔属性值
func BoolValue(v bool) Value { return Value{kind: KindBool, b: v} }

// Kind 返回值类型
func (v Value) Kind() ValueKind { return v.kind }

// String 实现 fmt.Stringer
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	default:
		return "<nil>"
	}
}

// Dimensions 附加在任务、车辆上的类型化属性包
type Dimensions map[string]Value

// NewDimensions 创建空属性包
func NewDimensions() Dimensions {
	return make(Dimensions)
}

// Set 设置属性，返回自身便于链式构造
func (d Dimensions) Set(key string, v Value) Dimensions {
	d[key] = v
	return d
}

// SetString 设置字符串属性
func (d Dimensions) SetString(key, v string) Dimensions { return d.Set(key, StringValue(v)) }

// SetInt 设置整数属性
func (d Dimensions) SetInt(key string, v int) Dimensions { return d.Set(key, IntValue(v)) }

// Get 获取原始属性值
func (d Dimensions) Get(key string) (Value, bool) {
	v, ok := d[key]
	return v, ok
}

// Has 检查属性是否存在
func (d Dimensions) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// String 获取字符串属性，缺失或类型不符时返回错误
func (d Dimensions) String(key string) (string, error) {
	v, ok := d[key]
	if !ok {
		return "", apperrors.DimensionMissing(key)
	}
	if v.kind != KindString {
		return "", apperrors.DimensionType(key, KindString.String(), v.kind.String())
	}
	return v.s, nil
}

// Int 获取整数属性，缺失或类型不符时返回错误
func (d Dimensions) Int(key string) (int, error) {
	v, ok := d[key]
	if !ok {
		return 0, apperrors.DimensionMissing(key)
	}
	if v.kind != KindInt {
		return 0, apperrors.DimensionType(key, KindInt.String(), v.kind.String())
	}
	return v.i, nil
}

// LookupString 获取可选字符串属性
// 属性不存在时 ok 为 false；存在但类型不符属于程序缺陷，直接 panic
func (d Dimensions) LookupString(key string) (string, bool) {
	if !d.Has(key) {
		return "", false
	}
	return d.MustString(key), true
}

// LookupInt 获取可选整数属性，语义同 LookupString
func (d Dimensions) LookupInt(key string) (int, bool) {
	if !d.Has(key) {
		return 0, false
	}
	return d.MustInt(key), true
}

// MustString 获取必需的字符串属性
func (d Dimensions) MustString(key string) string {
	s, err := d.String(key)
	if err != nil {
		panic(err)
	}
	return s
}

// MustInt 获取必需的整数属性
func (d Dimensions) MustInt(key string) int {
	i, err := d.Int(key)
	if err != nil {
		panic(err)
	}
	return i
}

// ID 获取实体标识
func (d Dimensions) ID() (string, error) {
	return d.String(DimenID)
}
