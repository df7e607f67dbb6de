// Package constraint 定义插入构造使用的约束接口、约束模块和聚合管线
package constraint

import (
	"github.com/paiban/routecore/pkg/construction/state"
	"github.com/paiban/routecore/pkg/model"
)

// ActivityConstraintViolation 活动级硬约束违反
type ActivityConstraintViolation struct {
	// Code 稳定的违反码
	Code int
	// Stopped 为 true 时放弃该任务在本路线上的后续搜索，否则仅拒绝当前位置
	Stopped bool
}

// RouteConstraintViolation 路线级硬约束违反
type RouteConstraintViolation struct {
	Code int
}

// HardRouteConstraint 路线级硬约束：任务能否进入路线
type HardRouteConstraint interface {
	EvaluateJob(ctx *state.SolutionContext, rc *state.RouteContext, job model.Job) *RouteConstraintViolation
}

// SoftRouteConstraint 路线级软约束：任务进入路线的成本
type SoftRouteConstraint interface {
	EstimateJob(ctx *state.SolutionContext, rc *state.RouteContext, job model.Job) model.Cost
}

// HardActivityConstraint 活动级硬约束，必须只读
// 返回 nil 表示可行
type HardActivityConstraint interface {
	EvaluateActivity(rc *state.RouteContext, ac *state.ActivityContext) *ActivityConstraintViolation
}

// SoftActivityConstraint 活动级软约束，必须只读且结果确定
// 返回成本增量，中性时为 0
type SoftActivityConstraint interface {
	EstimateActivity(rc *state.RouteContext, ac *state.ActivityContext) model.Cost
}

// Kind 约束变体类别
type Kind int

const (
	KindHardRoute Kind = iota + 1
	KindHardActivity
	KindSoftRoute
	KindSoftActivity
)

// String 返回类别名称
func (k Kind) String() string {
	switch k {
	case KindHardRoute:
		return "hard_route"
	case KindHardActivity:
		return "hard_activity"
	case KindSoftRoute:
		return "soft_route"
	case KindSoftActivity:
		return "soft_activity"
	default:
		return "unknown"
	}
}

// Variant 四类约束之一，只能通过下面的构造函数创建
type Variant struct {
	kind         Kind
	hardRoute    HardRouteConstraint
	hardActivity HardActivityConstraint
	softRoute    SoftRouteConstraint
	softActivity SoftActivityConstraint
}

// HardRoute 包装路线级硬约束
func HardRoute(c HardRouteConstraint) Variant {
	return Variant{kind: KindHardRoute, hardRoute: c}
}

// HardActivity 包装活动级硬约束
func HardActivity(c HardActivityConstraint) Variant {
	return Variant{kind: KindHardActivity, hardActivity: c}
}

// SoftRoute 包装路线级软约束
func SoftRoute(c SoftRouteConstraint) Variant {
	return Variant{kind: KindSoftRoute, softRoute: c}
}

// SoftActivity 包装活动级软约束
func SoftActivity(c SoftActivityConstraint) Variant {
	return Variant{kind: KindSoftActivity, softActivity: c}
}

// Kind 返回变体类别
func (v Variant) Kind() Kind { return v.kind }

// AsHardRoute 取出路线级硬约束
func (v Variant) AsHardRoute() (HardRouteConstraint, bool) {
	return v.hardRoute, v.kind == KindHardRoute
}

// AsHardActivity 取出活动级硬约束
func (v Variant) AsHardActivity() (HardActivityConstraint, bool) {
	return v.hardActivity, v.kind == KindHardActivity
}

// AsSoftRoute 取出路线级软约束
func (v Variant) AsSoftRoute() (SoftRouteConstraint, bool) {
	return v.softRoute, v.kind == KindSoftRoute
}

// AsSoftActivity 取出活动级软约束
func (v Variant) AsSoftActivity() (SoftActivityConstraint, bool) {
	return v.softActivity, v.kind == KindSoftActivity
}
