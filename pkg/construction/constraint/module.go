package constraint

import (
	"github.com/paiban/routecore/pkg/construction/state"
	"github.com/paiban/routecore/pkg/model"
)

// Module 约束模块，是约束接入外部搜索的唯一接口
type Module interface {
	// AcceptRouteState 路线行程变化后重新计算本模块的路线缓存
	AcceptRouteState(rc *state.RouteContext)

	// AcceptSolutionState 一批路线变更后重新分类任务并修复结构不变量
	AcceptSolutionState(ctx *state.SolutionContext)

	// StateKeys 返回本模块使用的路线缓存键
	StateKeys() []int

	// Constraints 返回本模块提供的约束
	Constraints() []Variant
}

// JobPredicate 判断任务当前是否需要分配
type JobPredicate func(ctx *state.SolutionContext, job model.Job) bool

// ConditionalJobModule 按谓词在 Required 与 Ignored 之间移动任务
type ConditionalJobModule struct {
	predicate JobPredicate
	keys      []int
}

// NewConditionalJobModule 创建条件任务模块
func NewConditionalJobModule(predicate JobPredicate) *ConditionalJobModule {
	return &ConditionalJobModule{predicate: predicate, keys: []int{}}
}

// AcceptRouteState 条件模块不持有路线缓存
func (m *ConditionalJobModule) AcceptRouteState(rc *state.RouteContext) {}

// AcceptSolutionState 谓词为假的 Required 任务移入 Ignored，谓词为真的 Ignored 任务移回 Required
// 两个方向都基于调用时的状态判定，重复调用结果不变
func (m *ConditionalJobModule) AcceptSolutionState(ctx *state.SolutionContext) {
	var required, demoted []model.Job
	for _, job := range ctx.Required {
		if m.predicate(ctx, job) {
			required = append(required, job)
		} else {
			demoted = append(demoted, job)
		}
	}

	var ignored, promoted []model.Job
	for _, job := range ctx.Ignored {
		if m.predicate(ctx, job) {
			promoted = append(promoted, job)
		} else {
			ignored = append(ignored, job)
		}
	}

	ctx.Required = append(required, promoted...)
	ctx.Ignored = append(ignored, demoted...)
	if ctx.Required == nil {
		ctx.Required = make([]model.Job, 0)
	}
	if ctx.Ignored == nil {
		ctx.Ignored = make([]model.Job, 0)
	}
}

// StateKeys 条件模块没有状态键
func (m *ConditionalJobModule) StateKeys() []int {
	return m.keys
}

// Constraints 条件模块不提供约束
func (m *ConditionalJobModule) Constraints() []Variant {
	return nil
}
