package constraint

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/paiban/routecore/internal/metrics"
	"github.com/paiban/routecore/pkg/construction/state"
	apperrors "github.com/paiban/routecore/pkg/errors"
	"github.com/paiban/routecore/pkg/logger"
	"github.com/paiban/routecore/pkg/model"
)

// Named 可选接口，模块实现后日志中使用该名称
type Named interface {
	Name() string
}

// Pipeline 约束管线，按注册顺序组合约束模块
// 硬约束结果为全部硬约束的逻辑与（返回第一个违反），软约束结果为全部软约束之和
type Pipeline struct {
	mu      sync.RWMutex
	modules []Module
	keys    map[int]struct{}

	hardRoute    []HardRouteConstraint
	hardActivity []HardActivityConstraint
	softRoute    []SoftRouteConstraint
	softActivity []SoftActivityConstraint

	logger *logger.ConstraintLogger
}

// NewPipeline 创建空管线
func NewPipeline() *Pipeline {
	return &Pipeline{
		modules: make([]Module, 0),
		keys:    make(map[int]struct{}),
		logger:  logger.NewConstraintLogger("pipeline"),
	}
}

// AddModule 注册模块，状态键与已注册模块冲突时返回错误
func (p *Pipeline) AddModule(m Module) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	keys := m.StateKeys()
	for _, k := range keys {
		if _, ok := p.keys[k]; ok {
			return apperrors.New(apperrors.CodeDuplicateStateKey, fmt.Sprintf("状态键 %d 已被其他模块使用", k)).
				WithField("module", moduleName(m))
		}
	}
	for _, k := range keys {
		p.keys[k] = struct{}{}
	}

	constraints := m.Constraints()
	for _, v := range constraints {
		switch v.Kind() {
		case KindHardRoute:
			p.hardRoute = append(p.hardRoute, v.hardRoute)
		case KindHardActivity:
			p.hardActivity = append(p.hardActivity, v.hardActivity)
		case KindSoftRoute:
			p.softRoute = append(p.softRoute, v.softRoute)
		case KindSoftActivity:
			p.softActivity = append(p.softActivity, v.softActivity)
		default:
			panic(apperrors.Invariant("模块 %s 提供了未初始化的约束变体", moduleName(m)))
		}
	}

	p.modules = append(p.modules, m)
	p.logger.ModuleRegistered(moduleName(m), len(constraints), len(keys))
	return nil
}

// AcceptInsertion 任务插入路线后调用：任务离开 Required 并刷新该路线状态
func (p *Pipeline) AcceptInsertion(ctx *state.SolutionContext, rc *state.RouteContext, job model.Job) {
	for i, j := range ctx.Required {
		if j == job {
			ctx.Required = append(ctx.Required[:i], ctx.Required[i+1:]...)
			break
		}
	}
	rc.MarkStale()
	p.AcceptRouteState(rc)
}

// AcceptRouteState 路线行程变化后按注册顺序通知各模块
func (p *Pipeline) AcceptRouteState(rc *state.RouteContext) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, m := range p.modules {
		m.AcceptRouteState(rc)
	}
	rc.MarkFresh()
}

// AcceptSolutionState 一批变更结束后调用
// 先刷新已变化的路线，再依次执行各模块的分类与修复，最后刷新修复过程中被修改的路线
func (p *Pipeline) AcceptSolutionState(ctx *state.SolutionContext) {
	start := time.Now()

	p.acceptStaleRoutes(ctx)

	p.mu.RLock()
	for _, m := range p.modules {
		m.AcceptSolutionState(ctx)
	}
	p.mu.RUnlock()

	p.acceptStaleRoutes(ctx)

	assigned := len(ctx.AssignedJobs())
	metrics.SolutionAcceptDuration.Observe(time.Since(start).Seconds())
	metrics.RecordClassification(len(ctx.Required), len(ctx.Ignored), len(ctx.Unassigned), assigned)
	p.logger.Classified(len(ctx.Required), len(ctx.Ignored), len(ctx.Unassigned))
}

func (p *Pipeline) acceptStaleRoutes(ctx *state.SolutionContext) {
	for _, rc := range ctx.Routes {
		if rc.IsStale() {
			p.AcceptRouteState(rc)
		}
	}
}

// EvaluateHardRoute 检查任务能否进入路线
func (p *Pipeline) EvaluateHardRoute(ctx *state.SolutionContext, rc *state.RouteContext, job model.Job) *RouteConstraintViolation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, c := range p.hardRoute {
		if v := c.EvaluateJob(ctx, rc, job); v != nil {
			return v
		}
	}
	return nil
}

// EvaluateHardActivity 检查活动插入是否可行，返回第一个违反
func (p *Pipeline) EvaluateHardActivity(rc *state.RouteContext, ac *state.ActivityContext) *ActivityConstraintViolation {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, c := range p.hardActivity {
		if v := c.EvaluateActivity(rc, ac); v != nil {
			metrics.RecordHardViolation(v.Code, v.Stopped)
			return v
		}
	}
	return nil
}

// EvaluateSoftRoute 累加任务进入路线的成本
func (p *Pipeline) EvaluateSoftRoute(ctx *state.SolutionContext, rc *state.RouteContext, job model.Job) model.Cost {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var cost model.Cost
	for _, c := range p.softRoute {
		cost += c.EstimateJob(ctx, rc, job)
	}
	return cost
}

// EvaluateSoftActivity 累加活动插入的成本
func (p *Pipeline) EvaluateSoftActivity(rc *state.RouteContext, ac *state.ActivityContext) model.Cost {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var cost model.Cost
	for _, c := range p.softActivity {
		cost += c.EstimateActivity(rc, ac)
	}
	return cost
}

// StateKeys 返回全部模块的状态键（升序）
func (p *Pipeline) StateKeys() []int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	keys := make([]int, 0, len(p.keys))
	for k := range p.keys {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// Count 返回模块数量
func (p *Pipeline) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.modules)
}

// Summary 返回约束摘要
func (p *Pipeline) Summary() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"modules":                 len(p.modules),
		KindHardRoute.String():    len(p.hardRoute),
		KindHardActivity.String(): len(p.hardActivity),
		KindSoftRoute.String():    len(p.softRoute),
		KindSoftActivity.String(): len(p.softActivity),
		"state_keys":              len(p.keys),
	}
}

func moduleName(m Module) string {
	if n, ok := m.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", m)
}
