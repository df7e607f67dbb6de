// Package builtin 提供内置约束模块
package builtin

import (
	"github.com/paiban/routecore/internal/metrics"
	"github.com/paiban/routecore/pkg/construction/constraint"
	"github.com/paiban/routecore/pkg/construction/state"
	apperrors "github.com/paiban/routecore/pkg/errors"
	"github.com/paiban/routecore/pkg/logger"
	"github.com/paiban/routecore/pkg/model"
)

// BreakType 休息任务的 type 属性值
const BreakType = "break"

// BreakConfig 休息模块配置
type BreakConfig struct {
	// Code 硬约束拒绝时上报的违反码
	Code int `yaml:"code" json:"code"`
	// ExtraCost 插入休息的额外成本，nil 表示不加成本
	ExtraCost *float64 `yaml:"extra_cost,omitempty" json:"extra_cost,omitempty"`
	// DemoteFromUnassigned 为 true 时未能分配的休息不作为未分配任务上报
	DemoteFromUnassigned bool `yaml:"demote_from_unassigned" json:"demote_from_unassigned"`
}

// BreakModule 司机休息约束模块
type BreakModule struct {
	conditional *constraint.ConditionalJobModule
	constraints []constraint.Variant
	demote      bool
	logger      *logger.ConstraintLogger
}

// NewBreakModule 创建休息模块
func NewBreakModule(code int, extraBreakCost *float64, demoteBreaksFromUnassigned bool) *BreakModule {
	return &BreakModule{
		conditional: constraint.NewConditionalJobModule(isRequiredJob),
		constraints: []constraint.Variant{
			constraint.HardActivity(&breakHardActivityConstraint{code: code}),
			constraint.SoftActivity(&breakSoftActivityConstraint{extraBreakCost: extraBreakCost}),
		},
		demote: demoteBreaksFromUnassigned,
		logger: logger.NewConstraintLogger("break"),
	}
}

// NewBreakModuleFromConfig 按配置创建休息模块
func NewBreakModuleFromConfig(cfg BreakConfig) *BreakModule {
	return NewBreakModule(cfg.Code, cfg.ExtraCost, cfg.DemoteFromUnassigned)
}

// Name 返回模块名称
func (m *BreakModule) Name() string { return "break" }

// AcceptRouteState 委托给条件模块
func (m *BreakModule) AcceptRouteState(rc *state.RouteContext) {
	m.conditional.AcceptRouteState(rc)
}

// AcceptSolutionState 重新分类休息；Required 为空时移除孤立休息并按配置降级未分配休息
func (m *BreakModule) AcceptSolutionState(ctx *state.SolutionContext) {
	m.conditional.AcceptSolutionState(ctx)

	if len(ctx.Required) == 0 {
		m.removeOrphanBreaks(ctx)

		if m.demote {
			m.demoteUnassignedBreaks(ctx)
		}
	}
}

// StateKeys 委托给条件模块
func (m *BreakModule) StateKeys() []int {
	return m.conditional.StateKeys()
}

// Constraints 返回硬、软约束
func (m *BreakModule) Constraints() []constraint.Variant {
	return m.constraints
}

type breakHardActivityConstraint struct {
	code int
}

func (c *breakHardActivityConstraint) stop() *constraint.ActivityConstraintViolation {
	return &constraint.ActivityConstraintViolation{Code: c.code, Stopped: false}
}

// EvaluateActivity 休息不能紧跟出发，且只能进入所属车辆班次的路线
func (c *breakHardActivityConstraint) EvaluateActivity(rc *state.RouteContext, ac *state.ActivityContext) *constraint.ActivityConstraintViolation {
	breakJob, ok := asBreakJob(ac.Target)
	if !ok {
		return nil
	}

	if !ac.Prev.HasJob() {
		return c.stop()
	}

	vehicleID := breakJob.Dimensions.MustString(model.DimenVehicleID)
	shiftIndex := breakJob.Dimensions.MustInt(model.DimenShiftIndex)
	if !isCorrectVehicle(rc, vehicleID, shiftIndex) {
		return c.stop()
	}

	return nil
}

type breakSoftActivityConstraint struct {
	extraBreakCost *float64
}

// EstimateActivity 配置了额外成本时对休息收取固定成本
func (c *breakSoftActivityConstraint) EstimateActivity(_ *state.RouteContext, ac *state.ActivityContext) model.Cost {
	if c.extraBreakCost == nil {
		return 0
	}
	if _, ok := asBreakJob(ac.Target); ok {
		return *c.extraBreakCost
	}
	return 0
}

// isRequiredJob 休息只有在所属车辆班次的路线已经存在且已越过休息窗口起点时才需要分配
func isRequiredJob(ctx *state.SolutionContext, job model.Job) bool {
	switch j := job.(type) {
	case *model.Single:
		if !isBreakJob(j) {
			return true
		}

		vehicleID := j.Dimensions.MustString(model.DimenVehicleID)
		shiftIndex := j.Dimensions.MustInt(model.DimenShiftIndex)
		for _, rc := range ctx.Routes {
			if isCorrectVehicle(rc, vehicleID, shiftIndex) && isTime(rc, j) {
				return true
			}
		}
		return false
	case *model.Multi:
		return true
	default:
		panic(apperrors.Invariant("未知任务类型 %T", job))
	}
}

// removeOrphanBreaks 移除位置与前一活动不一致且自身未指定位置的休息
// 这些休息是破坏阶段移走原任务后遗留下来的，移除后重新进入 Required。
// 被移除的休息不作为后续活动的“前一活动”，因此一次遍历即可到达不动点
func (m *BreakModule) removeOrphanBreaks(ctx *state.SolutionContext) {
	total := 0
	for _, rc := range ctx.Routes {
		activities := rc.Route.Tour.All()
		if len(activities) > 0 && isBreakActivity(activities[0]) {
			panic(apperrors.Invariant("路线 %s 的首个活动是休息", rc.ID))
		}

		var orphans []model.Job
		var removed []*model.Activity
		prev := model.Location(0)
		for _, activity := range activities {
			current := activity.Place.Location

			if breakJob, ok := asBreakJob(activity); ok {
				if len(breakJob.Places) != 1 {
					panic(apperrors.Invariant("休息任务应恰好有 1 个地点，实际 %d 个", len(breakJob.Places)))
				}
				if prev != current && breakJob.Places[0].Location == nil {
					orphans = appendUnique(orphans, activity.Job)
					removed = append(removed, activity)
					continue
				}
			}

			prev = current
		}

		if len(orphans) == 0 {
			continue
		}

		route := rc.RouteMut()
		for _, job := range orphans {
			route.Tour.Remove(job)
		}
		for _, activity := range removed {
			rc.State.RemoveActivity(activity)
		}
		ctx.Required = append(ctx.Required, orphans...)
		total += len(orphans)
		m.logger.OrphanBreaksRemoved(rc.ID.String(), len(orphans))
	}

	metrics.RecordBreakRepair("orphan", total)
}

// demoteUnassignedBreaks 将未分配的休息移入 Ignored
func (m *BreakModule) demoteUnassignedBreaks(ctx *state.SolutionContext) {
	if len(ctx.Unassigned) == 0 {
		return
	}

	var breaks []model.Job
	for job := range ctx.Unassigned {
		if single, ok := model.AsSingle(job); ok && isBreakJob(single) {
			breaks = append(breaks, job)
		}
	}

	for _, job := range breaks {
		delete(ctx.Unassigned, job)
	}
	ctx.Ignored = append(ctx.Ignored, breaks...)

	if len(breaks) > 0 {
		metrics.RecordBreakRepair("demote", len(breaks))
		m.logger.BreaksDemoted(len(breaks))
	}
}

func isBreakJob(job *model.Single) bool {
	t, ok := job.Dimensions.LookupString(model.DimenType)
	return ok && t == BreakType
}

func asBreakJob(activity *model.Activity) (*model.Single, bool) {
	if !activity.HasJob() {
		return nil, false
	}
	single, ok := model.AsSingle(activity.Job)
	if !ok || !isBreakJob(single) {
		return nil, false
	}
	return single, true
}

func isBreakActivity(activity *model.Activity) bool {
	_, ok := asBreakJob(activity)
	return ok
}

func isCorrectVehicle(rc *state.RouteContext, vehicleID string, shiftIndex int) bool {
	dimens := rc.Route.Actor.Vehicle.Dimensions
	return dimens.MustString(model.DimenID) == vehicleID && dimens.MustInt(model.DimenShiftIndex) == shiftIndex
}

// isTime 路线当前结束到达时间晚于休息任一时间窗口的起点，相等不算
func isTime(rc *state.RouteContext, breakJob *model.Single) bool {
	var arrival model.Timestamp
	if end := rc.Route.Tour.End(); end != nil {
		arrival = end.Schedule.Arrival
	}

	if len(breakJob.Places) == 0 {
		panic(apperrors.Invariant("休息任务没有地点"))
	}
	for _, tw := range breakJob.Places[0].Times {
		if tw.Start < arrival {
			return true
		}
	}
	return false
}

func appendUnique(jobs []model.Job, job model.Job) []model.Job {
	for _, j := range jobs {
		if j == job {
			return jobs
		}
	}
	return append(jobs, job)
}
