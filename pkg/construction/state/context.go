// Package state 定义插入构造过程中的路线、活动和全局求解状态
package state

import (
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	apperrors "github.com/paiban/routecore/pkg/errors"
	"github.com/paiban/routecore/pkg/model"
)

// RouteContext 路线及其缓存状态
// ID 在路线的整个生命周期内稳定，是路线在集合中的唯一标识
type RouteContext struct {
	ID    uuid.UUID
	Route *model.Route
	State *RouteState

	stale bool
}

// NewRouteContext 为执行者创建新路线
func NewRouteContext(actor *model.Actor) *RouteContext {
	return &RouteContext{
		ID:    uuid.New(),
		Route: model.NewRoute(actor),
		State: NewRouteState(),
		stale: true,
	}
}

// RouteMut 返回可修改的路线，并标记路线状态需要重新计算
func (rc *RouteContext) RouteMut() *model.Route {
	rc.stale = true
	return rc.Route
}

// IsStale 检查路线状态是否需要重新计算
func (rc *RouteContext) IsStale() bool { return rc.stale }

// MarkStale 标记路线状态需要重新计算
func (rc *RouteContext) MarkStale() { rc.stale = true }

// MarkFresh 标记路线状态已与行程同步
func (rc *RouteContext) MarkFresh() { rc.stale = false }

// DeepCopy 复制路线上下文，保留 ID
func (rc *RouteContext) DeepCopy() *RouteContext {
	route := rc.Route.DeepCopy()

	mapping := make(map[*model.Activity]*model.Activity, route.Tour.ActivityCount())
	original := rc.Route.Tour.All()
	for i, a := range route.Tour.All() {
		mapping[original[i]] = a
	}

	return &RouteContext{
		ID:    rc.ID,
		Route: route,
		State: rc.State.copyWith(mapping),
		stale: rc.stale,
	}
}

// ActivityContext 单次可行性检查的活动插入上下文
type ActivityContext struct {
	// Index 插入位置
	Index int
	// Prev 前一个活动
	Prev *model.Activity
	// Target 待插入活动
	Target *model.Activity
	// Next 后一个活动，开放式行程插入末尾时为 nil
	Next *model.Activity
}

// SolutionContext 一个候选解的全局可变状态
// 不变量：任一任务恰好属于 Required、Ignored、某条路线、Unassigned 之一
type SolutionContext struct {
	// Required 需要分配的任务
	Required []model.Job
	// Ignored 暂时无需分配的任务
	Ignored []model.Job
	// Unassigned 无法分配的任务及原因码
	Unassigned map[model.Job]int
	// Routes 已使用的路线
	Routes []*RouteContext
	// Registry 资源占用情况
	Registry *model.Registry
}

// NewSolutionContext 基于问题创建初始状态，全部任务均为 Required
func NewSolutionContext(problem *model.Problem) *SolutionContext {
	required := make([]model.Job, len(problem.Jobs))
	copy(required, problem.Jobs)

	return &SolutionContext{
		Required:   required,
		Ignored:    make([]model.Job, 0),
		Unassigned: make(map[model.Job]int),
		Routes:     make([]*RouteContext, 0),
		Registry:   problem.NewRegistry(),
	}
}

// AddRoute 占用执行者并创建新路线
func (s *SolutionContext) AddRoute(actor *model.Actor) (*RouteContext, error) {
	if !s.Registry.Use(actor) {
		id, _ := actor.Vehicle.Dimensions.ID()
		return nil, apperrors.New(apperrors.CodeActorUnavailable, "执行者不可用").WithField("vehicle_id", id)
	}

	rc := NewRouteContext(actor)
	s.Routes = append(s.Routes, rc)
	return rc, nil
}

// Route 按 ID 查找路线
func (s *SolutionContext) Route(id uuid.UUID) *RouteContext {
	for _, rc := range s.Routes {
		if rc.ID == id {
			return rc
		}
	}
	return nil
}

// RemoveRoute 拆除路线：释放执行者，路线上的任务回到 Required
func (s *SolutionContext) RemoveRoute(id uuid.UUID) error {
	for i, rc := range s.Routes {
		if rc.ID != id {
			continue
		}
		s.Required = append(s.Required, rc.Route.Tour.Jobs()...)
		s.Registry.Free(rc.Route.Actor)
		s.Routes = append(s.Routes[:i], s.Routes[i+1:]...)
		return nil
	}
	return apperrors.New(apperrors.CodeRouteNotFound, fmt.Sprintf("路线 '%s' 不存在", id))
}

// RemoveEmptyRoutes 拆除没有任务的路线，返回拆除数量
func (s *SolutionContext) RemoveEmptyRoutes() int {
	kept := s.Routes[:0]
	removed := 0
	for _, rc := range s.Routes {
		if rc.Route.Tour.HasJobs() {
			kept = append(kept, rc)
			continue
		}
		s.Registry.Free(rc.Route.Actor)
		removed++
	}
	for i := len(kept); i < len(s.Routes); i++ {
		s.Routes[i] = nil
	}
	s.Routes = kept
	return removed
}

// AssignedJobs 返回已分配到路线的任务
func (s *SolutionContext) AssignedJobs() []model.Job {
	var jobs []model.Job
	for _, rc := range s.Routes {
		jobs = append(jobs, rc.Route.Tour.Jobs()...)
	}
	return jobs
}

// IsAssigned 检查任务是否在某条路线上
func (s *SolutionContext) IsAssigned(job model.Job) bool {
	for _, rc := range s.Routes {
		if rc.Route.Tour.HasJob(job) {
			return true
		}
	}
	return false
}

// CheckPartition 校验 jobs 中每个任务恰好属于一个分类
func (s *SolutionContext) CheckPartition(jobs []model.Job) error {
	counts := make(map[model.Job]int, len(jobs))
	for _, j := range s.Required {
		counts[j]++
	}
	for _, j := range s.Ignored {
		counts[j]++
	}
	for j := range s.Unassigned {
		counts[j]++
	}
	for _, j := range s.AssignedJobs() {
		counts[j]++
	}

	for i, j := range jobs {
		if n := counts[j]; n != 1 {
			return apperrors.Invariant("任务 #%d 出现在 %d 个分类中", i, n)
		}
		delete(counts, j)
	}
	if len(counts) > 0 {
		return apperrors.Invariant("存在 %d 个不属于问题的任务", len(counts))
	}
	return nil
}

// DeepCopy 复制求解状态（任务按引用共享）
func (s *SolutionContext) DeepCopy() *SolutionContext {
	c := &SolutionContext{
		Required:   append([]model.Job(nil), s.Required...),
		Ignored:    append([]model.Job(nil), s.Ignored...),
		Unassigned: make(map[model.Job]int, len(s.Unassigned)),
		Routes:     make([]*RouteContext, len(s.Routes)),
		Registry:   s.Registry.DeepCopy(),
	}
	for j, code := range s.Unassigned {
		c.Unassigned[j] = code
	}
	for i, rc := range s.Routes {
		c.Routes[i] = rc.DeepCopy()
	}
	return c
}

// InsertionProgress 插入进度信息
type InsertionProgress struct {
	// Cost 当前已知最优成本
	Cost model.Cost
	// Completeness 解的完成度
	Completeness float64
	// Total 任务总数
	Total int
}

// InsertionContext 插入所需的全部信息，约束模块只读
type InsertionContext struct {
	Progress InsertionProgress
	Problem  *model.Problem
	Solution *SolutionContext
	Random   *rand.Rand
}

// NewInsertionContext 创建插入上下文
func NewInsertionContext(problem *model.Problem, random *rand.Rand) *InsertionContext {
	return &InsertionContext{
		Progress: InsertionProgress{
			Cost:  0,
			Total: len(problem.Jobs),
		},
		Problem:  problem,
		Solution: NewSolutionContext(problem),
		Random:   random,
	}
}
