package builtin

import (
	"testing"

	"github.com/paiban/routecore/pkg/construction/constraint"
	"github.com/paiban/routecore/pkg/construction/state"
	apperrors "github.com/paiban/routecore/pkg/errors"
	"github.com/paiban/routecore/pkg/model"
)

const breakCode = 7

func loc(l model.Location) *model.Location { return &l }

func createActor(vehicleID string, shift int) *model.Actor {
	return &model.Actor{
		Vehicle: model.NewVehicle(vehicleID, shift, "car"),
		Detail: model.ActorDetail{
			Start: 0,
			End:   loc(0),
			Time:  model.NewTimeWindow(0, 1000),
		},
	}
}

func createBreak(vehicleID string, shift int, location *model.Location, windows ...model.TimeWindow) *model.Single {
	return model.NewSingle(
		[]model.Place{{Location: location, Duration: 30, Times: windows}},
		model.NewDimensions().
			SetString(model.DimenType, BreakType).
			SetString(model.DimenVehicleID, vehicleID).
			SetInt(model.DimenShiftIndex, shift),
	)
}

func createJob(location model.Location) *model.Single {
	return model.NewSingle([]model.Place{{Location: &location, Duration: 10}}, nil)
}

func createSolution(actors ...*model.Actor) *state.SolutionContext {
	ctx := state.NewSolutionContext(&model.Problem{Fleet: actors})
	ctx.Required = []model.Job{}
	return ctx
}

func addRoute(t *testing.T, ctx *state.SolutionContext, actor *model.Actor) *state.RouteContext {
	t.Helper()
	rc, err := ctx.AddRoute(actor)
	if err != nil {
		t.Fatalf("AddRoute failed: %v", err)
	}
	return rc
}

func visit(rc *state.RouteContext, job model.Job, location model.Location) *model.Activity {
	a := model.NewActivity(job, model.ActivityPlace{Location: location}, model.Schedule{})
	rc.RouteMut().Tour.InsertLast(a)
	return a
}

func setEndArrival(rc *state.RouteContext, arrival model.Timestamp) {
	rc.RouteMut().Tour.End().Schedule.Arrival = arrival
}

func hardConstraint(t *testing.T, m *BreakModule) constraint.HardActivityConstraint {
	t.Helper()
	for _, v := range m.Constraints() {
		if c, ok := v.AsHardActivity(); ok {
			return c
		}
	}
	t.Fatal("hard activity constraint not found")
	return nil
}

func softConstraint(t *testing.T, m *BreakModule) constraint.SoftActivityConstraint {
	t.Helper()
	for _, v := range m.Constraints() {
		if c, ok := v.AsSoftActivity(); ok {
			return c
		}
	}
	t.Fatal("soft activity constraint not found")
	return nil
}

func expectPanic(t *testing.T, code apperrors.Code, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("Expected panic with %s", code)
		}
		err, ok := r.(error)
		if !ok || !apperrors.Is(err, code) {
			t.Errorf("Expected %s panic, got %v", code, r)
		}
	}()
	fn()
}

func TestBreakHardActivityConstraint(t *testing.T) {
	v1 := createActor("v1", 0)
	v1Shift1 := createActor("v1", 1)
	v2 := createActor("v2", 0)
	ctx := createSolution(v1, v1Shift1, v2)

	routes := map[string]*state.RouteContext{
		"v1/0": addRoute(t, ctx, v1),
		"v1/1": addRoute(t, ctx, v1Shift1),
		"v2/0": addRoute(t, ctx, v2),
	}

	brk := createBreak("v1", 0, nil, model.NewTimeWindow(100, 200))
	job := createJob(3)

	departure := func(rc *state.RouteContext) *model.Activity { return rc.Route.Tour.Start() }
	served := model.NewActivity(job, model.ActivityPlace{Location: 3}, model.Schedule{})
	target := model.NewActivity(brk, model.ActivityPlace{Location: 3}, model.Schedule{})

	tests := []struct {
		name    string
		route   string
		prev    func(rc *state.RouteContext) *model.Activity
		target  *model.Activity
		wantNil bool
	}{
		{
			name:   "紧跟出发，拒绝",
			route:  "v1/0",
			prev:   departure,
			target: target,
		},
		{
			name:   "车辆不匹配，拒绝",
			route:  "v2/0",
			prev:   func(*state.RouteContext) *model.Activity { return served },
			target: target,
		},
		{
			name:   "班次不匹配，拒绝",
			route:  "v1/1",
			prev:   func(*state.RouteContext) *model.Activity { return served },
			target: target,
		},
		{
			name:    "匹配路线且有前序任务，通过",
			route:   "v1/0",
			prev:    func(*state.RouteContext) *model.Activity { return served },
			target:  target,
			wantNil: true,
		},
		{
			name:    "非休息任务总是通过",
			route:   "v2/0",
			prev:    departure,
			target:  served,
			wantNil: true,
		},
	}

	c := hardConstraint(t, NewBreakModule(breakCode, nil, false))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := routes[tt.route]
			ac := &state.ActivityContext{
				Index:  1,
				Prev:   tt.prev(rc),
				Target: tt.target,
				Next:   rc.Route.Tour.End(),
			}

			v := c.EvaluateActivity(rc, ac)
			if tt.wantNil {
				if v != nil {
					t.Errorf("Expected feasible, got %+v", v)
				}
				return
			}
			if v == nil {
				t.Fatal("Expected violation")
			}
			if v.Code != breakCode || v.Stopped {
				t.Errorf("Expected {%d false}, got %+v", breakCode, v)
			}
		})
	}
}

func TestBreakHardActivityConstraint_MalformedDimensions(t *testing.T) {
	actor := createActor("v1", 0)
	ctx := createSolution(actor)
	rc := addRoute(t, ctx, actor)

	brk := createBreak("v1", 0, nil)
	brk.Dimensions.SetString(model.DimenShiftIndex, "0")

	ac := &state.ActivityContext{
		Prev:   model.NewActivity(createJob(1), model.ActivityPlace{}, model.Schedule{}),
		Target: model.NewActivity(brk, model.ActivityPlace{}, model.Schedule{}),
	}

	c := hardConstraint(t, NewBreakModule(breakCode, nil, false))
	expectPanic(t, apperrors.CodeDimensionType, func() { c.EvaluateActivity(rc, ac) })
}

func TestBreakSoftActivityConstraint(t *testing.T) {
	extra := 42.0
	brk := model.NewActivity(createBreak("v1", 0, nil), model.ActivityPlace{}, model.Schedule{})
	job := model.NewActivity(createJob(1), model.ActivityPlace{}, model.Schedule{})
	rc := state.NewRouteContext(createActor("v1", 0))

	tests := []struct {
		name   string
		extra  *float64
		target *model.Activity
		want   model.Cost
	}{
		{"配置额外成本的休息", &extra, brk, 42},
		{"配置额外成本的普通任务", &extra, job, 0},
		{"未配置额外成本的休息", nil, brk, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := softConstraint(t, NewBreakModule(breakCode, tt.extra, false))
			got := c.EstimateActivity(rc, &state.ActivityContext{Target: tt.target})
			if got != tt.want {
				t.Errorf("EstimateActivity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRequiredJob(t *testing.T) {
	v1 := createActor("v1", 0)
	ctx := createSolution(v1)
	rc := addRoute(t, ctx, v1)
	setEndArrival(rc, 150)

	tests := []struct {
		name string
		job  model.Job
		want bool
	}{
		{
			name: "多活动任务总是需要",
			job:  model.NewMulti([]*model.Single{createJob(1), createJob(2)}, nil),
			want: true,
		},
		{
			name: "普通单任务总是需要",
			job:  createJob(1),
			want: true,
		},
		{
			name: "结束到达晚于窗口起点",
			job:  createBreak("v1", 0, nil, model.NewTimeWindow(100, 200)),
			want: true,
		},
		{
			name: "任一窗口起点早于结束到达即可",
			job:  createBreak("v1", 0, nil, model.NewTimeWindow(300, 400), model.NewTimeWindow(100, 120)),
			want: true,
		},
		{
			name: "窗口尚未开始",
			job:  createBreak("v1", 0, nil, model.NewTimeWindow(200, 300)),
			want: false,
		},
		{
			name: "到达时间等于窗口起点不满足严格大于",
			job:  createBreak("v1", 0, nil, model.NewTimeWindow(150, 180)),
			want: false,
		},
		{
			name: "没有对应车辆的路线",
			job:  createBreak("v2", 0, nil, model.NewTimeWindow(100, 200)),
			want: false,
		},
		{
			name: "班次不匹配",
			job:  createBreak("v1", 1, nil, model.NewTimeWindow(100, 200)),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRequiredJob(ctx, tt.job); got != tt.want {
				t.Errorf("isRequiredJob() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBreakModule_ClassificationFollowsEndArrival(t *testing.T) {
	v := createActor("V", 0)
	ctx := createSolution(v)
	rc := addRoute(t, ctx, v)
	bk := createBreak("V", 0, nil, model.NewTimeWindow(100, 200))
	ctx.Required = []model.Job{bk}

	module := NewBreakModule(breakCode, nil, false)

	// 100 < 50 不成立：路线还没跑到休息窗口，休息转为忽略
	setEndArrival(rc, 50)
	module.AcceptSolutionState(ctx)
	if len(ctx.Required) != 0 {
		t.Errorf("Expected no required jobs at arrival 50, got %d", len(ctx.Required))
	}
	if len(ctx.Ignored) != 1 || ctx.Ignored[0] != bk {
		t.Fatalf("Expected break to be ignored at arrival 50")
	}

	// 100 < 250：需要分配
	setEndArrival(rc, 250)
	module.AcceptSolutionState(ctx)
	if len(ctx.Required) != 1 || ctx.Required[0] != bk {
		t.Errorf("Expected break to be required at arrival 250, got required=%d", len(ctx.Required))
	}
	if len(ctx.Ignored) != 0 {
		t.Errorf("Expected ignored to be empty at arrival 250, got %d", len(ctx.Ignored))
	}

	// 到达时间恰好等于窗口起点时不需要
	setEndArrival(rc, 100)
	module.AcceptSolutionState(ctx)
	if len(ctx.Ignored) != 1 || ctx.Ignored[0] != bk {
		t.Errorf("Expected break to be ignored at arrival 100")
	}
}

func TestBreakModule_NoRouteMeansIgnored(t *testing.T) {
	ctx := createSolution(createActor("V", 0))
	bk := createBreak("V", 0, nil, model.NewTimeWindow(100, 200))
	job := createJob(1)
	ctx.Required = []model.Job{bk, job}

	NewBreakModule(breakCode, nil, false).AcceptSolutionState(ctx)

	if len(ctx.Required) != 1 || ctx.Required[0] != job {
		t.Errorf("Expected only served job to stay required")
	}
	if len(ctx.Ignored) != 1 || ctx.Ignored[0] != bk {
		t.Errorf("Expected break to be ignored without a route")
	}
}

func TestRemoveOrphanBreaks(t *testing.T) {
	tests := []struct {
		name        string
		jobLoc      model.Location
		breakLoc    model.Location
		breakFixed  *model.Location
		wantRemoved bool
	}{
		{
			name:        "与前一活动同址，保留",
			jobLoc:      5,
			breakLoc:    5,
			wantRemoved: false,
		},
		{
			name:        "与前一活动不同址且未指定位置，移除",
			jobLoc:      4,
			breakLoc:    5,
			wantRemoved: true,
		},
		{
			name:        "与前一活动不同址但指定了位置，保留",
			jobLoc:      4,
			breakLoc:    5,
			breakFixed:  loc(5),
			wantRemoved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := createActor("v1", 0)
			ctx := createSolution(actor)
			rc := addRoute(t, ctx, actor)

			job := createJob(tt.jobLoc)
			brk := createBreak("v1", 0, tt.breakFixed, model.NewTimeWindow(100, 200))
			jobActivity := visit(rc, job, tt.jobLoc)
			breakActivity := visit(rc, brk, tt.breakLoc)
			rc.State.PutActivity(1, jobActivity, "job")
			rc.State.PutActivity(2, breakActivity, "break")
			rc.MarkFresh()

			NewBreakModule(breakCode, nil, false).removeOrphanBreaks(ctx)

			removed := !rc.Route.Tour.HasJob(brk)
			if removed != tt.wantRemoved {
				t.Fatalf("Expected removed=%v, got %v", tt.wantRemoved, removed)
			}
			if removed {
				if len(ctx.Required) != 1 || ctx.Required[0] != brk {
					t.Error("Expected orphan break to be re-added to required")
				}
				if !rc.IsStale() {
					t.Error("Expected route to be marked stale after repair")
				}
				if _, ok := rc.State.GetActivity(2, breakActivity); ok {
					t.Error("Expected removed break activity state to be purged")
				}
				if keys := rc.State.Keys(); len(keys) != 1 || keys[0] != 1 {
					t.Errorf("Expected only job activity state key, got %v", keys)
				}
			} else {
				if len(ctx.Required) != 0 {
					t.Error("Expected required to stay empty")
				}
				if _, ok := rc.State.GetActivity(2, breakActivity); !ok {
					t.Error("Expected kept break activity state to remain")
				}
			}
			if _, ok := rc.State.GetActivity(1, jobActivity); !ok {
				t.Error("Expected job activity state to remain")
			}
			if !rc.Route.Tour.HasJob(job) {
				t.Error("Expected served job to stay in tour")
			}
		})
	}
}

func TestRemoveOrphanBreaks_Idempotent(t *testing.T) {
	actor := createActor("v1", 0)
	ctx := createSolution(actor)
	rc := addRoute(t, ctx, actor)

	job := createJob(1)
	b1 := createBreak("v1", 0, nil, model.NewTimeWindow(100, 200))
	b2 := createBreak("v1", 0, nil, model.NewTimeWindow(300, 400))
	b3 := createBreak("v1", 0, nil, model.NewTimeWindow(500, 600))
	visit(rc, job, 1)
	visit(rc, b1, 1) // 与前一活动同址
	visit(rc, b2, 2) // 孤立
	visit(rc, b3, 2) // 与 b2 同址，但 b2 移除后前一活动位于 1

	module := NewBreakModule(breakCode, nil, false)
	module.removeOrphanBreaks(ctx)

	if !rc.Route.Tour.HasJob(b1) || rc.Route.Tour.HasJob(b2) || rc.Route.Tour.HasJob(b3) {
		t.Fatal("Expected b1 kept, b2 and b3 removed in one pass")
	}

	required := append([]model.Job(nil), ctx.Required...)
	activities := rc.Route.Tour.ActivityCount()

	module.removeOrphanBreaks(ctx)

	if len(ctx.Required) != len(required) {
		t.Errorf("Expected required unchanged, got %d want %d", len(ctx.Required), len(required))
	}
	for i := range required {
		if ctx.Required[i] != required[i] {
			t.Error("Expected same required order")
		}
	}
	if rc.Route.Tour.ActivityCount() != activities {
		t.Error("Expected tour unchanged on second pass")
	}
}

func TestRemoveOrphanBreaks_Invariants(t *testing.T) {
	t.Run("休息有多个地点", func(t *testing.T) {
		actor := createActor("v1", 0)
		ctx := createSolution(actor)
		rc := addRoute(t, ctx, actor)

		brk := createBreak("v1", 0, nil)
		brk.Places = append(brk.Places, model.Place{})
		visit(rc, createJob(1), 1)
		visit(rc, brk, 1)

		expectPanic(t, apperrors.CodeInvariantViolation, func() {
			NewBreakModule(breakCode, nil, false).removeOrphanBreaks(ctx)
		})
	})

	t.Run("首个活动是休息", func(t *testing.T) {
		brk := createBreak("v1", 0, nil)
		rc := &state.RouteContext{
			Route: &model.Route{
				Actor: createActor("v1", 0),
				Tour:  model.NewTour(model.NewActivity(brk, model.ActivityPlace{}, model.Schedule{}), nil),
			},
			State: state.NewRouteState(),
		}
		ctx := createSolution()
		ctx.Routes = append(ctx.Routes, rc)

		expectPanic(t, apperrors.CodeInvariantViolation, func() {
			NewBreakModule(breakCode, nil, false).removeOrphanBreaks(ctx)
		})
	})
}

func TestBreakModule_DemoteUnassignedBreaks(t *testing.T) {
	tests := []struct {
		name   string
		demote bool
	}{
		{"开启降级", true},
		{"关闭降级", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := createSolution()
			brk := createBreak("v1", 0, nil, model.NewTimeWindow(100, 200))
			job := createJob(1)
			ctx.Unassigned[brk] = 3
			ctx.Unassigned[job] = 4

			NewBreakModule(breakCode, nil, tt.demote).AcceptSolutionState(ctx)

			if tt.demote {
				if _, ok := ctx.Unassigned[brk]; ok {
					t.Error("Expected break to leave unassigned")
				}
				if len(ctx.Ignored) != 1 || ctx.Ignored[0] != brk {
					t.Error("Expected break to be ignored")
				}
			} else {
				if ctx.Unassigned[brk] != 3 {
					t.Error("Expected unassigned to be untouched")
				}
				if len(ctx.Ignored) != 0 {
					t.Error("Expected ignored to stay empty")
				}
			}
			if ctx.Unassigned[job] != 4 {
				t.Error("Expected served job to stay unassigned")
			}
		})
	}
}

func TestBreakModule_RepairsSkippedWhileRequiredPending(t *testing.T) {
	actor := createActor("v1", 0)
	ctx := createSolution(actor)
	rc := addRoute(t, ctx, actor)

	pending := createJob(9)
	brk := createBreak("v1", 0, nil, model.NewTimeWindow(100, 200))
	visit(rc, createJob(4), 4)
	visit(rc, brk, 5)
	unassignedBreak := createBreak("v1", 0, nil, model.NewTimeWindow(300, 400))
	ctx.Required = []model.Job{pending}
	ctx.Unassigned[unassignedBreak] = 1

	NewBreakModule(breakCode, nil, true).AcceptSolutionState(ctx)

	if !rc.Route.Tour.HasJob(brk) {
		t.Error("Expected orphan repair to wait for an empty required list")
	}
	if _, ok := ctx.Unassigned[unassignedBreak]; !ok {
		t.Error("Expected demotion to wait for an empty required list")
	}
}

func TestBreakModule_PipelineKeepsPartition(t *testing.T) {
	actor := createActor("v1", 0)
	served := createJob(4)
	orphan := createBreak("v1", 0, nil, model.NewTimeWindow(100, 200))
	lost := createBreak("v1", 0, nil, model.NewTimeWindow(10, 20))
	other := createBreak("v9", 0, nil, model.NewTimeWindow(100, 200))
	problem := &model.Problem{
		Fleet: []*model.Actor{actor},
		Jobs:  []model.Job{served, orphan, lost, other},
	}

	ctx := state.NewSolutionContext(problem)
	rc := addRoute(t, ctx, actor)
	visit(rc, served, 4)
	visit(rc, orphan, 5)
	ctx.Required = []model.Job{}
	ctx.Ignored = []model.Job{other}
	ctx.Unassigned[lost] = 2

	pipeline := constraint.NewPipeline()
	if err := pipeline.AddModule(NewBreakModule(breakCode, nil, true)); err != nil {
		t.Fatalf("AddModule failed: %v", err)
	}

	pipeline.AcceptSolutionState(ctx)

	if err := ctx.CheckPartition(problem.Jobs); err != nil {
		t.Fatalf("Partition broken: %v", err)
	}
	if rc.Route.Tour.HasJob(orphan) {
		t.Error("Expected orphan break to be removed")
	}
	if len(ctx.Unassigned) != 0 {
		t.Error("Expected lost break to be demoted")
	}
	if rc.IsStale() {
		t.Error("Expected repaired route state to be accepted")
	}

	// 第二轮：路线尚未到达休息窗口，移回 Required 的孤立休息转为忽略，划分仍然成立
	pipeline.AcceptSolutionState(ctx)
	if err := ctx.CheckPartition(problem.Jobs); err != nil {
		t.Fatalf("Partition broken after second pass: %v", err)
	}
}

func TestBreakModule_Contract(t *testing.T) {
	extra := 1.0
	m := NewBreakModuleFromConfig(BreakConfig{Code: breakCode, ExtraCost: &extra, DemoteFromUnassigned: true})

	if len(m.StateKeys()) != 0 {
		t.Errorf("Expected no state keys, got %v", m.StateKeys())
	}
	if len(m.Constraints()) != 2 {
		t.Errorf("Expected 2 constraints, got %d", len(m.Constraints()))
	}
	if !m.demote {
		t.Error("Expected demotion to be enabled from config")
	}
	if m.Name() != "break" {
		t.Errorf("Unexpected name %q", m.Name())
	}
}
