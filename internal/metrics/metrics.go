// Package metrics 提供Prometheus监控指标
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry 专用的 Prometheus 注册表
	Registry = prometheus.NewRegistry()

	// HardViolations 按错误码统计硬约束拒绝次数
	HardViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routecore_hard_violations_total", Help: "硬约束拒绝次数"},
		[]string{"code", "stopped"},
	)

	// SolutionAcceptDuration 求解状态接受耗时
	SolutionAcceptDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "routecore_accept_solution_state_seconds",
			Help:    "求解状态接受（分类与修复）耗时",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	// JobsClassified 最近一次分类后的任务数量
	JobsClassified = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "routecore_jobs", Help: "各分类下的任务数"},
		[]string{"class"},
	)

	// BreakRepairs 休息修复次数
	BreakRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "routecore_break_repairs_total", Help: "休息修复（孤立移除/未分配降级）次数"},
		[]string{"kind"},
	)

	// FleetActors 预加载的执行者数量
	FleetActors = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "routecore_fleet_actors", Help: "预加载的车辆班次数"},
	)
)

var regOnce sync.Once

// RegisterDefault 将全部指标注册到 Registry
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HardViolations)
		Registry.MustRegister(SolutionAcceptDuration)
		Registry.MustRegister(JobsClassified)
		Registry.MustRegister(BreakRepairs)
		Registry.MustRegister(FleetActors)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// RecordHardViolation 记录一次硬约束拒绝
func RecordHardViolation(code int, stopped bool) {
	HardViolations.WithLabelValues(strconv.Itoa(code), strconv.FormatBool(stopped)).Inc()
}

// RecordClassification 记录分类后的任务数量
func RecordClassification(required, ignored, unassigned, assigned int) {
	JobsClassified.WithLabelValues("required").Set(float64(required))
	JobsClassified.WithLabelValues("ignored").Set(float64(ignored))
	JobsClassified.WithLabelValues("unassigned").Set(float64(unassigned))
	JobsClassified.WithLabelValues("assigned").Set(float64(assigned))
}

// RecordBreakRepair 记录休息修复
func RecordBreakRepair(kind string, count int) {
	if count <= 0 {
		return
	}
	BreakRepairs.WithLabelValues(kind).Add(float64(count))
}
