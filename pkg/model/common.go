// Package model 定义路径规划核心使用的领域模型
package model

import "math"

// Timestamp 时间点（相对规划起点的秒数）
type Timestamp = float64

// Duration 时长（秒）
type Duration = float64

// Cost 成本
type Cost = float64

// Location 位置索引（指向路网距离矩阵）
type Location = int

// TimeWindow 时间窗口 [Start, End]
type TimeWindow struct {
	Start Timestamp `json:"start" yaml:"start"`
	End   Timestamp `json:"end" yaml:"end"`
}

// NewTimeWindow 创建时间窗口
func NewTimeWindow(start, end Timestamp) TimeWindow {
	return TimeWindow{Start: start, End: end}
}

// MaxTimeWindow 返回覆盖全部时间的窗口
func MaxTimeWindow() TimeWindow {
	return TimeWindow{Start: 0, End: math.MaxFloat64}
}

// Intersects 检查两个时间窗口是否相交
func (tw TimeWindow) Intersects(other TimeWindow) bool {
	return tw.Start <= other.End && other.Start <= tw.End
}

// Contains 检查时间点是否在窗口内
func (tw TimeWindow) Contains(t Timestamp) bool {
	return t >= tw.Start && t <= tw.End
}

// Duration 返回窗口时长
func (tw TimeWindow) Duration() Duration {
	return tw.End - tw.Start
}

// Schedule 活动的到达/离开时间
type Schedule struct {
	Arrival   Timestamp `json:"arrival"`
	Departure Timestamp `json:"departure"`
}
