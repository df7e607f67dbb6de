package model

// ActivityPlace 活动选定的地点与时间窗口（插入时从任务复制）
type ActivityPlace struct {
	Location Location   `json:"location"`
	Duration Duration   `json:"duration"`
	Time     TimeWindow `json:"time"`
}

// Activity 路线中的一次访问
type Activity struct {
	Place    ActivityPlace `json:"place"`
	Schedule Schedule      `json:"schedule"`
	// Job 来源任务，出发/返回活动为 nil
	Job Job `json:"-"`
}

// NewActivity 创建任务活动
func NewActivity(job Job, place ActivityPlace, schedule Schedule) *Activity {
	return &Activity{Place: place, Schedule: schedule, Job: job}
}

// HasJob 检查活动是否关联任务
func (a *Activity) HasJob() bool {
	return a != nil && a.Job != nil
}

// DeepCopy 复制活动（任务按引用共享）
func (a *Activity) DeepCopy() *Activity {
	c := *a
	return &c
}
