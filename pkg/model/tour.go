package model

// Tour 路线上的有序活动序列
type Tour struct {
	activities []*Activity
	jobs       []Job
	index      map[Job]struct{}
	closed     bool
}

// NewTour 创建行程，start 为出发活动，end 为 nil 表示开放式行程
func NewTour(start, end *Activity) *Tour {
	t := &Tour{
		activities: []*Activity{start},
		index:      make(map[Job]struct{}),
	}
	if end != nil {
		t.activities = append(t.activities, end)
		t.closed = true
	}
	return t
}

// Insert 在指定位置插入活动，位置越界时插入到可插入的最后位置
func (t *Tour) Insert(activity *Activity, index int) {
	last := len(t.activities)
	if t.closed {
		last--
	}
	if index < 1 {
		index = 1
	}
	if index > last {
		index = last
	}

	t.activities = append(t.activities, nil)
	copy(t.activities[index+1:], t.activities[index:])
	t.activities[index] = activity

	if activity.Job != nil {
		if _, ok := t.index[activity.Job]; !ok {
			t.index[activity.Job] = struct{}{}
			t.jobs = append(t.jobs, activity.Job)
		}
	}
}

// InsertLast 在返回活动之前（或开放式行程末尾）插入活动
func (t *Tour) InsertLast(activity *Activity) {
	t.Insert(activity, len(t.activities))
}

// Remove 移除任务的全部活动，返回是否有活动被移除
func (t *Tour) Remove(job Job) bool {
	if _, ok := t.index[job]; !ok {
		return false
	}

	kept := t.activities[:0]
	for _, a := range t.activities {
		if a.Job != job {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(t.activities); i++ {
		t.activities[i] = nil
	}
	t.activities = kept

	delete(t.index, job)
	for i, j := range t.jobs {
		if j == job {
			t.jobs = append(t.jobs[:i], t.jobs[i+1:]...)
			break
		}
	}
	return true
}

// Start 返回出发活动
func (t *Tour) Start() *Activity {
	if len(t.activities) == 0 {
		return nil
	}
	return t.activities[0]
}

// End 返回最后一个活动
func (t *Tour) End() *Activity {
	if len(t.activities) == 0 {
		return nil
	}
	return t.activities[len(t.activities)-1]
}

// Get 返回指定位置的活动，越界返回 nil
func (t *Tour) Get(index int) *Activity {
	if index < 0 || index >= len(t.activities) {
		return nil
	}
	return t.activities[index]
}

// All 返回全部活动，调用方不得修改返回的切片
func (t *Tour) All() []*Activity {
	return t.activities
}

// Jobs 按插入顺序返回行程中的任务
func (t *Tour) Jobs() []Job {
	result := make([]Job, len(t.jobs))
	copy(result, t.jobs)
	return result
}

// HasJob 检查任务是否在行程中
func (t *Tour) HasJob(job Job) bool {
	_, ok := t.index[job]
	return ok
}

// HasJobs 检查行程是否包含任务
func (t *Tour) HasJobs() bool {
	return len(t.jobs) > 0
}

// ActivityCount 返回活动数量
func (t *Tour) ActivityCount() int {
	return len(t.activities)
}

// JobCount 返回任务数量
func (t *Tour) JobCount() int {
	return len(t.jobs)
}

// IsClosed 检查行程是否有返回活动
func (t *Tour) IsClosed() bool {
	return t.closed
}

// DeepCopy 复制行程（任务按引用共享）
func (t *Tour) DeepCopy() *Tour {
	c := &Tour{
		activities: make([]*Activity, len(t.activities)),
		jobs:       make([]Job, len(t.jobs)),
		index:      make(map[Job]struct{}, len(t.index)),
		closed:     t.closed,
	}
	for i, a := range t.activities {
		c.activities[i] = a.DeepCopy()
	}
	copy(c.jobs, t.jobs)
	for j := range t.index {
		c.index[j] = struct{}{}
	}
	return c
}
