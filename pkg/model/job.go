package model

// Job 需要由车辆完成的任务
// 只有 *Single 和 *Multi 两种实现；任务构建后不可变，按指针判定同一性，
// 因此 Job 可以直接作为 map 的键
type Job interface {
	// Dimens 返回任务的属性包
	Dimens() Dimensions

	isJob()
}

// Place 任务的候选服务地点
type Place struct {
	// Location 固定位置，nil 表示继承前一个活动的位置
	Location *Location    `json:"location,omitempty"`
	Duration Duration     `json:"duration"`
	Times    []TimeWindow `json:"times"`
}

// Single 单活动任务
type Single struct {
	Places     []Place
	Dimensions Dimensions
}

// NewSingle 创建单活动任务
func NewSingle(places []Place, dimens Dimensions) *Single {
	if dimens == nil {
		dimens = NewDimensions()
	}
	return &Single{Places: places, Dimensions: dimens}
}

// Dimens 返回属性包
func (s *Single) Dimens() Dimensions { return s.Dimensions }

func (*Single) isJob() {}

// Multi 必须一起插入的有序单任务组
type Multi struct {
	Jobs       []*Single
	Dimensions Dimensions
}

// NewMulti 创建多活动任务
func NewMulti(jobs []*Single, dimens Dimensions) *Multi {
	if dimens == nil {
		dimens = NewDimensions()
	}
	return &Multi{Jobs: jobs, Dimensions: dimens}
}

// Dimens 返回属性包
func (m *Multi) Dimens() Dimensions { return m.Dimensions }

func (*Multi) isJob() {}

// AsSingle 若任务是单活动任务则返回之
func AsSingle(job Job) (*Single, bool) {
	s, ok := job.(*Single)
	return s, ok
}
