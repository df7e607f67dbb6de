package model

// Problem 不可变的问题定义（由外部读取器构建）
type Problem struct {
	Fleet []*Actor
	Jobs  []Job
}

// NewRegistry 基于车队创建资源登记表
func (p *Problem) NewRegistry() *Registry {
	return NewRegistry(p.Fleet)
}
