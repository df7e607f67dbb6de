package model

// Registry 记录执行者（车辆/班次）的占用情况
type Registry struct {
	actors []*Actor
	used   map[*Actor]bool
}

// NewRegistry 创建资源登记表
func NewRegistry(actors []*Actor) *Registry {
	r := &Registry{
		actors: make([]*Actor, len(actors)),
		used:   make(map[*Actor]bool, len(actors)),
	}
	copy(r.actors, actors)
	return r
}

// Use 占用执行者，若未登记或已被占用返回 false
func (r *Registry) Use(actor *Actor) bool {
	if !r.Contains(actor) || r.used[actor] {
		return false
	}
	r.used[actor] = true
	return true
}

// Free 释放执行者
func (r *Registry) Free(actor *Actor) {
	delete(r.used, actor)
}

// IsUsed 检查执行者是否已被占用
func (r *Registry) IsUsed(actor *Actor) bool {
	return r.used[actor]
}

// Contains 检查执行者是否已登记
func (r *Registry) Contains(actor *Actor) bool {
	for _, a := range r.actors {
		if a == actor {
			return true
		}
	}
	return false
}

// Available 按登记顺序返回未占用的执行者
func (r *Registry) Available() []*Actor {
	var result []*Actor
	for _, a := range r.actors {
		if !r.used[a] {
			result = append(result, a)
		}
	}
	return result
}

// All 返回全部已登记执行者
func (r *Registry) All() []*Actor {
	result := make([]*Actor, len(r.actors))
	copy(result, r.actors)
	return result
}

// DeepCopy 复制登记表（执行者按引用共享）
func (r *Registry) DeepCopy() *Registry {
	c := NewRegistry(r.actors)
	for a, u := range r.used {
		c.used[a] = u
	}
	return c
}
