package state

import (
	"sort"

	"github.com/paiban/routecore/pkg/model"
)

type activityKey struct {
	key      int
	activity *model.Activity
}

// RouteState 路线级缓存状态，约束模块按状态键读写，避免重复计算
type RouteState struct {
	route    map[int]interface{}
	activity map[activityKey]interface{}
}

// NewRouteState 创建空的路线状态
func NewRouteState() *RouteState {
	return &RouteState{
		route:    make(map[int]interface{}),
		activity: make(map[activityKey]interface{}),
	}
}

// Get 获取路线级状态
func (s *RouteState) Get(key int) (interface{}, bool) {
	v, ok := s.route[key]
	return v, ok
}

// Put 写入路线级状态
func (s *RouteState) Put(key int, value interface{}) {
	s.route[key] = value
}

// GetActivity 获取活动级状态
func (s *RouteState) GetActivity(key int, activity *model.Activity) (interface{}, bool) {
	v, ok := s.activity[activityKey{key: key, activity: activity}]
	return v, ok
}

// PutActivity 写入活动级状态
func (s *RouteState) PutActivity(key int, activity *model.Activity, value interface{}) {
	s.activity[activityKey{key: key, activity: activity}] = value
}

// RemoveActivity 删除活动的全部状态
func (s *RouteState) RemoveActivity(activity *model.Activity) {
	for k := range s.activity {
		if k.activity == activity {
			delete(s.activity, k)
		}
	}
}

// Invalidate 删除指定键的路线级与活动级状态
func (s *RouteState) Invalidate(keys ...int) {
	drop := make(map[int]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
		delete(s.route, k)
	}
	for k := range s.activity {
		if _, ok := drop[k.key]; ok {
			delete(s.activity, k)
		}
	}
}

// Keys 返回已写入的状态键（升序）
func (s *RouteState) Keys() []int {
	seen := make(map[int]struct{})
	for k := range s.route {
		seen[k] = struct{}{}
	}
	for k := range s.activity {
		seen[k.key] = struct{}{}
	}

	keys := make([]int, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// DeepCopy 复制状态（值本身按原样共享）
func (s *RouteState) DeepCopy() *RouteState {
	return s.copyWith(nil)
}

// copyWith 复制状态，活动级状态按 mapping 迁移到新的活动上
func (s *RouteState) copyWith(mapping map[*model.Activity]*model.Activity) *RouteState {
	c := NewRouteState()
	for k, v := range s.route {
		c.route[k] = v
	}
	for k, v := range s.activity {
		if mapping != nil {
			target, ok := mapping[k.activity]
			if !ok {
				continue
			}
			k.activity = target
		}
		c.activity[k] = v
	}
	return c
}
