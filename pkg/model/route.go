package model

// Vehicle 车辆，每个班次展开为一辆携带 shift_index 属性的车辆
type Vehicle struct {
	Profile    string
	Dimensions Dimensions
}

// NewVehicle 创建车辆
func NewVehicle(id string, shiftIndex int, profile string) *Vehicle {
	return &Vehicle{
		Profile:    profile,
		Dimensions: NewDimensions().SetString(DimenID, id).SetInt(DimenShiftIndex, shiftIndex),
	}
}

// ActorDetail 执行者的班次细节
type ActorDetail struct {
	Start Location
	// End 为 nil 表示开放式路线（不返回）
	End  *Location
	Time TimeWindow
}

// Actor 车辆与班次的组合，路线绑定到一个执行者
type Actor struct {
	Vehicle *Vehicle
	Detail  ActorDetail
}

// Route 绑定到执行者的行程
type Route struct {
	Actor *Actor
	Tour  *Tour
}

// NewRoute 按执行者班次创建只含出发（和返回）活动的路线
func NewRoute(actor *Actor) *Route {
	detail := actor.Detail
	start := &Activity{
		Place: ActivityPlace{
			Location: detail.Start,
			Time:     TimeWindow{Start: detail.Time.Start, End: detail.Time.End},
		},
		Schedule: Schedule{Arrival: detail.Time.Start, Departure: detail.Time.Start},
	}

	var end *Activity
	if detail.End != nil {
		end = &Activity{
			Place: ActivityPlace{
				Location: *detail.End,
				Time:     TimeWindow{Start: detail.Time.Start, End: detail.Time.End},
			},
			Schedule: Schedule{Arrival: detail.Time.Start, Departure: detail.Time.Start},
		}
	}

	return &Route{Actor: actor, Tour: NewTour(start, end)}
}

// DeepCopy 复制路线，执行者按引用共享
func (r *Route) DeepCopy() *Route {
	return &Route{Actor: r.Actor, Tour: r.Tour.DeepCopy()}
}
