package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	apperrors "github.com/paiban/routecore/pkg/errors"
	"github.com/paiban/routecore/pkg/logger"
	"github.com/paiban/routecore/pkg/model"
)

// FleetRepository 车队仓储，按车辆班次加载执行者
type FleetRepository struct {
	db DB
}

// NewFleetRepository 创建车队仓储
func NewFleetRepository(db DB) *FleetRepository {
	return &FleetRepository{db: db}
}

// ListActors 加载车队全部车辆班次，每个班次对应一个执行者
func (r *FleetRepository) ListActors(ctx context.Context, fleetID uuid.UUID) ([]*model.Actor, error) {
	query := `
		SELECT vehicle_id, shift_index, profile, start_location, end_location,
			shift_start, shift_end
		FROM vehicle_shifts
		WHERE fleet_id = $1 AND deleted_at IS NULL
		ORDER BY vehicle_id, shift_index
	`

	rows, err := r.db.QueryContext(ctx, query, fleetID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询车辆班次失败").
			WithField("fleet_id", fleetID.String())
	}
	defer rows.Close()

	actors, err := collectActors(rows)
	if err != nil {
		return nil, err
	}

	logger.WithComponent("repository").Info().
		Str("fleet_id", fleetID.String()).
		Int("actors", len(actors)).
		Msg("车队加载完成")

	return actors, nil
}

// SeedRegistry 加载车队并构建执行者注册表
func (r *FleetRepository) SeedRegistry(ctx context.Context, fleetID uuid.UUID) (*model.Registry, error) {
	actors, err := r.ListActors(ctx, fleetID)
	if err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return nil, apperrors.NotFound("fleet", fleetID.String())
	}
	return model.NewRegistry(actors), nil
}

func collectActors(rows Rows) ([]*model.Actor, error) {
	var actors []*model.Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "遍历车辆班次失败")
	}
	return actors, nil
}

// scanActor 扫描一行车辆班次，shift_end 早于 shift_start 时视为无效数据
func scanActor(s Scanner) (*model.Actor, error) {
	var (
		vehicleID  string
		shiftIndex int
		profile    string
		start      int64
		end        sql.NullInt64
		shiftStart float64
		shiftEnd   float64
	)

	if err := s.Scan(&vehicleID, &shiftIndex, &profile, &start, &end, &shiftStart, &shiftEnd); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描车辆班次失败")
	}

	if shiftEnd < shiftStart {
		return nil, apperrors.New(apperrors.CodeInvalidInput, "班次结束时间早于开始时间").
			WithField("vehicle_id", vehicleID).
			WithField("shift_index", shiftIndex)
	}

	detail := model.ActorDetail{
		Start: model.Location(start),
		Time:  model.NewTimeWindow(shiftStart, shiftEnd),
	}
	if end.Valid {
		loc := model.Location(end.Int64)
		detail.End = &loc
	}

	return &model.Actor{
		Vehicle: model.NewVehicle(vehicleID, shiftIndex, profile),
		Detail:  detail,
	}, nil
}
