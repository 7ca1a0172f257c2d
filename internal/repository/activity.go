package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
)

type ActivityRepository interface {
	Record(ctx context.Context, entry *entity.ActivityLog) error
	Recent(ctx context.Context, limit int) ([]*entity.ActivityLog, error)
}

type activityRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewActivityRepository(db *DB, logger *slog.Logger) ActivityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &activityRepository{db: db, logger: logger, now: time.Now}
}

func (r *activityRepository) Record(ctx context.Context, e *entity.ActivityLog) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}
	var userID any
	if e.UserID != nil {
		userID = *e.UserID
	}
	ins := r.db.builder().Insert(ActivityLogsTable.Name).
		Columns("request_id", "method", "endpoint", "status_code", "request_body", "response_body",
			"ip_address", "user_agent", "duration_ms", "created_at", "user_id").
		Values(e.RequestID, e.Method, e.Endpoint, e.StatusCode, nullable(e.RequestBody), nullable(e.ResponseBody),
			nullable(e.IPAddress), nullable(e.UserAgent), e.DurationMS, e.CreatedAt, userID)

	id, err := r.db.insert(ctx, ins)
	if err != nil {
		return common.WrapError(errors.Join(common.ErrDatabase, err), "record activity")
	}
	e.ID = id
	return nil
}

// Recent returns the newest entries first.
func (r *activityRepository) Recent(ctx context.Context, limit int) ([]*entity.ActivityLog, error) {
	sel := r.db.builder().Select("id", "request_id", "method", "endpoint", "status_code", "request_body",
		"response_body", "ip_address", "user_agent", "duration_ms", "created_at", "user_id").
		From(entsql.Table(ActivityLogsTable.Name)).
		OrderBy(entsql.Desc("id")).
		Limit(limit)

	var out []*entity.ActivityLog
	err := r.db.query(ctx, sel, func(rows *entsql.Rows) error {
		var (
			e                         entity.ActivityLog
			reqBody, respBody, ip, ua sql.NullString
			userID                    sql.NullInt64
		)
		if err := rows.Scan(&e.ID, &e.RequestID, &e.Method, &e.Endpoint, &e.StatusCode, &reqBody, &respBody,
			&ip, &ua, &e.DurationMS, &e.CreatedAt, &userID); err != nil {
			return err
		}
		e.RequestBody, e.ResponseBody, e.IPAddress, e.UserAgent = reqBody.String, respBody.String, ip.String, ua.String
		if userID.Valid {
			id := userID.Int64
			e.UserID = &id
		}
		out = append(out, &e)
		return nil
	})
	if err != nil {
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list activity")
	}
	return out, nil
}
