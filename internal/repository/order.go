package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/order-intake/constants"
	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/entity"
)

// CreateOrderRequest wraps parameters for creating an order.
type CreateOrderRequest struct {
	FirstName        string
	LastName         string
	DateOfBirth      time.Time
	SourceFilename   string
	SourceSHA256     string
	ExtractionMethod constants.ExtractionMethod
	CreatedByUserID  *int64
}

type OrderRepository interface {
	Create(ctx context.Context, req *CreateOrderRequest) (*entity.Order, error)
	Get(ctx context.Context, id int64) (*entity.Order, error)
	List(ctx context.Context, skip, limit int) ([]*entity.Order, error)
	ListCreated(ctx context.Context, from, to *time.Time) ([]*entity.Order, error)
	Update(ctx context.Context, id int64, upd entity.OrderUpdate) (*entity.Order, error)
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	ExistsBySHA256(ctx context.Context, sum string) (bool, error)
}

type orderRepository struct {
	db     *DB
	logger *slog.Logger
	now    func() time.Time
}

func NewOrderRepository(db *DB, logger *slog.Logger) OrderRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &orderRepository{db: db, logger: logger, now: time.Now}
}

var orderColumns = []string{
	"id", "first_name", "last_name", "date_of_birth", "source_filename", "source_sha256",
	"extraction_method", "created_by_user_id", "created_at", "updated_at",
}

func scanOrder(rows *entsql.Rows) (*entity.Order, error) {
	var (
		o                     entity.Order
		dob                   time.Time
		filename, sum, method sql.NullString
		createdBy             sql.NullInt64
	)
	if err := rows.Scan(&o.ID, &o.FirstName, &o.LastName, &dob, &filename, &sum, &method, &createdBy, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.DateOfBirth = entity.NewDate(dob)
	o.SourceFilename = filename.String
	o.SourceSHA256 = sum.String
	o.ExtractionMethod = constants.ExtractionMethod(method.String)
	if createdBy.Valid {
		id := createdBy.Int64
		o.CreatedByUserID = &id
	}
	return &o, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (r *orderRepository) Create(ctx context.Context, req *CreateOrderRequest) (*entity.Order, error) {
	now := r.now().UTC()
	dob := entity.NewDate(req.DateOfBirth)
	var createdBy any
	if req.CreatedByUserID != nil {
		createdBy = *req.CreatedByUserID
	}

	ins := r.db.builder().Insert(OrdersTable.Name).
		Columns("first_name", "last_name", "date_of_birth", "source_filename", "source_sha256",
			"extraction_method", "created_by_user_id", "created_at", "updated_at").
		Values(req.FirstName, req.LastName, dob.Time, nullable(req.SourceFilename), nullable(req.SourceSHA256),
			nullable(string(req.ExtractionMethod)), createdBy, now, now)

	id, err := r.db.insert(ctx, ins)
	if err != nil {
		r.logger.Error("failed to create order", "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "create order")
	}
	return &entity.Order{
		ID:               id,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		DateOfBirth:      dob,
		SourceFilename:   req.SourceFilename,
		SourceSHA256:     req.SourceSHA256,
		ExtractionMethod: req.ExtractionMethod,
		CreatedByUserID:  req.CreatedByUserID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (*entity.Order, error) {
	sel := r.db.builder().Select(orderColumns...).
		From(entsql.Table(OrdersTable.Name)).
		Where(entsql.EQ("id", id))

	var found *entity.Order
	err := r.db.query(ctx, sel, func(rows *entsql.Rows) error {
		o, err := scanOrder(rows)
		found = o
		return err
	})
	if err != nil {
		r.logger.Error("failed to get order", "order_id", id, "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "get order")
	}
	if found == nil {
		return nil, common.NotFoundf("Order with id %d not found", id)
	}
	return found, nil
}

func (r *orderRepository) List(ctx context.Context, skip, limit int) ([]*entity.Order, error) {
	sel := r.db.builder().Select(orderColumns...).
		From(entsql.Table(OrdersTable.Name)).
		OrderBy(entsql.Asc("id")).
		Limit(limit).
		Offset(skip)

	var out []*entity.Order
	err := r.db.query(ctx, sel, func(rows *entsql.Rows) error {
		o, err := scanOrder(rows)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list orders", "skip", skip, "limit", limit, "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list orders")
	}
	if out == nil {
		out = []*entity.Order{}
	}
	return out, nil
}

// ListCreated returns orders created in [from, to), oldest first. Nil bounds are open.
func (r *orderRepository) ListCreated(ctx context.Context, from, to *time.Time) ([]*entity.Order, error) {
	sel := r.db.builder().Select(orderColumns...).
		From(entsql.Table(OrdersTable.Name)).
		OrderBy(entsql.Asc("id"))
	var preds []*entsql.Predicate
	if from != nil {
		preds = append(preds, entsql.GTE("created_at", from.UTC()))
	}
	if to != nil {
		preds = append(preds, entsql.LT("created_at", to.UTC()))
	}
	if len(preds) > 0 {
		sel.Where(entsql.And(preds...))
	}

	out := []*entity.Order{}
	err := r.db.query(ctx, sel, func(rows *entsql.Rows) error {
		o, err := scanOrder(rows)
		if err != nil {
			return err
		}
		out = append(out, o)
		return nil
	})
	if err != nil {
		r.logger.Error("failed to list orders by creation time", "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "list orders")
	}
	return out, nil
}

func (r *orderRepository) Update(ctx context.Context, id int64, upd entity.OrderUpdate) (*entity.Order, error) {
	if upd.Empty() {
		return r.Get(ctx, id)
	}
	ub := r.db.builder().Update(OrdersTable.Name).
		Set("updated_at", r.now().UTC()).
		Where(entsql.EQ("id", id))
	if upd.FirstName != nil {
		ub.Set("first_name", *upd.FirstName)
	}
	if upd.LastName != nil {
		ub.Set("last_name", *upd.LastName)
	}
	if upd.DateOfBirth != nil {
		ub.Set("date_of_birth", upd.DateOfBirth.Time)
	}

	n, err := r.db.exec(ctx, ub)
	if err != nil {
		r.logger.Error("failed to update order", "order_id", id, "error", err)
		return nil, common.WrapError(errors.Join(common.ErrDatabase, err), "update order")
	}
	if n == 0 {
		return nil, common.NotFoundf("Order with id %d not found", id)
	}
	return r.Get(ctx, id)
}

func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	n, err := r.db.exec(ctx, r.db.builder().Delete(OrdersTable.Name).Where(entsql.EQ("id", id)))
	if err != nil {
		r.logger.Error("failed to delete order", "order_id", id, "error", err)
		return common.WrapError(errors.Join(common.ErrDatabase, err), "delete order")
	}
	if n == 0 {
		return common.NotFoundf("Order with id %d not found", id)
	}
	return nil
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	sel := r.db.builder().Select(entsql.Count("*")).From(entsql.Table(OrdersTable.Name))
	var n int
	err := r.db.query(ctx, sel, func(rows *entsql.Rows) error { return rows.Scan(&n) })
	if err != nil {
		return 0, common.WrapError(errors.Join(common.ErrDatabase, err), "count orders")
	}
	return n, nil
}

func (r *orderRepository) ExistsBySHA256(ctx context.Context, sum string) (bool, error) {
	sel := r.db.builder().Select("id").
		From(entsql.Table(OrdersTable.Name)).
		Where(entsql.EQ("source_sha256", sum)).
		Limit(1)
	var found bool
	err := r.db.query(ctx, sel, func(*entsql.Rows) error {
		found = true
		return nil
	})
	if err != nil {
		return false, common.WrapError(errors.Join(common.ErrDatabase, err), "lookup order by hash")
	}
	return found, nil
}
