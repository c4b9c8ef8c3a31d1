package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pumpdesk/shift-manager/backend/internal/config"
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

type Repository struct {
	cfg    *config.Config
	dbpool *sql.DB
}

func NewRepository(cfg *config.Config, dbpool *sql.DB) *Repository {
	return &Repository{
		cfg:    cfg,
		dbpool: dbpool,
	}
}

// querier 是 *sql.DB 和 *sql.Tx 的公共部分
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type txCtxKey struct{}

// querier 如果 ctx 中带有事务则使用事务，否则使用连接池
func (r *Repository) querier(ctx context.Context) querier {
	if tx, ok := ctx.Value(txCtxKey{}).(*sql.Tx); ok {
		return tx
	}
	return r.dbpool
}

func (r *Repository) inTx(ctx context.Context) bool {
	_, ok := ctx.Value(txCtxKey{}).(*sql.Tx)
	return ok
}

func (r *Repository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
}

// WithinTx 在一个可串行化事务中执行 fn，fn 中的所有 repository 调用都会使用这个事务
// 如果 ctx 中已经存在事务，则直接复用
func (r *Repository) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.inTx(ctx) {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(context.WithValue(ctx, txCtxKey{}, tx)); err != nil {
		return mapError(err)
	}

	if err := tx.Commit(); err != nil {
		return mapError(err)
	}

	return nil
}

// mapError 把数据库错误转换为领域错误
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return domain.NewConcurrencyError("数据已被其他请求修改，请重试", err)
		case "23505":
			switch pgErr.ConstraintName {
			case "shift_templates_location_name_key":
				return domain.NewConflictError("同一站点下模板名称已存在", nil)
			}
		case "23P01":
			switch pgErr.ConstraintName {
			case "shifts_no_overlap":
				return domain.NewConcurrencyError("员工在该时间段已有其他班次", err)
			case "schedule_periods_no_overlap":
				return domain.NewConcurrencyError("该站点的排班周期与已有周期重叠", err)
			default:
				return domain.NewConcurrencyError("写入时发生冲突", err)
			}
		}
	}

	return err
}

// errVersionMismatch 用于乐观锁更新时没有匹配到对应版本的情况
var errVersionMismatch = domain.NewConcurrencyError("数据已被其他请求修改，请刷新后重试", nil)
