package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository"
)

type planRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	ProfileID        string         `db:"profile_id"`
	PlanType         string         `db:"plan_type"`
	Content          string         `db:"plan_content"`
	IsActive         bool           `db:"is_active"`
	GenerationParams sql.NullString `db:"generation_params"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r planRow) toDomain() (domain.Plan, error) {
	var p domain.Plan
	var err error
	if p.ID, err = primitive.ObjectIDFromHex(r.ID); err != nil {
		return p, err
	}
	if p.UserID, err = primitive.ObjectIDFromHex(r.UserID); err != nil {
		return p, err
	}
	if p.ProfileID, err = primitive.ObjectIDFromHex(r.ProfileID); err != nil {
		return p, err
	}
	p.PlanType = domain.PlanType(r.PlanType)
	p.Content = json.RawMessage(r.Content)
	p.IsActive = r.IsActive
	p.CreatedAt = r.CreatedAt
	p.UpdatedAt = r.UpdatedAt
	if r.GenerationParams.Valid {
		var params domain.GenerationOptions
		if err := json.Unmarshal([]byte(r.GenerationParams.String), &params); err != nil {
			return p, fmt.Errorf("decode generation params: %w", err)
		}
		p.GenerationParams = &params
	}
	return p, nil
}

func toDomainPlans(rows []planRow) ([]domain.Plan, error) {
	plans := make([]domain.Plan, 0, len(rows))
	for _, row := range rows {
		p, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

// PlanRepository is the SQL plan store. It implements repository.PlanRepository
// and repository.PlanSuperseder.
type PlanRepository struct {
	db     *sqlx.DB
	driver string
}

var (
	_ repository.PlanRepository = (*PlanRepository)(nil)
	_ repository.PlanSuperseder = (*PlanRepository)(nil)
)

// NewPlanRepository creates a SQL-backed plan store.
func NewPlanRepository(db *sqlx.DB) *PlanRepository {
	return &PlanRepository{db: db, driver: db.DriverName()}
}

func (r *PlanRepository) FindActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	var rows []planRow
	query := `SELECT * FROM plans WHERE user_id = $1 AND plan_type = $2 AND is_active ORDER BY created_at DESC, id DESC`
	if err := r.db.SelectContext(ctx, &rows, query, userID.Hex(), string(planType)); err != nil {
		return nil, err
	}
	return toDomainPlans(rows)
}

func (r *PlanRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	var rows []planRow
	var err error
	if planType == "" {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM plans WHERE user_id = $1 ORDER BY created_at DESC, id DESC`, userID.Hex())
	} else {
		err = r.db.SelectContext(ctx, &rows,
			`SELECT * FROM plans WHERE user_id = $1 AND plan_type = $2 ORDER BY created_at DESC, id DESC`, userID.Hex(), string(planType))
	}
	if err != nil {
		return nil, err
	}
	return toDomainPlans(rows)
}

func (r *PlanRepository) GetByID(ctx context.Context, id, userID primitive.ObjectID) (*domain.Plan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM plans WHERE id = $1 AND user_id = $2`, id.Hex(), userID.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PlanRepository) Insert(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if err := insertPlan(ctx, r.db, plan); err != nil {
		return primitive.NilObjectID, err
	}
	return plan.ID, nil
}

// insertPlan works on both *sqlx.DB and *sqlx.Tx.
func insertPlan(ctx context.Context, ex sqlx.ExtContext, plan *domain.Plan) error {
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	var params sql.NullString
	if plan.GenerationParams != nil {
		b, err := json.Marshal(plan.GenerationParams)
		if err != nil {
			return err
		}
		params = sql.NullString{String: string(b), Valid: true}
	}

	query := `INSERT INTO plans (id, user_id, profile_id, plan_type, plan_content, is_active, generation_params, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := ex.ExecContext(ctx, query,
		plan.ID.Hex(),
		plan.UserID.Hex(),
		plan.ProfileID.Hex(),
		string(plan.PlanType),
		string(plan.Content),
		plan.IsActive,
		params,
		plan.CreatedAt,
		plan.UpdatedAt,
	)
	if err != nil {
		plan.ID = primitive.NilObjectID
		if isUniqueViolation(err) {
			return repository.ErrActiveConflict
		}
		return err
	}
	return nil
}

func (r *PlanRepository) UpdateContent(ctx context.Context, id, userID primitive.ObjectID, content json.RawMessage) error {
	query := `UPDATE plans SET plan_content = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, string(content), time.Now().UTC(), id.Hex(), userID.Hex())
	return affectedOne(result, err)
}

func (r *PlanRepository) SetActive(ctx context.Context, id, userID primitive.ObjectID, active bool) error {
	// Matching on ownership only keeps the call idempotent.
	query := `UPDATE plans SET is_active = $1, updated_at = $2 WHERE id = $3 AND user_id = $4`
	result, err := r.db.ExecContext(ctx, query, active, time.Now().UTC(), id.Hex(), userID.Hex())
	if isUniqueViolation(err) {
		return repository.ErrActiveConflict
	}
	return affectedOne(result, err)
}

func (r *PlanRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM plans WHERE id = $1 AND user_id = $2`, id.Hex(), userID.Hex())
	return affectedOne(result, err)
}

func (r *PlanRepository) BulkDeactivate(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (int64, error) {
	return deactivate(ctx, r.db, userID, planType)
}

func deactivate(ctx context.Context, ex sqlx.ExtContext, userID primitive.ObjectID, planType domain.PlanType) (int64, error) {
	query := `UPDATE plans SET is_active = $1, updated_at = $2 WHERE user_id = $3 AND plan_type = $4 AND is_active`
	result, err := ex.ExecContext(ctx, query, false, time.Now().UTC(), userID.Hex(), string(planType))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *PlanRepository) ListInconsistent(ctx context.Context) ([]repository.ActiveConflict, error) {
	var rows []struct {
		UserID   string `db:"user_id"`
		PlanType string `db:"plan_type"`
		Count    int    `db:"count"`
	}
	query := `SELECT user_id, plan_type, COUNT(*) AS count FROM plans
	          WHERE is_active GROUP BY user_id, plan_type HAVING COUNT(*) > 1`
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make([]repository.ActiveConflict, 0, len(rows))
	for _, row := range rows {
		userID, err := primitive.ObjectIDFromHex(row.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, repository.ActiveConflict{UserID: userID, PlanType: domain.PlanType(row.PlanType), Count: row.Count})
	}
	return out, nil
}

// Supersede implements repository.PlanSuperseder in a single transaction.
func (r *PlanRepository) Supersede(ctx context.Context, plan *domain.Plan, expectedActive primitive.ObjectID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT id FROM plans WHERE user_id = $1 AND plan_type = $2 AND is_active ORDER BY created_at DESC, id DESC`
	if r.driver == DriverPgx {
		query += ` FOR UPDATE`
	}
	var current []string
	if err := tx.SelectContext(ctx, &current, query, plan.UserID.Hex(), string(plan.PlanType)); err != nil {
		return err
	}

	currentID := primitive.NilObjectID
	if len(current) > 0 {
		if currentID, err = primitive.ObjectIDFromHex(current[0]); err != nil {
			return err
		}
	}
	if currentID != expectedActive {
		return repository.ErrActiveConflict
	}

	if _, err := deactivate(ctx, tx, plan.UserID, plan.PlanType); err != nil {
		return err
	}
	plan.IsActive = true
	if err := insertPlan(ctx, tx, plan); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		plan.ID = primitive.NilObjectID
		if isUniqueViolation(err) {
			return repository.ErrActiveConflict
		}
		return err
	}
	return nil
}

func affectedOne(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}
