package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository"
)

type profileRow struct {
	ID                  string    `db:"id"`
	UserID              string    `db:"user_id"`
	Age                 int       `db:"age"`
	Gender              string    `db:"gender"`
	HeightInches        float64   `db:"height_inches"`
	Weight              float64   `db:"weight"`
	Goal                string    `db:"goal"`
	AvailableTime       string    `db:"available_time"`
	DietaryRestrictions *string   `db:"dietary_restrictions"`
	DietaryPreferences  *string   `db:"dietary_preferences"`
	CreatedAt           time.Time `db:"created_at"`
	UpdatedAt           time.Time `db:"updated_at"`
}

func (r profileRow) toDomain() (*domain.Profile, error) {
	id, err := primitive.ObjectIDFromHex(r.ID)
	if err != nil {
		return nil, err
	}
	userID, err := primitive.ObjectIDFromHex(r.UserID)
	if err != nil {
		return nil, err
	}
	return &domain.Profile{
		ID:                  id,
		UserID:              userID,
		Age:                 r.Age,
		Gender:              r.Gender,
		HeightInches:        r.HeightInches,
		Weight:              r.Weight,
		Goal:                domain.Goal(r.Goal),
		AvailableTime:       r.AvailableTime,
		DietaryRestrictions: r.DietaryRestrictions,
		DietaryPreferences:  r.DietaryPreferences,
		CreatedAt:           r.CreatedAt,
		UpdatedAt:           r.UpdatedAt,
	}, nil
}

type profileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository creates a SQL-backed repository.ProfileRepository.
func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func (r *profileRepository) Create(ctx context.Context, p *domain.Profile) (primitive.ObjectID, error) {
	p.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	query := `INSERT INTO profiles (id, user_id, age, gender, height_inches, weight, goal, available_time,
	                                dietary_restrictions, dietary_preferences, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.Hex(),
		p.UserID.Hex(),
		p.Age,
		p.Gender,
		p.HeightInches,
		p.Weight,
		string(p.Goal),
		p.AvailableTime,
		p.DietaryRestrictions,
		p.DietaryPreferences,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return primitive.NilObjectID, repository.ErrConflict
		}
		return primitive.NilObjectID, err
	}
	return p.ID, nil
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	var row profileRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM profiles WHERE user_id = $1`, userID.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (r *profileRepository) Update(ctx context.Context, p *domain.Profile) error {
	p.UpdatedAt = time.Now().UTC()

	query := `UPDATE profiles
	          SET age = $1, gender = $2, height_inches = $3, weight = $4, goal = $5, available_time = $6,
	              dietary_restrictions = $7, dietary_preferences = $8, updated_at = $9
	          WHERE id = $10 AND user_id = $11`
	result, err := r.db.ExecContext(ctx, query,
		p.Age,
		p.Gender,
		p.HeightInches,
		p.Weight,
		string(p.Goal),
		p.AvailableTime,
		p.DietaryRestrictions,
		p.DietaryPreferences,
		p.UpdatedAt,
		p.ID.Hex(),
		p.UserID.Hex(),
	)
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
