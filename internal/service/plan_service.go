package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/config"
	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/generator"
	"nutribyte/fitness-app/internal/metrics"
	"nutribyte/fitness-app/internal/repository"
	"nutribyte/fitness-app/internal/storage"
)

// GenerateRequest asks for the active plan of PlanType, generating one when
// none exists or when Regenerate is set.
type GenerateRequest struct {
	PlanType   domain.PlanType
	Regenerate bool
	Options    domain.GenerationOptions
}

// PlanExport points at an uploaded copy of a plan.
type PlanExport struct {
	Key       string    `json:"key"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RepairReport describes what RepairInconsistentState changed.
type RepairReport struct {
	UserID         primitive.ObjectID   `json:"userId"`
	PlanType       domain.PlanType      `json:"planType"`
	ActiveBefore   int                  `json:"activeBefore"`
	KeptPlanID     *primitive.ObjectID  `json:"keptPlanId,omitempty"`
	Deactivated    []primitive.ObjectID `json:"deactivated"`
	RestoredPlanID *primitive.ObjectID  `json:"restoredPlanId,omitempty"`
}

// --- Service Interface ---

// PlanService is the plan lifecycle controller. It is the only writer of the
// active flag and keeps at most one active plan per user and plan type.
type PlanService interface {
	EnsureActive(ctx context.Context, userID primitive.ObjectID, req GenerateRequest) (*domain.Plan, error)
	GetActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (*domain.Plan, error)
	ListPlans(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error)
	GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, error)
	UpdateContent(ctx context.Context, userID, planID primitive.ObjectID, content json.RawMessage) (*domain.Plan, error)
	SetActive(ctx context.Context, userID, planID primitive.ObjectID, active bool) error
	Deactivate(ctx context.Context, userID, planID primitive.ObjectID) error
	Delete(ctx context.Context, userID, planID primitive.ObjectID) error
	ExportPlan(ctx context.Context, userID, planID primitive.ObjectID) (*PlanExport, error)
	RepairInconsistentState(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType, restoreID *primitive.ObjectID) (*RepairReport, error)
	RepairAll(ctx context.Context) ([]RepairReport, error)
}

// PlanServiceOption configures optional collaborators of the plan service.
type PlanServiceOption func(*planService)

// WithStorage enables plan exports.
func WithStorage(fs storage.FileStorage, presignExpiry time.Duration) PlanServiceOption {
	return func(s *planService) {
		s.storage = fs
		if presignExpiry > 0 {
			s.presignExpiry = presignExpiry
		}
	}
}

// WithMetrics records lifecycle operations on m.
func WithMetrics(m *metrics.Metrics) PlanServiceOption {
	return func(s *planService) { s.metrics = m }
}

// WithPlanLogger sets the logger used by the plan service.
func WithPlanLogger(l *slog.Logger) PlanServiceOption {
	return func(s *planService) { s.logger = l }
}

// --- Service Implementation ---

type planService struct {
	planRepo    repository.PlanRepository
	profileRepo repository.ProfileRepository
	generator   generator.Generator

	storage       storage.FileStorage
	presignExpiry time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger

	insertAttempts int
	insertBackoff  time.Duration
	locks          *keyLocks
}

// NewPlanService creates a new instance of planService.
func NewPlanService(
	planRepo repository.PlanRepository,
	profileRepo repository.ProfileRepository,
	gen generator.Generator,
	cfg config.PlannerConfig,
	opts ...PlanServiceOption,
) PlanService {
	s := &planService{
		planRepo:       planRepo,
		profileRepo:    profileRepo,
		generator:      gen,
		presignExpiry:  storage.DefaultPresignedURLExpiry,
		logger:         slog.Default(),
		insertAttempts: cfg.InsertAttempts,
		insertBackoff:  cfg.InsertBackoff,
		locks:          newKeyLocks(),
	}
	if s.insertAttempts < 1 {
		s.insertAttempts = 1
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func lockKey(userID primitive.ObjectID, planType domain.PlanType) string {
	return userID.Hex() + ":" + string(planType)
}

func planErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPlanNotFound
	}
	return err
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// EnsureActive returns the active plan of req.PlanType, generating and
// storing a new one when there is none or when regeneration is requested.
// A failed generation leaves the previous active plan untouched.
func (s *planService) EnsureActive(ctx context.Context, userID primitive.ObjectID, req GenerateRequest) (plan *domain.Plan, err error) {
	result := "generated"
	defer func() {
		if err != nil {
			result = "error"
		}
		s.metrics.LifecycleOp("ensure_active", result)
	}()

	// 1. Validate Input
	if !req.PlanType.Valid() {
		return nil, ErrInvalidPlanType
	}

	// 2. Serialize with other writers of this user's plan type
	unlock, err := s.locks.Lock(ctx, lockKey(userID, req.PlanType))
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 3. Fast path: reuse the active plan
	current, _, err := s.resolveActive(ctx, userID, req.PlanType)
	if err != nil {
		return nil, err
	}
	if current != nil && !req.Regenerate {
		result = "reused"
		return current, nil
	}

	// 4. Generate from the stored profile
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileRequired
		}
		return nil, err
	}

	options := req.Options
	var content json.RawMessage
	switch req.PlanType {
	case domain.PlanTypeWorkout:
		content, err = s.generator.GenerateWorkout(ctx, domain.WorkoutParams{
			Goal:          profile.Goal,
			AvailableTime: profile.AvailableTime,
			Gender:        profile.Gender,
			Level:         options.Level,
			Notes:         options.AdditionalRequirements,
		})
		options.MealTimes, options.Cuisine = nil, ""
	case domain.PlanTypeNutrition:
		content, err = s.generator.GenerateNutrition(ctx, domain.NutritionParams{
			Goal:                profile.Goal,
			DietaryRestrictions: deref(profile.DietaryRestrictions),
			DietaryPreferences:  deref(profile.DietaryPreferences),
			MealTimes:           options.MealTimes,
			Cuisine:             options.Cuisine,
			Notes:               options.AdditionalRequirements,
		})
		options.Level = ""
	}
	if err != nil {
		s.logger.WarnContext(ctx, "Plan generation failed, keeping current plan",
			"userId", userID.Hex(), "planType", req.PlanType, "error", err)
		return nil, err
	}

	// 5. Replace the active plan
	newPlan := &domain.Plan{
		UserID:           userID,
		ProfileID:        profile.ID,
		PlanType:         req.PlanType,
		Content:          content,
		IsActive:         true,
		GenerationParams: &options,
	}
	var priorID primitive.ObjectID
	if current != nil {
		priorID = current.ID
	}

	if sup, ok := s.planRepo.(repository.PlanSuperseder); ok {
		err = s.supersede(ctx, sup, newPlan, priorID)
	} else {
		err = s.deactivateThenInsert(ctx, newPlan)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist generated plan",
			"userId", userID.Hex(), "planType", req.PlanType, "priorActivePlanId", priorID.Hex(), "error", err)
		return nil, &StorePersistenceError{PriorActiveID: priorID, Err: err}
	}

	s.logger.InfoContext(ctx, "Plan generated",
		"userId", userID.Hex(), "planType", req.PlanType, "planId", newPlan.ID.Hex(), "supersededPlanId", priorID.Hex())
	return newPlan, nil
}

// retryPolicy bounds store retries to planner.insert_attempts calls in total.
func (s *planService) retryPolicy(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.insertBackoff
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.insertAttempts-1)), ctx)
}

// supersede swaps the active plan in one store operation. A lost
// compare-and-swap re-reads the active plan and tries again; any other
// store error ends the attempt.
func (s *planService) supersede(ctx context.Context, sup repository.PlanSuperseder, plan *domain.Plan, expected primitive.ObjectID) error {
	attempt := 0
	op := func() error {
		attempt++
		if attempt > 1 {
			current, _, err := s.resolveActive(ctx, plan.UserID, plan.PlanType)
			if err != nil {
				return backoff.Permanent(err)
			}
			expected = primitive.NilObjectID
			if current != nil {
				expected = current.ID
			}
		}

		plan.ID = primitive.NilObjectID
		err := sup.Supersede(ctx, plan, expected)
		if err != nil && !errors.Is(err, repository.ErrActiveConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.RetryNotify(op, s.retryPolicy(ctx), func(err error, next time.Duration) {
		s.metrics.InsertRetry()
		s.logger.WarnContext(ctx, "Active plan changed underneath, retrying",
			"userId", plan.UserID.Hex(), "planType", plan.PlanType, "attempt", attempt, "backoff", next)
	})
}

// deactivateThenInsert is used with stores that cannot swap atomically. The
// deactivation always completes before the insert is attempted, and is run
// again when an insert reports a conflicting active plan.
func (s *planService) deactivateThenInsert(ctx context.Context, plan *domain.Plan) error {
	if _, err := s.planRepo.BulkDeactivate(ctx, plan.UserID, plan.PlanType); err != nil {
		return fmt.Errorf("deactivate current plans: %w", err)
	}

	attempt := 0
	var lastErr error
	op := func() error {
		attempt++
		if errors.Is(lastErr, repository.ErrActiveConflict) {
			if _, err := s.planRepo.BulkDeactivate(ctx, plan.UserID, plan.PlanType); err != nil {
				return backoff.Permanent(fmt.Errorf("deactivate current plans: %w", err))
			}
		}

		plan.ID = primitive.NilObjectID
		id, err := s.planRepo.Insert(ctx, plan)
		if err != nil {
			lastErr = err
			return err
		}
		plan.ID = id
		return nil
	}

	err := backoff.RetryNotify(op, s.retryPolicy(ctx), func(err error, next time.Duration) {
		s.metrics.InsertRetry()
		s.logger.WarnContext(ctx, "Plan insert failed after deactivation, retrying",
			"userId", plan.UserID.Hex(), "planType", plan.PlanType, "attempt", attempt, "backoff", next, "error", err)
	})
	if err != nil {
		return fmt.Errorf("insert plan after %d attempts: %w", attempt, err)
	}
	return nil
}

// resolveActive returns the active plan of planType, or nil when there is
// none. Extra active plans are logged and deactivated, keeping the newest.
func (s *planService) resolveActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (*domain.Plan, []primitive.ObjectID, error) {
	active, err := s.planRepo.FindActive(ctx, userID, planType)
	if err != nil {
		return nil, nil, err
	}
	if len(active) == 0 {
		return nil, nil, nil
	}
	if len(active) == 1 {
		return &active[0], nil, nil
	}

	s.metrics.InconsistentActive(string(planType))
	s.logger.WarnContext(ctx, "Repairing inconsistent active state",
		"userId", userID.Hex(), "planType", planType, "active", len(active),
		"keptPlanId", active[0].ID.Hex(), "error", ErrInconsistentActiveState)

	deactivated := make([]primitive.ObjectID, 0, len(active)-1)
	for _, p := range active[1:] {
		if err := s.planRepo.SetActive(ctx, p.ID, userID, false); err != nil {
			return nil, deactivated, fmt.Errorf("deactivate plan %s: %w", p.ID.Hex(), err)
		}
		deactivated = append(deactivated, p.ID)
	}
	return &active[0], deactivated, nil
}

// GetActive returns the active plan of planType.
func (s *planService) GetActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (*domain.Plan, error) {
	if !planType.Valid() {
		return nil, ErrInvalidPlanType
	}
	unlock, err := s.locks.Lock(ctx, lockKey(userID, planType))
	if err != nil {
		return nil, err
	}
	defer unlock()

	plan, _, err := s.resolveActive(ctx, userID, planType)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

// ListPlans returns the plan history of userID, newest first. An empty
// planType lists every type.
func (s *planService) ListPlans(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	if planType != "" && !planType.Valid() {
		return nil, ErrInvalidPlanType
	}
	return s.planRepo.ListByUser(ctx, userID, planType)
}

func (s *planService) GetPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, planID, userID)
	if err != nil {
		return nil, planErr(err)
	}
	return plan, nil
}

// lockPlan loads an owned plan and takes the lock of its plan type.
func (s *planService) lockPlan(ctx context.Context, userID, planID primitive.ObjectID) (*domain.Plan, func(), error) {
	plan, err := s.planRepo.GetByID(ctx, planID, userID)
	if err != nil {
		return nil, nil, planErr(err)
	}
	unlock, err := s.locks.Lock(ctx, lockKey(userID, plan.PlanType))
	if err != nil {
		return nil, nil, err
	}
	return plan, unlock, nil
}

// UpdateContent replaces the content of an owned plan wholesale. The bytes are
// stored exactly as given once they pass schema validation. The active flag
// is left unchanged.
func (s *planService) UpdateContent(ctx context.Context, userID, planID primitive.ObjectID, content json.RawMessage) (plan *domain.Plan, err error) {
	defer func() { s.metrics.LifecycleOp("update_content", outcome(err)) }()

	// 1. Ownership
	plan, unlock, err := s.lockPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 2. Schema
	if err := s.generator.ValidateContent(plan.PlanType, content); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	// 3. Write
	if err := s.planRepo.UpdateContent(ctx, planID, userID, content); err != nil {
		return nil, planErr(err)
	}
	return s.GetPlan(ctx, userID, planID)
}

// SetActive deactivates a plan, or confirms that it is already active.
// Inactive plans are never reactivated.
func (s *planService) SetActive(ctx context.Context, userID, planID primitive.ObjectID, active bool) (err error) {
	if !active {
		return s.Deactivate(ctx, userID, planID)
	}
	defer func() { s.metrics.LifecycleOp("activate", outcome(err)) }()

	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	if !plan.IsActive {
		return ErrReactivationNotSupported
	}
	return nil
}

// Deactivate clears the active flag of an owned plan. It is idempotent.
func (s *planService) Deactivate(ctx context.Context, userID, planID primitive.ObjectID) (err error) {
	defer func() { s.metrics.LifecycleOp("deactivate", outcome(err)) }()

	plan, unlock, err := s.lockPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	defer unlock()

	if !plan.IsActive {
		return nil
	}
	return planErr(s.planRepo.SetActive(ctx, planID, userID, false))
}

// Delete removes an owned plan and, when exports are enabled, its export.
func (s *planService) Delete(ctx context.Context, userID, planID primitive.ObjectID) (err error) {
	defer func() { s.metrics.LifecycleOp("delete", outcome(err)) }()

	_, unlock, err := s.lockPlan(ctx, userID, planID)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.planRepo.Delete(ctx, planID, userID); err != nil {
		return planErr(err)
	}

	if s.storage != nil {
		key := storage.PlanExportKey(userID, planID)
		if err := s.storage.DeleteObject(ctx, key); err != nil {
			s.logger.WarnContext(ctx, "Failed to delete plan export", "key", key, "error", err)
		}
	}
	return nil
}

// ExportPlan uploads the plan as JSON and returns a temporary download URL.
func (s *planService) ExportPlan(ctx context.Context, userID, planID primitive.ObjectID) (*PlanExport, error) {
	if s.storage == nil {
		return nil, ErrExportDisabled
	}

	plan, err := s.GetPlan(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	body, err := plan.MarshalVerbatim()
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}

	key := storage.PlanExportKey(userID, planID)
	if err := s.storage.PutObject(ctx, key, "application/json", body); err != nil {
		return nil, fmt.Errorf("upload plan export: %w", err)
	}
	url, err := s.storage.GeneratePresignedDownloadURL(ctx, key, s.presignExpiry)
	if err != nil {
		return nil, fmt.Errorf("presign plan export: %w", err)
	}
	return &PlanExport{
		Key:       key,
		URL:       url,
		ExpiresAt: time.Now().UTC().Add(s.presignExpiry),
	}, nil
}

// RepairInconsistentState keeps the newest active plan of planType and
// deactivates the rest. When no plan is active and restoreID is given, that
// plan is made active again; this is how a failed regeneration is undone.
func (s *planService) RepairInconsistentState(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType, restoreID *primitive.ObjectID) (report *RepairReport, err error) {
	defer func() { s.metrics.LifecycleOp("repair", outcome(err)) }()

	if !planType.Valid() {
		return nil, ErrInvalidPlanType
	}
	unlock, err := s.locks.Lock(ctx, lockKey(userID, planType))
	if err != nil {
		return nil, err
	}
	defer unlock()

	active, err := s.planRepo.FindActive(ctx, userID, planType)
	if err != nil {
		return nil, err
	}
	report = &RepairReport{
		UserID:       userID,
		PlanType:     planType,
		ActiveBefore: len(active),
		Deactivated:  []primitive.ObjectID{},
	}

	kept, deactivated, err := s.resolveActive(ctx, userID, planType)
	if err != nil {
		return nil, err
	}
	report.Deactivated = append(report.Deactivated, deactivated...)
	if kept != nil {
		report.KeptPlanID = &kept.ID
		return report, nil
	}

	if restoreID == nil {
		return report, nil
	}
	plan, err := s.planRepo.GetByID(ctx, *restoreID, userID)
	if err != nil {
		return nil, planErr(err)
	}
	if plan.PlanType != planType {
		return nil, fmt.Errorf("%w: plan %s is a %s plan", ErrInvalidParameters, plan.ID.Hex(), plan.PlanType)
	}
	if err := s.planRepo.SetActive(ctx, plan.ID, userID, true); err != nil {
		return nil, planErr(err)
	}
	s.logger.InfoContext(ctx, "Restored active plan", "userId", userID.Hex(), "planType", planType, "planId", plan.ID.Hex())
	report.RestoredPlanID = &plan.ID
	return report, nil
}

// RepairAll repairs every user and plan type the store reports as inconsistent.
func (s *planService) RepairAll(ctx context.Context) ([]RepairReport, error) {
	conflicts, err := s.planRepo.ListInconsistent(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]RepairReport, 0, len(conflicts))
	for _, c := range conflicts {
		report, err := s.RepairInconsistentState(ctx, c.UserID, c.PlanType, nil)
		if err != nil {
			return reports, fmt.Errorf("repair user %s %s plans: %w", c.UserID.Hex(), c.PlanType, err)
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
