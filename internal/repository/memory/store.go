// Package memory is an in-process store. Plans live in an arena keyed by ID
// with a separate (user, plan type) -> active plan index that is only changed
// under the store lock, which gives Supersede compare-and-swap semantics.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository"
)

type activeKey struct {
	userID   primitive.ObjectID
	planType domain.PlanType
}

// Store holds users, profiles and plans in memory.
type Store struct {
	mu       sync.RWMutex
	users    map[primitive.ObjectID]domain.User
	emails   map[string]primitive.ObjectID
	profiles map[primitive.ObjectID]domain.Profile // keyed by user ID
	plans    map[primitive.ObjectID]*domain.Plan
	active   map[activeKey]primitive.ObjectID
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{
		users:    make(map[primitive.ObjectID]domain.User),
		emails:   make(map[string]primitive.ObjectID),
		profiles: make(map[primitive.ObjectID]domain.Profile),
		plans:    make(map[primitive.ObjectID]*domain.Plan),
		active:   make(map[activeKey]primitive.ObjectID),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() repository.UserRepository { return &userRepo{s} }

// Profiles returns the profile repository view of the store.
func (s *Store) Profiles() repository.ProfileRepository { return &profileRepo{s} }

// Plans returns the plan repository view of the store. It also implements
// repository.PlanSuperseder.
func (s *Store) Plans() *PlanRepo { return &PlanRepo{s} }

// --- Users ---

type userRepo struct{ s *Store }

func (r *userRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, ok := r.s.emails[email]; ok {
		return primitive.NilObjectID, repository.ErrConflict
	}
	user.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.s.users[user.ID] = *user
	r.s.emails[email] = user.ID
	return user.ID, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.emails[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.s.users[id]
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// --- Profiles ---

type profileRepo struct{ s *Store }

func (r *profileRepo) Create(ctx context.Context, profile *domain.Profile) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.profiles[profile.UserID]; ok {
		return primitive.NilObjectID, repository.ErrConflict
	}
	profile.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	r.s.profiles[profile.UserID] = *profile
	return profile.ID, nil
}

func (r *profileRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Profile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *profileRepo) Update(ctx context.Context, profile *domain.Profile) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.profiles[profile.UserID]
	if !ok || existing.ID != profile.ID {
		return repository.ErrNotFound
	}
	profile.CreatedAt = existing.CreatedAt
	profile.UpdatedAt = time.Now().UTC()
	r.s.profiles[profile.UserID] = *profile
	return nil
}

// --- Plans ---

// PlanRepo is the plan view of a Store.
type PlanRepo struct{ s *Store }

var (
	_ repository.PlanRepository = (*PlanRepo)(nil)
	_ repository.PlanSuperseder = (*PlanRepo)(nil)
)

func clonePlan(p *domain.Plan) domain.Plan {
	out := *p
	out.Content = bytes.Clone(p.Content)
	if p.GenerationParams != nil {
		params := *p.GenerationParams
		params.MealTimes = append([]string(nil), p.GenerationParams.MealTimes...)
		out.GenerationParams = &params
	}
	return out
}

func newestFirst(plans []domain.Plan) {
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].CreatedAt.Equal(plans[j].CreatedAt) {
			return plans[i].CreatedAt.After(plans[j].CreatedAt)
		}
		return bytes.Compare(plans[i].ID[:], plans[j].ID[:]) > 0
	})
}

// owned returns the plan if it exists and belongs to userID. Caller holds the lock.
func (r *PlanRepo) owned(id, userID primitive.ObjectID) (*domain.Plan, error) {
	p, ok := r.s.plans[id]
	if !ok || p.UserID != userID {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

func (r *PlanRepo) FindActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Plan
	for _, p := range r.s.plans {
		if p.UserID == userID && p.PlanType == planType && p.IsActive {
			out = append(out, clonePlan(p))
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *PlanRepo) ListByUser(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []domain.Plan{}
	for _, p := range r.s.plans {
		if p.UserID == userID && (planType == "" || p.PlanType == planType) {
			out = append(out, clonePlan(p))
		}
	}
	newestFirst(out)
	return out, nil
}

func (r *PlanRepo) GetByID(ctx context.Context, id, userID primitive.ObjectID) (*domain.Plan, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, err := r.owned(id, userID)
	if err != nil {
		return nil, err
	}
	out := clonePlan(p)
	return &out, nil
}

// insertLocked stores plan and updates the active index. Caller holds the lock.
func (r *PlanRepo) insertLocked(plan *domain.Plan) primitive.ObjectID {
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	stored := clonePlan(plan)
	r.s.plans[plan.ID] = &stored
	if plan.IsActive {
		r.s.active[activeKey{plan.UserID, plan.PlanType}] = plan.ID
	}
	return plan.ID
}

func (r *PlanRepo) Insert(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if plan.IsActive {
		if _, taken := r.s.active[activeKey{plan.UserID, plan.PlanType}]; taken {
			return primitive.NilObjectID, repository.ErrActiveConflict
		}
	}
	return r.insertLocked(plan), nil
}

func (r *PlanRepo) UpdateContent(ctx context.Context, id, userID primitive.ObjectID, content json.RawMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := r.owned(id, userID)
	if err != nil {
		return err
	}
	p.Content = bytes.Clone(content)
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *PlanRepo) SetActive(ctx context.Context, id, userID primitive.ObjectID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := r.owned(id, userID)
	if err != nil {
		return err
	}
	if p.IsActive == active {
		return nil
	}

	key := activeKey{p.UserID, p.PlanType}
	if active {
		if current, taken := r.s.active[key]; taken && current != id {
			return repository.ErrActiveConflict
		}
		r.s.active[key] = id
	}
	p.IsActive = active
	p.UpdatedAt = time.Now().UTC()
	if !active && r.s.active[key] == id {
		r.reindexLocked(key)
	}
	return nil
}

// reindexLocked points the active index at the newest remaining active plan of
// key, if any. Only inconsistent stores have one left over.
func (r *PlanRepo) reindexLocked(key activeKey) {
	delete(r.s.active, key)
	var newest *domain.Plan
	for _, p := range r.s.plans {
		if p.UserID != key.userID || p.PlanType != key.planType || !p.IsActive {
			continue
		}
		if newest == nil || p.CreatedAt.After(newest.CreatedAt) ||
			(p.CreatedAt.Equal(newest.CreatedAt) && bytes.Compare(p.ID[:], newest.ID[:]) > 0) {
			newest = p
		}
	}
	if newest != nil {
		r.s.active[key] = newest.ID
	}
}

func (r *PlanRepo) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, err := r.owned(id, userID)
	if err != nil {
		return err
	}
	delete(r.s.plans, id)
	key := activeKey{p.UserID, p.PlanType}
	if r.s.active[key] == id {
		r.reindexLocked(key)
	}
	return nil
}

func (r *PlanRepo) BulkDeactivate(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.deactivateLocked(userID, planType), nil
}

func (r *PlanRepo) deactivateLocked(userID primitive.ObjectID, planType domain.PlanType) int64 {
	var n int64
	now := time.Now().UTC()
	for _, p := range r.s.plans {
		if p.UserID == userID && p.PlanType == planType && p.IsActive {
			p.IsActive = false
			p.UpdatedAt = now
			n++
		}
	}
	delete(r.s.active, activeKey{userID, planType})
	return n
}

func (r *PlanRepo) ListInconsistent(ctx context.Context) ([]repository.ActiveConflict, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[activeKey]int)
	for _, p := range r.s.plans {
		if p.IsActive {
			counts[activeKey{p.UserID, p.PlanType}]++
		}
	}
	var out []repository.ActiveConflict
	for k, n := range counts {
		if n > 1 {
			out = append(out, repository.ActiveConflict{UserID: k.userID, PlanType: k.planType, Count: n})
		}
	}
	return out, nil
}

// Supersede implements repository.PlanSuperseder.
func (r *PlanRepo) Supersede(ctx context.Context, plan *domain.Plan, expectedActive primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := activeKey{plan.UserID, plan.PlanType}
	current := r.s.active[key]
	if current != expectedActive {
		return repository.ErrActiveConflict
	}

	r.deactivateLocked(plan.UserID, plan.PlanType)
	plan.IsActive = true
	r.insertLocked(plan)
	return nil
}

// Seed stores plans as given, bypassing the active index checks. It exists to
// reproduce inconsistent states left behind by older writers.
func (r *PlanRepo) Seed(plans ...*domain.Plan) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range plans {
		if p.ID.IsZero() {
			p.ID = primitive.NewObjectID()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC()
			p.UpdatedAt = p.CreatedAt
		}
		stored := clonePlan(p)
		r.s.plans[p.ID] = &stored
		if p.IsActive {
			r.reindexLocked(activeKey{p.UserID, p.PlanType})
		}
	}
}
