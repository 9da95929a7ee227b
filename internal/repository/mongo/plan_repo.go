// internal/repository/mongo/plan_repo.go
package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/repository"
)

const (
	planCollectionName = "plans"
	oneActiveIndexName = "one_active_plan_per_type"
)

// planDocument stores the content as a string so it reads back byte for byte.
type planDocument struct {
	domain.Plan `bson:",inline"`
	Content     string `bson:"planContent"`
}

func newPlanDocument(p *domain.Plan) planDocument {
	return planDocument{Plan: *p, Content: string(p.Content)}
}

func (d planDocument) toDomain() domain.Plan {
	p := d.Plan
	p.Content = json.RawMessage(d.Content)
	return p
}

// mongoPlanRepository implements repository.PlanRepository
type mongoPlanRepository struct {
	collection *mongo.Collection
}

// mongoTxPlanRepository adds a transactional Supersede. It needs a replica set.
type mongoTxPlanRepository struct {
	*mongoPlanRepository
	client *mongo.Client
}

// NewMongoPlanRepository creates a plan repository. With transactions enabled
// the returned value also implements repository.PlanSuperseder.
func NewMongoPlanRepository(db *mongo.Database, transactions bool) repository.PlanRepository {
	base := &mongoPlanRepository{
		collection: db.Collection(planCollectionName),
	}
	if transactions {
		return &mongoTxPlanRepository{mongoPlanRepository: base, client: db.Client()}
	}
	return base
}

var newestFirst = options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

func (r *mongoPlanRepository) find(ctx context.Context, filter bson.M) ([]domain.Plan, error) {
	cursor, err := r.collection.Find(ctx, filter, newestFirst)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []planDocument
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	plans := make([]domain.Plan, 0, len(docs))
	for _, d := range docs {
		plans = append(plans, d.toDomain())
	}
	return plans, nil
}

// FindActive returns the active plans of a type for a user, newest first.
func (r *mongoPlanRepository) FindActive(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	return r.find(ctx, bson.M{"userId": userID, "planType": planType, "isActive": true})
}

// ListByUser returns the plan history of a user.
func (r *mongoPlanRepository) ListByUser(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) ([]domain.Plan, error) {
	filter := bson.M{"userId": userID}
	if planType != "" {
		filter["planType"] = planType
	}
	return r.find(ctx, filter)
}

// GetByID retrieves a plan owned by userID.
func (r *mongoPlanRepository) GetByID(ctx context.Context, id, userID primitive.ObjectID) (*domain.Plan, error) {
	var doc planDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

// Insert stores a new plan. A second active plan of the same type is
// rejected by the partial unique index.
func (r *mongoPlanRepository) Insert(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	if plan.UserID == primitive.NilObjectID || !plan.PlanType.Valid() {
		return primitive.NilObjectID, errors.New("plan requires userId and a valid planType")
	}
	plan.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	plan.CreatedAt = now
	plan.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, newPlanDocument(plan)); err != nil {
		plan.ID = primitive.NilObjectID
		if mongo.IsDuplicateKeyError(err) {
			return primitive.NilObjectID, repository.ErrActiveConflict
		}
		return primitive.NilObjectID, err
	}
	return plan.ID, nil
}

func (r *mongoPlanRepository) updateOwned(ctx context.Context, id, userID primitive.ObjectID, set bson.M) error {
	set["updatedAt"] = time.Now().UTC()
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "userId": userID}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrActiveConflict
		}
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	// ModifiedCount is 0 when nothing changed, which is fine.
	return nil
}

// UpdateContent replaces the plan content wholesale.
func (r *mongoPlanRepository) UpdateContent(ctx context.Context, id, userID primitive.ObjectID, content json.RawMessage) error {
	return r.updateOwned(ctx, id, userID, bson.M{"planContent": string(content)})
}

// SetActive sets the active flag.
func (r *mongoPlanRepository) SetActive(ctx context.Context, id, userID primitive.ObjectID, active bool) error {
	return r.updateOwned(ctx, id, userID, bson.M{"isActive": active})
}

// Delete removes a plan owned by userID.
func (r *mongoPlanRepository) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// BulkDeactivate clears the active flag on every plan of a type for a user.
func (r *mongoPlanRepository) BulkDeactivate(ctx context.Context, userID primitive.ObjectID, planType domain.PlanType) (int64, error) {
	filter := bson.M{"userId": userID, "planType": planType, "isActive": true}
	update := bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now().UTC()}}
	result, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// ListInconsistent groups active plans by user and type and returns groups larger than one.
func (r *mongoPlanRepository) ListInconsistent(ctx context.Context) ([]repository.ActiveConflict, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"isActive": true}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"userId": "$userId", "planType": "$planType"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
		{{Key: "$project", Value: bson.M{
			"_id":      0,
			"userId":   "$_id.userId",
			"planType": "$_id.planType",
			"count":    1,
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []repository.ActiveConflict
	if err = cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Supersede deactivates the expected active plan and inserts the new one in a
// multi-document transaction.
func (r *mongoTxPlanRepository) Supersede(ctx context.Context, plan *domain.Plan, expectedActive primitive.ObjectID) error {
	session, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		var current struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		filter := bson.M{"userId": plan.UserID, "planType": plan.PlanType, "isActive": true}
		opts := options.FindOne().
			SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
			SetProjection(bson.M{"_id": 1})
		err := r.collection.FindOne(sc, filter, opts).Decode(&current)
		if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, err
		}
		if current.ID != expectedActive {
			return nil, repository.ErrActiveConflict
		}

		if _, err := r.BulkDeactivate(sc, plan.UserID, plan.PlanType); err != nil {
			return nil, err
		}
		plan.IsActive = true
		return r.Insert(sc, plan)
	})
	return err
}

// EnsurePlanIndexes creates necessary indexes. Call during startup.
func EnsurePlanIndexes(ctx context.Context, collection *mongo.Collection) {
	createIndexes(ctx, collection, []mongo.IndexModel{
		{
			// Plan history and active lookups for a user
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "planType", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// At most one active plan per user and type
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "planType", Value: 1}},
			Options: options.Index().
				SetName(oneActiveIndexName).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
	})
}
