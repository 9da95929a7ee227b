// Package generator turns profile-derived parameters into validated plan
// content documents using a text-generation provider.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"nutribyte/fitness-app/internal/domain"
	"nutribyte/fitness-app/internal/llm"
	"nutribyte/fitness-app/internal/metrics"
)

// Generator produces plan content. It has no side effects besides the provider call.
type Generator interface {
	GenerateWorkout(ctx context.Context, params domain.WorkoutParams) (json.RawMessage, error)
	GenerateNutrition(ctx context.Context, params domain.NutritionParams) (json.RawMessage, error)
	// GenerateRecommendations suggests foods for a profile. The result is not a plan.
	GenerateRecommendations(ctx context.Context, params domain.RecommendationParams) (*domain.FoodRecommendations, error)
	// ValidateContent checks a caller-supplied document against the schema of planType.
	ValidateContent(planType domain.PlanType, content json.RawMessage) error
}

type planGenerator struct {
	completer llm.Completer
	timeout   time.Duration
	validate  *validator.Validate
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewGenerator creates a Generator. timeout bounds every provider call.
func NewGenerator(completer llm.Completer, timeout time.Duration, m *metrics.Metrics, logger *slog.Logger) Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &planGenerator{
		completer: completer,
		timeout:   timeout,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		metrics:   m,
		logger:    logger,
	}
}

// GenerateWorkout builds a weekly workout plan.
func (g *planGenerator) GenerateWorkout(ctx context.Context, params domain.WorkoutParams) (json.RawMessage, error) {
	// 1. Validate input before spending a provider call
	if !params.Goal.Valid() {
		return nil, fmt.Errorf("%w: goal is required", ErrInvalidParameters)
	}
	if strings.TrimSpace(params.Gender) == "" {
		return nil, fmt.Errorf("%w: gender is required", ErrInvalidParameters)
	}
	if !params.Level.Valid() {
		return nil, fmt.Errorf("%w: level must be one of beginner, intermediate, expert", ErrInvalidParameters)
	}
	policy, err := PolicyFor(params.Level, params.AvailableTime)
	if err != nil {
		return nil, err
	}

	// 2. Call provider, then decode and validate
	return g.generate(ctx, string(domain.PlanTypeWorkout), llm.Request{Messages: workoutMessages(params, policy)}, func(data []byte) error {
		var content domain.WorkoutPlanContent
		if err := g.decode(data, &content); err != nil {
			return err
		}
		if content.Level != params.Level {
			return fmt.Errorf("level %q does not match requested %q", content.Level, params.Level)
		}
		if len(content.WeeklySchedule) != policy.Days {
			return fmt.Errorf("weeklySchedule has %d days, expected %d", len(content.WeeklySchedule), policy.Days)
		}
		return nil
	})
}

// GenerateNutrition builds a meal plan.
func (g *planGenerator) GenerateNutrition(ctx context.Context, params domain.NutritionParams) (json.RawMessage, error) {
	if !params.Goal.Valid() {
		return nil, fmt.Errorf("%w: goal is required", ErrInvalidParameters)
	}
	if len(params.MealTimes) == 0 {
		return nil, fmt.Errorf("%w: at least one meal time is required", ErrInvalidParameters)
	}
	for _, t := range params.MealTimes {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("%w: meal times must not be blank", ErrInvalidParameters)
		}
	}
	if strings.TrimSpace(params.Cuisine) == "" {
		return nil, fmt.Errorf("%w: cuisine preference is required", ErrInvalidParameters)
	}

	return g.generate(ctx, string(domain.PlanTypeNutrition), llm.Request{Messages: nutritionMessages(params)}, func(data []byte) error {
		var content domain.NutritionPlanContent
		return g.decode(data, &content)
	})
}

// GenerateRecommendations asks for domain.RecommendationCount foods that fit
// the profile's goal and diet.
func (g *planGenerator) GenerateRecommendations(ctx context.Context, params domain.RecommendationParams) (*domain.FoodRecommendations, error) {
	if !params.Goal.Valid() {
		return nil, fmt.Errorf("%w: goal is required", ErrInvalidParameters)
	}

	temperature := recommendationTemperature
	req := llm.Request{
		Messages:    recommendationMessages(params),
		Temperature: &temperature,
		MaxTokens:   recommendationMaxTokens,
	}
	var out domain.FoodRecommendations
	_, err := g.generate(ctx, recommendationsKind, req, func(data []byte) error {
		var doc domain.FoodRecommendations
		if err := g.unmarshal(data, &doc); err != nil {
			return err
		}
		for i := range doc.Recommendations {
			doc.Recommendations[i].Time = mealSlot(doc.Recommendations[i].Time)
		}
		if err := g.validateStruct(&doc); err != nil {
			return err
		}
		out = doc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// mealSlot maps "breakfast" or " SNACK " onto the canonical slot name.
func mealSlot(s string) string {
	s = strings.TrimSpace(s)
	for _, slot := range domain.MealSlots {
		if strings.EqualFold(s, slot) {
			return slot
		}
	}
	return s
}

// ValidateContent implements Generator.
func (g *planGenerator) ValidateContent(planType domain.PlanType, content json.RawMessage) error {
	var err error
	switch planType {
	case domain.PlanTypeWorkout:
		err = g.decode(content, &domain.WorkoutPlanContent{})
	case domain.PlanTypeNutrition:
		err = g.decode(content, &domain.NutritionPlanContent{})
	default:
		return fmt.Errorf("%w: unknown plan type %q", ErrInvalidContent, planType)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return nil
}

// generate runs one provider call. kind labels metrics and logs.
func (g *planGenerator) generate(ctx context.Context, kind string, req llm.Request, check func([]byte) error) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	startedAt := time.Now()
	resp, err := g.completer.Complete(ctx, req)
	if errors.Is(err, llm.ErrEmptyCompletion) {
		// The provider answered, just without any text.
		g.metrics.ObserveGeneration(kind, "parse_error", time.Since(startedAt))
		g.logger.Warn("Plan generation returned no content", "plan_type", kind, "error", err)
		return nil, &ParseError{Raw: "", Err: err}
	}
	if err != nil {
		g.metrics.ObserveGeneration(kind, "unavailable", time.Since(startedAt))
		g.logger.Warn("Plan generation unavailable", "plan_type", kind, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	content, err := g.parse(resp.Content, check)
	if err != nil {
		g.metrics.ObserveGeneration(kind, "parse_error", time.Since(startedAt))
		g.logger.Warn("Plan generation returned unusable content",
			"plan_type", kind,
			"request_id", resp.RequestID,
			"finish_reason", resp.FinishReason,
			"error", err)
		return nil, err
	}

	g.metrics.ObserveGeneration(kind, "success", time.Since(startedAt))
	g.logger.Info("Plan generated", "plan_type", kind, "request_id", resp.RequestID, "bytes", len(content))
	return content, nil
}

// parse sanitizes, validates and compacts provider output.
func (g *planGenerator) parse(raw string, check func([]byte) error) (json.RawMessage, error) {
	span, err := Sanitize(raw)
	if err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	if err := check([]byte(span)); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}

	var out bytes.Buffer
	if err := json.Compact(&out, []byte(span)); err != nil {
		return nil, &ParseError{Raw: raw, Err: err}
	}
	return json.RawMessage(out.Bytes()), nil
}

// decode parses data into v with strict typing and runs struct validation.
// Unknown keys are tolerated.
func (g *planGenerator) decode(data []byte, v any) error {
	if err := g.unmarshal(data, v); err != nil {
		return err
	}
	return g.validateStruct(v)
}

func (g *planGenerator) unmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return errors.New("decode: trailing data after JSON object")
	}
	return nil
}

func (g *planGenerator) validateStruct(v any) error {
	if err := g.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("field %s failed %q validation", verrs[0].Namespace(), verrs[0].Tag())
		}
		return err
	}
	return nil
}
