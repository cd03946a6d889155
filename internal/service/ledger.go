package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
	"github.com/and161185/macronizer/internal/repository"
)

// MaxItemsPerLog bounds a single logMeal request.
const MaxItemsPerLog = 100

// LedgerService defines meal log operations for one authenticated user.
type LedgerService interface {
	// FindOrCreateLog returns the log for the slot, creating an empty one if absent.
	FindOrCreateLog(ctx context.Context, userID int64, date time.Time, mealNo int) (*model.Log, error)
	// LogMeal always appends a new log holding items.
	LogMeal(ctx context.Context, userID int64, date time.Time, mealNo int, items []model.FoodItemInput) (*model.Log, error)
	// ReassignItem moves an item into the slot's log.
	ReassignItem(ctx context.Context, userID int64, date time.Time, mealNo int, itemID int64) (*model.Log, error)
	// DeleteItem removes an item and returns it.
	DeleteItem(ctx context.Context, userID, itemID int64) (*model.FoodItem, error)
	// ListByDate returns the day's logs ordered by meal_no.
	ListByDate(ctx context.Context, userID int64, date time.Time) ([]model.Log, error)
}

type LedgerServiceImpl struct {
	repo     repository.LogRepository
	maxItems int
}

// NewLedgerService constructs LedgerService; maxItems <= 0 means MaxItemsPerLog.
func NewLedgerService(repo repository.LogRepository, maxItems int) *LedgerServiceImpl {
	if maxItems <= 0 {
		maxItems = MaxItemsPerLog
	}
	return &LedgerServiceImpl{repo: repo, maxItems: maxItems}
}

func validateSlot(userID int64, mealNo int) error {
	if userID <= 0 {
		return fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if mealNo < model.MinMealNo || mealNo > model.MaxMealNo {
		return fmt.Errorf("%w: meal_no must be between %d and %d", errs.ErrValidation, model.MinMealNo, model.MaxMealNo)
	}
	return nil
}

// FindOrCreateLog validates the slot and delegates to the repository.
func (s *LedgerServiceImpl) FindOrCreateLog(ctx context.Context, userID int64, date time.Time, mealNo int) (*model.Log, error) {
	if err := validateSlot(userID, mealNo); err != nil {
		return nil, err
	}
	return s.repo.FindOrCreate(ctx, userID, model.DateOnly(date), mealNo)
}

// LogMeal validates input and stores a new log with its items atomically.
// Validation rules:
// - meal_no in [1,5]
// - at most maxItems items
// - each name non-empty, each quantity finite and >= 0
func (s *LedgerServiceImpl) LogMeal(
	ctx context.Context, userID int64, date time.Time, mealNo int, items []model.FoodItemInput,
) (*model.Log, error) {
	if err := validateSlot(userID, mealNo); err != nil {
		return nil, err
	}
	if len(items) > s.maxItems {
		return nil, fmt.Errorf("%w: too many food items (%d > %d)", errs.ErrValidation, len(items), s.maxItems)
	}
	clean := make([]model.FoodItemInput, len(items))
	for i, it := range items {
		it.Name = strings.TrimSpace(it.Name)
		if it.Name == "" {
			return nil, fmt.Errorf("%w: food_items[%d] empty name", errs.ErrValidation, i)
		}
		for _, v := range it.Values() {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: food_items[%d] quantities must be non-negative numbers", errs.ErrValidation, i)
			}
		}
		clean[i] = it
	}
	return s.repo.CreateWithItems(ctx, userID, model.DateOnly(date), mealNo, clean)
}

// ReassignItem validates and moves the item.
func (s *LedgerServiceImpl) ReassignItem(
	ctx context.Context, userID int64, date time.Time, mealNo int, itemID int64,
) (*model.Log, error) {
	if err := validateSlot(userID, mealNo); err != nil {
		return nil, err
	}
	if itemID <= 0 {
		return nil, errs.ErrNotFound
	}
	return s.repo.ReassignItem(ctx, userID, model.DateOnly(date), mealNo, itemID)
}

// DeleteItem removes an owned item.
func (s *LedgerServiceImpl) DeleteItem(ctx context.Context, userID, itemID int64) (*model.FoodItem, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	if itemID <= 0 {
		return nil, errs.ErrNotFound
	}
	return s.repo.DeleteItem(ctx, userID, itemID)
}

// ListByDate returns the user's logs for the calendar date of date.
func (s *LedgerServiceImpl) ListByDate(ctx context.Context, userID int64, date time.Time) ([]model.Log, error) {
	if userID <= 0 {
		return nil, fmt.Errorf("%w: empty userID", errs.ErrValidation)
	}
	return s.repo.ListByDate(ctx, userID, model.DateOnly(date))
}
