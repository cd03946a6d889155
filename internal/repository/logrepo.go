package repository

import (
	"context"
	"time"

	"github.com/and161185/macronizer/internal/model"
)

// LogRepository stores meal logs and their food items.
// Every mutating method runs in a single transaction.
type LogRepository interface {
	// FindOrCreate returns the log for (userID, date, mealNo), creating an empty one if absent.
	FindOrCreate(ctx context.Context, userID int64, date time.Time, mealNo int) (*model.Log, error)

	// CreateWithItems always inserts a new log with the given items.
	CreateWithItems(ctx context.Context, userID int64, date time.Time, mealNo int, items []model.FoodItemInput) (*model.Log, error)

	// ReassignItem moves one of the user's items to the (date, mealNo) log, creating it if absent.
	ReassignItem(ctx context.Context, userID int64, date time.Time, mealNo int, itemID int64) (*model.Log, error)

	// DeleteItem removes one of the user's items and returns it.
	DeleteItem(ctx context.Context, userID, itemID int64) (*model.FoodItem, error)

	// ListByDate returns the user's logs for a date ordered by meal_no, items nested.
	ListByDate(ctx context.Context, userID int64, date time.Time) ([]model.Log, error)
}
