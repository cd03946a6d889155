package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
	"github.com/jackc/pgx/v5"
)

const nutritionColumns = `sugar_gram, fiber_gram, serving_size_gram, sodium_mg, potassium_mg, ` +
	`fat_saturation_gram, fat_total_gram, calories, cholesterol_mg, protein_gram, carbohydrate_gram`

const itemColumns = `id, log_id, name, ` + nutritionColumns

const (
	qLockKey    = `SELECT pg_advisory_xact_lock(hashtext($1))`
	qFindLog    = `SELECT id FROM meal_logs WHERE user_id=$1 AND date=$2 AND meal_no=$3 ORDER BY id LIMIT 1`
	qInsertLog  = `INSERT INTO meal_logs (meal_no, date, user_id) VALUES ($1, $2, $3) RETURNING id`
	qInsertItem = `INSERT INTO food_items (log_id, name, ` + nutritionColumns + `) ` +
		`VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13) RETURNING id`
	qItemsOfLog  = `SELECT ` + itemColumns + ` FROM food_items WHERE log_id=$1 ORDER BY id`
	qItemsOfLogs = `SELECT ` + itemColumns + ` FROM food_items WHERE log_id = ANY($1) ORDER BY log_id, id`
	qLockItem    = `SELECT fi.log_id FROM food_items fi JOIN meal_logs l ON l.id = fi.log_id ` +
		`WHERE fi.id=$1 AND l.user_id=$2 FOR UPDATE OF fi`
	qMoveItem   = `UPDATE food_items SET log_id=$2 WHERE id=$1`
	qDeleteItem = `DELETE FROM food_items fi USING meal_logs l ` +
		`WHERE fi.id=$1 AND l.id = fi.log_id AND l.user_id=$2 ` +
		`RETURNING fi.id, fi.log_id, fi.name, fi.sugar_gram, fi.fiber_gram, fi.serving_size_gram, fi.sodium_mg, ` +
		`fi.potassium_mg, fi.fat_saturation_gram, fi.fat_total_gram, fi.calories, fi.cholesterol_mg, ` +
		`fi.protein_gram, fi.carbohydrate_gram`
	qLogsByDate = `SELECT id, meal_no, date, user_id FROM meal_logs WHERE user_id=$1 AND date=$2 ORDER BY meal_no ASC, id ASC`
)

// LogRepo implements LogRepository using PostgreSQL.
type LogRepo struct{ db *DB }

// NewLogRepo constructs a meal log repository.
func NewLogRepo(db *DB) *LogRepo { return &LogRepo{db: db} }

// querier is the subset shared by pool and transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// naturalKey names the advisory lock serializing find-or-create for one slot.
func naturalKey(userID int64, date time.Time, mealNo int) string {
	return fmt.Sprintf("meal_log:%d:%s:%d", userID, date.Format(model.DateLayout), mealNo)
}

// FindOrCreate returns the oldest log for the key, inserting an empty one if absent.
func (r *LogRepo) FindOrCreate(ctx context.Context, userID int64, date time.Time, mealNo int) (*model.Log, error) {
	var log *model.Log
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		id, err := findOrCreateTx(ctx, tx, userID, date, mealNo)
		if err != nil {
			return err
		}
		items, err := itemsOfLog(ctx, tx, id)
		if err != nil {
			return err
		}
		log = &model.Log{ID: id, MealNo: mealNo, Date: date, UserID: userID, FoodItems: items}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

func findOrCreateTx(ctx context.Context, tx pgx.Tx, userID int64, date time.Time, mealNo int) (int64, error) {
	if _, err := tx.Exec(ctx, qLockKey, naturalKey(userID, date, mealNo)); err != nil {
		return 0, fmt.Errorf("lock slot: %w", err)
	}
	var id int64
	err := tx.QueryRow(ctx, qFindLog, userID, date, mealNo).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
		if err := tx.QueryRow(ctx, qInsertLog, mealNo, date, userID).Scan(&id); err != nil {
			return 0, fmt.Errorf("insert log: %w", err)
		}
		return id, nil
	default:
		return 0, err
	}
}

// CreateWithItems inserts a new log and all its items atomically.
func (r *LogRepo) CreateWithItems(
	ctx context.Context, userID int64, date time.Time, mealNo int, items []model.FoodItemInput,
) (*model.Log, error) {
	log := &model.Log{MealNo: mealNo, Date: date, UserID: userID, FoodItems: make([]model.FoodItem, 0, len(items))}
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, qInsertLog, mealNo, date, userID).Scan(&log.ID); err != nil {
			return fmt.Errorf("insert log: %w", err)
		}
		for i, in := range items {
			args := append([]any{log.ID, in.Name}, floatArgs(in.Nutrition)...)
			it := model.FoodItem{LogID: log.ID, Name: in.Name, Nutrition: in.Nutrition}
			if err := tx.QueryRow(ctx, qInsertItem, args...).Scan(&it.ID); err != nil {
				return fmt.Errorf("insert item[%d]: %w", i, err)
			}
			log.FoodItems = append(log.FoodItems, it)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// ReassignItem moves an owned item to the target slot's log.
func (r *LogRepo) ReassignItem(
	ctx context.Context, userID int64, date time.Time, mealNo int, itemID int64,
) (*model.Log, error) {
	var log *model.Log
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		var fromLog int64
		if err := tx.QueryRow(ctx, qLockItem, itemID, userID).Scan(&fromLog); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return errs.ErrNotFound
			}
			return err
		}
		toLog, err := findOrCreateTx(ctx, tx, userID, date, mealNo)
		if err != nil {
			return err
		}
		if toLog != fromLog {
			if _, err := tx.Exec(ctx, qMoveItem, itemID, toLog); err != nil {
				return fmt.Errorf("move item: %w", err)
			}
		}
		items, err := itemsOfLog(ctx, tx, toLog)
		if err != nil {
			return err
		}
		log = &model.Log{ID: toLog, MealNo: mealNo, Date: date, UserID: userID, FoodItems: items}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return log, nil
}

// DeleteItem deletes an owned item in one statement; the parent log is kept.
func (r *LogRepo) DeleteItem(ctx context.Context, userID, itemID int64) (*model.FoodItem, error) {
	it, err := scanItem(r.db.Pool.QueryRow(ctx, qDeleteItem, itemID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &it, nil
}

// ListByDate returns the user's logs for the date with nested items.
func (r *LogRepo) ListByDate(ctx context.Context, userID int64, date time.Time) ([]model.Log, error) {
	rows, err := r.db.Pool.Query(ctx, qLogsByDate, userID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.Log{}
	for rows.Next() {
		var l model.Log
		if err = rows.Scan(&l.ID, &l.MealNo, &l.Date, &l.UserID); err != nil {
			return nil, err
		}
		l.FoodItems = []model.FoodItem{}
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	if len(logs) == 0 {
		return logs, nil
	}

	ids := make([]int64, len(logs))
	pos := make(map[int64]int, len(logs))
	for i, l := range logs {
		ids[i] = l.ID
		pos[l.ID] = i
	}
	items, err := queryItems(ctx, r.db.Pool, qItemsOfLogs, ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		i := pos[it.LogID]
		logs[i].FoodItems = append(logs[i].FoodItems, it)
	}
	return logs, nil
}

func itemsOfLog(ctx context.Context, q querier, logID int64) ([]model.FoodItem, error) {
	return queryItems(ctx, q, qItemsOfLog, logID)
}

func queryItems(ctx context.Context, q querier, sql string, arg any) ([]model.FoodItem, error) {
	rows, err := q.Query(ctx, sql, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []model.FoodItem{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanItem(row pgx.Row) (model.FoodItem, error) {
	var it model.FoodItem
	n := &it.Nutrition
	err := row.Scan(&it.ID, &it.LogID, &it.Name,
		&n.SugarG, &n.FiberG, &n.ServingSizeG, &n.SodiumMg, &n.PotassiumMg,
		&n.SaturatedFatG, &n.TotalFatG, &n.Calories, &n.CholesterolMg, &n.ProteinG, &n.CarbohydrateG)
	return it, err
}

func floatArgs(n model.Nutrition) []any {
	vals := n.Values()
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
