// Package memory provides in-process repository implementations used by the
// test environment and end-to-end tests. They mirror the PostgreSQL semantics:
// unique username/email, cascade of items with their log, ownership scoping.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
)

// Store holds users, logs and items behind one mutex, so every call is atomic.
type Store struct {
	mu sync.Mutex

	nextUser int64
	nextLog  int64
	nextItem int64

	users map[int64]model.User
	logs  map[int64]model.Log // FoodItems unused; see items
	items map[int64]model.FoodItem
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users: map[int64]model.User{},
		logs:  map[int64]model.Log{},
		items: map[int64]model.FoodItem{},
	}
}

// Users returns a UserRepository view.
func (s *Store) Users() *Users { return &Users{s: s} }

// Logs returns a LogRepository view.
func (s *Store) Logs() *Logs { return &Logs{s: s} }

// Users implements repository.UserRepository.
type Users struct{ s *Store }

func (r *Users) Create(_ context.Context, u *model.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.taken(0, u.Email, u.Username) {
		return errs.ErrAlreadyExists
	}
	s.nextUser++
	u.ID = s.nextUser
	u.CreatedAt = time.Now().UTC()
	s.users[u.ID] = *u
	return nil
}

func (r *Users) GetByID(_ context.Context, id int64) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return &u, nil
}

func (r *Users) GetByUsername(_ context.Context, username string) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (r *Users) UpdateProfile(_ context.Context, id int64, p model.Profile) (*model.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	if s.taken(id, p.Email, p.Username) {
		return nil, errs.ErrAlreadyExists
	}
	u.Name, u.Email, u.Username = p.Name, p.Email, p.Username
	s.users[id] = u
	return &u, nil
}

// Delete removes a user together with its logs and their items, mirroring the
// ON DELETE CASCADE chain of the SQL schema. No service deletes users.
func (r *Users) Delete(_ context.Context, id int64) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.users, id)
	for lid, l := range s.logs {
		if l.UserID == id {
			s.deleteLog(lid)
		}
	}
	return nil
}

func (s *Store) taken(self int64, email, username string) bool {
	for id, u := range s.users {
		if id != self && (u.Email == email || u.Username == username) {
			return true
		}
	}
	return false
}

func (s *Store) deleteLog(id int64) {
	delete(s.logs, id)
	for iid, it := range s.items {
		if it.LogID == id {
			delete(s.items, iid)
		}
	}
}

// Logs implements repository.LogRepository.
type Logs struct{ s *Store }

func (r *Logs) FindOrCreate(_ context.Context, userID int64, date time.Time, mealNo int) (*model.Log, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.findOrCreate(userID, date, mealNo)
	return s.withItems(l), nil
}

func (r *Logs) CreateWithItems(_ context.Context, userID int64, date time.Time, mealNo int, items []model.FoodItemInput) (*model.Log, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.insertLog(userID, date, mealNo)
	for _, in := range items {
		s.nextItem++
		s.items[s.nextItem] = model.FoodItem{ID: s.nextItem, LogID: l.ID, Name: in.Name, Nutrition: in.Nutrition}
	}
	return s.withItems(l), nil
}

func (r *Logs) ReassignItem(_ context.Context, userID int64, date time.Time, mealNo int, itemID int64) (*model.Log, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.ownedItem(userID, itemID)
	if !ok {
		return nil, errs.ErrNotFound
	}
	l := s.findOrCreate(userID, date, mealNo)
	it.LogID = l.ID
	s.items[it.ID] = it
	return s.withItems(l), nil
}

func (r *Logs) DeleteItem(_ context.Context, userID, itemID int64) (*model.FoodItem, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.ownedItem(userID, itemID)
	if !ok {
		return nil, errs.ErrNotFound
	}
	delete(s.items, itemID)
	return &it, nil
}

func (r *Logs) ListByDate(_ context.Context, userID int64, date time.Time) ([]model.Log, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Log{}
	for _, l := range s.logs {
		if l.UserID == userID && l.Date.Equal(date) {
			out = append(out, *s.withItems(l))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MealNo != out[j].MealNo {
			return out[i].MealNo < out[j].MealNo
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) findOrCreate(userID int64, date time.Time, mealNo int) model.Log {
	var found *model.Log
	for _, l := range s.logs {
		if l.UserID == userID && l.MealNo == mealNo && l.Date.Equal(date) {
			if found == nil || l.ID < found.ID {
				c := l
				found = &c
			}
		}
	}
	if found != nil {
		return *found
	}
	return s.insertLog(userID, date, mealNo)
}

func (s *Store) insertLog(userID int64, date time.Time, mealNo int) model.Log {
	s.nextLog++
	l := model.Log{ID: s.nextLog, MealNo: mealNo, Date: date, UserID: userID}
	s.logs[l.ID] = l
	return l
}

func (s *Store) ownedItem(userID, itemID int64) (model.FoodItem, bool) {
	it, ok := s.items[itemID]
	if !ok {
		return model.FoodItem{}, false
	}
	if l, ok := s.logs[it.LogID]; !ok || l.UserID != userID {
		return model.FoodItem{}, false
	}
	return it, true
}

func (s *Store) withItems(l model.Log) *model.Log {
	l.FoodItems = []model.FoodItem{}
	for _, it := range s.items {
		if it.LogID == l.ID {
			l.FoodItems = append(l.FoodItems, it)
		}
	}
	sort.Slice(l.FoodItems, func(i, j int) bool { return l.FoodItems[i].ID < l.FoodItems[j].ID })
	return &l
}
