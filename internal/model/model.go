// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"
)

// Meal slot bounds: 1 is breakfast, 5 is the late snack.
const (
	MinMealNo = 1
	MaxMealNo = 5
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOnly strips the clock part, keeping the calendar date of t.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// User is an account. PwdHash is an encoded Argon2id hash, never the password.
type User struct {
	ID        int64  // PK
	Name      string // display name
	Email     string // unique
	Username  string // unique
	PwdHash   string
	CreatedAt time.Time
}

// Registration carries sign-up input.
type Registration struct {
	Name     string
	Email    string
	Username string
	Password string
}

// Profile is the editable part of a User.
type Profile struct {
	Name     string
	Email    string
	Username string
}

// Nutrition holds per-item quantities. Grams unless the field says Mg; calories are unitless.
type Nutrition struct {
	SugarG        float64
	FiberG        float64
	ServingSizeG  float64
	SodiumMg      float64
	PotassiumMg   float64
	SaturatedFatG float64
	TotalFatG     float64
	Calories      float64
	CholesterolMg float64
	ProteinG      float64
	CarbohydrateG float64
}

// Values returns the quantities in storage column order.
func (n Nutrition) Values() []float64 {
	return []float64{
		n.SugarG, n.FiberG, n.ServingSizeG, n.SodiumMg, n.PotassiumMg,
		n.SaturatedFatG, n.TotalFatG, n.Calories, n.CholesterolMg, n.ProteinG, n.CarbohydrateG,
	}
}

// FoodItem is one nutrition record attached to exactly one Log.
type FoodItem struct {
	ID    int64
	LogID int64 // FK -> meal_logs.id
	Name  string
	Nutrition
}

// FoodItemInput is a client-submitted item before it is stored.
type FoodItemInput struct {
	Name string
	Nutrition
}

// Log is a user's meal for one date and meal slot.
type Log struct {
	ID        int64
	MealNo    int       // 1..5
	Date      time.Time // UTC midnight
	UserID    int64     // FK -> users.id
	FoodItems []FoodItem
}
