// Package convert maps domain models to and from the JSON wire format.
package convert

import (
	model "github.com/and161185/macronizer/internal/model"
)

// --- requests (client -> server) ---

// FoodItemIn is one submitted food item. Absent quantities decode as nil.
type FoodItemIn struct {
	Name         string   `json:"name" validate:"required,max=200"`
	Sugar        *float64 `json:"sugar" validate:"omitempty,gte=0"`
	Fiber        *float64 `json:"fiber" validate:"omitempty,gte=0"`
	ServingSize  *float64 `json:"servingSize" validate:"omitempty,gte=0"`
	Sodium       *float64 `json:"sodium" validate:"omitempty,gte=0"`
	Potassium    *float64 `json:"potassium" validate:"omitempty,gte=0"`
	SaturatedFat *float64 `json:"saturatedFat" validate:"omitempty,gte=0"`
	TotalFat     *float64 `json:"totalFat" validate:"omitempty,gte=0"`
	Calories     *float64 `json:"calories" validate:"omitempty,gte=0"`
	Cholesterol  *float64 `json:"cholesterol" validate:"omitempty,gte=0"`
	Protein      *float64 `json:"protein" validate:"omitempty,gte=0"`
	Carbohydrate *float64 `json:"carbohydrate" validate:"omitempty,gte=0"`
}

// LogNewRequest is the body of POST /api/log/new.
type LogNewRequest struct {
	MealNo     int          `json:"meal_no" validate:"required,min=1,max=5"`
	DateString string       `json:"date_string" validate:"required,datetime=2006-01-02"`
	FoodItems  []FoodItemIn `json:"food_items" validate:"max=100,dive"`
}

// LogUpdateRequest is the body of PATCH /api/log/update.
type LogUpdateRequest struct {
	MealNo        int    `json:"meal_no" validate:"required,min=1,max=5"`
	DateString    string `json:"date_string" validate:"required,datetime=2006-01-02"`
	UpdatedItemID int64  `json:"updated_item_id" validate:"required,gt=0"`
}

// UserEditRequest is the body of PUT /api/user/edit.
type UserEditRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=50"`
}

// LoginForm is the POST /login form.
type LoginForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// RegisterForm is the POST /register form.
type RegisterForm struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,min=6"`
}

func val(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// FromFoodItemIn converts a submitted item; nil quantities become 0.
func FromFoodItemIn(in FoodItemIn) model.FoodItemInput {
	return model.FoodItemInput{
		Name: in.Name,
		Nutrition: model.Nutrition{
			SugarG:        val(in.Sugar),
			FiberG:        val(in.Fiber),
			ServingSizeG:  val(in.ServingSize),
			SodiumMg:      val(in.Sodium),
			PotassiumMg:   val(in.Potassium),
			SaturatedFatG: val(in.SaturatedFat),
			TotalFatG:     val(in.TotalFat),
			Calories:      val(in.Calories),
			CholesterolMg: val(in.Cholesterol),
			ProteinG:      val(in.Protein),
			CarbohydrateG: val(in.Carbohydrate),
		},
	}
}

// FromFoodItemsIn converts a submitted list.
func FromFoodItemsIn(in []FoodItemIn) []model.FoodItemInput {
	out := make([]model.FoodItemInput, len(in))
	for i := range in {
		out[i] = FromFoodItemIn(in[i])
	}
	return out
}

// --- responses (server -> client) ---

// FoodItemOut is a stored food item.
type FoodItemOut struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	SugarGram         float64 `json:"sugar_gram"`
	FiberGram         float64 `json:"fiber_gram"`
	ServingSizeGram   float64 `json:"serving_size_gram"`
	SodiumMg          float64 `json:"sodium_mg"`
	PotassiumMg       float64 `json:"potassium_mg"`
	FatSaturationGram float64 `json:"fat_saturation_gram"`
	FatTotalGram      float64 `json:"fat_total_gram"`
	Calories          float64 `json:"calories"`
	CholesterolMg     float64 `json:"cholesterol_mg"`
	ProteinGram       float64 `json:"protein_gram"`
	CarbohydrateGram  float64 `json:"carbohydrate_gram"`
}

// LogOut is a meal log with nested items.
type LogOut struct {
	ID        int64         `json:"id"`
	MealNo    int           `json:"meal_no"`
	Date      string        `json:"date"`
	UserID    int64         `json:"user_id"`
	FoodItems []FoodItemOut `json:"food_items"`
}

// UserOut is the public view of a user.
type UserOut struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
}

// ToFoodItemOut converts a domain item.
func ToFoodItemOut(it model.FoodItem) FoodItemOut {
	return FoodItemOut{
		ID:                it.ID,
		Name:              it.Name,
		SugarGram:         it.SugarG,
		FiberGram:         it.FiberG,
		ServingSizeGram:   it.ServingSizeG,
		SodiumMg:          it.SodiumMg,
		PotassiumMg:       it.PotassiumMg,
		FatSaturationGram: it.SaturatedFatG,
		FatTotalGram:      it.TotalFatG,
		Calories:          it.Calories,
		CholesterolMg:     it.CholesterolMg,
		ProteinGram:       it.ProteinG,
		CarbohydrateGram:  it.CarbohydrateG,
	}
}

// ToLogOut converts a domain log; FoodItems is never null on the wire.
func ToLogOut(l model.Log) LogOut {
	items := make([]FoodItemOut, 0, len(l.FoodItems))
	for _, it := range l.FoodItems {
		items = append(items, ToFoodItemOut(it))
	}
	return LogOut{
		ID:        l.ID,
		MealNo:    l.MealNo,
		Date:      l.Date.Format(model.DateLayout),
		UserID:    l.UserID,
		FoodItems: items,
	}
}

// ToLogsOut converts a list; never nil.
func ToLogsOut(ls []model.Log) []LogOut {
	out := make([]LogOut, 0, len(ls))
	for _, l := range ls {
		out = append(out, ToLogOut(l))
	}
	return out
}

// ToUserOut drops credentials.
func ToUserOut(u model.User) UserOut {
	return UserOut{ID: u.ID, Name: u.Name, Email: u.Email, Username: u.Username}
}
