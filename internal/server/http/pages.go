package httpserver

import (
	"net/http"

	"github.com/and161185/macronizer/internal/convert"
	"github.com/and161185/macronizer/internal/model"
)

// pageData is the view model shared by all templates.
type pageData struct {
	Title  string
	User   *model.User
	Flash  *flash
	Today  string
	Errors map[string]string
	Form   map[string]string

	Meals       []mealView
	MealOptions []mealOption
	Totals      model.Nutrition
}

type mealView struct {
	Label string
	Log   convert.LogOut
}

type mealOption struct {
	No    int
	Label string
}

var mealLabels = [...]string{"", "Breakfast", "Morning snack", "Lunch", "Afternoon snack", "Dinner"}

func mealLabel(n int) string {
	if n < model.MinMealNo || n > model.MaxMealNo {
		return "Meal"
	}
	return mealLabels[n]
}

func mealOptions() []mealOption {
	out := make([]mealOption, 0, model.MaxMealNo)
	for n := model.MinMealNo; n <= model.MaxMealNo; n++ {
		out = append(out, mealOption{No: n, Label: mealLabels[n]})
	}
	return out
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	logs, err := s.ledger.ListByDate(r.Context(), u.ID, s.now())
	if err != nil {
		s.pageError(w, r, "dashboard", err)
		return
	}
	data := pageData{
		Title:       "Dashboard",
		User:        u,
		Meals:       make([]mealView, 0, len(logs)),
		MealOptions: mealOptions(),
	}
	for _, l := range logs {
		data.Meals = append(data.Meals, mealView{Label: mealLabel(l.MealNo), Log: convert.ToLogOut(l)})
		for _, it := range l.FoodItems {
			data.Totals = addNutrition(data.Totals, it.Nutrition)
		}
	}
	s.render(w, r, http.StatusOK, "dashboard.html", data)
}

func addNutrition(a, b model.Nutrition) model.Nutrition {
	return model.Nutrition{
		SugarG:        a.SugarG + b.SugarG,
		FiberG:        a.FiberG + b.FiberG,
		ServingSizeG:  a.ServingSizeG + b.ServingSizeG,
		SodiumMg:      a.SodiumMg + b.SodiumMg,
		PotassiumMg:   a.PotassiumMg + b.PotassiumMg,
		SaturatedFatG: a.SaturatedFatG + b.SaturatedFatG,
		TotalFatG:     a.TotalFatG + b.TotalFatG,
		Calories:      a.Calories + b.Calories,
		CholesterolMg: a.CholesterolMg + b.CholesterolMg,
		ProteinG:      a.ProteinG + b.ProteinG,
		CarbohydrateG: a.CarbohydrateG + b.CarbohydrateG,
	}
}

func (s *Server) nutritionPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "nutrition.html", pageData{Title: "Nutrition", MealOptions: mealOptions()})
}

func (s *Server) profilePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "profile.html", pageData{Title: "Profile"})
}
