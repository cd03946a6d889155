package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/and161185/macronizer/internal/convert"
	"github.com/and161185/macronizer/internal/errs"
	"github.com/and161185/macronizer/internal/model"
	"github.com/and161185/macronizer/internal/nutrition"
)

func (s *Server) foodSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("queryString"))
	if q == "" {
		writeValidation(w, map[string]string{"queryString": "is required"})
		return
	}
	raw, err := s.foods.Search(r.Context(), q)
	if err != nil {
		var ue *nutrition.UpstreamError
		switch {
		case errors.As(err, &ue):
			s.log.Warn("nutrition upstream", zap.Int("upstream_status", ue.Status))
			writeJSON(w, http.StatusBadGateway, errorBody{Message: "nutrition lookup failed", UpstreamStatus: ue.Status})
		case errors.Is(err, errs.ErrUpstream):
			s.log.Warn("nutrition upstream", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, errorBody{Message: "nutrition lookup failed"})
		default:
			s.apiError(w, r, err, "")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) foodDelete(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "foodId"), 10, 64)
	if err != nil || id <= 0 {
		writeValidation(w, map[string]string{"foodId": "must be a positive integer"})
		return
	}
	item, err := s.ledger.DeleteItem(r.Context(), u.ID, id)
	if err != nil {
		s.apiError(w, r, err, "food item not found")
		return
	}
	s.log.Info("food item deleted", zap.Int64("user_id", u.ID), zap.Int64("item_id", item.ID), zap.Int64("log_id", item.LogID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) logSearch(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeValidation(w, map[string]string{"date": "is required"})
		return
	}
	date, err := model.ParseDate(raw)
	if err != nil {
		writeValidation(w, map[string]string{"date": "must be a date in YYYY-MM-DD format"})
		return
	}
	logs, err := s.ledger.ListByDate(r.Context(), u.ID, date)
	if err != nil {
		s.apiError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"meals_logged": convert.ToLogsOut(logs)})
}

func (s *Server) logNew(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	var req convert.LogNewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := s.check(req); fields != nil {
		writeValidation(w, fields)
		return
	}
	date, err := model.ParseDate(req.DateString)
	if err != nil {
		writeValidation(w, map[string]string{"date_string": "must be a date in YYYY-MM-DD format"})
		return
	}
	l, err := s.ledger.LogMeal(r.Context(), u.ID, date, req.MealNo, convert.FromFoodItemsIn(req.FoodItems))
	if err != nil {
		s.apiError(w, r, err, "log not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"log": convert.ToLogOut(*l)})
}

func (s *Server) logUpdate(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	var req convert.LogUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := s.check(req); fields != nil {
		writeValidation(w, fields)
		return
	}
	date, err := model.ParseDate(req.DateString)
	if err != nil {
		writeValidation(w, map[string]string{"date_string": "must be a date in YYYY-MM-DD format"})
		return
	}
	l, err := s.ledger.ReassignItem(r.Context(), u.ID, date, req.MealNo, req.UpdatedItemID)
	if err != nil {
		s.apiError(w, r, err, "food item not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"log": convert.ToLogOut(*l)})
}

func (s *Server) userEdit(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	var req convert.UserEditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if fields := s.check(req); fields != nil {
		writeValidation(w, fields)
		return
	}
	updated, err := s.auth.UpdateProfile(r.Context(), u.ID, model.Profile{
		Name:     req.Name,
		Email:    req.Email,
		Username: req.Username,
	})
	if err != nil {
		s.apiError(w, r, err, "user not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": convert.ToUserOut(*updated)})
}
