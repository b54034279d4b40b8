package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/floramind/floramind/internal/reminder"
	"github.com/floramind/floramind/internal/store"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		badRequest(w, "username, email and password required")
		return
	}

	user, err := s.db.CreateUser(req.Username, req.Email, req.Password)
	if err != nil {
		respond(w, 400, err.Error(), nil)
		return
	}

	token, err := s.db.IssueToken(user.ID)
	if err != nil {
		s.log.Errorw("issue token failed", "err", err)
		respond(w, 500, "registration failed", nil)
		return
	}

	respond(w, 200, "registered", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"token":    token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	user, err := s.db.Authenticate(req.Username, req.Password)
	if err == store.ErrInvalidCredentials {
		respond(w, 401, "wrong username or password", nil)
		return
	}
	if err != nil {
		s.log.Errorw("login failed", "err", err)
		respond(w, 500, "login failed", nil)
		return
	}

	token, err := s.db.IssueToken(user.ID)
	if err != nil {
		s.log.Errorw("issue token failed", "err", err)
		respond(w, 500, "login failed", nil)
		return
	}

	respond(w, 200, "ok", map[string]any{
		"user_id":  user.ID,
		"username": user.Username,
		"token":    token,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	if len(token) > 7 {
		token = token[7:] // strip "Bearer "
	}
	if err := s.db.RevokeToken(token); err != nil {
		s.log.Errorw("revoke token failed", "err", err)
	}
	respond(w, 200, "logged out", nil)
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	respond(w, 200, "ok", map[string]any{
		"nickname":  u.Username,
		"email":     u.Email,
		"phone":     u.Phone,
		"avatar":    u.AvatarURL,
		"city":      u.LocationCity,
		"signature": u.Signature,
	})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var req struct {
		Nickname  *string `json:"nickname"`
		Phone     *string `json:"phone"`
		Avatar    *string `json:"avatar"`
		City      *string `json:"city"`
		Signature *string `json:"signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	err := s.db.UpdateProfile(u.ID, store.ProfileUpdate{
		Username:     req.Nickname,
		Phone:        req.Phone,
		AvatarURL:    req.Avatar,
		LocationCity: req.City,
		Signature:    req.Signature,
	})
	if err != nil {
		respond(w, 400, err.Error(), nil)
		return
	}
	respond(w, 200, "profile updated", nil)
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var req struct {
		OldPassword string `json:"old_password"`
		NewPassword string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.NewPassword == "" {
		badRequest(w, "new_password required")
		return
	}

	err := s.db.ChangePassword(u.ID, req.OldPassword, req.NewPassword)
	if err == store.ErrInvalidCredentials {
		respond(w, 400, "wrong password", nil)
		return
	}
	if err != nil {
		s.log.Errorw("change password failed", "err", err)
		respond(w, 500, "change password failed", nil)
		return
	}
	respond(w, 200, "password changed", nil)
}

func plantJSON(p *store.Plant) map[string]any {
	var watered, fertilized any
	if p.LastWatered != nil {
		watered = p.LastWatered.Format("2006-01-02")
	}
	if p.LastFertilized != nil {
		fertilized = p.LastFertilized.Format("2006-01-02")
	}
	return map[string]any{
		"id":              p.ID,
		"nickname":        p.Nickname,
		"species":         p.Species,
		"icon":            p.Icon,
		"water_cycle":     p.WaterCycle,
		"fertilize_cycle": p.FertilizeCycle,
		"last_watered":    watered,
		"last_fertilized": fertilized,
	}
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	plants, err := s.db.ListPlants(u.ID)
	if err != nil {
		s.log.Errorw("list plants failed", "err", err)
		respond(w, 500, "list plants failed", nil)
		return
	}

	out := make([]map[string]any, 0, len(plants))
	for i := range plants {
		out = append(out, plantJSON(&plants[i]))
	}
	respond(w, 200, "ok", out)
}

type plantRequest struct {
	Nickname       string `json:"nickname"`
	Species        string `json:"species"`
	Icon           string `json:"icon"`
	WaterCycle     int    `json:"water_cycle"`
	FertilizeCycle int    `json:"fertilize_cycle"`
	LastWatered    string `json:"last_watered"`
	LastFertilized string `json:"last_fertilized"`
}

func (req *plantRequest) input() store.PlantInput {
	return store.PlantInput{
		Nickname:       req.Nickname,
		Species:        req.Species,
		Icon:           req.Icon,
		WaterCycle:     req.WaterCycle,
		FertilizeCycle: req.FertilizeCycle,
		LastWatered:    req.LastWatered,
		LastFertilized: req.LastFertilized,
	}
}

func (s *Server) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var req plantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Nickname == "" || req.Species == "" {
		badRequest(w, "nickname and species required")
		return
	}

	plant, err := s.db.CreatePlant(u.ID, req.input())
	if err != nil {
		s.log.Errorw("create plant failed", "err", err)
		respond(w, 500, "create plant failed", nil)
		return
	}
	respond(w, 200, "plant added", map[string]any{
		"plant_id": plant.ID,
		"nickname": plant.Nickname,
	})
}

func plantID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "plantID"), 10, 64)
	return id, err == nil
}

func (s *Server) handleUpdatePlant(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, ok := plantID(r)
	if !ok {
		badRequest(w, "invalid plant id")
		return
	}

	var req plantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	updated, err := s.db.UpdatePlant(u.ID, id, req.input())
	if err != nil {
		s.log.Errorw("update plant failed", "err", err)
		respond(w, 500, "update plant failed", nil)
		return
	}
	if !updated {
		respond(w, 404, "plant not found", nil)
		return
	}
	respond(w, 200, "plant updated", nil)
}

func (s *Server) handleDeletePlant(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, ok := plantID(r)
	if !ok {
		badRequest(w, "invalid plant id")
		return
	}

	deleted, err := s.db.DeletePlant(u.ID, id)
	if err != nil {
		s.log.Errorw("delete plant failed", "err", err)
		respond(w, 500, "delete plant failed", nil)
		return
	}
	if !deleted {
		respond(w, 404, "plant not found", nil)
		return
	}
	respond(w, 200, "plant deleted", nil)
}

func (s *Server) handleRecordWater(w http.ResponseWriter, r *http.Request) {
	s.recordAction(w, r, reminder.ActionWater)
}

func (s *Server) handleRecordFertilize(w http.ResponseWriter, r *http.Request) {
	s.recordAction(w, r, reminder.ActionFertilize)
}

func (s *Server) recordAction(w http.ResponseWriter, r *http.Request, action reminder.Action) {
	u := currentUser(r)
	id, ok := plantID(r)
	if !ok {
		badRequest(w, "invalid plant id")
		return
	}

	now := s.clk.Now()
	recorded, err := s.db.RecordAction(u.ID, id, action, now)
	if err != nil {
		s.log.Errorw("record action failed", "action", action, "err", err)
		respond(w, 500, "record action failed", nil)
		return
	}
	if !recorded {
		respond(w, 404, "plant not found", nil)
		return
	}
	respond(w, 200, string(action)+" recorded", map[string]any{
		"plant_id":    id,
		"operation":   action,
		"operated_at": now.Format("2006-01-02"),
	})
}

// handleReminders is the main read path: care states from the store, the
// pure engine computation, then gateway enrichment. Provider outages
// degrade the output but never fail the request.
func (s *Server) handleReminders(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	states, err := s.db.CareStates(u.ID)
	if err != nil {
		s.log.Errorw("load care states failed", "err", err)
		respond(w, 500, "load reminders failed", nil)
		return
	}

	records := reminder.Compute(states, s.clk.Now())

	if len(records) > 0 && s.gateway != nil {
		snap := s.gateway.CurrentWeather(r.Context(), s.userCity(u))
		s.gateway.PersonalizeAll(r.Context(), records, snap.Summary())
	}

	if records == nil {
		records = []reminder.Record{}
	}
	respond(w, 200, "ok", map[string]any{
		"reminders": records,
		"total":     len(records),
	})
}

func (s *Server) userCity(u *store.User) string {
	if u.LocationCity != "" {
		return u.LocationCity
	}
	return s.defaultCity
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	snap := s.gateway.CurrentWeather(r.Context(), s.userCity(u))
	respond(w, 200, "ok", snap)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		respond(w, 503, "chat not configured", nil)
		return
	}

	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Message == "" {
		badRequest(w, "message required")
		return
	}

	reply, err := s.chat.Ask(r.Context(), req.ConversationID, req.Message)
	if err != nil {
		s.log.Errorw("chat failed", "err", err)
		respond(w, 502, "assistant temporarily unavailable", nil)
		return
	}
	respond(w, 200, "ok", reply)
}

type diaryRequest struct {
	PlantID      *int64 `json:"plant_id"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	ActivityType string `json:"activity_type"`
	Weather      string `json:"weather"`
	DiaryDate    string `json:"diary_date"`
}

func (req *diaryRequest) input() store.DiaryInput {
	return store.DiaryInput{
		PlantID:      req.PlantID,
		Title:        req.Title,
		Content:      req.Content,
		ActivityType: req.ActivityType,
		Weather:      req.Weather,
		DiaryDate:    req.DiaryDate,
	}
}

func (s *Server) handleListDiaries(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	entries, err := s.db.ListDiaries(u.ID)
	if err != nil {
		s.log.Errorw("list diaries failed", "err", err)
		respond(w, 500, "list diaries failed", nil)
		return
	}

	out := make([]map[string]any, 0, len(entries))
	for _, d := range entries {
		out = append(out, map[string]any{
			"id":            d.ID,
			"plant_id":      d.PlantID,
			"title":         d.Title,
			"content":       d.Content,
			"activity_type": d.ActivityType,
			"weather":       d.Weather,
			"diary_date":    d.DiaryDate,
		})
	}
	respond(w, 200, "ok", out)
}

func (s *Server) handleCreateDiary(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)

	var req diaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}
	if req.Content == "" {
		badRequest(w, "content required")
		return
	}

	entry, err := s.db.CreateDiary(u.ID, req.input())
	if err != nil {
		s.log.Errorw("create diary failed", "err", err)
		respond(w, 500, "create diary failed", nil)
		return
	}
	respond(w, 200, "diary added", map[string]any{"diary_id": entry.ID})
}

func diaryID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "diaryID"), 10, 64)
	return id, err == nil
}

func (s *Server) handleUpdateDiary(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, ok := diaryID(r)
	if !ok {
		badRequest(w, "invalid diary id")
		return
	}

	var req diaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid json")
		return
	}

	updated, err := s.db.UpdateDiary(u.ID, id, req.input())
	if err != nil {
		s.log.Errorw("update diary failed", "err", err)
		respond(w, 500, "update diary failed", nil)
		return
	}
	if !updated {
		respond(w, 404, "diary not found", nil)
		return
	}
	respond(w, 200, "diary updated", nil)
}

func (s *Server) handleDeleteDiary(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	id, ok := diaryID(r)
	if !ok {
		badRequest(w, "invalid diary id")
		return
	}

	deleted, err := s.db.DeleteDiary(u.ID, id)
	if err != nil {
		s.log.Errorw("delete diary failed", "err", err)
		respond(w, 500, "delete diary failed", nil)
		return
	}
	if !deleted {
		respond(w, 404, "diary not found", nil)
		return
	}
	respond(w, 200, "diary deleted", nil)
}
