package httpapi

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/faideww/catchlog/internal/achievement"
	"github.com/faideww/catchlog/internal/catchrecord"
	"github.com/faideww/catchlog/internal/fish"
	"github.com/faideww/catchlog/internal/geo"
	"github.com/faideww/catchlog/internal/identify"
	"github.com/faideww/catchlog/internal/session"
	"github.com/faideww/catchlog/internal/userdata"
	"github.com/faideww/catchlog/internal/validate"
)

type sessionResponse struct {
	LoggedIn bool               `json:"loggedIn"`
	User     *session.LoginInfo `json:"user,omitempty"`
	Profile  *session.Profile   `json:"profile,omitempty"`
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp := sessionResponse{}
	if s.Session.ValidateSession(ctx, transport(r)) && s.Session.IsLoggedIn(ctx) {
		resp.LoggedIn = true
		if u, ok := s.Session.CurrentUser(ctx); ok {
			resp.User = &u
		}
		if p, ok := s.Session.Profile(ctx); ok {
			resp.Profile = &p
		}
		if err := s.Session.Touch(ctx); err != nil {
			s.Logger.Warn("session touch failed", "err", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type loginRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	var profile *session.Profile
	if req.Username != "" {
		p, err := validate.CheckProfile(validate.Profile{Name: req.Name, Username: req.Username, Email: req.Email})
		if err != nil {
			writeValidation(w, err)
			return
		}
		profile = &session.Profile{Name: p.Name, Username: p.Username, Email: p.Email}
		req.Name, req.Email = p.Name, p.Email
	}

	ctx := r.Context()
	err := s.Session.Login(ctx, session.LoginInfo{Email: req.Email, Name: req.Name}, profile)
	if errors.Is(err, session.ErrInvalidLogin) {
		writeError(w, http.StatusBadRequest, "email and name are required")
		return
	}
	if err != nil {
		s.Logger.Error("login failed", "err", err)
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	s.Guard.Login.Reset(clientKey(r))

	u, _ := s.Session.CurrentUser(ctx)
	writeJSON(w, http.StatusOK, sessionResponse{LoggedIn: true, User: &u, Profile: profile})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	var req session.Profile
	if !decode(w, r, &req) {
		return
	}
	p, err := validate.CheckProfile(validate.Profile{Name: req.Name, Username: req.Username, Email: req.Email})
	if err != nil {
		writeValidation(w, err)
		return
	}
	req.Name, req.Username, req.Email = p.Name, p.Username, p.Email
	if err := s.Session.SaveProfile(r.Context(), req); err != nil {
		s.Logger.Error("save profile failed", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to save profile")
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type identifyRequest struct {
	Image string `json:"image"`
}

// identify always answers 200 when the request is well formed: the
// location and any pipeline error travel together in the body.
func (s *Server) identify(w http.ResponseWriter, r *http.Request) {
	var req identifyRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Image != "" {
		if _, err := validate.CheckImage(req.Image); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	res := s.Pipeline.Run(r.Context(), req.Image)
	writeJSON(w, http.StatusOK, res)
}

type saveCatchRequest struct {
	Fish     *identify.FishResult `json:"fish"`
	Location *geo.Location        `json:"location"`
	Image    string               `json:"image"`
	// Manual marks an entry whose analysis failed.
	Manual   bool   `json:"manual"`
	LureID   string `json:"lureId"`
	LureName string `json:"lureName"`
}

func (s *Server) saveCatch(w http.ResponseWriter, r *http.Request) {
	var req saveCatchRequest
	if !decode(w, r, &req) {
		return
	}
	ctx := r.Context()

	if req.Manual || req.Fish == nil {
		rec, err := s.Catches.SaveManual(ctx, catchrecord.ManualOptions{
			Fish:     req.Fish,
			Location: req.Location,
			Image:    req.Image,
			LureID:   req.LureID,
			LureName: req.LureName,
		})
		if err != nil {
			s.catchError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, catchrecord.SaveResult{Success: true, CatchRecord: rec})
		return
	}

	res, err := s.Catches.SaveCatch(ctx, catchrecord.SaveOptions{Fish: req.Fish, Location: req.Location, Image: req.Image})
	if err != nil {
		s.catchError(w, err)
		return
	}
	if req.LureID != "" {
		c, _, err := s.Catches.AttachLure(ctx, res.CatchRecord.ID, req.LureID)
		if err != nil {
			s.Logger.Warn("catch saved without lure", "id", res.CatchRecord.ID, "lure", req.LureID, "err", err)
		} else {
			res.CatchRecord = c
		}
	}
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) catchError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catchrecord.ErrImageRequired), errors.Is(err, catchrecord.ErrFishRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "Failed to save your catch. Please try again.")
	}
}

type attachLureRequest struct {
	LureID string `json:"lureId"`
}

func (s *Server) attachLure(w http.ResponseWriter, r *http.Request) {
	var req attachLureRequest
	if !decode(w, r, &req) {
		return
	}
	c, l, err := s.Catches.AttachLure(r.Context(), mux.Vars(r)["id"], req.LureID)
	switch {
	case errors.Is(err, userdata.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"catch": c, "lure": l})
}

func (s *Server) topCatches(w http.ResponseWriter, r *http.Request) {
	limit := achievement.DefaultTopLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be a number")
			return
		}
		limit = n
	}
	history := achievement.LoadCatchHistory(r.Context(), s.KV)
	writeJSON(w, http.StatusOK, achievement.TopCatches(history, limit))
}

func (s *Server) bests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, achievement.LoadPersonalBests(r.Context(), s.KV, s.Clock.Now()))
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := s.Clock.Now()
	bests := achievement.LoadPersonalBests(ctx, s.KV, now)
	history := achievement.LoadCatchHistory(ctx, s.KV)
	writeJSON(w, http.StatusOK, achievement.Summarize(bests, history, now))
}

type speciesView struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ScientificName string   `json:"scientificName"`
	Rarity         string   `json:"rarity"`
	Habitat        []string `json:"habitat"`
}

func (s *Server) species(w http.ResponseWriter, r *http.Request) {
	var list []fish.Species
	if q := r.URL.Query().Get("rarity"); q != "" {
		tier, ok := fish.ParseRarity(q)
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown rarity")
			return
		}
		list = s.Registry.ByRarity(tier)
	} else {
		list = s.Registry.All()
	}
	out := make([]speciesView, len(list))
	for i, sp := range list {
		out[i] = speciesView{ID: sp.Key, Name: sp.Name, ScientificName: sp.ScientificName, Rarity: sp.Rarity.String(), Habitat: sp.Habitat}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getUserData(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Repo.Data())
}

// patchUserData replaces the top-level fields present in the body.
func (s *Server) patchUserData(w http.ResponseWriter, r *http.Request) {
	var p userdata.Patch
	if !decode(w, r, &p) {
		return
	}
	if p.Empty() {
		writeError(w, http.StatusBadRequest, "nothing to update")
		return
	}
	if p.Preferences != nil {
		if err := validate.CheckUnits(p.Preferences.Units); err != nil {
			writeValidation(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.Repo.Update(p))
}

func (s *Server) clearUserData(w http.ResponseWriter, r *http.Request) {
	s.Repo.Clear(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+userdata.ExportFilename(s.Clock.Now())+`"`)
	if err := s.Repo.Export(w); err != nil {
		s.Logger.Error("export failed", "err", err)
	}
}

func (s *Server) addCatch(w http.ResponseWriter, r *http.Request) {
	var req fish.CatchRecord
	if !decode(w, r, &req) {
		return
	}
	var weight float64
	if req.Weight != nil {
		weight = *req.Weight
	}
	c, err := validate.CheckCatch(validate.Catch{
		Species:  req.Species,
		Weight:   weight,
		Length:   req.Length,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		writeValidation(w, err)
		return
	}
	req.ID = ""
	req.Species, req.Location, req.Notes = c.Species, c.Location, c.Notes
	writeJSON(w, http.StatusCreated, s.Repo.AddCatch(req))
}

func (s *Server) addLure(w http.ResponseWriter, r *http.Request) {
	var req validate.Lure
	if !decode(w, r, &req) {
		return
	}
	l, err := validate.CheckLure(req)
	if err != nil {
		writeValidation(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.Repo.AddLure(fish.Lure{Name: l.Name, Type: l.Type, Color: l.Color}))
}

type logsResponse struct {
	Lines []string `json:"lines"`
}

func (s *Server) recentLogs(w http.ResponseWriter, r *http.Request) {
	resp := logsResponse{Lines: []string{}}
	if s.Logs != nil {
		if lines := s.Logs.Lines(); lines != nil {
			resp.Lines = lines
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeValidation(w http.ResponseWriter, err error) {
	var fields validate.Errors
	if errors.As(err, &fields) {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "validation failed", Fields: fields})
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}
