package api

import (
	"context"
	"net/http"
	"net/url"
)

// --- Auth ---

// Login posts credentials to /auth/login.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, "/auth/login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account via /auth/register.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var out AuthResponse
	if err := c.post(ctx, "/auth/refresh", RefreshTokenRequest{RefreshToken: refreshToken}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes refreshToken on the server.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	return c.post(ctx, "/auth/logout", RefreshTokenRequest{RefreshToken: refreshToken}, nil)
}

// LogoutAll revokes every refresh token of the authenticated user.
func (c *Client) LogoutAll(ctx context.Context) error {
	return c.post(ctx, "/auth/logout-all", nil, nil)
}

// --- Generic collections ---

// Resource is a CRUD collection rooted at a path.
type Resource[Req, Resp any] struct {
	c    *Client
	path string
}

func newResource[Req, Resp any](c *Client, path string) *Resource[Req, Resp] {
	return &Resource[Req, Resp]{c: c, path: path}
}

func (r *Resource[Req, Resp]) item(id string) string {
	return r.path + "/" + url.PathEscape(id)
}

func (r *Resource[Req, Resp]) Create(ctx context.Context, req Req) (*Resp, error) {
	var out Resp
	if err := r.c.post(ctx, r.path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[Req, Resp]) List(ctx context.Context) ([]Resp, error) {
	var out []Resp
	if err := r.c.get(ctx, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[Req, Resp]) ListPaged(ctx context.Context, p PageParams) (*Page[Resp], error) {
	var out Page[Resp]
	if err := r.c.get(ctx, r.path+"/paged", p.Values(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[Req, Resp]) Get(ctx context.Context, id string) (*Resp, error) {
	var out Resp
	if err := r.c.get(ctx, r.item(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[Req, Resp]) Update(ctx context.Context, id string, req Req) (*Resp, error) {
	var out Resp
	if err := r.c.put(ctx, r.item(id), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Resource[Req, Resp]) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, r.item(id))
}

// --- Profile ---

func (c *Client) Profile(ctx context.Context) (*UserProfileResponse, error) {
	var out UserProfileResponse
	if err := c.get(ctx, "/profile", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProfile(ctx context.Context, req UserProfileRequest) (*UserProfileResponse, error) {
	var out UserProfileResponse
	if err := c.put(ctx, "/profile", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Weight ---

type WeightAPI struct {
	*Resource[WeightEntryRequest, WeightEntryResponse]
}

func (c *Client) Weight() WeightAPI {
	return WeightAPI{newResource[WeightEntryRequest, WeightEntryResponse](c, "/weight")}
}

func (w WeightAPI) Stats(ctx context.Context) (*WeightStatsResponse, error) {
	var out WeightStatsResponse
	if err := w.c.get(ctx, w.path+"/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Journal ---

func (c *Client) Journal() *Resource[JournalEntryRequest, JournalEntryResponse] {
	return newResource[JournalEntryRequest, JournalEntryResponse](c, "/journal")
}

// --- Meal and workout plans ---

type MealPlanAPI struct {
	*Resource[MealPlanRequest, MealPlanResponse]
}

func (c *Client) MealPlans() MealPlanAPI {
	return MealPlanAPI{newResource[MealPlanRequest, MealPlanResponse](c, "/meal-plans")}
}

// CopyLastWeek clones the previous week's plan into weekStartDate.
func (m MealPlanAPI) CopyLastWeek(ctx context.Context, weekStartDate string) (*MealPlanResponse, error) {
	var out MealPlanResponse
	q := url.Values{"weekStartDate": {weekStartDate}}
	if err := m.c.Do(ctx, http.MethodPost, m.path+"/copy-last-week", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) WorkoutPlans() *Resource[WorkoutPlanRequest, WorkoutPlanResponse] {
	return newResource[WorkoutPlanRequest, WorkoutPlanResponse](c, "/workout-plans")
}

// --- Habits ---

type HabitAPI struct {
	*Resource[HabitRequest, HabitResponse]
}

func (c *Client) Habits() HabitAPI {
	return HabitAPI{newResource[HabitRequest, HabitResponse](c, "/habits")}
}

func (h HabitAPI) Log(ctx context.Context, habitID string, req HabitLogRequest) (*HabitLogResponse, error) {
	var out HabitLogResponse
	if err := h.c.post(ctx, h.item(habitID)+"/logs", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (h HabitAPI) Logs(ctx context.Context, habitID string) ([]HabitLogResponse, error) {
	var out []HabitLogResponse
	if err := h.c.get(ctx, h.item(habitID)+"/logs", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (h HabitAPI) Analytics(ctx context.Context, habitID string) (*HabitAnalyticsResponse, error) {
	var out HabitAnalyticsResponse
	if err := h.c.get(ctx, h.item(habitID)+"/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Smoking ---

type SmokingAPI struct {
	*Resource[SmokingLogRequest, SmokingLogResponse]
}

func (c *Client) Smoking() SmokingAPI {
	return SmokingAPI{newResource[SmokingLogRequest, SmokingLogResponse](c, "/smoking")}
}

func (s SmokingAPI) Analytics(ctx context.Context) (*SmokingAnalyticsResponse, error) {
	var out SmokingAnalyticsResponse
	if err := s.c.get(ctx, s.path+"/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Alcohol ---

type AlcoholAPI struct {
	*Resource[AlcoholLogRequest, AlcoholLogResponse]
}

func (c *Client) Alcohol() AlcoholAPI {
	return AlcoholAPI{newResource[AlcoholLogRequest, AlcoholLogResponse](c, "/alcohol")}
}

func (a AlcoholAPI) Analytics(ctx context.Context) (*AlcoholAnalyticsResponse, error) {
	var out AlcoholAnalyticsResponse
	if err := a.c.get(ctx, a.path+"/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Calendar ---

func (c *Client) Calendar(ctx context.Context, from, to string) (*CalendarResponse, error) {
	var out CalendarResponse
	q := url.Values{"from": {from}, "to": {to}}
	if err := c.get(ctx, "/calendar", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// --- Programs ---

type ProgramAPI struct {
	*Resource[ProgramRequest, ProgramResponse]
}

func (c *Client) Programs() ProgramAPI {
	return ProgramAPI{newResource[ProgramRequest, ProgramResponse](c, "/programs")}
}

func (p ProgramAPI) checkpoint(programID, checkpointID string) string {
	return p.item(programID) + "/checkpoints/" + url.PathEscape(checkpointID)
}

func (p ProgramAPI) UpdateCheckpoint(ctx context.Context, programID, checkpointID string, req CheckpointUpdateRequest) (*CheckpointResponse, error) {
	var out CheckpointResponse
	if err := p.c.patch(ctx, p.checkpoint(programID, checkpointID), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p ProgramAPI) RegenerateCheckpoints(ctx context.Context, programID string) ([]CheckpointResponse, error) {
	var out []CheckpointResponse
	if err := p.c.post(ctx, p.item(programID)+"/checkpoints/regenerate", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p ProgramAPI) EvaluateCheckpoint(ctx context.Context, programID, checkpointID string) (*CheckpointEvaluationResponse, error) {
	var out CheckpointEvaluationResponse
	if err := p.c.post(ctx, p.checkpoint(programID, checkpointID)+"/evaluate", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p ProgramAPI) LogProgress(ctx context.Context, programID string, req ProgressEntryRequest) (*ProgressEntryResponse, error) {
	var out ProgressEntryResponse
	if err := p.c.post(ctx, p.item(programID)+"/progress", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Progress lists progress entries, restricted to [from, to] when both are set.
func (p ProgramAPI) Progress(ctx context.Context, programID, from, to string) ([]ProgressEntryResponse, error) {
	var q url.Values
	if from != "" && to != "" {
		q = url.Values{"from": {from}, "to": {to}}
	}
	var out []ProgressEntryResponse
	if err := p.c.get(ctx, p.item(programID)+"/progress", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (p ProgramAPI) DeleteProgress(ctx context.Context, programID, entryID string) error {
	return p.c.delete(ctx, p.item(programID)+"/progress/"+url.PathEscape(entryID))
}
