package api

// Enumerations shared by several resources.
type (
	Gender           string
	MealType         string
	HabitLogStatus   string
	DrinkType        string
	CheckpointPhase  string
	CheckpointStatus string
	EvaluationStatus string
	FocusTag         string
)

const (
	GenderMale           Gender = "MALE"
	GenderFemale         Gender = "FEMALE"
	GenderOther          Gender = "OTHER"
	GenderPreferNotToSay Gender = "PREFER_NOT_TO_SAY"

	MealBreakfast MealType = "BREAKFAST"
	MealLunch     MealType = "LUNCH"
	MealDinner    MealType = "DINNER"
	MealSnack     MealType = "SNACK"

	HabitDone    HabitLogStatus = "DONE"
	HabitMissed  HabitLogStatus = "MISSED"
	HabitSkipped HabitLogStatus = "SKIPPED"

	DrinkBeer    DrinkType = "BEER"
	DrinkWine    DrinkType = "WINE"
	DrinkSpirits DrinkType = "SPIRITS"
	DrinkCustom  DrinkType = "CUSTOM"
)

// --- Auth ---

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is returned by login, register and refresh.
type AuthResponse struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// --- Profile ---

type UserProfileRequest struct {
	Age              *int     `json:"age,omitempty"`
	HeightCm         *float64 `json:"heightCm,omitempty"`
	StartingWeightKg *float64 `json:"startingWeightKg,omitempty"`
	TargetWeightKg   *float64 `json:"targetWeightKg,omitempty"`
	Timezone         string   `json:"timezone,omitempty"`
	Gender           Gender   `json:"gender,omitempty"`
}

type UserProfileResponse struct {
	ID               string  `json:"id"`
	UserID           string  `json:"userId"`
	Email            string  `json:"email"`
	FirstName        string  `json:"firstName"`
	LastName         string  `json:"lastName"`
	Age              int     `json:"age"`
	HeightCm         float64 `json:"heightCm"`
	StartingWeightKg float64 `json:"startingWeightKg"`
	TargetWeightKg   float64 `json:"targetWeightKg"`
	Timezone         string  `json:"timezone"`
	Gender           Gender  `json:"gender"`
	CreatedAt        string  `json:"createdAt"`
	UpdatedAt        string  `json:"updatedAt"`
}

// --- Weight ---

type WeightEntryRequest struct {
	Date     string  `json:"date"`
	WeightKg float64 `json:"weightKg"`
	Notes    string  `json:"notes,omitempty"`
}

type WeightEntryResponse struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	WeightKg  float64 `json:"weightKg"`
	Notes     string  `json:"notes"`
	CreatedAt string  `json:"createdAt"`
}

type CheckpointProgressItem struct {
	Title          string  `json:"title"`
	CheckpointDate string  `json:"checkpointDate"`
	TargetWeight   float64 `json:"targetWeight"`
	ActualWeight   float64 `json:"actualWeight"`
	Status         string  `json:"status"`
}

type WeightStatsResponse struct {
	CurrentWeight      float64                  `json:"currentWeight"`
	CurrentWeightDate  string                   `json:"currentWeightDate"`
	StartingWeight     float64                  `json:"startingWeight"`
	TotalChange        float64                  `json:"totalChange"`
	RollingAvg7Day     float64                  `json:"rollingAvg7Day"`
	CheckpointProgress []CheckpointProgressItem `json:"checkpointProgress"`
}

// --- Meal and workout plans ---

type MealItem struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name"`
	Portion  string  `json:"portion,omitempty"`
	Calories float64 `json:"calories,omitempty"`
	ProteinG float64 `json:"proteinG,omitempty"`
	CarbsG   float64 `json:"carbsG,omitempty"`
	FatG     float64 `json:"fatG,omitempty"`
}

type Meal struct {
	ID       string     `json:"id,omitempty"`
	MealType MealType   `json:"mealType"`
	Items    []MealItem `json:"items,omitempty"`
}

type MealPlanDay struct {
	ID        string `json:"id,omitempty"`
	DayOfWeek int    `json:"dayOfWeek"`
	Meals     []Meal `json:"meals,omitempty"`
}

type MealPlanRequest struct {
	WeekStartDate string        `json:"weekStartDate"`
	Days          []MealPlanDay `json:"days,omitempty"`
}

type MealPlanResponse struct {
	ID            string        `json:"id"`
	WeekStartDate string        `json:"weekStartDate"`
	Days          []MealPlanDay `json:"days"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

type Exercise struct {
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name"`
	Sets       int     `json:"sets,omitempty"`
	Reps       int     `json:"reps,omitempty"`
	Duration   int     `json:"duration,omitempty"`
	Weight     float64 `json:"weight,omitempty"`
	OrderIndex int     `json:"orderIndex"`
}

type WorkoutSession struct {
	ID         string     `json:"id,omitempty"`
	Name       string     `json:"name"`
	OrderIndex int        `json:"orderIndex"`
	Exercises  []Exercise `json:"exercises,omitempty"`
}

type WorkoutDay struct {
	ID        string           `json:"id,omitempty"`
	DayOfWeek int              `json:"dayOfWeek"`
	Sessions  []WorkoutSession `json:"sessions,omitempty"`
}

type WorkoutPlanRequest struct {
	WeekStartDate string       `json:"weekStartDate"`
	Days          []WorkoutDay `json:"days,omitempty"`
}

type WorkoutPlanResponse struct {
	ID            string       `json:"id"`
	WeekStartDate string       `json:"weekStartDate"`
	Days          []WorkoutDay `json:"days"`
	CreatedAt     string       `json:"createdAt"`
	UpdatedAt     string       `json:"updatedAt"`
}

// --- Habits ---

type HabitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	IsActive    *bool  `json:"isActive,omitempty"`
}

type HabitResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"isActive"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

type HabitLogRequest struct {
	Date   string         `json:"date"`
	Status HabitLogStatus `json:"status"`
	Notes  string         `json:"notes,omitempty"`
}

type HabitLogResponse struct {
	ID        string         `json:"id"`
	HabitID   string         `json:"habitId"`
	Date      string         `json:"date"`
	Status    HabitLogStatus `json:"status"`
	Notes     string         `json:"notes"`
	CreatedAt string         `json:"createdAt"`
}

type HabitAnalyticsResponse struct {
	HabitName      string  `json:"habitName"`
	CurrentStreak  int     `json:"currentStreak"`
	Adherence7Day  float64 `json:"adherence7Day"`
	Adherence30Day float64 `json:"adherence30Day"`
	TotalDone      int     `json:"totalDone"`
	TotalMissed    int     `json:"totalMissed"`
	TotalSkipped   int     `json:"totalSkipped"`
}

// --- Journal ---

type JournalEntryRequest struct {
	Date       string   `json:"date"`
	AteNotes   string   `json:"ateNotes,omitempty"`
	Tags       string   `json:"tags,omitempty"`
	Mood       *int     `json:"mood,omitempty"`
	Emotions   string   `json:"emotions,omitempty"`
	Notes      string   `json:"notes,omitempty"`
	Energy     *int     `json:"energy,omitempty"`
	SleepHours *float64 `json:"sleepHours,omitempty"`
	Stress     *int     `json:"stress,omitempty"`
}

type JournalEntryResponse struct {
	ID         string  `json:"id"`
	Date       string  `json:"date"`
	AteNotes   string  `json:"ateNotes"`
	Tags       string  `json:"tags"`
	Mood       int     `json:"mood"`
	Emotions   string  `json:"emotions"`
	Notes      string  `json:"notes"`
	Energy     int     `json:"energy"`
	SleepHours float64 `json:"sleepHours"`
	Stress     int     `json:"stress"`
	CreatedAt  string  `json:"createdAt"`
	UpdatedAt  string  `json:"updatedAt"`
}

// --- Smoking ---

type SmokingLogRequest struct {
	Date            string `json:"date"`
	CigarettesCount *int   `json:"cigarettesCount,omitempty"`
	SmokeFree       bool   `json:"smokeFree"`
	Cravings        *int   `json:"cravings,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

type SmokingLogResponse struct {
	ID              string `json:"id"`
	Date            string `json:"date"`
	CigarettesCount int    `json:"cigarettesCount"`
	SmokeFree       bool   `json:"smokeFree"`
	Cravings        int    `json:"cravings"`
	Notes           string `json:"notes"`
	CreatedAt       string `json:"createdAt"`
	UpdatedAt       string `json:"updatedAt"`
}

type SmokingTrendPoint struct {
	Date            string `json:"date"`
	CigarettesCount int    `json:"cigarettesCount"`
	SmokeFree       bool   `json:"smokeFree"`
	Cravings        int    `json:"cravings"`
}

type SmokingAnalyticsResponse struct {
	SmokeFreeStreak     int                 `json:"smokeFreeStreak"`
	WeeklyAvgCigarettes float64             `json:"weeklyAvgCigarettes"`
	TrendPoints         []SmokingTrendPoint `json:"trendPoints"`
}

// --- Alcohol ---

type AlcoholLogRequest struct {
	Date       string    `json:"date"`
	DrinkType  DrinkType `json:"drinkType"`
	CustomName string    `json:"customName,omitempty"`
	Units      float64   `json:"units"`
	VolumeMl   *float64  `json:"volumeMl,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

type AlcoholLogResponse struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	DrinkType  DrinkType `json:"drinkType"`
	CustomName string    `json:"customName"`
	Units      float64   `json:"units"`
	VolumeMl   float64   `json:"volumeMl"`
	Notes      string    `json:"notes"`
	CreatedAt  string    `json:"createdAt"`
}

type AlcoholMonthlyTrend struct {
	Month        string  `json:"month"`
	TotalUnits   float64 `json:"totalUnits"`
	DrinkingDays int     `json:"drinkingDays"`
}

type AlcoholAnalyticsResponse struct {
	UnitsThisWeek     float64               `json:"unitsThisWeek"`
	AlcoholFreeStreak int                   `json:"alcoholFreeStreak"`
	MonthlyTrend      []AlcoholMonthlyTrend `json:"monthlyTrend"`
}

// --- Calendar ---

type CalendarDay struct {
	Date            string `json:"date"`
	HasWeight       bool   `json:"hasWeight"`
	HasJournal      bool   `json:"hasJournal"`
	HasMealPlan     bool   `json:"hasMealPlan"`
	HasWorkoutPlan  bool   `json:"hasWorkoutPlan"`
	HabitDoneCount  int    `json:"habitDoneCount"`
	HabitTotalCount int    `json:"habitTotalCount"`
	HasSmokingLog   bool   `json:"hasSmokingLog"`
	HasAlcoholLog   bool   `json:"hasAlcoholLog"`
}

type CalendarTotals struct {
	DaysWithWeight      int `json:"daysWithWeight"`
	DaysWithJournal     int `json:"daysWithJournal"`
	DaysWithMealPlan    int `json:"daysWithMealPlan"`
	DaysWithWorkoutPlan int `json:"daysWithWorkoutPlan"`
	TotalHabitsDone     int `json:"totalHabitsDone"`
	TotalHabitsLogged   int `json:"totalHabitsLogged"`
	DaysWithSmokingLog  int `json:"daysWithSmokingLog"`
	DaysWithAlcoholLog  int `json:"daysWithAlcoholLog"`
}

type CalendarResponse struct {
	Days   []CalendarDay  `json:"days"`
	Totals CalendarTotals `json:"totals"`
}

// --- Programs and checkpoints ---

type TargetMetrics struct {
	TargetWeightChangeKg *float64 `json:"targetWeightChangeKg,omitempty"`
	TargetWaistChangeCm  *float64 `json:"targetWaistChangeCm,omitempty"`
	TrainingDaysPerWeek  *int     `json:"trainingDaysPerWeek,omitempty"`
	StepsAverage         *int     `json:"stepsAverage,omitempty"`
	DietComplianceTarget *float64 `json:"dietComplianceTarget,omitempty"`
}

type ProgramRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type CheckpointResponse struct {
	ID             string           `json:"id"`
	ProgramID      string           `json:"programId"`
	CheckpointDate string           `json:"checkpointDate"`
	Title          string           `json:"title"`
	Phase          CheckpointPhase  `json:"phase"`
	FocusTags      []FocusTag       `json:"focusTags"`
	TargetMetrics  TargetMetrics    `json:"targetMetrics"`
	TargetWeightKg float64          `json:"targetWeightKg"`
	Notes          string           `json:"notes"`
	Status         CheckpointStatus `json:"status"`
}

type ProgramResponse struct {
	ID          string               `json:"id"`
	UserID      string               `json:"userId"`
	StartDate   string               `json:"startDate"`
	EndDate     string               `json:"endDate"`
	Notes       string               `json:"notes"`
	Checkpoints []CheckpointResponse `json:"checkpoints"`
	CreatedAt   string               `json:"createdAt"`
	UpdatedAt   string               `json:"updatedAt"`
}

type CheckpointUpdateRequest struct {
	Phase          CheckpointPhase  `json:"phase,omitempty"`
	FocusTags      []FocusTag       `json:"focusTags,omitempty"`
	TargetMetrics  *TargetMetrics   `json:"targetMetrics,omitempty"`
	TargetWeightKg *float64         `json:"targetWeightKg,omitempty"`
	Notes          string           `json:"notes,omitempty"`
	Status         CheckpointStatus `json:"status,omitempty"`
}

type ProgressEntryRequest struct {
	Date                string   `json:"date"`
	WeightKg            *float64 `json:"weightKg,omitempty"`
	WaistCm             *float64 `json:"waistCm,omitempty"`
	StepsAvg            *int     `json:"stepsAvg,omitempty"`
	WorkoutsCompleted   *int     `json:"workoutsCompleted,omitempty"`
	DietComplianceScore *float64 `json:"dietComplianceScore,omitempty"`
	Notes               string   `json:"notes,omitempty"`
	Photos              []string `json:"photos,omitempty"`
}

type ProgressEntryResponse struct {
	ID                  string   `json:"id"`
	ProgramID           string   `json:"programId"`
	Date                string   `json:"date"`
	WeightKg            float64  `json:"weightKg"`
	WaistCm             float64  `json:"waistCm"`
	StepsAvg            int      `json:"stepsAvg"`
	WorkoutsCompleted   int      `json:"workoutsCompleted"`
	DietComplianceScore float64  `json:"dietComplianceScore"`
	Notes               string   `json:"notes"`
	Photos              []string `json:"photos"`
	CreatedAt           string   `json:"createdAt"`
	UpdatedAt           string   `json:"updatedAt"`
}

type CheckpointEvaluationResponse struct {
	CheckpointID              string           `json:"checkpointId"`
	CheckpointTitle           string           `json:"checkpointTitle"`
	CheckpointDate            string           `json:"checkpointDate"`
	Status                    EvaluationStatus `json:"status"`
	Summary                   string           `json:"summary"`
	EntriesAnalyzed           int              `json:"entriesAnalyzed"`
	AvgWeightChangeKg         float64          `json:"avgWeightChangeKg"`
	TargetWeightChangeKg      float64          `json:"targetWeightChangeKg"`
	AvgWaistChangeCm          float64          `json:"avgWaistChangeCm"`
	TargetWaistChangeCm       float64          `json:"targetWaistChangeCm"`
	AvgWorkoutsPerWeek        float64          `json:"avgWorkoutsPerWeek"`
	TargetTrainingDaysPerWeek float64          `json:"targetTrainingDaysPerWeek"`
	AvgStepsAvg               float64          `json:"avgStepsAvg"`
	TargetStepsAverage        float64          `json:"targetStepsAverage"`
	AvgDietCompliance         float64          `json:"avgDietCompliance"`
	TargetDietCompliance      float64          `json:"targetDietCompliance"`
}
