package workout

import (
	"fmt"
	"time"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"

	"github.com/sirupsen/logrus"
)

// DefaultListLimit is used when a caller asks for recent workouts
// without specifying how many.
const DefaultListLimit = 10

// RecordRequest contains all the parameters needed to record a workout
type RecordRequest struct {
	// Date of the workout; zero value means "now".
	Date      time.Time
	Name      string
	Exercises []ExerciseInput
}

// ExerciseInput is one exercise with its ordered sets
type ExerciseInput struct {
	Name string
	Sets []SetInput
}

// SetInput is a single set; all metrics optional, positive when present
type SetInput struct {
	SetNumber   *int
	Repetitions *int
	WeightKg    *float64
}

// WorkoutService handles the business logic for workout records
type WorkoutService struct {
	db db.Database
}

// NewWorkoutService creates a new WorkoutService
func NewWorkoutService(database db.Database) *WorkoutService {
	return &WorkoutService{
		db: database,
	}
}

// Record validates and persists a workout for the given user. The
// validation invariants (at least one exercise, at least one set per
// exercise, positive metrics) are enforced here, before any database
// write.
func (s *WorkoutService) Record(userID string, req RecordRequest) (*db.Workout, error) {
	if err := validateRecordRequest(req); err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = time.Now()
	}

	workout := &db.Workout{
		Date: date,
		Name: req.Name,
	}
	for _, exercise := range req.Exercises {
		ex := db.Exercise{Name: exercise.Name}
		for _, set := range exercise.Sets {
			ex.Sets = append(ex.Sets, db.WorkoutSet{
				SetNumber:   set.SetNumber,
				Repetitions: set.Repetitions,
				WeightKg:    set.WeightKg,
			})
		}
		workout.Exercises = append(workout.Exercises, ex)
	}

	created, err := s.db.CreateWorkout(userID, workout)
	if err != nil {
		return nil, fmt.Errorf("failed to save workout: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"workout_id": created.ID,
		"user_id":    userID,
	}).Debug("Workout recorded")

	return created, nil
}

// ListRecent retrieves the user's most recent workouts, newest first,
// capped at limit (DefaultListLimit when limit is not positive).
func (s *WorkoutService) ListRecent(userID string, limit int) ([]db.Workout, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	workouts, err := s.db.GetRecentWorkouts(userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve workouts: %w", err)
	}

	return workouts, nil
}

func validateRecordRequest(req RecordRequest) error {
	if len(req.Exercises) == 0 {
		return fmt.Errorf("workout must contain at least one exercise")
	}

	for i, exercise := range req.Exercises {
		if exercise.Name == "" {
			return fmt.Errorf("exercise %d is missing a name", i+1)
		}
		if len(exercise.Sets) == 0 {
			return fmt.Errorf("exercise %q must contain at least one set", exercise.Name)
		}
		for j, set := range exercise.Sets {
			if set.SetNumber != nil && *set.SetNumber <= 0 {
				return fmt.Errorf("exercise %q set %d: set number must be positive", exercise.Name, j+1)
			}
			if set.Repetitions != nil && *set.Repetitions <= 0 {
				return fmt.Errorf("exercise %q set %d: repetitions must be positive", exercise.Name, j+1)
			}
			if set.WeightKg != nil && *set.WeightKg <= 0 {
				return fmt.Errorf("exercise %q set %d: weight must be positive", exercise.Name, j+1)
			}
		}
	}

	return nil
}
