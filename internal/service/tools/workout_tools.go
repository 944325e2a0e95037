package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"life-agent/internal/service/workout"
)

// Parameter schemas for the workout tools. The jsonschema tags drive
// both the declaration sent to the model and the validation applied to
// the model's arguments before execution.

type recordWorkoutParams struct {
	Date      string           `json:"date,omitempty" jsonschema:"format=date-time" jsonschema_description:"Workout date in ISO 8601 format (e.g., YYYY-MM-DDTHH:mm:ssZ), defaults to today if omitted"`
	Name      string           `json:"name,omitempty" jsonschema_description:"Optional name for the workout session, e.g., 'Leg Day'"`
	Exercises []exerciseParams `json:"exercises" jsonschema:"minItems=1" jsonschema_description:"At least one exercise must be recorded for the workout"`
}

type exerciseParams struct {
	Name string      `json:"name" jsonschema_description:"Name of the exercise, e.g., 'Squat', 'Bench Press'"`
	Sets []setParams `json:"sets" jsonschema:"minItems=1" jsonschema_description:"At least one set must be recorded for an exercise"`
}

type setParams struct {
	SetNumber   *int     `json:"setNumber,omitempty" jsonschema:"minimum=1" jsonschema_description:"Optional set number (1, 2, 3...)"`
	Repetitions *int     `json:"repetitions,omitempty" jsonschema:"minimum=1" jsonschema_description:"Number of repetitions performed"`
	WeightKg    *float64 `json:"weightKg,omitempty" jsonschema:"exclusiveMinimum=0" jsonschema_description:"Weight used in kilograms"`
}

type getWorkoutsParams struct {
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,default=10" jsonschema_description:"Maximum number of recent workouts to retrieve (default: 10)"`
}

// RecordWorkout builds the tool that persists a workout session for
// the authenticated user.
func RecordWorkout(service *workout.WorkoutService) *Tool {
	return &Tool{
		Name:        "recordWorkout",
		Description: "Records the details of a user's completed workout session, including the date (optional, defaults to execution time), an optional workout name, and a list of exercises. For each exercise, record its name and the details of each set performed (reps, weight in kg). Parse details from the user's natural language description.",
		Parameters:  generateSchema[recordWorkoutParams](),
		Execute: func(ctx context.Context, userID string, args json.RawMessage) (any, error) {
			var params recordWorkoutParams
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}

			req := workout.RecordRequest{Name: params.Name}
			if params.Date != "" {
				date, err := time.Parse(time.RFC3339, params.Date)
				if err != nil {
					return nil, fmt.Errorf("invalid date %q: expected ISO 8601", params.Date)
				}
				req.Date = date
			}
			for _, exercise := range params.Exercises {
				ex := workout.ExerciseInput{Name: exercise.Name}
				for _, set := range exercise.Sets {
					ex.Sets = append(ex.Sets, workout.SetInput{
						SetNumber:   set.SetNumber,
						Repetitions: set.Repetitions,
						WeightKg:    set.WeightKg,
					})
				}
				req.Exercises = append(req.Exercises, ex)
			}

			if _, err := service.Record(userID, req); err != nil {
				return nil, err
			}

			return Result{Success: true, Message: "Workout recorded successfully!"}, nil
		},
	}
}

// GetWorkouts builds the tool that retrieves the user's recent
// workouts. It returns the raw structured records; the model is
// responsible for producing a natural-language summary.
func GetWorkouts(service *workout.WorkoutService) *Tool {
	return &Tool{
		Name:        "getWorkouts",
		Description: "Retrieves the raw data of the user's most recent workout sessions from their history (up to a specified limit). Use this when the user asks about their past workouts, workout log, or training history.",
		Parameters:  generateSchema[getWorkoutsParams](),
		Execute: func(ctx context.Context, userID string, args json.RawMessage) (any, error) {
			var params getWorkoutsParams
			if err := json.Unmarshal(args, &params); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}

			workouts, err := service.ListRecent(userID, params.Limit)
			if err != nil {
				return "Sorry, I encountered an error while trying to retrieve your workouts.", nil
			}

			return workouts, nil
		},
	}
}
