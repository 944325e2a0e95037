package postgres

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
)

// CreateWorkout inserts a workout with its exercises and sets in a
// single transaction, preserving the given order.
func (p *PostgresDB) CreateWorkout(userID string, workout *db.Workout) (*db.Workout, error) {
	tx, err := p.conn.Begin()
	if err != nil {
		return nil, fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	workoutID := uuid.New().String()
	var createdAt time.Time

	query := `
	INSERT INTO workouts (id, user_id, date, name)
	VALUES ($1, $2, $3, NULLIF($4, ''))
	RETURNING id, created_at
	`

	if err := tx.QueryRow(query, workoutID, userID, workout.Date, workout.Name).Scan(&workoutID, &createdAt); err != nil {
		return nil, fmt.Errorf("error creating workout: %w", err)
	}

	created := &db.Workout{
		ID:        workoutID,
		UserID:    userID,
		Date:      workout.Date,
		Name:      workout.Name,
		CreatedAt: createdAt,
	}

	for exPos, exercise := range workout.Exercises {
		exerciseID := uuid.New().String()
		_, err := tx.Exec(
			`INSERT INTO exercises (id, workout_id, position, name) VALUES ($1, $2, $3, $4)`,
			exerciseID, workoutID, exPos, exercise.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("error creating exercise: %w", err)
		}

		createdExercise := db.Exercise{ID: exerciseID, Name: exercise.Name}
		for setPos, set := range exercise.Sets {
			setID := uuid.New().String()
			_, err := tx.Exec(
				`INSERT INTO sets (id, exercise_id, position, set_number, repetitions, weight_kg) VALUES ($1, $2, $3, $4, $5, $6)`,
				setID, exerciseID, setPos, set.SetNumber, set.Repetitions, set.WeightKg,
			)
			if err != nil {
				return nil, fmt.Errorf("error creating set: %w", err)
			}
			createdSet := set
			createdSet.ID = setID
			createdExercise.Sets = append(createdExercise.Sets, createdSet)
		}
		created.Exercises = append(created.Exercises, createdExercise)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("error committing workout: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"workout_id":     workoutID,
		"user_id":        userID,
		"exercise_count": len(workout.Exercises),
	}).Info("Recorded workout")

	return created, nil
}

// GetRecentWorkouts retrieves the user's most recent workouts, newest
// date first, capped at limit.
func (p *PostgresDB) GetRecentWorkouts(userID string, limit int) ([]db.Workout, error) {
	conn := p.conn

	query := `
	SELECT id, user_id, date, COALESCE(name, ''), created_at
	FROM workouts
	WHERE user_id = $1
	ORDER BY date DESC
	LIMIT $2
	`

	rows, err := conn.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying workouts: %w", err)
	}
	defer rows.Close()

	var workouts []db.Workout
	for rows.Next() {
		var workout db.Workout
		if err := rows.Scan(&workout.ID, &workout.UserID, &workout.Date, &workout.Name, &workout.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning workout: %w", err)
		}
		workouts = append(workouts, workout)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workouts: %w", err)
	}

	for i := range workouts {
		exercises, err := p.getExercises(workouts[i].ID)
		if err != nil {
			return nil, err
		}
		workouts[i].Exercises = exercises
	}

	return workouts, nil
}

func (p *PostgresDB) getExercises(workoutID string) ([]db.Exercise, error) {
	rows, err := p.conn.Query(
		`SELECT id, name FROM exercises WHERE workout_id = $1 ORDER BY position ASC`,
		workoutID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying exercises: %w", err)
	}
	defer rows.Close()

	var exercises []db.Exercise
	for rows.Next() {
		var exercise db.Exercise
		if err := rows.Scan(&exercise.ID, &exercise.Name); err != nil {
			return nil, fmt.Errorf("error scanning exercise: %w", err)
		}
		exercises = append(exercises, exercise)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating exercises: %w", err)
	}

	for i := range exercises {
		sets, err := p.getSets(exercises[i].ID)
		if err != nil {
			return nil, err
		}
		exercises[i].Sets = sets
	}

	return exercises, nil
}

func (p *PostgresDB) getSets(exerciseID string) ([]db.WorkoutSet, error) {
	rows, err := p.conn.Query(
		`SELECT id, set_number, repetitions, weight_kg FROM sets WHERE exercise_id = $1 ORDER BY position ASC`,
		exerciseID,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying sets: %w", err)
	}
	defer rows.Close()

	var sets []db.WorkoutSet
	for rows.Next() {
		var set db.WorkoutSet
		if err := rows.Scan(&set.ID, &set.SetNumber, &set.Repetitions, &set.WeightKg); err != nil {
			return nil, fmt.Errorf("error scanning set: %w", err)
		}
		sets = append(sets, set)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sets: %w", err)
	}

	return sets, nil
}
