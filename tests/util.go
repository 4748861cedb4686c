package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
	"github.com/trezcool/hesabu/storage/database"
)

// PrepareDB opens a migrated in-memory sqlite database, closed at the end of the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	goose.SetLogger(goose.NopLogger())

	db, err := database.Open(core.NewTestConfig())
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// CreateAssignment writes a saved (non draft) assignment with the given questions.
func CreateAssignment(
	t *testing.T,
	repo assignment.Repository,
	id string,
	interval float64,
	questions []string,
	createdAt ...time.Time,
) assignment.Assignment {
	t.Helper()
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	na := assignment.NewAssignment{NumQuestions: len(questions), TimeInterval: interval, Questions: questions}
	asg, err := repo.SaveAssignment(context.Background(), assignment.Assignment{
		ID:           id,
		CreatedAt:    tstamp,
		NumQuestions: na.NumQuestions,
		TimeInterval: na.TimeInterval,
		Sequence:     na.Sequence(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asg
}
