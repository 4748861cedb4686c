package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
)

const (
	assignmentColumns = "id, created_at, num_questions, time_interval, sequence"
	counterName       = "assignment"
)

// assignmentRow is an assignment as stored. Drafts have NULL num_questions and time_interval.
type assignmentRow struct {
	ID           string       `db:"id"`
	CreatedAt    time.Time    `db:"created_at"`
	NumQuestions null.Int     `db:"num_questions"`
	TimeInterval null.Float64 `db:"time_interval"`
	Sequence     string       `db:"sequence"` // JSON
}

type assignmentRepository struct {
	db *sqlx.DB
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

// NewAssignmentRepository returns an assignment.Repository backed by postgres or sqlite.
func NewAssignmentRepository(db *sqlx.DB) assignment.Repository {
	return &assignmentRepository{db: db}
}

func (repo assignmentRepository) toRow(asg assignment.Assignment) (assignmentRow, error) {
	seq := asg.Sequence
	if seq == nil {
		seq = []assignment.Question{}
	}
	b, err := json.Marshal(seq)
	if err != nil {
		return assignmentRow{}, errors.Wrap(err, "encoding sequence")
	}
	return assignmentRow{
		ID:           asg.ID,
		CreatedAt:    asg.CreatedAt.UTC(),
		NumQuestions: null.NewInt(asg.NumQuestions, asg.NumQuestions != 0),
		TimeInterval: null.NewFloat64(asg.TimeInterval, asg.TimeInterval != 0),
		Sequence:     string(b),
	}, nil
}

func (repo assignmentRepository) fromRow(row assignmentRow) (assignment.Assignment, error) {
	seq := []assignment.Question{}
	if row.Sequence != "" {
		if err := json.Unmarshal([]byte(row.Sequence), &seq); err != nil {
			return assignment.Assignment{}, errors.Wrapf(err, "decoding sequence of %s", row.ID)
		}
	}
	return assignment.Assignment{
		ID:           row.ID,
		CreatedAt:    row.CreatedAt.UTC(),
		NumQuestions: row.NumQuestions.Int,
		TimeInterval: row.TimeInterval.Float64,
		Sequence:     seq,
	}, nil
}

// trapNoRowsErr maps "no rows" err to assignment.ErrNotFound
func (repo assignmentRepository) trapNoRowsErr(err error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return assignment.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo assignmentRepository) insert(ctx context.Context, exec sqlx.ExtContext, asg assignment.Assignment, upsert bool) error {
	row, err := repo.toRow(asg)
	if err != nil {
		return err
	}
	q := "INSERT INTO assignment (" + assignmentColumns + ") VALUES (:id, :created_at, :num_questions, :time_interval, :sequence)"
	if upsert {
		q += ` ON CONFLICT (id) DO UPDATE SET
			created_at = excluded.created_at,
			num_questions = excluded.num_questions,
			time_interval = excluded.time_interval,
			sequence = excluded.sequence`
	}
	if _, err = sqlx.NamedExecContext(ctx, exec, q, row); err != nil {
		return errors.Wrap(err, "inserting assignment")
	}
	return nil
}

func (repo assignmentRepository) nextIDNumber(ctx context.Context, q sqlx.QueryerContext) (int, error) {
	var ids []string
	if err := sqlx.SelectContext(ctx, q, &ids, "SELECT id FROM assignment"); err != nil {
		return 0, errors.Wrap(err, "selecting assignment ids")
	}
	return assignment.NextIDNumber(ids), nil
}

// ReserveAssignment bumps the counter row first: the row stays locked until commit, serialising reservations.
func (repo assignmentRepository) ReserveAssignment(ctx context.Context, asg assignment.Assignment) (_ assignment.Assignment, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, tx.Rebind(
		"INSERT INTO assignment_counter (name, value) VALUES (?, 0) ON CONFLICT (name) DO NOTHING"), counterName,
	); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "initialising counter")
	}

	var n int
	if err = tx.GetContext(ctx, &n, tx.Rebind(
		"UPDATE assignment_counter SET value = value + 1 WHERE name = ? RETURNING value"), counterName,
	); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "incrementing counter")
	}

	// ids written through SaveAssignment are never handed out again
	next, err := repo.nextIDNumber(ctx, tx)
	if err != nil {
		return assignment.Assignment{}, err
	}
	if next > n {
		n = next
		if _, err = tx.ExecContext(ctx, tx.Rebind("UPDATE assignment_counter SET value = ? WHERE name = ?"), n, counterName); err != nil {
			return assignment.Assignment{}, errors.Wrap(err, "updating counter")
		}
	}

	asg.ID = assignment.FormatID(n)
	if err = repo.insert(ctx, tx, asg, false); err != nil {
		return assignment.Assignment{}, err
	}
	if err = tx.Commit(); err != nil {
		return assignment.Assignment{}, errors.Wrap(err, "committing transaction")
	}
	return repo.GetAssignment(ctx, asg.ID)
}

func (repo assignmentRepository) PeekNextAssignmentID(ctx context.Context) (string, error) {
	var n int
	err := repo.db.GetContext(ctx, &n, repo.db.Rebind("SELECT value FROM assignment_counter WHERE name = ?"), counterName)
	if err != nil && err != sql.ErrNoRows {
		return "", errors.Wrap(err, "reading counter")
	}
	n++

	next, err := repo.nextIDNumber(ctx, repo.db)
	if err != nil {
		return "", err
	}
	if next > n {
		n = next
	}
	return assignment.FormatID(n), nil
}

func (repo assignmentRepository) SaveAssignment(ctx context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	if err := repo.insert(ctx, repo.db, asg, true); err != nil {
		return assignment.Assignment{}, err
	}
	return repo.GetAssignment(ctx, asg.ID)
}

// orderBy only lets assignment.OrderingFields through.
func (repo assignmentRepository) orderBy(ordering []core.DBOrdering) string {
	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		var allowed bool
		for _, f := range assignment.OrderingFields {
			if f == ord.Field {
				allowed = true
				break
			}
		}
		if !allowed {
			continue
		}
		if ord.Field == "id" {
			// ids share their prefix: shorter numbers first puts "Assignment-2" before "Assignment-10"
			orderList = append(orderList, core.DBOrdering{Field: "LENGTH(id)", Ascending: ord.Ascending}.String())
		}
		orderList = append(orderList, ord.String())
	}
	orderList = append(orderList, "LENGTH(id) ASC", "id ASC")
	return " ORDER BY " + strings.Join(orderList, ", ")
}

func (repo assignmentRepository) QueryAssignments(ctx context.Context, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	var rows []assignmentRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT "+assignmentColumns+" FROM assignment"+repo.orderBy(ordering)); err != nil {
		return nil, errors.Wrap(err, "querying assignments")
	}

	asgs := make([]assignment.Assignment, 0, len(rows))
	for _, row := range rows {
		asg, err := repo.fromRow(row)
		if err != nil {
			return nil, err
		}
		asgs = append(asgs, asg)
	}
	return asgs, nil
}

func (repo assignmentRepository) GetAssignment(ctx context.Context, id string) (assignment.Assignment, error) {
	var row assignmentRow
	err := repo.db.GetContext(ctx, &row, repo.db.Rebind("SELECT "+assignmentColumns+" FROM assignment WHERE id = ?"), id)
	if err != nil {
		return assignment.Assignment{}, repo.trapNoRowsErr(err, "getting assignment")
	}
	return repo.fromRow(row)
}

func (repo assignmentRepository) DeleteAssignmentsByID(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	q, args, err := sqlx.In("DELETE FROM assignment WHERE id IN (?)", ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting assignments")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting deleted assignments")
	}
	return int(cnt), nil
}
