package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/hesabu/core"
	"github.com/trezcool/hesabu/core/assignment"
)

type assignmentRepository struct {
	db *assignmentTable
}

var _ assignment.Repository = (*assignmentRepository)(nil) // interface compliance check

func NewAssignmentRepository(db *DB) assignment.Repository {
	return &assignmentRepository{db: db.assignment}
}

func (repo *assignmentRepository) ids() []string {
	ids := make([]string, 0, len(repo.db.table))
	for id := range repo.db.table {
		ids = append(ids, id)
	}
	return ids
}

// nextNumber never hands out a number that is already taken, even by an id written through SaveAssignment.
func (repo *assignmentRepository) nextNumber() int {
	n := repo.db.counter + 1
	if next := assignment.NextIDNumber(repo.ids()); next > n {
		n = next
	}
	return n
}

func (repo *assignmentRepository) ReserveAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	n := repo.nextNumber()
	repo.db.counter = n
	asg.ID = assignment.FormatID(n)
	repo.db.table[asg.ID] = copyAssignment(asg)
	return *copyAssignment(asg), nil
}

func (repo *assignmentRepository) PeekNextAssignmentID(context.Context) (string, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()
	return assignment.FormatID(repo.nextNumber()), nil
}

func (repo *assignmentRepository) SaveAssignment(_ context.Context, asg assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	repo.db.table[asg.ID] = copyAssignment(asg)
	return *copyAssignment(asg), nil
}

func (repo *assignmentRepository) QueryAssignments(_ context.Context, ordering []core.DBOrdering) ([]assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	asgs := make([]assignment.Assignment, 0, len(repo.db.table))
	for _, a := range repo.db.table {
		asgs = append(asgs, *copyAssignment(*a))
	}
	sort.SliceStable(asgs, func(i, j int) bool { return less(asgs[i], asgs[j], ordering) })
	return asgs, nil
}

func (repo *assignmentRepository) GetAssignment(_ context.Context, id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if a, ok := repo.db.table[id]; ok {
		return *copyAssignment(*a), nil
	}
	return assignment.Assignment{}, assignment.ErrNotFound
}

func (repo *assignmentRepository) DeleteAssignmentsByID(_ context.Context, ids []string) (int, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.table[id]; ok {
			delete(repo.db.table, id)
			cnt++
		}
	}
	return cnt, nil
}

func copyAssignment(a assignment.Assignment) *assignment.Assignment {
	seq := make([]assignment.Question, len(a.Sequence))
	copy(seq, a.Sequence)
	a.Sequence = seq
	return &a
}

// less orders by the given fields, then by id.
func less(a, b assignment.Assignment, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "id":
			cmp = compareIDs(a.ID, b.ID)
		case "created_at":
			cmp = compareInts(a.CreatedAt.UnixNano(), b.CreatedAt.UnixNano())
		case "num_questions":
			cmp = compareInts(int64(a.NumQuestions), int64(b.NumQuestions))
		case "time_interval":
			switch {
			case a.TimeInterval < b.TimeInterval:
				cmp = -1
			case a.TimeInterval > b.TimeInterval:
				cmp = 1
			}
		}
		if cmp != 0 {
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
	}
	return compareIDs(a.ID, b.ID) < 0
}

// compareIDs sorts "Assignment-2" before "Assignment-10".
func compareIDs(a, b string) int {
	na, okA := assignment.ParseIDNumber(a)
	nb, okB := assignment.ParseIDNumber(b)
	if okA && okB {
		return compareInts(int64(na), int64(nb))
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareInts(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
