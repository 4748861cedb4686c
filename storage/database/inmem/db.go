package inmemdb

import (
	"sync"

	"github.com/trezcool/hesabu/core/assignment"
)

type (
	DB struct {
		assignment *assignmentTable
	}

	assignmentTable struct {
		mutex   sync.RWMutex
		table   map[string]*assignment.Assignment
		counter int
	}
)

func Open() (*DB, error) {
	db := &DB{
		assignment: &assignmentTable{table: make(map[string]*assignment.Assignment)},
	}
	return db, nil
}
