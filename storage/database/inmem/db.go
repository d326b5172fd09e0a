package inmemdb

import (
	"sync"

	"github.com/bala2006-m/smart-school-server-sub001/core/attendance"
	"github.com/bala2006-m/smart-school-server-sub001/core/school"
)

// DB is a mutex-guarded in-memory store, used by unit tests and as the
// dummy backend.
type DB struct {
	attendance *attendanceTable
	schools    *schoolTable
}

func NewDB() *DB {
	return &DB{
		attendance: &attendanceTable{table: make(map[attendance.Key]*attendance.Record)},
		schools: &schoolTable{
			schools:  make(map[int]*school.School),
			classes:  make(map[string]*school.Class),
			holidays: make(map[string]*school.Holiday),
		},
	}
}

type attendanceTable struct {
	mutex sync.RWMutex
	table map[attendance.Key]*attendance.Record
}

type schoolTable struct {
	mutex    sync.RWMutex
	schools  map[int]*school.School
	classes  map[string]*school.Class
	holidays map[string]*school.Holiday
}
