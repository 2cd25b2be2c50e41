package dummydb

import (
	"sync"

	"github.com/mtokoni/tathmini/core/judging"
	"github.com/mtokoni/tathmini/core/team"
	"github.com/mtokoni/tathmini/core/user"
)

type (
	DB struct {
		user    *userTable
		team    *teamTable
		judging *judgingTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	teamTable struct {
		sync.RWMutex
		teams map[string]*team.Team
		ideas map[string]*team.Idea
	}

	judgingTable struct {
		sync.RWMutex
		criteria map[string]*judging.RubricCriterion
		scores   map[string]*judging.IdeaScore
	}
)

func Open() (*DB, error) {
	db := &DB{
		user: &userTable{table: make(map[string]*user.User)},
		team: &teamTable{
			teams: make(map[string]*team.Team),
			ideas: make(map[string]*team.Idea),
		},
		judging: &judgingTable{
			criteria: make(map[string]*judging.RubricCriterion),
			scores:   make(map[string]*judging.IdeaScore),
		},
	}
	return db, nil
}
