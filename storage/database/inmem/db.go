// Package inmemdb is a map-backed store with the same semantics as the Mongo store.
// It is used by tests and by the API when running without a database.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/shule/core/class"
	"github.com/trezcool/shule/core/user"
)

type (
	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	classTable struct {
		mutex sync.RWMutex
		table map[string]*class.Class
	}

	DB struct {
		user  *userTable
		class *classTable
	}
)

func NewDB() *DB {
	return &DB{
		user:  &userTable{table: make(map[string]*user.User)},
		class: &classTable{table: make(map[string]*class.Class)},
	}
}

// sortedIDs returns the keys of m in insertion order (IDs are time-ordered).
func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
