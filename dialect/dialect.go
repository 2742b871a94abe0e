package dialect

import "slices"

// Dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	MariaDB  = "mariadb"
	SQLite   = "sqlite3"
	Oracle   = "oracle"
)

// Default is the dialect used when none is configured.
const Default = SQLite

// Dialect holds the identifier constraints of one SQL dialect.
type Dialect struct {
	Name string
	// MaxIdentifier is the longest identifier the dialect accepts.
	MaxIdentifier int
	// Strict dialects force short aliases; the planner minifies for them.
	Strict bool
}

var dialects = map[string]Dialect{
	Postgres: {Name: Postgres, MaxIdentifier: 63},
	MySQL:    {Name: MySQL, MaxIdentifier: 64},
	MariaDB:  {Name: MariaDB, MaxIdentifier: 64},
	SQLite:   {Name: SQLite, MaxIdentifier: 128},
	Oracle:   {Name: Oracle, MaxIdentifier: 30, Strict: true},
}

// Lookup returns the dialect registered under name.
func Lookup(name string) (Dialect, bool) {
	d, ok := dialects[name]
	return d, ok
}

// Names returns the registered dialect names in sorted order.
func Names() []string {
	names := make([]string, 0, len(dialects))
	for n := range dialects {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
