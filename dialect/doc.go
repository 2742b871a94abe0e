// Package dialect describes the SQL dialects a plan can target.
//
// The planner never renders SQL text. It only needs to know how long a
// generated identifier may be and whether the dialect is strict enough to
// require shortened aliases.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.MariaDB  = "mariadb"
//	dialect.SQLite   = "sqlite3"
//	dialect.Oracle   = "oracle"
//
// # Usage
//
//	d, ok := dialect.Lookup("oracle")
//	if ok && d.Strict {
//	    // aliases are minified regardless of the minify option
//	}
package dialect
