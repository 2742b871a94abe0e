package planner

import (
	"log/slog"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/joinplan"
	"github.com/syssam/joinplan/dialect"
)

// ColumnNaming derives the SQL column of a field that declares none.
type ColumnNaming int

const (
	// ColumnNamingField uses the GraphQL field name as is.
	ColumnNamingField ColumnNaming = iota
	// ColumnNamingSnake converts the field name to snake_case (createdAt -> created_at).
	ColumnNamingSnake
)

// ParseColumnNaming parses "field" or "snake". The empty string is "field".
func ParseColumnNaming(s string) (ColumnNaming, error) {
	switch s {
	case "", "field":
		return ColumnNamingField, nil
	case "snake":
		return ColumnNamingSnake, nil
	default:
		return 0, joinplan.NewConfigError("ColumnNaming", s, `use "field" or "snake"`)
	}
}

func (n ColumnNaming) column(field string) string {
	if n == ColumnNamingSnake {
		return inflect.Underscore(field)
	}
	return field
}

// Options configures a compilation.
type Options struct {
	Dialect      dialect.Dialect
	Minify       bool
	Logger       *slog.Logger
	ColumnNaming ColumnNaming
}

// Option configures compilation.
type Option func(*Options) error

// WithDialect selects the target dialect by name. Strict dialects force
// minified aliases.
func WithDialect(name string) Option {
	return func(o *Options) error {
		d, ok := dialect.Lookup(name)
		if !ok {
			return joinplan.NewConfigError("Dialect", name, "unknown dialect, expected one of "+strings.Join(dialect.Names(), ", "))
		}
		o.Dialect = d
		return nil
	}
}

// WithMinify shortens every generated alias.
func WithMinify(minify bool) Option {
	return func(o *Options) error {
		o.Minify = minify
		return nil
	}
}

// WithLogger sets the logger that receives deprecation notices and debug output.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) error {
		if l == nil {
			return joinplan.NewConfigError("Logger", nil, "logger cannot be nil")
		}
		o.Logger = l
		return nil
	}
}

// WithColumnNaming sets how default column names are derived.
func WithColumnNaming(n ColumnNaming) Option {
	return func(o *Options) error {
		o.ColumnNaming = n
		return nil
	}
}

func newOptions(opts []Option) (*Options, error) {
	d, _ := dialect.Lookup(dialect.Default)
	o := &Options{Dialect: d, Logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// minify reports whether aliases are shortened.
func (o *Options) minify() bool {
	return o.Minify || o.Dialect.Strict
}
