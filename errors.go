package joinplan

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSchemaMapping is matched by every SchemaMappingError.
var ErrSchemaMapping = errors.New("joinplan: schema mapping error")

// Causes carried by a SchemaMappingError. They are matched with errors.Is
// through the SchemaMappingError chain.
var (
	// ErrUnknownField is returned when a selected field is not declared on its parent type.
	ErrUnknownField = errors.New("field is not declared on type")

	// ErrUnknownType is returned when a type condition or field type names a type the schema lacks.
	ErrUnknownType = errors.New("type is not declared in schema")

	// ErrUnknownFragment is returned when a fragment spread names a fragment the document lacks.
	ErrUnknownFragment = errors.New("fragment is not defined in document")

	// ErrMissingUniqueKey is returned when a table-mapped type declares no unique key.
	ErrMissingUniqueKey = errors.New("table-mapped type must declare a unique key")

	// ErrMissingJoin is returned when a nested table-mapped field declares no join strategy.
	ErrMissingJoin = errors.New(`nested table field must declare "sqlJoin", "sqlBatch" or "junctionTable" (or be ignored with "jmIgnoreTable")`)

	// ErrAmbiguousJoin is returned when a field declares more than one join strategy.
	ErrAmbiguousJoin = errors.New(`only one of "sqlJoin", "sqlBatch" and "junctionTable" may be declared`)

	// ErrMissingJunctionJoin is returned when a many-to-many relation has neither explicit joins nor a batch setting.
	ErrMissingJunctionJoin = errors.New(`many-to-many relation must define "sqlJoins" or "junctionBatch"`)

	// ErrMissingSortKey is returned when pagination is requested without an ordering strategy.
	ErrMissingSortKey = errors.New(`"sortKey" or "orderBy" required when "sqlPaginate" is set`)

	// ErrInvalidSortKey is returned when a sort key lacks its key columns or its order.
	ErrInvalidSortKey = errors.New(`"sortKey" must have both "key" and "order"`)

	// ErrNotConnection is returned when pagination is requested on a type that is not a Relay connection.
	ErrNotConnection = errors.New(`paginated type must be a Relay connection with "edges" and "pageInfo" fields`)

	// ErrUnsupportedSelection is returned for selection kinds the planner cannot handle.
	ErrUnsupportedSelection = errors.New("unsupported selection kind")

	// ErrRootFieldCount is returned when the request does not carry exactly one root field.
	ErrRootFieldCount = errors.New("exactly one root field must be selected")

	// ErrRootNotTable is returned when the root field does not resolve to a table-mapped type.
	ErrRootNotTable = errors.New(`root field must resolve to a type decorated with "sqlTable"`)
)

// SchemaMappingError reports a configuration or programmer mistake found
// while planning a query. It is never transient: the same inputs fail the
// same way on every call.
type SchemaMappingError struct {
	Type    string // GraphQL type name
	Field   string // Field name (if applicable)
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SchemaMappingError) Error() string {
	var b strings.Builder
	b.WriteString("joinplan: schema mapping error")
	if e.Type != "" {
		b.WriteString(" on type ")
		b.WriteString(e.Type)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *SchemaMappingError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target is ErrSchemaMapping.
func (e *SchemaMappingError) Is(target error) bool {
	return target == ErrSchemaMapping
}

// NewSchemaMappingError returns a new SchemaMappingError.
func NewSchemaMappingError(typeName, fieldName, message string, cause error) *SchemaMappingError {
	return &SchemaMappingError{
		Type:    typeName,
		Field:   fieldName,
		Message: message,
		Cause:   cause,
	}
}

// IsSchemaMappingError returns true if the error is a SchemaMappingError.
func IsSchemaMappingError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaMappingError
	return errors.As(err, &e)
}

// ConfigError reports an invalid planner option.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("joinplan: invalid option %s (%v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("joinplan: invalid option %s: %s", e.Option, e.Message)
}

// NewConfigError returns a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{Option: option, Value: value, Message: message}
}

// IsConfigError returns true if the error is a ConfigError.
func IsConfigError(err error) bool {
	if err == nil {
		return false
	}
	var e *ConfigError
	return errors.As(err, &e)
}

// DeprecationNotice flags a legacy configuration path. Notices never abort a
// compilation; they are collected on the plan and logged.
type DeprecationNotice struct {
	Feature string // Deprecated setting, e.g. "joinTable"
	Message string
}

// Error returns the notice text so a notice can be logged like an error.
func (n DeprecationNotice) Error() string {
	return fmt.Sprintf("joinplan: %s is deprecated: %s", n.Feature, n.Message)
}

// Legacy configuration notices.
var (
	// NoticeJoinTable is raised when a many-to-many field uses the old joinTable name.
	NoticeJoinTable = DeprecationNotice{Feature: "joinTable", Message: "rename to junctionTable"}

	// NoticeTypeHint is raised when a union or interface type uses the legacy typeHint column.
	NoticeTypeHint = DeprecationNotice{Feature: "typeHint", Message: "use alwaysFetch instead"}
)
