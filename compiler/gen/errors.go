package gen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/traitgen/schema/edge"
)

// Sentinel errors for the generation failure taxonomy.
var (
	// ErrMetadataNotFound indicates nothing could be resolved for a name.
	ErrMetadataNotFound = errors.New("traitgen: metadata not found")
	// ErrNotAnEntity indicates a class exists but carries no mapping.
	ErrNotAnEntity = errors.New("traitgen: not an entity")
	// ErrResolution indicates a field type could not be resolved.
	ErrResolution = errors.New("traitgen: type resolution failed")
	// ErrUnsupportedRelationship indicates an association of unknown kind.
	ErrUnsupportedRelationship = errors.New("traitgen: unsupported relationship kind")
	// ErrNullabilityConflict indicates a non-nullable mapping that also
	// carries a NotNull/NotBlank constraint under the strict policy.
	ErrNullabilityConflict = errors.New("traitgen: nullability conflict")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("traitgen: missing configuration")
	// ErrClassNotFound is returned by reflectors for classes without source.
	ErrClassNotFound = errors.New("traitgen: class not found")
)

// LookupError reports a name that resolved to no mapped class.
type LookupError struct {
	Name string
	// Entity is set when the name is a class that exists without a mapping.
	Entity bool
}

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Entity {
		return fmt.Sprintf("traitgen: could not find mapping metadata for \"%s\": is it mapped as an entity?", e.Name)
	}
	return fmt.Sprintf("traitgen: no entities were found in \"%s\"", e.Name)
}

// Is reports whether the target matches the sentinel error for LookupError.
func (e *LookupError) Is(target error) bool {
	if e.Entity {
		return target == ErrNotAnEntity
	}
	return target == ErrMetadataNotFound
}

// NewNotFoundError creates a LookupError for an unresolvable name.
func NewNotFoundError(name string) *LookupError {
	return &LookupError{Name: name}
}

// NewNotAnEntityError creates a LookupError for an unmapped class.
func NewNotAnEntityError(name string) *LookupError {
	return &LookupError{Name: name, Entity: true}
}

// ResolutionError reports a field whose declared type cannot be resolved.
type ResolutionError struct {
	Class   string
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("traitgen: unable to resolve type")
	if e.Field != "" {
		b.WriteString(" of field ")
		b.WriteString(e.Field)
	}
	if e.Class != "" {
		b.WriteString(" in ")
		b.WriteString(e.Class)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is reports whether the target matches the sentinel error for ResolutionError.
func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(class, field, message string) *ResolutionError {
	return &ResolutionError{Class: class, Field: field, Message: message}
}

// RelationshipError reports an association of unsupported kind.
type RelationshipError struct {
	Class string
	Field string
	Kind  edge.Rel
}

// Error implements the error interface.
func (e *RelationshipError) Error() string {
	return fmt.Sprintf("traitgen: unsupported relationship kind %s for %s::%s", e.Kind, e.Class, e.Field)
}

// Is reports whether the target matches the sentinel error for RelationshipError.
func (e *RelationshipError) Is(target error) bool {
	return target == ErrUnsupportedRelationship
}

// NewRelationshipError creates a new RelationshipError.
func NewRelationshipError(class, field string, kind edge.Rel) *RelationshipError {
	return &RelationshipError{Class: class, Field: field, Kind: kind}
}

// NullabilityError reports a nullability conflict under the strict policy.
type NullabilityError struct {
	Class string
	Field string
}

// Error implements the error interface.
func (e *NullabilityError) Error() string {
	return fmt.Sprintf("traitgen: the property \"%s\" in \"%s\" is not nullable but has an assert not null/blank", e.Field, e.Class)
}

// Is reports whether the target matches the sentinel error for NullabilityError.
func (e *NullabilityError) Is(target error) bool {
	return target == ErrNullabilityConflict
}

// NewNullabilityError creates a new NullabilityError.
func NewNullabilityError(class, field string) *NullabilityError {
	return &NullabilityError{Class: class, Field: field}
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("traitgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("traitgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// ClassError wraps a failure that aborted the generation of one class.
type ClassError struct {
	Class string
	Phase Phase
	Cause error
}

// Error implements the error interface.
func (e *ClassError) Error() string {
	var b strings.Builder
	b.WriteString("traitgen: generating ")
	b.WriteString(e.Class)
	if e.Phase != PhaseStart {
		b.WriteString(" (")
		b.WriteString(e.Phase.String())
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(strings.TrimPrefix(e.Cause.Error(), "traitgen: "))
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *ClassError) Unwrap() error {
	return e.Cause
}

// IsNotFound reports if err is a MetadataNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrMetadataNotFound)
}

// IsNotAnEntity reports if err is a NotAnEntity error.
func IsNotAnEntity(err error) bool {
	return errors.Is(err, ErrNotAnEntity)
}

// IsResolutionError reports if err is a ResolutionError.
func IsResolutionError(err error) bool {
	var e *ResolutionError
	return errors.As(err, &e)
}

// IsRelationshipError reports if err is a RelationshipError.
func IsRelationshipError(err error) bool {
	var e *RelationshipError
	return errors.As(err, &e)
}

// IsNullabilityError reports if err is a NullabilityError.
func IsNullabilityError(err error) bool {
	var e *NullabilityError
	return errors.As(err, &e)
}

// IsConfigError reports if err is a ConfigError.
func IsConfigError(err error) bool {
	var e *ConfigError
	return errors.As(err, &e)
}

// IsClassError reports if err is a ClassError.
func IsClassError(err error) bool {
	var e *ClassError
	return errors.As(err, &e)
}
