package metagraph

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeInvalidInput ErrorType = "invalid_input"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeAmbiguous    ErrorType = "ambiguous"
	ErrorTypeStoreFailure ErrorType = "store_failure"
	ErrorTypePartial      ErrorType = "partial_composite"
)

// GraphError represents unified errors from the reconciliation core
type GraphError struct {
	Type          ErrorType      `json:"type"`
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	TypeKind      TypeKind       `json:"typeKind,omitempty"`
	NodeID        string         `json:"nodeId,omitempty"`
	QualifiedName string         `json:"qualifiedName,omitempty"`
	Field         string         `json:"field,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Cause         error          `json:"-"`
}

func (e *GraphError) Error() string {
	switch {
	case e.NodeID != "":
		return fmt.Sprintf("[%s:%s] node %s: %s", e.Type, e.Code, e.NodeID, e.Message)
	case e.QualifiedName != "":
		return fmt.Sprintf("[%s:%s] %q: %s", e.Type, e.Code, e.QualifiedName, e.Message)
	case e.Field != "":
		return fmt.Sprintf("[%s:%s] field '%s': %s", e.Type, e.Code, e.Field, e.Message)
	default:
		return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
	}
}

func (e *GraphError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a single detail to a GraphError
func (e *GraphError) WithDetail(key string, value any) *GraphError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause adds a cause to a GraphError
func (e *GraphError) WithCause(cause error) *GraphError {
	e.Cause = cause
	return e
}

// WithNode adds node context to a GraphError
func (e *GraphError) WithNode(nodeID string, kind TypeKind) *GraphError {
	e.NodeID = nodeID
	e.TypeKind = kind
	return e
}

// WithQualifiedName adds qualified-name context to a GraphError
func (e *GraphError) WithQualifiedName(name string) *GraphError {
	e.QualifiedName = name
	return e
}

// WithField adds field context to a GraphError
func (e *GraphError) WithField(field string) *GraphError {
	e.Field = field
	return e
}

// Error codes
const (
	// Invalid input
	ErrCodeEmptyIdentity        = "EMPTY_IDENTITY"
	ErrCodeMissingConnectorType = "MISSING_CONNECTOR_TYPE"
	ErrCodeMissingQualifiedName = "MISSING_QUALIFIED_NAME"
	ErrCodeUnknownVariant       = "UNKNOWN_VARIANT"
	ErrCodeMalformedPath        = "MALFORMED_PATH"
	ErrCodeCycleDetected        = "CYCLE_DETECTED"
	ErrCodeTypeKindMismatch     = "TYPE_KIND_MISMATCH"

	// Read path
	ErrCodeNodeNotFound   = "NODE_NOT_FOUND"
	ErrCodeEdgeNotFound   = "EDGE_NOT_FOUND"
	ErrCodeAnchorNotFound = "ANCHOR_NOT_FOUND"
	ErrCodeNameAmbiguous  = "NAME_AMBIGUOUS"

	// Store
	ErrCodeStoreFailure = "STORE_FAILURE"

	// Composite
	ErrCodePartialComposite = "PARTIAL_COMPOSITE_FAILURE"
)

// NewGraphError creates a new GraphError
func NewGraphError(errorType ErrorType, code, message string) *GraphError {
	return &GraphError{
		Type:    errorType,
		Code:    code,
		Message: message,
	}
}

// NewInvalidInputError creates an invalid input error for a field
func NewInvalidInputError(field, message string) *GraphError {
	return &GraphError{
		Type:    ErrorTypeInvalidInput,
		Code:    ErrCodeEmptyIdentity,
		Message: message,
		Field:   field,
	}
}

// NewMissingConnectorTypeError reports a connection saved without its
// required connector type. Raised before any node is created.
func NewMissingConnectorTypeError(qualifiedName string) *GraphError {
	return &GraphError{
		Type:          ErrorTypeInvalidInput,
		Code:          ErrCodeMissingConnectorType,
		Message:       "connection requires a connector type",
		QualifiedName: qualifiedName,
	}
}

// NewMalformedPathError creates a malformed path error
func NewMalformedPathError(path, message string) *GraphError {
	return &GraphError{
		Type:    ErrorTypeInvalidInput,
		Code:    ErrCodeMalformedPath,
		Message: message,
		Details: map[string]any{"path": path},
	}
}

// NewCycleError reports a composite tree that reaches back to one of its
// ancestors. Saving such a tree would recurse without bound.
func NewCycleError(qualifiedName string) *GraphError {
	return &GraphError{
		Type:          ErrorTypeInvalidInput,
		Code:          ErrCodeCycleDetected,
		Message:       "composite tree contains a cycle",
		QualifiedName: qualifiedName,
	}
}

// NewNodeNotFoundError creates a node not found error
func NewNodeNotFoundError(nodeID string, kind TypeKind) *GraphError {
	return &GraphError{
		Type:     ErrorTypeNotFound,
		Code:     ErrCodeNodeNotFound,
		Message:  "node not found",
		NodeID:   nodeID,
		TypeKind: kind,
	}
}

// NewNameNotFoundError creates a not found error for a unique-name lookup
func NewNameNotFoundError(qualifiedName string, kind TypeKind) *GraphError {
	return &GraphError{
		Type:          ErrorTypeNotFound,
		Code:          ErrCodeNodeNotFound,
		Message:       "no node matches name",
		QualifiedName: qualifiedName,
		TypeKind:      kind,
	}
}

// NewEdgeNotFoundError creates an edge not found error
func NewEdgeNotFoundError(nodeID string, kind EdgeKind) *GraphError {
	return &GraphError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeEdgeNotFound,
		Message: fmt.Sprintf("no %s edge on node", kind),
		NodeID:  nodeID,
	}
}

// NewAnchorNotFoundError reports an unanchored (template) schema element.
// Distinct from a store failure: the walk completed and found no owner.
func NewAnchorNotFoundError(nodeID string) *GraphError {
	return &GraphError{
		Type:    ErrorTypeNotFound,
		Code:    ErrCodeAnchorNotFound,
		Message: "schema element is not anchored to an asset",
		NodeID:  nodeID,
	}
}

// NewAmbiguousNameError reports a unique-name lookup that matched more
// than one node. Never auto-resolved.
func NewAmbiguousNameError(qualifiedName string, kind TypeKind, matches int) *GraphError {
	return &GraphError{
		Type:          ErrorTypeAmbiguous,
		Code:          ErrCodeNameAmbiguous,
		Message:       fmt.Sprintf("name matched %d nodes", matches),
		QualifiedName: qualifiedName,
		TypeKind:      kind,
		Details:       map[string]any{"matches": matches},
	}
}

// NewStoreFailureError wraps an underlying connector error verbatim
func NewStoreFailureError(operation string, cause error) *GraphError {
	return &GraphError{
		Type:    ErrorTypeStoreFailure,
		Code:    ErrCodeStoreFailure,
		Message: fmt.Sprintf("store operation %s failed", operation),
		Cause:   cause,
	}
}

// NewPartialCompositeError reports a child step that failed after the
// composite root was already created. The root id is carried so the
// caller can inspect, retry or clean up; retries are safe because saves
// are keyed by stable identity.
func NewPartialCompositeError(rootID string, cause error) *GraphError {
	return &GraphError{
		Type:    ErrorTypePartial,
		Code:    ErrCodePartialComposite,
		Message: "composite child reconciliation failed after root creation",
		NodeID:  rootID,
		Cause:   cause,
	}
}

// ============================================================================
// Error checking utilities
// ============================================================================

func asGraphError(err error) (*GraphError, bool) {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsInvalidInputError checks if an error is an invalid input error
func IsInvalidInputError(err error) bool {
	if ge, ok := asGraphError(err); ok {
		return ge.Type == ErrorTypeInvalidInput
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	if ge, ok := asGraphError(err); ok {
		return ge.Type == ErrorTypeNotFound
	}
	return false
}

// IsAmbiguousError checks if an error is an ambiguous name error
func IsAmbiguousError(err error) bool {
	if ge, ok := asGraphError(err); ok {
		return ge.Type == ErrorTypeAmbiguous
	}
	return false
}

// IsStoreFailureError checks if an error is a store failure
func IsStoreFailureError(err error) bool {
	if ge, ok := asGraphError(err); ok {
		return ge.Type == ErrorTypeStoreFailure
	}
	return false
}

// IsPartialCompositeError checks if an error is a partial composite failure
func IsPartialCompositeError(err error) bool {
	if ge, ok := asGraphError(err); ok {
		return ge.Type == ErrorTypePartial
	}
	return false
}

// PartialCompositeRootID extracts the surviving root node id from a
// partial composite failure, or "" if err is not one.
func PartialCompositeRootID(err error) string {
	if ge, ok := asGraphError(err); ok && ge.Type == ErrorTypePartial {
		return ge.NodeID
	}
	return ""
}
