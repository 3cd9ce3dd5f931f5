package dispatchresult

import "fmt"

// DispatchResult is the outcome of invoking a single handler, or of an
// aggregate dispatch across several handlers. Every variant carries a
// success flag, a human-readable message, and a Data payload; IsSuccess
// and Message distinguish the category, while Data carries
// variant-specific structured detail (e.g. a ValidationFailure's failed
// field names).
type DispatchResult interface {
	IsSuccess() bool
	Message() string
	Data() *Data
}

// resultBase is embedded by every concrete DispatchResult variant.
type resultBase struct {
	success bool
	message string
	data    *Data
}

func (r resultBase) IsSuccess() bool { return r.success }
func (r resultBase) Message() string { return r.message }
func (r resultBase) Data() *Data {
	if r.data == nil {
		return NewData()
	}
	return r.data
}

func dataOrEmpty(data *Data) *Data {
	if data == nil {
		return NewData()
	}
	return data
}

// Success is the ordinary positive outcome, with no associated value.
type Success struct {
	resultBase
}

// NewSuccess returns a Success carrying message (or a default message, if
// message is empty) and data.
func NewSuccess(message string, data *Data) Success {
	if message == "" {
		message = "Dispatch completed successfully."
	}
	return Success{resultBase{success: true, message: message, data: dataOrEmpty(data)}}
}

// SuccessValue is a Success additionally carrying a single return value,
// accessible directly without digging through Data.
type SuccessValue struct {
	Success
	Value any
}

// NewSuccessValue returns a SuccessValue wrapping value.
func NewSuccessValue(message string, value any, data *Data) SuccessValue {
	return SuccessValue{Success: NewSuccess(message, data), Value: value}
}

// Failure is a generic negative outcome not covered by a more specific
// variant. Cause, if non-nil, is the error that produced the failure.
type Failure struct {
	resultBase
	Cause error
}

// NewFailure returns a Failure. If message is empty and cause is non-nil,
// cause's message is used.
func NewFailure(message string, cause error, data *Data) Failure {
	if message == "" {
		if cause != nil {
			message = cause.Error()
		} else {
			message = "Dispatch failed."
		}
	}
	return Failure{resultBase: resultBase{success: false, message: message, data: dataOrEmpty(data)}, Cause: cause}
}

// ValidationFailure reports that one or more validation processors
// rejected the message before the underlying handler ran. FailedFields
// lists the field (or rule) names that failed, in the order collected.
type ValidationFailure struct {
	resultBase
	FailedFields []string
}

// NewValidationFailure returns a ValidationFailure listing failedFields.
func NewValidationFailure(message string, failedFields []string, data *Data) ValidationFailure {
	if message == "" {
		message = fmt.Sprintf("Validation failed for %d field(s).", len(failedFields))
	}
	return ValidationFailure{
		resultBase:   resultBase{success: false, message: message, data: dataOrEmpty(data)},
		FailedFields: failedFields,
	}
}

// EntityNotFound reports that a dispatch targeting a specific entity
// found no such entity. EntityID is the opaque identifier that was
// looked up, as supplied by the caller.
type EntityNotFound struct {
	resultBase
	EntityID any
}

// NewEntityNotFound returns an EntityNotFound for entityID.
func NewEntityNotFound(message string, entityID any, data *Data) EntityNotFound {
	if message == "" {
		message = fmt.Sprintf("Entity %v not found.", entityID)
	}
	return EntityNotFound{resultBase: resultBase{success: false, message: message, data: dataOrEmpty(data)}, EntityID: entityID}
}

// EntityAlreadyPresent reports a conflicting create where an entity with
// the same identity already exists.
type EntityAlreadyPresent struct {
	resultBase
	EntityID any
}

// NewEntityAlreadyPresent returns an EntityAlreadyPresent for entityID.
func NewEntityAlreadyPresent(message string, entityID any, data *Data) EntityAlreadyPresent {
	if message == "" {
		message = fmt.Sprintf("Entity %v already present.", entityID)
	}
	return EntityAlreadyPresent{resultBase: resultBase{success: false, message: message, data: dataOrEmpty(data)}, EntityID: entityID}
}

// NotFound reports that no route or resource matched the dispatch at all —
// distinct from EntityNotFound, which means a handler ran but could not
// find a specific entity. The Dispatcher reports a point-to-point dispatch
// with no handler as DispatchFailure, not NotFound.
type NotFound struct {
	resultBase
}

// NewNotFound returns a NotFound.
func NewNotFound(message string, data *Data) NotFound {
	if message == "" {
		message = "No matching route found."
	}
	return NotFound{resultBase{success: false, message: message, data: dataOrEmpty(data)}}
}

// DispatchFailure reports an infrastructure-level failure — a transport
// error, a malformed frame, no handler for a point-to-point dispatch — as
// opposed to a handler-reported business failure.
type DispatchFailure struct {
	resultBase
	Cause error
}

// NewDispatchFailure returns a DispatchFailure wrapping cause.
func NewDispatchFailure(message string, cause error, data *Data) DispatchFailure {
	if message == "" {
		if cause != nil {
			message = cause.Error()
		} else {
			message = "Dispatch could not be completed."
		}
	}
	return DispatchFailure{resultBase: resultBase{success: false, message: message, data: dataOrEmpty(data)}, Cause: cause}
}

// Timeout reports that a remote dispatch's deadline elapsed before an ack
// or a result was received.
type Timeout struct {
	resultBase
}

// NewTimeout returns a Timeout.
func NewTimeout(message string, data *Data) Timeout {
	if message == "" {
		message = "Dispatch timed out."
	}
	return Timeout{resultBase{success: false, message: message, data: dataOrEmpty(data)}}
}

// Aggregate combines the results of dispatching to every handler in a
// publish, in the order the children are given (the Dispatcher passes them
// most-derived tier first, registration order within a tier). IsSuccess reports whether every child
// succeeded; Data presents a merge view across all children's Data, with
// child-order precedence — the first child whose Data contains a key
// wins, not the last — and, if an override Data was supplied to
// NewAggregate, that override takes precedence over every child for the
// keys it sets, except that a key set to Null in the override is removed
// from the merge entirely rather than overriding it with nil.
type Aggregate struct {
	resultBase
	Children []DispatchResult
}

// NewAggregate returns an Aggregate over children, synthesising its
// success flag, default message, and merged Data from them. override, if
// given (at most one is used), is merged on top of the children's
// first-wins merge; see Aggregate's doc comment for precedence and the
// Null sentinel's removal behaviour.
func NewAggregate(children []DispatchResult, override ...*Data) Aggregate {
	allSucceeded := true
	for _, c := range children {
		if c == nil || !c.IsSuccess() {
			allSucceeded = false
			break
		}
	}
	var ov *Data
	if len(override) > 0 {
		ov = override[0]
	}
	message := fmt.Sprintf("%d of %d handler(s) succeeded.", successCount(children), len(children))
	return Aggregate{
		resultBase: resultBase{success: allSucceeded, message: message, data: mergeData(children, ov)},
		Children:   children,
	}
}

func successCount(children []DispatchResult) int {
	n := 0
	for _, c := range children {
		if c != nil && c.IsSuccess() {
			n++
		}
	}
	return n
}

// mergeData builds the Aggregate merge view: each child's Data entries are
// applied in order, the first child to set a key winning it, then
// override is applied on top — its keys take precedence over every
// child's, except that a key set to Null in override is removed from the
// result instead of overriding it with nil.
func mergeData(children []DispatchResult, override *Data) *Data {
	out := NewData()
	for _, c := range children {
		if c == nil {
			continue
		}
		d := c.Data()
		for _, k := range d.Keys() {
			if _, exists := out.Get(k); exists {
				continue
			}
			out.Set(k, d.GetOrNil(k))
		}
	}
	for _, k := range override.Keys() {
		v := override.GetOrNil(k)
		if _, isNull := v.(nullSentinel); isNull {
			out.Delete(k)
			continue
		}
		out.Set(k, v)
	}
	return out
}
