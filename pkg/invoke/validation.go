package invoke

import (
	"context"
	"fmt"
	"reflect"

	"github.com/dispatchmesh/dispatch/pkg/dispatchresult"
	"github.com/dispatchmesh/dispatch/pkg/registry"
)

// ValidateMessage wraps an underlying message for validation-only
// dispatch: routed to ValidationMessageHandler instead of the
// underlying type's own handlers, and never reaches a handler whose
// registration is not flagged callOnValidation.
type ValidateMessage struct {
	Inner     any
	InnerType reflect.Type
}

// NewValidateMessage wraps inner for a validation dispatch.
func NewValidateMessage(inner any) ValidateMessage {
	return ValidateMessage{Inner: inner, InnerType: reflect.TypeOf(inner)}
}

// ValidationResult is a single (field, message) report collected from a
// callOnValidation processor. FieldName is taken from the processor's own
// result when it is itself a dispatchresult.ValidationFailure (one entry
// per name in its FailedFields, all sharing that failure's Message);
// FieldName is empty for a processor failure not tied to a specific field.
type ValidationResult struct {
	FieldName string
	Message   string
}

// ValidationMessageHandler answers a ValidateMessage dispatch by locating
// the target type's registrations, running only those flagged
// callOnValidation (each through its own processor chain and handler),
// and synthesising a ValidationFailure (if any of them reported one) or
// Success. Registrations not flagged callOnValidation are never invoked.
type ValidationMessageHandler struct {
	snapshot *registry.HandlerProvider
	invoker  *Invoker
}

// NewValidationMessageHandler returns a ValidationMessageHandler
// resolving registrations against snapshot.
func NewValidationMessageHandler(snapshot *registry.HandlerProvider) *ValidationMessageHandler {
	return &ValidationMessageHandler{snapshot: snapshot, invoker: NewInvoker()}
}

// Validate runs the callOnValidation processors registered for msg's
// inner type and returns the aggregated outcome.
func (h *ValidationMessageHandler) Validate(ctx context.Context, msg ValidateMessage, dctx MessageDispatchContext, processorsFor func(reg *registry.Registration) []Processor) (dispatchresult.DispatchResult, error) {
	regs := h.snapshot.GetHandlers(msg.InnerType)

	data, err := dispatchresult.NewDispatchDataBuilder().WithMessage(msg.Inner).Build()
	if err != nil {
		return nil, fmt.Errorf("invoke: build validation dispatch data: %w", err)
	}

	var results []ValidationResult
	for _, reg := range regs {
		if !reg.CallOnValidation() {
			continue
		}
		result := h.invoker.Invoke(ctx, reg, processorsFor(reg), data, dctx)
		if result.IsSuccess() {
			continue
		}
		if vf, ok := result.(dispatchresult.ValidationFailure); ok && len(vf.FailedFields) > 0 {
			for _, field := range vf.FailedFields {
				results = append(results, ValidationResult{FieldName: field, Message: vf.Message()})
			}
			continue
		}
		results = append(results, ValidationResult{Message: result.Message()})
	}

	if len(results) > 0 {
		return dispatchresult.NewValidationFailure("", fieldNames(results), fieldData(results)), nil
	}
	return dispatchresult.NewSuccess("Validation succeeded.", nil), nil
}

// fieldNames extracts the FieldName of each result, in collection order,
// for ValidationFailure.FailedFields.
func fieldNames(results []ValidationResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.FieldName
	}
	return names
}

// fieldData builds the (fieldName, message) detail carried on the
// aggregated ValidationFailure's Data, keyed by field name. A result with
// no field name (a processor failure not tied to a specific field) is
// omitted, since Data is keyed by field name.
func fieldData(results []ValidationResult) *dispatchresult.Data {
	d := dispatchresult.NewData()
	for _, r := range results {
		if r.FieldName == "" {
			continue
		}
		d.Set(r.FieldName, r.Message)
	}
	return d
}
