package dispatchresult

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"reflect"

	"github.com/mitchellh/mapstructure"
	xdr "github.com/rasky/go-xdr/xdr2"
)

// Nominal type tags for the wire envelope. These are the codec's type
// discriminator, independent of Go's own type names, so that the wire
// format is stable across refactors of the variant types themselves.
const (
	tagSuccess              = "success"
	tagSuccessValue         = "success_value"
	tagFailure              = "failure"
	tagValidationFailure    = "validation_failure"
	tagEntityNotFound       = "entity_not_found"
	tagEntityAlreadyPresent = "entity_already_present"
	tagNotFound             = "not_found"
	tagDispatchFailure      = "dispatch_failure"
	tagTimeout              = "timeout"
	tagAggregate            = "aggregate"
)

// wireEnvelope is the on-the-wire XDR structure shared by every
// DispatchResult variant. Tag selects the variant; Success and Message
// mirror the shared resultBase fields; Extra and Data carry
// variant-specific fields and the result's Data payload, respectively,
// each as an opaque (length-prefixed) JSON blob — XDR's own type system
// has no open-ended "any" encoding, so a self-describing JSON blob inside
// an XDR opaque<> field gives the envelope a fixed, reflectable shape
// while still carrying arbitrary application data.
type wireEnvelope struct {
	Tag     string
	Success bool
	Message string
	Extra   []byte
	Data    []byte
}

// ResultCodec encodes and decodes DispatchResult values to and from the
// wire envelope described above.
type ResultCodec struct{}

// NewResultCodec returns a ResultCodec.
func NewResultCodec() *ResultCodec { return &ResultCodec{} }

// Encode writes result's wire representation to w.
func (c *ResultCodec) Encode(w io.Writer, result DispatchResult) error {
	env, err := c.toEnvelope(result)
	if err != nil {
		return err
	}
	_, err = xdr.Marshal(w, env)
	if err != nil {
		return fmt.Errorf("dispatchresult: encode %s: %w", env.Tag, err)
	}
	return nil
}

// Decode reads a wire-encoded DispatchResult from r.
func (c *ResultCodec) Decode(r io.Reader) (DispatchResult, error) {
	var env wireEnvelope
	if _, err := xdr.Unmarshal(r, &env); err != nil {
		return nil, fmt.Errorf("dispatchresult: decode envelope: %w", err)
	}
	return c.fromEnvelope(env)
}

func (c *ResultCodec) toEnvelope(result DispatchResult) (wireEnvelope, error) {
	dataJSON, err := json.Marshal(result.Data().Map())
	if err != nil {
		return wireEnvelope{}, fmt.Errorf("dispatchresult: marshal data: %w", err)
	}

	env := wireEnvelope{Success: result.IsSuccess(), Message: result.Message(), Data: dataJSON}

	switch v := result.(type) {
	case SuccessValue:
		env.Tag = tagSuccessValue
		env.Extra, err = json.Marshal(map[string]any{"value": v.Value})
	case Success:
		env.Tag = tagSuccess
	case Failure:
		env.Tag = tagFailure
		env.Extra, err = json.Marshal(map[string]any{"cause": causeString(v.Cause)})
	case ValidationFailure:
		env.Tag = tagValidationFailure
		env.Extra, err = json.Marshal(map[string]any{"failedFields": v.FailedFields})
	case EntityNotFound:
		env.Tag = tagEntityNotFound
		env.Extra, err = json.Marshal(map[string]any{"entityID": v.EntityID})
	case EntityAlreadyPresent:
		env.Tag = tagEntityAlreadyPresent
		env.Extra, err = json.Marshal(map[string]any{"entityID": v.EntityID})
	case NotFound:
		env.Tag = tagNotFound
	case DispatchFailure:
		env.Tag = tagDispatchFailure
		env.Extra, err = json.Marshal(map[string]any{"cause": causeString(v.Cause)})
	case Timeout:
		env.Tag = tagTimeout
	case Aggregate:
		env.Tag = tagAggregate
		err = c.encodeAggregateChildren(&env, v.Children)
	default:
		return wireEnvelope{}, fmt.Errorf("dispatchresult: %T has no registered wire tag", result)
	}
	if err != nil {
		return wireEnvelope{}, fmt.Errorf("dispatchresult: marshal extra for %T: %w", result, err)
	}
	return env, nil
}

// encodeAggregateChildren recursively encodes each child through the same
// envelope format and stores the concatenated, length-prefixed blobs in
// Extra.
func (c *ResultCodec) encodeAggregateChildren(env *wireEnvelope, children []DispatchResult) error {
	var buf bytes.Buffer
	encoded := make([][]byte, 0, len(children))
	for _, child := range children {
		var childBuf bytes.Buffer
		if err := c.Encode(&childBuf, child); err != nil {
			return err
		}
		encoded = append(encoded, childBuf.Bytes())
	}
	if _, err := xdr.Marshal(&buf, encoded); err != nil {
		return err
	}
	env.Extra = buf.Bytes()
	return nil
}

func causeString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func (c *ResultCodec) fromEnvelope(env wireEnvelope) (DispatchResult, error) {
	var data map[string]any
	if len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("dispatchresult: unmarshal data: %w", err)
		}
	}
	d := DataOf(data)

	var extra map[string]any
	if len(env.Extra) > 0 && env.Tag != tagAggregate {
		if err := json.Unmarshal(env.Extra, &extra); err != nil {
			return nil, fmt.Errorf("dispatchresult: unmarshal extra for %s: %w", env.Tag, err)
		}
	}

	switch env.Tag {
	case tagSuccess:
		return Success{resultBase{success: env.Success, message: env.Message, data: d}}, nil
	case tagSuccessValue:
		return SuccessValue{
			Success: Success{resultBase{success: env.Success, message: env.Message, data: d}},
			Value:   extra["value"],
		}, nil
	case tagFailure:
		return Failure{resultBase: resultBase{success: env.Success, message: env.Message, data: d}, Cause: causeFromString(extra["cause"])}, nil
	case tagValidationFailure:
		var failedFields []string
		if err := mapstructure.Decode(extra["failedFields"], &failedFields); err != nil {
			return nil, fmt.Errorf("dispatchresult: decode failedFields: %w", err)
		}
		return ValidationFailure{resultBase: resultBase{success: env.Success, message: env.Message, data: d}, FailedFields: failedFields}, nil
	case tagEntityNotFound:
		return EntityNotFound{resultBase: resultBase{success: env.Success, message: env.Message, data: d}, EntityID: extra["entityID"]}, nil
	case tagEntityAlreadyPresent:
		return EntityAlreadyPresent{resultBase: resultBase{success: env.Success, message: env.Message, data: d}, EntityID: extra["entityID"]}, nil
	case tagNotFound:
		return NotFound{resultBase{success: env.Success, message: env.Message, data: d}}, nil
	case tagDispatchFailure:
		return DispatchFailure{resultBase: resultBase{success: env.Success, message: env.Message, data: d}, Cause: causeFromString(extra["cause"])}, nil
	case tagTimeout:
		return Timeout{resultBase{success: env.Success, message: env.Message, data: d}}, nil
	case tagAggregate:
		children, err := c.decodeAggregateChildren(env.Extra)
		if err != nil {
			return nil, err
		}
		return Aggregate{resultBase: resultBase{success: env.Success, message: env.Message, data: d}, Children: children}, nil
	default:
		return nil, fmt.Errorf("dispatchresult: unknown wire tag %q", env.Tag)
	}
}

func (c *ResultCodec) decodeAggregateChildren(raw []byte) ([]DispatchResult, error) {
	var encoded [][]byte
	if _, err := xdr.Unmarshal(bytes.NewReader(raw), &encoded); err != nil {
		return nil, fmt.Errorf("dispatchresult: decode aggregate children: %w", err)
	}
	children := make([]DispatchResult, 0, len(encoded))
	for _, blob := range encoded {
		child, err := c.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	return children, nil
}

func causeFromString(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	return fmt.Errorf("%s", s)
}

// dataEnvelope is the wire structure for a remote-dispatched DispatchData:
// TypeName is the nominal, unqualified message type name; Message and Aux
// are opaque JSON blobs for the message value and auxiliary data map,
// respectively, for the same reason wireEnvelope uses JSON blobs — XDR's
// reflection-driven encoding has no representation for an open "any".
type dataEnvelope struct {
	TypeName string
	Message  []byte
	Aux      []byte
}

// EncodeData writes data's wire representation to w.
func (c *ResultCodec) EncodeData(w io.Writer, data *DispatchData) error {
	messageJSON, err := json.Marshal(data.Message())
	if err != nil {
		return fmt.Errorf("dispatchresult: marshal message: %w", err)
	}
	auxJSON, err := json.Marshal(data.Data().Map())
	if err != nil {
		return fmt.Errorf("dispatchresult: marshal aux data: %w", err)
	}
	env := dataEnvelope{TypeName: data.MessageType().String(), Message: messageJSON, Aux: auxJSON}
	if _, err := xdr.Marshal(w, env); err != nil {
		return fmt.Errorf("dispatchresult: encode data envelope: %w", err)
	}
	return nil
}

// DecodeData reads a wire-encoded DispatchData from r. If resolver knows
// TypeName, the message is decoded into a fresh value of that type;
// otherwise it falls back to a generic map[string]any (or the JSON
// scalar/slice the payload decodes to), per the wire format's "unknown
// type" contract.
func (c *ResultCodec) DecodeData(r io.Reader, resolver TypeResolver) (*DispatchData, error) {
	var env dataEnvelope
	if _, err := xdr.Unmarshal(r, &env); err != nil {
		return nil, fmt.Errorf("dispatchresult: decode data envelope: %w", err)
	}

	var message any
	if resolver != nil {
		if t, ok := resolver.Resolve(env.TypeName); ok {
			ptr := reflect.New(t)
			if err := json.Unmarshal(env.Message, ptr.Interface()); err != nil {
				return nil, fmt.Errorf("dispatchresult: unmarshal message as %s: %w", t, err)
			}
			message = ptr.Elem().Interface()
		}
	}
	if message == nil {
		if err := json.Unmarshal(env.Message, &message); err != nil {
			return nil, fmt.Errorf("dispatchresult: unmarshal generic message: %w", err)
		}
	}

	var aux map[string]any
	if len(env.Aux) > 0 {
		if err := json.Unmarshal(env.Aux, &aux); err != nil {
			return nil, fmt.Errorf("dispatchresult: unmarshal aux data: %w", err)
		}
	}

	return NewDispatchDataBuilder().WithMessage(message).WithData(DataOf(aux)).Build()
}
