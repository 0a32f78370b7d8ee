package tools

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"
)

// ToolDefinition represents a tool that can be called by the model.
type ToolDefinition struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Parameters  *jsonschema.Schema `json:"parameters"`
	Function    ToolFunc           `json:"-"`
	Tags        []string           `json:"tags,omitempty"`
}

// ToolFunc wraps the actual Go function with a pre-compiled executor that
// unmarshals the JSON argument payload into the function's input struct.
type ToolFunc struct {
	Fn        interface{}                                        `json:"-"`
	executor  func(context.Context, []byte) (interface{}, error) `json:"-"`
	inputType reflect.Type                                       `json:"-"`
}

var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
var errorType = reflect.TypeOf((*error)(nil)).Elem()

// NewToolFromFunc creates a ToolDefinition from a Go function. Supported
// signatures:
//
//	func(Input) (Result, error)
//	func(context.Context, Input) (Result, error)
//
// The JSON schema for Input is derived through reflection.
func NewToolFromFunc(name, description string, fn interface{}) (*ToolDefinition, error) {
	funcType := reflect.TypeOf(fn)
	if funcType == nil || funcType.Kind() != reflect.Func {
		return nil, errors.New("provided value is not a function")
	}

	if funcType.NumOut() != 2 || !funcType.Out(1).Implements(errorType) {
		return nil, errors.New("function must return (result, error)")
	}

	inputType, err := toolInputType(funcType)
	if err != nil {
		return nil, err
	}

	schema, err := generateSchemaForType(inputType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate schema")
	}

	return &ToolDefinition{
		Name:        name,
		Description: description,
		Parameters:  schema,
		Function: ToolFunc{
			Fn:        fn,
			executor:  makeExecutor(fn, funcType, inputType),
			inputType: inputType,
		},
	}, nil
}

func toolInputType(funcType reflect.Type) (reflect.Type, error) {
	switch funcType.NumIn() {
	case 1:
		if funcType.In(0) == contextType {
			return nil, errors.New("function must take an input struct after context.Context")
		}
		return funcType.In(0), nil
	case 2:
		if funcType.In(0) != contextType {
			return nil, errors.New("two-arg tool function must be (context.Context, Input)")
		}
		return funcType.In(1), nil
	default:
		return nil, errors.New("function must take (Input) or (context.Context, Input)")
	}
}

func generateSchemaForType(inputType reflect.Type) (*jsonschema.Schema, error) {
	inputInstance := reflect.New(inputType).Elem().Interface()

	reflector := jsonschema.Reflector{
		// Expand definitions inline instead of using $refs, for provider compatibility
		DoNotReference: true,
	}
	schema := reflector.Reflect(inputInstance)

	if schema.Type == "" && schema.Ref == "" {
		schema.Type = "object"
	}

	return schema, nil
}

func makeExecutor(fn interface{}, funcType reflect.Type, inputType reflect.Type) func(context.Context, []byte) (interface{}, error) {
	funcValue := reflect.ValueOf(fn)
	wantsContext := funcType.NumIn() == 2

	return func(ctx context.Context, args []byte) (interface{}, error) {
		input := reflect.New(inputType).Interface()
		if len(args) > 0 {
			if err := json.Unmarshal(args, input); err != nil {
				return nil, errors.Wrap(err, "failed to unmarshal arguments")
			}
		}

		in := []reflect.Value{reflect.ValueOf(input).Elem()}
		if wantsContext {
			in = append([]reflect.Value{reflect.ValueOf(ctx)}, in...)
		}

		results := funcValue.Call(in)
		result := results[0].Interface()
		if errValue := results[1].Interface(); errValue != nil {
			return result, errValue.(error)
		}
		return result, nil
	}
}

// ExecuteWithContext runs the wrapped function against the raw JSON payload.
func (tf *ToolFunc) ExecuteWithContext(ctx context.Context, args []byte) (interface{}, error) {
	if tf.executor == nil {
		return nil, errors.New("tool function not properly initialized")
	}
	return tf.executor(ctx, args)
}

// ToolCall represents a request to execute a tool. ID is the correlation
// identifier assigned by the model.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult is the outcome of one tool call. Execution failures are
// reported through Error rather than as Go errors, so one failing call
// never aborts its siblings.
type ToolResult struct {
	ID       string        `json:"id"`
	Result   interface{}   `json:"result"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// ResultString renders the result (or error) as the text content of a
// tool-result message.
func (tr *ToolResult) ResultString() string {
	if tr.Error != "" {
		return "Error: " + tr.Error
	}
	if s, ok := tr.Result.(string); ok {
		return s
	}
	b, err := json.Marshal(tr.Result)
	if err != nil {
		return ""
	}
	return string(b)
}
