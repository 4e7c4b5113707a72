package apiclient

import (
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"

	"kasirinaja/desktop/internal/domain"
)

type Shape int

const (
	ShapeObject Shape = iota
	ShapeList
)

// Envelope is a response body reduced to one of two shapes. The backend may
// answer with a bare array, a bare object, {"data": [...]} or {"data": {...}};
// all of them land here as either a list or a single object.
type Envelope struct {
	shape    Shape
	object   domain.Record
	list     []domain.Record
	fallback bool
}

func (e Envelope) Shape() Shape {
	return e.shape
}

// Fallback reports that the body was an object without a "data" field, so the
// whole object was taken as the payload.
func (e Envelope) Fallback() bool {
	return e.fallback
}

// List returns the payload as a list; a single object becomes a one-element
// list.
func (e Envelope) List() []domain.Record {
	if e.shape == ShapeList {
		return e.list
	}
	return []domain.Record{e.object}
}

func (e Envelope) Object() (domain.Record, bool) {
	if e.shape == ShapeObject {
		return e.object, true
	}
	return nil, false
}

// Normalize classifies body into an Envelope. {"data": null} is an empty list.
func Normalize(body string) (Envelope, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return Envelope{}, &ParseError{Reason: "empty body", Body: body}
	}
	if !gjson.Valid(trimmed) {
		return Envelope{}, &ParseError{Reason: "invalid JSON", Body: body}
	}

	root := gjson.Parse(trimmed)
	switch {
	case root.IsArray():
		list, err := decodeList(root.Raw)
		if err != nil {
			return Envelope{}, &ParseError{Reason: "array elements are not objects", Body: body, Err: err}
		}
		return Envelope{shape: ShapeList, list: list}, nil
	case root.IsObject():
		data := root.Get("data")
		switch {
		case !data.Exists():
			obj, err := decodeRecord(root.Raw)
			if err != nil {
				return Envelope{}, &ParseError{Reason: "object", Body: body, Err: err}
			}
			return Envelope{shape: ShapeObject, object: obj, fallback: true}, nil
		case data.IsArray():
			list, err := decodeList(data.Raw)
			if err != nil {
				return Envelope{}, &ParseError{Reason: "data elements are not objects", Body: body, Err: err}
			}
			return Envelope{shape: ShapeList, list: list}, nil
		case data.IsObject():
			obj, err := decodeRecord(data.Raw)
			if err != nil {
				return Envelope{}, &ParseError{Reason: "data object", Body: body, Err: err}
			}
			return Envelope{shape: ShapeObject, object: obj}, nil
		case data.Type == gjson.Null:
			return Envelope{shape: ShapeList, list: []domain.Record{}}, nil
		default:
			return Envelope{}, &ParseError{Reason: "data is neither a list nor an object", Body: body}
		}
	default:
		return Envelope{}, &ParseError{Reason: "body is neither a list nor an object", Body: body}
	}
}

// ParseObject decodes the top-level JSON object of body without unwrapping
// "data".
func ParseObject(body string) (domain.Record, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, &ParseError{Reason: "empty body", Body: body}
	}
	if !gjson.Valid(trimmed) || !gjson.Parse(trimmed).IsObject() {
		return nil, &ParseError{Reason: "not a JSON object", Body: body}
	}
	obj, err := decodeRecord(trimmed)
	if err != nil {
		return nil, &ParseError{Reason: "object", Body: body, Err: err}
	}
	return obj, nil
}

// ParseData returns the object payload of body: the "data" object when
// wrapped, the body itself otherwise.
func ParseData(body string) (domain.Record, error) {
	env, err := Normalize(body)
	if err != nil {
		return nil, err
	}
	obj, ok := env.Object()
	if !ok {
		return nil, &ParseError{Reason: "expected an object payload, got a list", Body: body}
	}
	return obj, nil
}

// ParseList returns the list payload of body in its original order.
func ParseList(body string) ([]domain.Record, error) {
	env, err := Normalize(body)
	if err != nil {
		return nil, err
	}
	return env.List(), nil
}

func IsSuccessful(body string) bool {
	trimmed := strings.TrimSpace(body)
	if !gjson.Valid(trimmed) {
		return false
	}
	root := gjson.Parse(trimmed)
	return root.IsObject() && root.Get("success").Type == gjson.True
}

func GetMessage(body string) string {
	trimmed := strings.TrimSpace(body)
	if !gjson.Valid(trimmed) {
		return ""
	}
	root := gjson.Parse(trimmed)
	if !root.IsObject() {
		return ""
	}
	msg := root.Get("message")
	if !msg.Exists() || msg.Type == gjson.Null {
		return ""
	}
	return msg.String()
}

const errorSnippetLen = 100

// errorMessage picks the most useful text out of an error response.
func errorMessage(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if gjson.Valid(trimmed) {
		root := gjson.Parse(trimmed)
		if root.IsObject() {
			for _, key := range []string{"message", "error", "status"} {
				v := root.Get(key)
				if v.Exists() && v.Type != gjson.Null && strings.TrimSpace(v.String()) != "" {
					return v.String()
				}
			}
		}
	}
	return truncate(raw, errorSnippetLen)
}

func decodeRecord(raw string) (domain.Record, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = map[string]any{}
	}
	return domain.Record(obj), nil
}

func decodeList(raw string) ([]domain.Record, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var items []map[string]any
	if err := dec.Decode(&items); err != nil {
		return nil, err
	}
	out := make([]domain.Record, 0, len(items))
	for _, item := range items {
		out = append(out, domain.Record(item))
	}
	return out, nil
}
