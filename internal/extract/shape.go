package extract

import (
	"strings"
)

// shape is the decoded form of a response value. Exactly one variant
// applies to any value; decodeShape checks them in priority order.
type shape interface {
	isShape()
}

// targetShape is an object that already carries a files list.
type targetShape struct {
	object map[string]any
}

// wrappedShape is an agent runtime envelope: a kind/type discriminant plus
// a result or payload field holding the real response.
type wrappedShape struct {
	kind    string
	payload any
}

// fieldsShape is an object exposing one or more known payload fields.
type fieldsShape struct {
	fields []payloadField
}

type payloadField struct {
	name  string
	value any
}

// textShape is a bare string handed to the text strategies.
type textShape struct {
	text string
}

type unknownShape struct{}

func (targetShape) isShape()  {}
func (wrappedShape) isShape() {}
func (fieldsShape) isShape()  {}
func (textShape) isShape()    {}
func (unknownShape) isShape() {}

var (
	// envelopeKinds are discriminant values that mark a wrapped result.
	envelopeKinds = map[string]struct{}{
		"result":      {},
		"tool_result": {},
		"final":       {},
		"envelope":    {},
		"wrapped":     {},
		"output":      {},
	}
	discriminantKeys = []string{"kind", "type"}
	wrappedPayloads  = []string{"result", "payload"}
	// payloadFields are probed in this order.
	payloadFields = []string{"text", "result", "raw", "content", "stdout"}
)

func decodeShape(v any) shape {
	switch val := v.(type) {
	case string:
		return textShape{text: val}
	case map[string]any:
		if files, ok := val["files"]; ok {
			if _, isList := files.([]any); isList {
				return targetShape{object: val}
			}
		}
		if w, ok := decodeWrapped(val); ok {
			return w
		}
		var fields []payloadField
		for _, name := range payloadFields {
			if fv, ok := val[name]; ok && fv != nil {
				fields = append(fields, payloadField{name: name, value: fv})
			}
		}
		if len(fields) > 0 {
			return fieldsShape{fields: fields}
		}
	}
	return unknownShape{}
}

func decodeWrapped(obj map[string]any) (wrappedShape, bool) {
	var kind string
	for _, key := range discriminantKeys {
		if s, ok := obj[key].(string); ok {
			if _, known := envelopeKinds[strings.ToLower(strings.TrimSpace(s))]; known {
				kind = s
				break
			}
		}
	}
	if kind == "" {
		return wrappedShape{}, false
	}
	for _, key := range wrappedPayloads {
		if payload, ok := obj[key]; ok && payload != nil {
			return wrappedShape{kind: kind, payload: payload}, true
		}
	}
	return wrappedShape{}, false
}
