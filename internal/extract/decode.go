package extract

import (
	"fmt"
	"strings"

	"github.com/sokinpui/recon/internal/jsonx"
	"github.com/sokinpui/recon/model"
)

var (
	pathKeys      = []string{"path", "file_path", "filePath", "file", "filename"}
	operationKeys = []string{"operation", "action", "op"}
	searchKeys    = []string{"search", "find", "old"}
	replaceKeys   = []string{"replace", "replacement", "new"}
)

// parseJSON decodes text as a single JSON value.
func parseJSON(text string) (any, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, false
	}
	// Raw control characters inside strings are not JSON, whatever the
	// decoder tolerates. sanitize_control owns that repair.
	if _, dirty := sanitizeControlChars(text); dirty {
		return nil, false
	}
	var v any
	if err := jsonx.Unmarshal([]byte(text), &v); err != nil {
		return nil, false
	}
	return v, true
}

// parseResult decodes a candidate JSON text into a reconciliation result.
// Only objects with the target shape are accepted.
func parseResult(text string) (*model.ReconciliationResult, bool) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "{") {
		return nil, false
	}
	v, ok := parseJSON(text)
	if !ok {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, false
	}
	result, err := toResult(obj)
	if err != nil {
		return nil, false
	}
	return result, true
}

// toResult converts a decoded object with a files list into a validated
// result. Any edit that breaks the FileEdit invariants rejects the object.
func toResult(obj map[string]any) (*model.ReconciliationResult, error) {
	list, ok := obj["files"].([]any)
	if !ok {
		return nil, fmt.Errorf("files is not a list")
	}

	files := make([]model.FileEdit, 0, len(list))
	for i, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("files[%d] is not an object", i)
		}
		edit, err := toFileEdit(entry)
		if err != nil {
			return nil, fmt.Errorf("files[%d]: %w", i, err)
		}
		files = append(files, edit)
	}

	summary, _ := obj["summary"].(string)
	summary = strings.TrimSpace(summary)
	if summary == "" {
		summary = fmt.Sprintf("Generated %d file(s)", len(files))
	}

	return &model.ReconciliationResult{Files: files, Summary: summary}, nil
}

func toFileEdit(entry map[string]any) (model.FileEdit, error) {
	var edit model.FileEdit
	edit.Path = strings.TrimSpace(firstString(entry, pathKeys))

	if c, ok := entry["content"].(string); ok {
		edit.Content = &c
	}

	if raw, ok := entry["patches"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return edit, fmt.Errorf("patches is not a list")
		}
		for j, p := range list {
			patch, err := toPatch(p)
			if err != nil {
				return edit, fmt.Errorf("patches[%d]: %w", j, err)
			}
			edit.Patches = append(edit.Patches, patch)
		}
	}

	if name := firstString(entry, operationKeys); name != "" {
		op, ok := model.ParseOperation(name)
		if !ok {
			return edit, fmt.Errorf("%w %q", model.ErrBadOperation, name)
		}
		edit.Operation = op
	} else {
		switch {
		case len(edit.Patches) > 0:
			edit.Operation = model.OperationPatch
		case edit.Content != nil:
			edit.Operation = model.OperationUpdate
		}
	}

	return edit, edit.Validate()
}

func toPatch(raw any) (model.Patch, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return model.Patch{}, fmt.Errorf("patch is not an object")
	}
	search, okSearch := lookupString(obj, searchKeys)
	replace, okReplace := lookupString(obj, replaceKeys)
	if !okSearch || !okReplace {
		return model.Patch{}, fmt.Errorf("patch needs both search and replace")
	}
	return model.Patch{Search: search, Replace: replace}, nil
}

func firstString(obj map[string]any, keys []string) string {
	s, _ := lookupString(obj, keys)
	return s
}

func lookupString(obj map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			return s, true
		}
	}
	return "", false
}
