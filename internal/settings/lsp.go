package settings

import (
	"github.com/iancoleman/strcase"
	"github.com/tidwall/gjson"
)

// FromJSON extracts the known settings from an editor configuration
// payload. Settings may be nested under the section ({"stan":{"format":{}}}),
// keyed by the full dotted name, or given at the top level. Keys may use
// camel or snake case.
func FromJSON(raw []byte) map[string]interface{} {
	values := map[string]interface{}{}
	if !gjson.ValidBytes(raw) {
		return values
	}

	root := gjson.ParseBytes(raw)
	scopes := []gjson.Result{
		root,
		root.Get(`stan\.format`),
		root.Get("stan.format"),
		root.Get("settings.stan.format"),
	}

	for _, key := range Keys {
		for _, scope := range scopes {
			if !scope.IsObject() {
				continue
			}
			found := lookup(scope, key)
			if !found.Exists() {
				continue
			}
			values[key] = found.Value()
		}
	}
	return values
}

func lookup(scope gjson.Result, key string) gjson.Result {
	for _, candidate := range []string{key, strcase.ToSnake(key), strcase.ToKebab(key)} {
		found := scope.Get(gjson.Escape(candidate))
		if found.Exists() {
			return found
		}
		// dotted keys at the top level
		found = scope.Get(gjson.Escape(Section + "." + candidate))
		if found.Exists() {
			return found
		}
	}
	return gjson.Result{}
}
