package fallback

import "github.com/tidwall/gjson"

// Diagnostics is the parsed view of a Unit's JSON Diagnostics bundle.
type Diagnostics struct {
	Name            string
	GeneratedSource string
	RenderError     string
}

// ParseDiagnostics reads back a bundle produced by diagnosticsBundle,
// using gjson rather than encoding/json since callers only ever want a
// handful of top-level fields out of it.
func ParseDiagnostics(bundle string) Diagnostics {
	return Diagnostics{
		Name:            gjson.Get(bundle, "name").String(),
		GeneratedSource: gjson.Get(bundle, "generatedSource").String(),
		RenderError:     gjson.Get(bundle, "renderError").String(),
	}
}
