package fallback

import (
	"fmt"

	"github.com/tidwall/sjson"

	"github.com/cwbudde/exprforge/internal/ir"
)

// HostCompiler is the interface the rest of the package programs against,
// so tests and the top-level Compile wiring can substitute a stub: the
// host-compiler fallback is a pluggable boundary.
type HostCompiler interface {
	Compile(e ir.Expr, name string) (*Unit, error)
	Eval(e ir.Expr, env *ir.Env) (any, error)
}

// Unit is everything the fallback path produces for one compiled
// expression: diagnostic Go source plus a JSON diagnostics bundle, built
// with gjson/sjson rather than hand-rolled string building.
type Unit struct {
	Name            string
	GeneratedSource string
	Diagnostics     string // JSON document, see diagnosticsBundle
}

// GoHostCompiler is the default HostCompiler: it renders EIR to Go source
// for diagnostics via go/parser+go/printer (render.go) and executes the
// expression via the EIR reference interpreter rather than actually
// invoking `go build` on the rendered text — spinning up a real Go
// toolchain per expression would make every fallback evaluation as slow as
// a cold compile, defeating the purpose of a fallback path that exists
// specifically for rarely-hot expressions (see DESIGN.md).
type GoHostCompiler struct{}

func NewGoHostCompiler() *GoHostCompiler { return &GoHostCompiler{} }

func (GoHostCompiler) Compile(e ir.Expr, name string) (*Unit, error) {
	source, err := RenderGoSource(e, name)
	if err != nil {
		// Rendering failure never blocks evaluation — the interpreter can
		// still run e directly. It only means the diagnostics bundle
		// carries the error instead of generated source.
		bundle, _ := diagnosticsBundle(name, "", err.Error())
		return &Unit{Name: name, Diagnostics: bundle}, nil
	}
	bundle, bundleErr := diagnosticsBundle(name, source, "")
	if bundleErr != nil {
		return nil, bundleErr
	}
	return &Unit{Name: name, GeneratedSource: source, Diagnostics: bundle}, nil
}

func (GoHostCompiler) Eval(e ir.Expr, env *ir.Env) (any, error) {
	return ir.Eval(e, env)
}

// diagnosticsBundle builds a small JSON document describing one fallback
// compilation outcome, using sjson to avoid constructing the object by
// hand and gjson (see diagnostics.go) to read it back out in tests.
func diagnosticsBundle(name, source, renderError string) (string, error) {
	doc := "{}"
	var err error
	doc, err = sjson.Set(doc, "name", name)
	if err != nil {
		return "", fmt.Errorf("fallback: build diagnostics bundle: %w", err)
	}
	if source != "" {
		doc, err = sjson.Set(doc, "generatedSource", source)
		if err != nil {
			return "", fmt.Errorf("fallback: build diagnostics bundle: %w", err)
		}
	}
	if renderError != "" {
		doc, err = sjson.Set(doc, "renderError", renderError)
		if err != nil {
			return "", fmt.Errorf("fallback: build diagnostics bundle: %w", err)
		}
	}
	return doc, nil
}
