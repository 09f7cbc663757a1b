package exprforge

import (
	"fmt"

	"github.com/goccy/go-yaml"

	"github.com/cwbudde/exprforge/internal/types"
)

// declTableYAML mirrors the on-disk shape of a declaration table: a
// context entry plus an ordered list of declared names, each either a
// primitive tag or a fully qualified reference class name.
type declTableYAML struct {
	Context struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"context"`
	Decls []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
	} `yaml:"decls"`
}

var primitiveNames = map[string]types.PrimitiveTag{
	"int": types.Int, "long": types.Long, "short": types.Short, "byte": types.Byte,
	"char": types.Char, "float": types.Float, "double": types.Double, "boolean": types.Boolean,
}

// LoadDeclTableYAML parses a YAML declaration table document of the form:
//
//	context: {name: ctx, type: java.util.Map}
//	decls:
//	  - {name: age, type: int}
//	  - {name: name, type: java.lang.String}
//
// into a *types.DeclTable.
func LoadDeclTableYAML(doc []byte) (*types.DeclTable, error) {
	var raw declTableYAML
	if err := yaml.Unmarshal(doc, &raw); err != nil {
		return nil, fmt.Errorf("exprforge: parse declaration table: %w", err)
	}

	table := &types.DeclTable{
		Context: types.Declaration{Name: raw.Context.Name, Type: descriptorFor(raw.Context.Type)},
	}
	for _, d := range raw.Decls {
		table.Decls = append(table.Decls, types.Declaration{Name: d.Name, Type: descriptorFor(d.Type)})
	}
	return table, nil
}

func descriptorFor(typeName string) types.Descriptor {
	if tag, ok := primitiveNames[typeName]; ok {
		return types.Prim(tag)
	}
	return types.Ref(typeName)
}
