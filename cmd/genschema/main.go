// Command genschema generates the JSON-schema descriptor for a tool's
// argument struct. Point it at a package and an exported struct type; it
// emits a FunctionDeclaration-shaped JSON file (name, description,
// parameters) that can be loaded at startup instead of hand-writing the
// schema.
//
//	genschema -type WeatherArgs -name get_weather -dir ./mytools -out schemas
//
// The struct's doc comment becomes the tool description and field doc
// comments become property descriptions. Fields tagged `json:"-"` are
// skipped; `omitempty` marks a field optional.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"golang.org/x/tools/go/packages"
)

// propertySchema is one JSON-schema property of the parameters object.
type propertySchema struct {
	Type                 string                    `json:"type,omitempty"`
	Description          string                    `json:"description,omitempty"`
	Items                *propertySchema           `json:"items,omitempty"`
	Properties           map[string]propertySchema `json:"properties,omitempty"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties *propertySchema           `json:"additionalProperties,omitempty"`
}

// toolSchema is the emitted top-level document.
type toolSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  struct {
		Type       string                    `json:"type"`
		Properties map[string]propertySchema `json:"properties"`
		Required   []string                  `json:"required"`
	} `json:"parameters"`
}

func main() {
	typeName := flag.String("type", "", "Exported struct type describing the tool's arguments")
	toolName := flag.String("name", "", "Tool name to emit (defaults to the snake_cased type name)")
	dir := flag.String("dir", ".", "Directory of the package containing the type")
	outDir := flag.String("out", "schemas", "Output directory for the generated schema")
	flag.Parse()

	if *typeName == "" {
		log.Fatal("A struct type must be provided using -type")
	}

	cfg := &packages.Config{
		Mode: packages.NeedName |
			packages.NeedFiles |
			packages.NeedImports |
			packages.NeedTypes |
			packages.NeedSyntax |
			packages.NeedTypesInfo,
		Fset: token.NewFileSet(),
	}

	pkgs, err := packages.Load(cfg, *dir)
	if err != nil {
		log.Fatalf("Failed to load package for directory '%s': %v", *dir, err)
	}
	if len(pkgs) == 0 {
		log.Fatalf("No packages found in directory: %s", *dir)
	}
	pkg := pkgs[0]
	if len(pkgs) > 1 {
		log.Printf("Warning: loaded multiple packages, using %s", pkg.PkgPath)
	}
	for _, p := range pkgs {
		for _, loadErr := range p.Errors {
			log.Fatalf("Package loading error: %v", loadErr)
		}
	}

	obj := pkg.Types.Scope().Lookup(*typeName)
	if obj == nil {
		log.Fatalf("Type '%s' not found in package '%s'", *typeName, pkg.PkgPath)
	}
	named, ok := obj.Type().(*types.Named)
	if !ok {
		log.Fatalf("Object '%s' is not a named type", *typeName)
	}
	structType, ok := named.Underlying().(*types.Struct)
	if !ok {
		log.Fatalf("Type '%s' is not a struct", *typeName)
	}

	docs := collectDocs(pkg, *typeName)

	schema := toolSchema{
		Name:        *toolName,
		Description: docs.typeDoc,
	}
	if schema.Name == "" {
		schema.Name = snakeCase(*typeName)
	}
	schema.Parameters.Type = "object"
	schema.Parameters.Properties = make(map[string]propertySchema)
	schema.Parameters.Required = []string{}

	for i := 0; i < structType.NumFields(); i++ {
		field := structType.Field(i)
		if !field.Exported() {
			continue
		}

		fieldName := field.Name()
		tagInfo := parseJSONTag(reflect.StructTag(structType.Tag(i)))
		if tagInfo.Name == "-" {
			continue
		}
		if tagInfo.Name != "" {
			fieldName = tagInfo.Name
		}

		prop, err := schemaForType(field.Type())
		if err != nil {
			log.Printf("Warning: skipping field '%s.%s': %v", *typeName, field.Name(), err)
			continue
		}
		if doc, ok := docs.fieldDocs[field.Name()]; ok {
			prop.Description = doc
		}

		schema.Parameters.Properties[fieldName] = prop
		if !tagInfo.OmitEmpty {
			schema.Parameters.Required = append(schema.Parameters.Required, fieldName)
		}
	}
	sort.Strings(schema.Parameters.Required)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Fatalf("Failed to create directory '%s': %v", *outDir, err)
	}

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal schema: %v", err)
	}

	outputFile := filepath.Join(*outDir, schema.Name+".json")
	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		log.Fatalf("Failed to write schema to '%s': %v", outputFile, err)
	}

	log.Printf("Wrote schema for '%s' to %s", *typeName, outputFile)
}

// typeDocs carries the doc comments harvested from the struct's AST.
type typeDocs struct {
	typeDoc   string
	fieldDocs map[string]string
}

// collectDocs walks the package AST for the struct's declaration and pulls
// the type doc comment and each field's doc or trailing comment.
func collectDocs(pkg *packages.Package, typeName string) typeDocs {
	docs := typeDocs{fieldDocs: make(map[string]string)}

	for _, file := range pkg.Syntax {
		ast.Inspect(file, func(n ast.Node) bool {
			genDecl, ok := n.(*ast.GenDecl)
			if !ok || genDecl.Tok != token.TYPE {
				return true
			}
			for _, spec := range genDecl.Specs {
				typeSpec, ok := spec.(*ast.TypeSpec)
				if !ok || typeSpec.Name.Name != typeName {
					continue
				}
				if typeSpec.Doc != nil {
					docs.typeDoc = strings.TrimSpace(typeSpec.Doc.Text())
				} else if genDecl.Doc != nil {
					docs.typeDoc = strings.TrimSpace(genDecl.Doc.Text())
				}

				structAST, ok := typeSpec.Type.(*ast.StructType)
				if !ok {
					continue
				}
				for _, field := range structAST.Fields.List {
					text := ""
					if field.Doc != nil {
						text = strings.TrimSpace(field.Doc.Text())
					} else if field.Comment != nil {
						text = strings.TrimSpace(field.Comment.Text())
					}
					if text == "" {
						continue
					}
					for _, name := range field.Names {
						docs.fieldDocs[name.Name] = text
					}
				}
			}
			return true
		})
	}

	return docs
}

// schemaForType maps a Go type to its JSON-schema property, recursing through
// slices, maps, pointers, and nested structs.
func schemaForType(t types.Type) (propertySchema, error) {
	switch typ := t.Underlying().(type) {
	case *types.Basic:
		switch typ.Kind() {
		case types.Bool:
			return propertySchema{Type: "boolean"}, nil
		case types.Int, types.Int8, types.Int16, types.Int32, types.Int64,
			types.Uint, types.Uint8, types.Uint16, types.Uint32, types.Uint64:
			return propertySchema{Type: "integer"}, nil
		case types.Float32, types.Float64:
			return propertySchema{Type: "number"}, nil
		case types.String:
			return propertySchema{Type: "string"}, nil
		default:
			return propertySchema{}, fmt.Errorf("unsupported basic type: %s", typ.String())
		}

	case *types.Slice:
		elem, err := schemaForType(typ.Elem())
		if err != nil {
			return propertySchema{}, fmt.Errorf("slice element type '%s': %w", typ.Elem().String(), err)
		}
		return propertySchema{Type: "array", Items: &elem}, nil

	case *types.Array:
		elem, err := schemaForType(typ.Elem())
		if err != nil {
			return propertySchema{}, fmt.Errorf("array element type '%s': %w", typ.Elem().String(), err)
		}
		return propertySchema{Type: "array", Items: &elem}, nil

	case *types.Pointer:
		return schemaForType(typ.Elem())

	case *types.Map:
		if key, ok := typ.Key().Underlying().(*types.Basic); !ok || key.Kind() != types.String {
			return propertySchema{}, fmt.Errorf("map key type '%s' is not string", typ.Key().String())
		}
		elem, err := schemaForType(typ.Elem())
		if err != nil {
			return propertySchema{}, fmt.Errorf("map value type '%s': %w", typ.Elem().String(), err)
		}
		return propertySchema{Type: "object", AdditionalProperties: &elem}, nil

	case *types.Struct:
		prop := propertySchema{
			Type:       "object",
			Properties: make(map[string]propertySchema),
		}
		for i := 0; i < typ.NumFields(); i++ {
			field := typ.Field(i)
			if !field.Exported() {
				continue
			}
			fieldName := field.Name()
			tagInfo := parseJSONTag(reflect.StructTag(typ.Tag(i)))
			if tagInfo.Name == "-" {
				continue
			}
			if tagInfo.Name != "" {
				fieldName = tagInfo.Name
			}
			fieldProp, err := schemaForType(field.Type())
			if err != nil {
				log.Printf("Warning: skipping nested field '%s': %v", field.Name(), err)
				continue
			}
			prop.Properties[fieldName] = fieldProp
			if !tagInfo.OmitEmpty {
				prop.Required = append(prop.Required, fieldName)
			}
		}
		sort.Strings(prop.Required)
		return prop, nil

	case *types.Interface:
		if typ.Empty() {
			return propertySchema{Description: "Any JSON value"}, nil
		}
		return propertySchema{}, fmt.Errorf("unsupported interface type: %s", t.String())

	default:
		return propertySchema{}, fmt.Errorf("unhandled type: %s", t.String())
	}
}

type jsonTagInfo struct {
	Name      string
	OmitEmpty bool
}

func parseJSONTag(tag reflect.StructTag) jsonTagInfo {
	value := tag.Get("json")
	if value == "" {
		return jsonTagInfo{}
	}
	parts := strings.Split(value, ",")
	info := jsonTagInfo{Name: parts[0]}
	for _, part := range parts[1:] {
		if strings.TrimSpace(part) == "omitempty" {
			info.OmitEmpty = true
		}
	}
	return info
}

// snakeCase converts CamelCase type names to snake_case tool names, dropping
// a trailing "Args" suffix: "GetWeatherArgs" -> "get_weather".
func snakeCase(name string) string {
	name = strings.TrimSuffix(name, "Args")
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r - 'A' + 'a')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
