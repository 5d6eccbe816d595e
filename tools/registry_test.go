package tools

import (
	"testing"

	"github.com/seblake/convo/models"
)

func noopHandler(args map[string]interface{}) (string, error) { return "", nil }

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(models.FunctionDeclaration{Name: "echo", Handler: noopHandler}); err != nil {
		t.Fatal(err)
	}

	decl, ok := r.Lookup("echo")
	if !ok {
		t.Fatal("Expected to find registered tool")
	}
	if decl.Name != "echo" {
		t.Errorf("Expected name echo, got %s", decl.Name)
	}

	if _, ok := r.Lookup("missing"); ok {
		t.Error("Expected lookup of unregistered tool to fail")
	}
}

func TestRegistry_RejectsInvalidDeclarations(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(models.FunctionDeclaration{Handler: noopHandler}); err == nil {
		t.Error("Expected error for declaration without a name")
	}
	if err := r.Register(models.FunctionDeclaration{Name: "bare"}); err == nil {
		t.Error("Expected error for declaration without a handler")
	}
}

func TestRegistry_DeclarationsSorted(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(models.FunctionDeclaration{Name: name, Handler: noopHandler}); err != nil {
			t.Fatal(err)
		}
	}

	decls := r.Declarations()
	if len(decls) != 3 {
		t.Fatalf("Expected 3 declarations, got %d", len(decls))
	}
	want := []string{"alpha", "mid", "zeta"}
	for i, name := range want {
		if decls[i].Function.Name != name {
			t.Errorf("Expected declaration %d to be %s, got %s", i, name, decls[i].Function.Name)
		}
	}
	if decls[0].Type != "function" {
		t.Errorf("Expected wire type function, got %s", decls[0].Type)
	}
}

func TestRegistry_EmptyDeclarations(t *testing.T) {
	r := NewRegistry()
	if decls := r.Declarations(); decls != nil {
		t.Errorf("Expected nil declarations for empty registry, got %v", decls)
	}
}
