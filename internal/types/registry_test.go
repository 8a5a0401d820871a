package types

import (
	"testing"

	"github.com/andsch11/fremgen/internal/position"
)

func TestNewRegistryInstallsBuiltins(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"void", "bool", "int32_t", "uint64_t", "frem::RpcResult"} {
		ty, ok := r.Lookup(name)
		if !ok {
			t.Fatalf("builtin %q not registered", name)
		}
		if ty.Kind != KindBuiltIn {
			t.Errorf("builtin %q has kind %v, want KindBuiltIn", name, ty.Kind)
		}
	}
}

func TestStdIntAliasCoversUnsignedNames(t *testing.T) {
	r := NewRegistry()
	ty, ok := r.Lookup("std::uint8_t")
	if !ok {
		t.Fatal("expected std::uint8_t to resolve via the substring-\"int\" alias rule")
	}
	if ty.FullyQualifiedName != "uint8_t" {
		t.Errorf("got %q, want uint8_t", ty.FullyQualifiedName)
	}
}

func TestRegisterAndLookupUserType(t *testing.T) {
	r := NewRegistry()
	r.Register(&InterfaceType{FullyQualifiedName: "demo::Point", Kind: KindStruct})

	ty, ok := r.Lookup("demo::Point")
	if !ok {
		t.Fatal("expected demo::Point to be registered")
	}
	if ty.Hash == 0 {
		t.Error("expected a non-zero content hash")
	}

	reg := r.RegisteredTypes()
	if len(reg) != 1 || reg[0].FullyQualifiedName != "demo::Point" {
		t.Errorf("RegisteredTypes = %v, want exactly [demo::Point]", reg)
	}
}

func TestSetAliasLastWriteWins(t *testing.T) {
	r := NewRegistry()
	r.Register(&InterfaceType{FullyQualifiedName: "demo::A", Kind: KindStruct})
	r.Register(&InterfaceType{FullyQualifiedName: "demo::B", Kind: KindStruct})

	r.SetAlias("demo::Alias", "demo::A", position.Position{})
	r.SetAlias("demo::Alias", "demo::B", position.Position{})

	ty, ok := r.Lookup("demo::Alias")
	if !ok || ty.FullyQualifiedName != "demo::B" {
		t.Errorf("expected last-write-wins alias to resolve to demo::B, got %v", ty)
	}
	if ty.ID != "demo::Alias" {
		t.Errorf("expected the aliased type's display id to become demo::Alias, got %q", ty.ID)
	}
}

func TestForwardAliasParking(t *testing.T) {
	r := NewRegistry()
	loc := position.Position{Filename: "demo.hpp", Line: 12}
	r.SetAlias("demo::Alias", "demo::Later", loc)
	r.Register(&InterfaceType{FullyQualifiedName: "demo::Later", Kind: KindStruct})

	ty, ok := r.Lookup("demo::Alias")
	if !ok || ty.FullyQualifiedName != "demo::Later" {
		t.Errorf("expected forward-declared alias to resolve once the target registers, got %v, %v", ty, ok)
	}
	if ty.ID != "demo::Alias" || ty.ExpositionLocation != loc {
		t.Errorf("expected the parked alias to set id and expositionLocation on register, got id=%q loc=%v", ty.ID, ty.ExpositionLocation)
	}
}

func TestHashIsDeterministic(t *testing.T) {
	if hashFQN("demo::Point") != hashFQN("demo::Point") {
		t.Error("expected hashFQN to be deterministic for the same input")
	}
	if hashFQN("demo::Point") == hashFQN("demo::Other") {
		t.Error("expected different fully qualified names to hash differently")
	}
}
