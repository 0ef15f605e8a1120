package language

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	appErr "judgeworker/pkg/errors"
)

func TestLookupBuiltin(t *testing.T) {
	reg := NewRegistry()

	spec, err := reg.Lookup("python")
	if err != nil {
		t.Fatalf("Lookup(python): %v", err)
	}
	if spec.Compiled() {
		t.Fatal("python should not have a compile step")
	}
	argv, err := spec.RunArgv()
	if err != nil {
		t.Fatalf("RunArgv: %v", err)
	}
	if !reflect.DeepEqual(argv, []string{"python3", "main.py"}) {
		t.Fatalf("unexpected run argv: %v", argv)
	}
}

func TestLookupCompiledLanguage(t *testing.T) {
	reg := NewRegistry()

	spec, err := reg.Lookup("cpp")
	if err != nil {
		t.Fatalf("Lookup(cpp): %v", err)
	}
	if !spec.Compiled() {
		t.Fatal("cpp should have a compile step")
	}
	compile, err := spec.CompileArgv()
	if err != nil {
		t.Fatalf("CompileArgv: %v", err)
	}
	if !reflect.DeepEqual(compile, []string{"g++", "-O2", "-o", "main", "main.cpp"}) {
		t.Fatalf("unexpected compile argv: %v", compile)
	}
	run, err := spec.RunArgv()
	if err != nil {
		t.Fatalf("RunArgv: %v", err)
	}
	if !reflect.DeepEqual(run, []string{"./main"}) {
		t.Fatalf("unexpected run argv: %v", run)
	}
}

func TestLookupNormalizesTag(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.Lookup("  Python "); err != nil {
		t.Fatalf("expected trimmed, lowercased lookup to succeed: %v", err)
	}
}

func TestLookupUnknownLanguage(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Lookup("brainfuck")
	if err == nil {
		t.Fatal("expected error for unknown language")
	}
	if !appErr.Is(err, appErr.LanguageNotSupported) {
		t.Fatalf("expected LanguageNotSupported, got code %d", appErr.GetCode(err))
	}
}

func TestRegistryFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "languages.yaml")
	content := `languages:
  Rust:
    source_file: main.rs
    binary_file: main
    compile_cmd: rustc -O -o {bin} {src}
    run_cmd: ./{bin}
  lua:
    source_file: main.lua
    run_cmd: lua5.4 {src}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write languages file: %v", err)
	}

	reg, err := NewRegistryFromFile(path)
	if err != nil {
		t.Fatalf("NewRegistryFromFile: %v", err)
	}

	spec, err := reg.Lookup("rust")
	if err != nil {
		t.Fatalf("Lookup(rust): %v", err)
	}
	argv, err := spec.CompileArgv()
	if err != nil {
		t.Fatalf("CompileArgv: %v", err)
	}
	if !reflect.DeepEqual(argv, []string{"rustc", "-O", "-o", "main", "main.rs"}) {
		t.Fatalf("unexpected compile argv: %v", argv)
	}

	// file replaces the builtin table entirely
	if _, err := reg.Lookup("python"); err == nil {
		t.Fatal("expected python to be absent after file replacement")
	}
}

func TestRegistryFromFileValidation(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
	}{
		{"empty table", "languages: {}\n"},
		{"missing source_file", "languages:\n  x:\n    run_cmd: ./x\n"},
		{"missing run_cmd", "languages:\n  x:\n    source_file: x.c\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, tc.name+".yaml")
			if err := os.WriteFile(path, []byte(tc.content), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := NewRegistryFromFile(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestQuotedTemplateTokens(t *testing.T) {
	spec := Spec{
		Name:       "sh",
		SourceFile: "main.sh",
		RunCmd:     `sh -c "exec sh {src}"`,
	}
	argv, err := spec.RunArgv()
	if err != nil {
		t.Fatalf("RunArgv: %v", err)
	}
	if !reflect.DeepEqual(argv, []string{"sh", "-c", "exec sh main.sh"}) {
		t.Fatalf("unexpected argv: %v", argv)
	}
}
