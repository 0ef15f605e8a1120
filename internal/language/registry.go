// Package language holds the static table of judgeable languages.
//
// Each entry describes how to turn submitted source into an argv pair:
// an optional compile command and a run command. Commands are shell-like
// templates expanded against the entry itself, so the table can live in
// a YAML file without code changes.
package language

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"

	appErr "judgeworker/pkg/errors"
)

// Spec describes one judgeable language. CompileCmd empty means the
// language is interpreted and the compile step is skipped. Command
// templates may reference {src} (source filename) and {bin} (binary
// filename).
type Spec struct {
	Name       string `yaml:"-"`
	SourceFile string `yaml:"source_file"`
	BinaryFile string `yaml:"binary_file"`
	CompileCmd string `yaml:"compile_cmd"`
	RunCmd     string `yaml:"run_cmd"`
}

// Compiled reports whether the language has a mandatory compile step.
func (s Spec) Compiled() bool {
	return s.CompileCmd != ""
}

// CompileArgv returns the expanded compile command tokens.
func (s Spec) CompileArgv() ([]string, error) {
	return s.argv(s.CompileCmd)
}

// RunArgv returns the expanded run command tokens.
func (s Spec) RunArgv() ([]string, error) {
	return s.argv(s.RunCmd)
}

func (s Spec) argv(template string) ([]string, error) {
	expanded := strings.NewReplacer("{src}", s.SourceFile, "{bin}", s.BinaryFile).Replace(template)
	argv, err := shlex.Split(expanded)
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.InternalServerError, "split command %q", expanded)
	}
	if len(argv) == 0 {
		return nil, appErr.Newf(appErr.InternalServerError, "empty command for language %s", s.Name)
	}
	return argv, nil
}

// Registry is the immutable language table built at startup.
type Registry struct {
	specs map[string]Spec
}

// builtin is the default table. Paths are relative to the sandbox
// working directory the workspace is mounted at.
var builtin = map[string]Spec{
	"python": {
		SourceFile: "main.py",
		RunCmd:     "python3 {src}",
	},
	"c": {
		SourceFile: "main.c",
		BinaryFile: "main",
		CompileCmd: "gcc -O2 -o {bin} {src}",
		RunCmd:     "./{bin}",
	},
	"cpp": {
		SourceFile: "main.cpp",
		BinaryFile: "main",
		CompileCmd: "g++ -O2 -o {bin} {src}",
		RunCmd:     "./{bin}",
	},
	"go": {
		SourceFile: "main.go",
		BinaryFile: "main",
		CompileCmd: "go build -o {bin} {src}",
		RunCmd:     "./{bin}",
	},
	"java": {
		SourceFile: "Main.java",
		CompileCmd: "javac {src}",
		RunCmd:     "java Main",
	},
}

// NewRegistry builds the registry from the built-in table.
func NewRegistry() *Registry {
	specs := make(map[string]Spec, len(builtin))
	for name, spec := range builtin {
		spec.Name = name
		specs[name] = spec
	}
	return &Registry{specs: specs}
}

// languagesFile is the YAML shape of an external language table.
type languagesFile struct {
	Languages map[string]Spec `yaml:"languages"`
}

// NewRegistryFromFile builds the registry from a YAML file, replacing
// the built-in table entirely.
func NewRegistryFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read languages file: %w", err)
	}

	var file languagesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse languages file: %w", err)
	}
	if len(file.Languages) == 0 {
		return nil, fmt.Errorf("languages file %s defines no languages", path)
	}

	specs := make(map[string]Spec, len(file.Languages))
	for name, spec := range file.Languages {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			return nil, fmt.Errorf("languages file %s has an empty language name", path)
		}
		if spec.SourceFile == "" {
			return nil, fmt.Errorf("language %s: source_file is required", name)
		}
		if spec.RunCmd == "" {
			return nil, fmt.Errorf("language %s: run_cmd is required", name)
		}
		spec.Name = name
		specs[name] = spec
	}
	return &Registry{specs: specs}, nil
}

// Lookup resolves a language tag, returning a coded error for tags
// outside the table.
func (r *Registry) Lookup(tag string) (Spec, error) {
	spec, ok := r.specs[strings.ToLower(strings.TrimSpace(tag))]
	if !ok {
		return Spec{}, appErr.Newf(appErr.LanguageNotSupported, "unsupported language: %s", tag)
	}
	return spec, nil
}

// Names returns the registered language tags sorted for logging.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.specs))
	for name := range r.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
