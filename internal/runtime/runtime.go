// Package runtime maps file extensions to the commands that compile and run
// them.
package runtime

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"nexus/internal/files"
)

// Action selects which stage of a language's toolchain to run.
type Action string

const (
	ActionCompile Action = "compile"
	ActionRun     Action = "run"
	ActionBoth    Action = "both"
)

// ParseAction maps a request string to an Action. Anything that is not
// "compile" or "run" means both.
func ParseAction(s string) Action {
	switch Action(s) {
	case ActionCompile, ActionRun:
		return Action(s)
	default:
		return ActionBoth
	}
}

var (
	ErrUnsupported = errors.New("unsupported file type")
	ErrInvalidName = errors.New("invalid characters in file name")
)

// UnsupportedError reports an extension with no registered language.
type UnsupportedError struct {
	Extension string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Extension)
}

func (e *UnsupportedError) Is(target error) bool {
	return target == ErrUnsupported
}

// Language describes how to build and execute one language. Templates are
// argument vectors whose elements may contain the placeholders listed in
// expand.
type Language struct {
	Name       string
	Extensions []string

	// Compile and Run are set for compiled languages. Both, when nil,
	// chains Compile and Run.
	Compile []string
	Run     []string
	Both    []string

	// Interpret is set for interpreted languages; the action is ignored.
	Interpret []string

	// StripLen is how many trailing bytes of the filename are removed to
	// derive {artifact}.
	StripLen int
}

// Compiled reports whether the language has a separate build step.
func (l *Language) Compiled() bool {
	return l.Interpret == nil
}

// Table maps extensions to languages. It is read-only after NewTable.
type Table struct {
	byExt     map[string]*Language
	languages []*Language
}

// NewTable creates a table with all supported languages.
func NewTable() *Table {
	t := &Table{byExt: make(map[string]*Language)}
	for _, lang := range builtinLanguages() {
		t.register(lang)
	}
	return t
}

func (t *Table) register(lang *Language) {
	for _, ext := range lang.Extensions {
		if _, dup := t.byExt[ext]; dup {
			panic(fmt.Sprintf("runtime: extension %q registered twice", ext))
		}
		t.byExt[ext] = lang
	}
	t.languages = append(t.languages, lang)
}

// Lookup returns the language for an extension. Matching is case-sensitive.
func (t *Table) Lookup(ext string) (*Language, bool) {
	lang, ok := t.byExt[ext]
	return lang, ok
}

// Languages returns all registered languages ordered by name.
func (t *Table) Languages() []*Language {
	out := make([]*Language, len(t.languages))
	copy(out, t.languages)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Extensions returns every recognized extension, sorted.
func (t *Table) Extensions() []string {
	exts := make([]string, 0, len(t.byExt))
	for ext := range t.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// BuildCommand selects the command for filename in location. Source paths are
// resolved with files.Resolve; artifact names are derived from filename as
// given.
func (t *Table) BuildCommand(filename, location string, action Action) (Command, error) {
	ext := Extension(filename)
	lang, ok := t.byExt[ext]
	if !ok {
		return Command{}, &UnsupportedError{Extension: ext}
	}

	v := vars{
		path:     files.Resolve(filename, location),
		artifact: artifactName(filename, lang.StripLen),
	}

	if !lang.Compiled() {
		return Command{Steps: []Step{v.expand(lang.Interpret)}}, nil
	}

	switch action {
	case ActionCompile:
		return Command{Steps: []Step{v.expand(lang.Compile)}}, nil
	case ActionRun:
		return Command{Steps: []Step{v.expand(lang.Run)}}, nil
	default:
		if lang.Both != nil {
			return Command{Steps: []Step{v.expand(lang.Both)}}, nil
		}
		return Command{Steps: []Step{v.expand(lang.Compile), v.expand(lang.Run)}}, nil
	}
}

// Extension returns the text after the last dot in filename. Names without a
// dot, or whose only dot is the first byte, have no extension.
func Extension(filename string) string {
	i := strings.LastIndexByte(filename, '.')
	if i <= 0 {
		return ""
	}
	return filename[i+1:]
}

// artifactName drops a fixed number of trailing bytes. The length comes from
// the table entry, not from the position of the last dot.
func artifactName(filename string, strip int) string {
	if strip <= 0 || strip > len(filename) {
		return filename
	}
	return filename[:len(filename)-strip]
}

// ValidateName rejects names containing anything outside [A-Za-z0-9._/-].
func ValidateName(name string) error {
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '.', c == '_', c == '-', c == '/':
		default:
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}
