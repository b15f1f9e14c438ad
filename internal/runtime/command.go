package runtime

import (
	"strings"
)

// Step is a single program invocation as an argument vector.
type Step []string

// Command is a chain of steps. Each step runs only if the previous one exited
// with status zero.
type Command struct {
	Steps []Step
}

// Empty reports whether the command has nothing to run.
func (c Command) Empty() bool {
	return len(c.Steps) == 0
}

// String renders the command the way a shell would read it.
func (c Command) String() string {
	parts := make([]string, 0, len(c.Steps))
	for _, s := range c.Steps {
		parts = append(parts, s.String())
	}
	return strings.Join(parts, " && ")
}

func (s Step) String() string {
	args := make([]string, len(s))
	for i, a := range s {
		args[i] = shellQuote(a)
	}
	return strings.Join(args, " ")
}

// shellQuote quotes an argument only when it would otherwise be split or
// interpreted.
func shellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n'\"\\$`;&|<>()*?[]{}#~!") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

type vars struct {
	path     string
	artifact string
}

// expand substitutes the template placeholders:
//
//	{path}      resolved source path
//	{artifact}  filename with the language's fixed suffix stripped
//	{exe}       {path}.out, made explicitly relative when it has no directory
func (v vars) expand(tmpl []string) Step {
	exe := v.path + ".out"
	if !strings.Contains(exe, "/") {
		exe = "./" + exe
	}
	r := strings.NewReplacer(
		"{path}", v.path,
		"{artifact}", v.artifact,
		"{exe}", exe,
	)

	step := make(Step, len(tmpl))
	for i, arg := range tmpl {
		step[i] = r.Replace(arg)
	}
	return step
}
