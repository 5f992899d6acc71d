package modeldir

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/cel-go/cel"
)

// Entry is the view of a directory entry exposed to exclusion rules.
type Entry struct {
	Name string
	Size int64
	Dir  bool
}

func (e Entry) activation() map[string]any {
	return map[string]any{
		"name": e.Name,
		"ext":  strings.ToLower(filepath.Ext(e.Name)),
		"size": e.Size,
		"dir":  e.Dir,
	}
}

// NewEntryEnv declares the variables available to exclusion rules.
func NewEntryEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("ext", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("dir", cel.BoolType),
	)
}

// Rule is a compiled CEL exclusion expression, e.g. `name.startsWith(".")`.
type Rule struct {
	// When — CEL expression, must evaluate to bool.
	When string

	program cel.Program
}

// Init compiles When against env.
// Syntax, type and non-bool result errors are reported here, not at evaluation.
func (r *Rule) Init(env *cel.Env) error {
	ast, iss := env.Compile(r.When)
	if iss.Err() != nil {
		return iss.Err()
	}

	if !ast.OutputType().IsExactType(cel.BoolType) {
		return fmt.Errorf("expression %q must evaluate to bool, got %s", r.When, ast.OutputType())
	}

	var err error
	r.program, err = env.Program(ast)
	return err
}

// Match reports whether e satisfies the rule.
func (r *Rule) Match(e Entry) (bool, error) {
	result, _, err := r.program.Eval(e.activation())
	if err != nil {
		return false, err
	}

	matched, ok := result.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T", r.When, result.Value())
	}
	return matched, nil
}
