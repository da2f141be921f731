package filter

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/mchurichi/logdash/pkg/record"
)

// ExprFilter matches records against a boolean expression such as
//
//	level == "ERROR" && metadata.job_id > 40
//
// The expression sees level, name, message, file, timestamp and metadata.
// metadata is an empty map when the record's metadata is absent or not an
// object.
type ExprFilter struct {
	Source  string
	program *vm.Program
}

// NewExprFilter compiles src. Unknown identifiers and non-boolean
// expressions are compile errors.
func NewExprFilter(src string) (*ExprFilter, error) {
	program, err := expr.Compile(src, expr.Env(exprEnv(&record.Record{})), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &ExprFilter{Source: src, program: program}, nil
}

// Match reports whether the expression evaluates to true. Evaluation
// errors count as no match.
func (f *ExprFilter) Match(r *record.Record) bool {
	out, err := expr.Run(f.program, exprEnv(r))
	if err != nil {
		return false
	}
	matched, _ := out.(bool)
	return matched
}

func exprEnv(r *record.Record) map[string]any {
	metadata := map[string]any{}
	if r.Metadata != nil && r.Metadata.Kind() == record.Object {
		metadata = r.Metadata.Interface().(map[string]any)
	}
	return map[string]any{
		"level":     r.Level,
		"name":      r.Name,
		"message":   r.Message,
		"file":      r.SourceFile,
		"timestamp": r.Timestamp,
		"metadata":  metadata,
	}
}
