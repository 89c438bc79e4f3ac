package ir

import (
	"fmt"

	"github.com/ColinClark/mlql/errors"
)

// Decode parses data into a Program. It rejects an unrecognized operator
// or expression tag with errs.Kind UnknownTag (surfaced by the reflector
// as a plain error; Decode wraps it so callers get a consistent Kind) and
// a required field left out of the JSON with errs.Kind MissingField,
// naming the field's path.
func Decode(data []byte) (*Program, error) {
	var p Program
	if err := reflector.Fill("", data, &p); err != nil {
		if _, ok := err.(*errs.Error); ok {
			return nil, err
		}
		return nil, errs.E(errs.UnknownTag, err)
	}
	if err := validateProgram(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func missing(path string) error {
	return errs.E(errs.MissingField, errs.Path(path), fmt.Sprintf("missing required field at %s", path))
}

func validateProgram(p *Program) error {
	return validatePipeline(&p.Pipeline, "pipeline")
}

func validatePipeline(pl *Pipeline, path string) error {
	if pl.Source == nil {
		return missing(path + ".source")
	}
	if err := validateSource(pl.Source, path+".source"); err != nil {
		return err
	}
	for i, op := range pl.Ops {
		if op == nil {
			return missing(fmt.Sprintf("%s.ops[%d]", path, i))
		}
		if err := validateOperator(op, fmt.Sprintf("%s.ops[%d]", path, i)); err != nil {
			return err
		}
	}
	return nil
}

func validateSource(s Source, path string) error {
	switch v := s.(type) {
	case *Table:
		if v.Name == "" {
			return missing(path + ".name")
		}
	case *SubPipeline:
		return validatePipeline(&v.Pipeline, path+".pipeline")
	}
	return nil
}

func validateOperator(op Operator, path string) error {
	switch v := op.(type) {
	case *Filter:
		if v.Condition == nil {
			return missing(path + ".condition")
		}
		return validateExpr(v.Condition, path+".condition")
	case *Select:
		for i, p := range v.Projections {
			if p.Expr == nil {
				return missing(fmt.Sprintf("%s.projections[%d]", path, i))
			}
			if err := validateExpr(p.Expr, fmt.Sprintf("%s.projections[%d]", path, i)); err != nil {
				return err
			}
		}
	case *Sort:
		for i, k := range v.Keys {
			if k.Expr == nil {
				return missing(fmt.Sprintf("%s.keys[%d].expr", path, i))
			}
			if err := validateExpr(k.Expr, fmt.Sprintf("%s.keys[%d].expr", path, i)); err != nil {
				return err
			}
		}
	case *Distinct, *Take:
		// no required sub-fields beyond what JSON scalar decode already fills
	case *GroupBy:
		for i, k := range v.Keys {
			if k.Column == "" {
				return missing(fmt.Sprintf("%s.keys[%d].column", path, i))
			}
		}
		for i, a := range v.Aggs {
			if a.Alias == "" {
				return missing(fmt.Sprintf("%s.aggs[%d].alias", path, i))
			}
			if a.Func == "" {
				return missing(fmt.Sprintf("%s.aggs[%d].func", path, i))
			}
			for j, arg := range a.Args {
				if arg == nil {
					return missing(fmt.Sprintf("%s.aggs[%d].args[%d]", path, i, j))
				}
				if err := validateExpr(arg, fmt.Sprintf("%s.aggs[%d].args[%d]", path, i, j)); err != nil {
					return err
				}
			}
		}
	case *Join:
		if v.Source == nil {
			return missing(path + ".source")
		}
		if err := validateSource(v.Source, path+".source"); err != nil {
			return err
		}
		if v.On == nil {
			return missing(path + ".on")
		}
		if err := validateExpr(v.On, path+".on"); err != nil {
			return err
		}
		if v.JoinKind == "" {
			return missing(path + ".kind")
		}
	}
	return nil
}

func validateExpr(e Expr, path string) error {
	switch v := e.(type) {
	case *Column:
		if v.Column == "" {
			return missing(path + ".column")
		}
	case *Literal:
		// Value's zero value is a well-formed null literal; nothing to check.
	case *BinaryOp:
		if v.Left == nil {
			return missing(path + ".left")
		}
		if v.Right == nil {
			return missing(path + ".right")
		}
		if err := validateExpr(v.Left, path+".left"); err != nil {
			return err
		}
		return validateExpr(v.Right, path+".right")
	case *UnaryOp:
		if v.Arg == nil {
			return missing(path + ".arg")
		}
		return validateExpr(v.Arg, path+".arg")
	case *FuncCall:
		if v.Func == "" {
			return missing(path + ".func")
		}
		for i, a := range v.Args {
			if a == nil {
				return missing(fmt.Sprintf("%s.args[%d]", path, i))
			}
			if err := validateExpr(a, fmt.Sprintf("%s.args[%d]", path, i)); err != nil {
				return err
			}
		}
	case *AggCall:
		if v.Func == "" {
			return missing(path + ".func")
		}
	}
	return nil
}
