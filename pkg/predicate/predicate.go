package predicate

import (
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/yurifrl/loanbook/pkg/models"
)

// ErrParse is returned when a filter condition cannot be built from its tokens.
var ErrParse = errors.New("invalid filter")

// Func reports whether a loan satisfies a condition.
type Func func(*models.Loan) bool

// Always matches every loan. It is the neutral element of All.
var Always Func = func(*models.Loan) bool { return true }

type Parameter string

const (
	Amount   Parameter = "amount"
	DueDate  Parameter = "duedate"
	LoanType Parameter = "loantype"
	IsPaid   Parameter = "ispaid"
)

// Predicate is a single parsed condition over one loan parameter.
type Predicate struct {
	Parameter Parameter
	Operator  string
	Operand   string

	test Func
}

// Test evaluates the condition. A zero Predicate matches everything.
func (p Predicate) Test(l *models.Loan) bool {
	if p.test == nil {
		return true
	}
	return p.test(l)
}

func (p Predicate) String() string {
	if p.Operand == "" {
		return fmt.Sprintf("%s %s", p.Parameter, p.Operator)
	}
	return fmt.Sprintf("%s %s %s", p.Parameter, p.Operator, p.Operand)
}

// ParseString splits s on whitespace and parses the tokens.
func ParseString(s string) (Predicate, error) {
	return Parse(strings.Fields(s))
}

// Parse builds a predicate from tokens such as ["amount", "<", "500"] or
// ["ispaid", "false"]. Operators are normalised, so "amount > 5" reads back
// as "amount >= 5".
func Parse(tokens []string) (Predicate, error) {
	if len(tokens) == 0 {
		return Predicate{}, fmt.Errorf("%w: empty condition", ErrParse)
	}

	param := Parameter(strings.ToLower(tokens[0]))
	switch param {
	case Amount:
		return parseAmount(tokens[1:])
	case DueDate:
		return parseDueDate(tokens[1:])
	case LoanType:
		return parseLoanType(tokens[1:])
	case IsPaid:
		return parseIsPaid(tokens[1:])
	default:
		return Predicate{}, fmt.Errorf("%w: unknown parameter %q", ErrParse, tokens[0])
	}
}

func comparison(param Parameter, args []string) (string, string, error) {
	if len(args) != 2 {
		return "", "", fmt.Errorf("%w: %s needs an operator and a value", ErrParse, param)
	}
	switch args[0] {
	case "<":
		return "<", args[1], nil
	case ">=", ">":
		return ">=", args[1], nil
	default:
		return "", "", fmt.Errorf("%w: %s operator must be < or >=, got %q", ErrParse, param, args[0])
	}
}

func parseAmount(args []string) (Predicate, error) {
	op, raw, err := comparison(Amount, args)
	if err != nil {
		return Predicate{}, err
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: amount %q is not a number", ErrParse, raw)
	}

	p := Predicate{Parameter: Amount, Operator: op, Operand: value.String()}
	if op == "<" {
		p.test = func(l *models.Loan) bool { return l.RemainingOwed().LessThan(value) }
	} else {
		p.test = func(l *models.Loan) bool { return l.RemainingOwed().GreaterThanOrEqual(value) }
	}
	return p, nil
}

func parseDueDate(args []string) (Predicate, error) {
	op, raw, err := comparison(DueDate, args)
	if err != nil {
		return Predicate{}, err
	}
	value, err := civil.ParseDate(raw)
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: due date %q must be yyyy-mm-dd", ErrParse, raw)
	}

	p := Predicate{Parameter: DueDate, Operator: op, Operand: value.String()}
	if op == "<" {
		p.test = func(l *models.Loan) bool { return l.DueDate().Before(value) }
	} else {
		p.test = func(l *models.Loan) bool { return !l.DueDate().Before(value) }
	}
	return p, nil
}

func parseLoanType(args []string) (Predicate, error) {
	if len(args) != 1 {
		return Predicate{}, fmt.Errorf("%w: loantype takes one of simple or compound", ErrParse)
	}
	kind, err := models.ParseKind(args[0])
	if err != nil {
		return Predicate{}, fmt.Errorf("%w: loantype must be simple or compound, got %q", ErrParse, args[0])
	}
	return Predicate{
		Parameter: LoanType,
		Operator:  kind.String(),
		test:      func(l *models.Loan) bool { return l.Kind() == kind },
	}, nil
}

func parseIsPaid(args []string) (Predicate, error) {
	if len(args) != 1 {
		return Predicate{}, fmt.Errorf("%w: ispaid takes one of true or false", ErrParse)
	}
	var want bool
	switch strings.ToLower(args[0]) {
	case "true", "y", "yes":
		want = true
	case "false", "n", "no":
		want = false
	default:
		return Predicate{}, fmt.Errorf("%w: ispaid must be true or false, got %q", ErrParse, args[0])
	}
	return Predicate{
		Parameter: IsPaid,
		Operator:  fmt.Sprint(want),
		test:      func(l *models.Loan) bool { return l.IsPaid() == want },
	}, nil
}

// All folds the predicates into one conjunction, starting from Always and
// adding each condition in order. Evaluation stops at the first failure.
func All(preds ...Predicate) Func {
	fn := Always
	for _, p := range preds {
		prev, next := fn, p
		fn = func(l *models.Loan) bool {
			return prev(l) && next.Test(l)
		}
	}
	return fn
}

// ParseAll parses each condition string and composes them with All.
func ParseAll(conditions []string) (Func, []Predicate, error) {
	preds := make([]Predicate, 0, len(conditions))
	for _, c := range conditions {
		p, err := ParseString(c)
		if err != nil {
			return nil, nil, err
		}
		preds = append(preds, p)
	}
	return All(preds...), preds, nil
}
