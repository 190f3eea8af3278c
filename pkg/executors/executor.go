package executors

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/loanbook/pkg/plan"
	"github.com/yurifrl/loanbook/pkg/service"
)

// Executor runs plan operations through the service.
type Executor struct {
	logger  *log.Logger
	service *service.Service
}

func New(logger *log.Logger, svc *service.Service) *Executor {
	return &Executor{
		logger:  logger,
		service: svc,
	}
}

// OpError reports which operation of a plan failed, counting from 1.
type OpError struct {
	Index int
	Op    plan.Operation
	Err   error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("operation %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Result describes the outcome of one operation.
type Result struct {
	Op     plan.Operation
	Detail string
}

func run(ctx context.Context, svc *service.Service, ops []plan.Operation) ([]Result, error) {
	results := make([]Result, 0, len(ops))
	for i, op := range ops {
		detail, err := apply(ctx, svc, op)
		if err != nil {
			return results, &OpError{Index: i + 1, Op: op, Err: err}
		}
		results = append(results, Result{Op: op, Detail: detail})
	}
	return results, nil
}

func apply(ctx context.Context, svc *service.Service, op plan.Operation) (string, error) {
	switch op.Op {
	case plan.AddContact:
		c, err := svc.AddContact(ctx, op.Contact)
		if err != nil {
			return "", err
		}
		return "id " + c.ID.String(), nil
	case plan.AddLoan:
		pos, loan, err := svc.AddLoan(ctx, op.Contact, op.Type, op.Principal, op.Rate, op.DueDate)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("loan %d owes $%s", pos, loan.AmountOwed().StringFixed(2)), nil
	case plan.Pay:
		if op.Months > 0 {
			amount, loan, err := svc.PayMonths(ctx, op.Contact, op.Index, op.Months)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("paid $%s, $%s remaining", amount.StringFixed(2), loan.RemainingOwed().StringFixed(2)), nil
		}
		loan, err := svc.Pay(ctx, op.Contact, op.Index, op.Amount)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("$%s remaining", loan.RemainingOwed().StringFixed(2)), nil
	case plan.DeleteLoan:
		return "", svc.DeleteLoan(ctx, op.Contact, op.Index)
	}
	return "", fmt.Errorf("unknown op %q", op.Op)
}
