package plan

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	AddContact Kind = "contact"
	AddLoan    Kind = "loan"
	Pay        Kind = "pay"
	DeleteLoan Kind = "delete"
)

// Operation is one step of a plan. Which fields apply depends on Op.
type Operation struct {
	Op        Kind   `yaml:"op"`
	Contact   string `yaml:"contact"`
	Type      string `yaml:"type,omitempty"`
	Principal string `yaml:"principal,omitempty"`
	Rate      string `yaml:"rate,omitempty"`
	DueDate   string `yaml:"due,omitempty"`
	Index     int    `yaml:"index,omitempty"`
	Amount    string `yaml:"amount,omitempty"`
	Months    int    `yaml:"months,omitempty"`
}

type Plan struct {
	Operations []Operation `yaml:"operations"`
}

func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse yaml: %w", err)
	}

	if len(p.Operations) == 0 {
		return nil, fmt.Errorf("plan has no operations")
	}
	for i := range p.Operations {
		if err := p.Operations[i].validate(); err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
	}
	return &p, nil
}

func (o *Operation) validate() error {
	o.Op = Kind(strings.ToLower(strings.TrimSpace(string(o.Op))))
	if strings.TrimSpace(o.Contact) == "" {
		return fmt.Errorf("contact is required")
	}
	switch o.Op {
	case AddContact:
	case AddLoan:
		if o.Type == "" || o.Principal == "" || o.Rate == "" || o.DueDate == "" {
			return fmt.Errorf("loan needs type, principal, rate and due")
		}
	case Pay:
		if o.Index < 1 {
			return fmt.Errorf("pay needs a loan index starting at 1")
		}
		if (o.Amount == "") == (o.Months == 0) {
			return fmt.Errorf("pay needs exactly one of amount or months")
		}
	case DeleteLoan:
		if o.Index < 1 {
			return fmt.Errorf("delete needs a loan index starting at 1")
		}
	default:
		return fmt.Errorf("unknown op %q", o.Op)
	}
	return nil
}

func (o Operation) String() string {
	switch o.Op {
	case AddContact:
		return fmt.Sprintf("add contact %s", o.Contact)
	case AddLoan:
		return fmt.Sprintf("add %s loan for %s: principal %s at %s%% due %s", o.Type, o.Contact, o.Principal, o.Rate, o.DueDate)
	case Pay:
		if o.Months > 0 {
			return fmt.Sprintf("pay %d month(s) on loan %d of %s", o.Months, o.Index, o.Contact)
		}
		return fmt.Sprintf("pay %s on loan %d of %s", o.Amount, o.Index, o.Contact)
	case DeleteLoan:
		return fmt.Sprintf("delete loan %d of %s", o.Index, o.Contact)
	}
	return string(o.Op)
}
