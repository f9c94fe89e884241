package ilp

import (
	"errors"
	"math"
)

// Sentinel errors returned by Solve.
var (
	// ErrInfeasible indicates that no assignment satisfies the constraints.
	ErrInfeasible = errors.New("ilp: model is infeasible")

	// ErrTimeout indicates that the time limit expired before any feasible
	// integral assignment was found.
	ErrTimeout = errors.New("ilp: time limit reached without an incumbent")

	// ErrUnbounded indicates that the objective can be improved forever.
	ErrUnbounded = errors.New("ilp: model is unbounded")
)

// Var identifies one model variable.
type Var int

// Term is one linear coefficient, Coef times the variable.
type Term struct {
	Var  Var
	Coef float64
}

// Rel is a constraint relation.
type Rel int

const (
	// LE constrains the expression to be at most the right-hand side.
	LE Rel = iota
	// GE constrains the expression to be at least the right-hand side.
	GE
	// EQ constrains the expression to equal the right-hand side.
	EQ
)

// Constraint is one linear constraint over the model variables.
type Constraint struct {
	Terms []Term
	Rel   Rel
	RHS   float64
}

type varDef struct {
	name    string
	integer bool
	lb, ub  float64
}

// Model is a mixed 0/1 integer program under construction.
type Model struct {
	name     string
	vars     []varDef
	cons     []Constraint
	obj      []Term
	maximize bool
}

// NewModel returns an empty model; the name only shows up in logs.
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Binary adds a 0/1 variable.
func (m *Model) Binary(name string) Var {
	m.vars = append(m.vars, varDef{name: name, integer: true, lb: 0, ub: 1})
	return Var(len(m.vars) - 1)
}

// Continuous adds a real variable bounded to [lb, ub]; ub may be +Inf.
// Negative lower bounds are not supported by the solver and are clamped
// to zero.
func (m *Model) Continuous(name string, lb, ub float64) Var {
	if lb < 0 {
		lb = 0
	}
	m.vars = append(m.vars, varDef{name: name, lb: lb, ub: ub})
	return Var(len(m.vars) - 1)
}

// Add registers the constraint "terms rel rhs".
func (m *Model) Add(terms []Term, rel Rel, rhs float64) {
	m.cons = append(m.cons, Constraint{Terms: terms, Rel: rel, RHS: rhs})
}

// Minimize sets the objective to minimize the given expression.
func (m *Model) Minimize(terms []Term) {
	m.obj = terms
	m.maximize = false
}

// Maximize sets the objective to maximize the given expression.
func (m *Model) Maximize(terms []Term) {
	m.obj = terms
	m.maximize = true
}

// NumVars returns the number of registered variables.
func (m *Model) NumVars() int { return len(m.vars) }

// Solution is a feasible integral assignment.
type Solution struct {
	// X holds one value per model variable, in declaration order.
	X []float64
	// Objective is the objective value of X, in the model's direction.
	Objective float64
}

// Value returns the assigned value of v.
func (s *Solution) Value(v Var) float64 { return s.X[v] }

// IsOne reports whether the binary v was assigned one.
func (s *Solution) IsOne(v Var) bool { return math.Round(s.X[v]) == 1 }
