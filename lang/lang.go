package lang

import (
	"errors"
	"fmt"
	"net/netip"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"go.uber.org/zap"

	"github.com/net-stroboscope/collector/query"
)

// ErrCannotParse indicates that the requirement text was rejected.
var ErrCannotParse = errors.New("lang: cannot parse requirements")

var reqLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "Arrow", Pattern: `->`},
	{Name: "Prefix", Pattern: `[0-9A-Fa-f:.]+/[0-9]+`},
	{Name: "Number", Pattern: `[0-9]+(\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `[(),:\[\]]`},
})

type ast struct {
	Statements []*statement `parser:"@@+"`
}

type statement struct {
	Budget *budgetStmt `parser:"  @@"`
	Query  *queryStmt  `parser:"| @@"`
}

type budgetStmt struct {
	Key    string  `parser:"@('USING' | 'DURING' | 'EVERY')"`
	Amount string  `parser:"@Number"`
	Unit   *string `parser:"@('bps' | 'kbps' | 'mbps' | 'gbps' | 'Kbps' | 'Mbps' | 'Gbps' | 'kb' | 'mb' | 'gb' | 'Kb' | 'Mb' | 'Gb' | 'b' | 'k' | 'm' | 'g' | 'K' | 'M' | 'G' | 'ms' | 'millisecond' | 'sec' | 's' | 'min' | 'hour' | 'h' | 'day' | 'd')?"`
}

type queryStmt struct {
	Props    []*propStmt   `parser:"('(' @@ (',' @@)* ')')?"`
	Action   string        `parser:"@('MIRROR' | 'CONFINE')"`
	Prefixes []string      `parser:"@Prefix (',' @Prefix)*"`
	Regions  []*regionStmt `parser:"'ON' @@ (',' @@)*"`
}

type propStmt struct {
	Key string `parser:"@Ident ':'"`
	Val string `parser:"@(Ident | Number)"`
}

type regionStmt struct {
	Tokens []string `parser:"'[' @(Ident | Arrow)+ ']'"`
}

var reqParser = participle.MustBuild[ast](
	participle.Lexer(reqLexer),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(2),
)

// bandwidth unit coefficients towards Mbps. The empty key stands for bare
// bits per second; a number written without any unit never reaches this
// table, bwCoef reads it as Mbps.
var bwUnits = buildBWUnits()

func buildBWUnits() map[string]float64 {
	units := map[string]float64{}
	for _, uc := range []struct {
		prefix string
		coef   float64
	}{{"", 1e-6}, {"k", 1e-3}, {"m", 1}, {"g", 1e3}} {
		for _, c := range casings(uc.prefix) {
			units[c] = uc.coef
			units[c+"b"] = uc.coef
			units[c+"bps"] = uc.coef
		}
	}
	return units
}

func casings(s string) []string {
	if s == "" {
		return []string{""}
	}
	upper := string(s[0]-'a'+'A') + s[1:]
	return []string{s, upper}
}

// duration unit coefficients towards seconds.
var durUnits = map[string]float64{
	"s": 1, "sec": 1,
	"m": 60, "min": 60,
	"h": 3600, "hour": 3600,
	"d": 86400, "day": 86400,
	"ms": 0.001, "millisecond": 0.001,
}

// Option configures Parse.
type Option func(*parser)

// WithLogger routes parser warnings to l.
func WithLogger(l *zap.Logger) Option {
	return func(p *parser) { p.log = l }
}

type parser struct {
	log *zap.Logger
}

// Parse turns requirement text into a Requirements document with the
// stock budget for whatever the text leaves unset.
func Parse(text string, opts ...Option) (*query.Requirements, error) {
	p := parser{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&p)
	}
	tree, err := reqParser.ParseString("", text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCannotParse, err)
	}

	reqs := query.NewRequirements(nil)
	for _, st := range tree.Statements {
		switch {
		case st.Budget != nil:
			if err := p.applyBudget(reqs, st.Budget); err != nil {
				return nil, err
			}
		case st.Query != nil:
			queries, err := p.buildQueries(st.Query)
			if err != nil {
				return nil, err
			}
			reqs.Queries = append(reqs.Queries, queries...)
		}
	}
	return reqs, nil
}

func (p *parser) applyBudget(reqs *query.Requirements, b *budgetStmt) error {
	amount, err := strconv.ParseFloat(b.Amount, 64)
	if err != nil {
		return fmt.Errorf("%w: %q is not a number", ErrCannotParse, b.Amount)
	}
	unit := ""
	if b.Unit != nil {
		unit = *b.Unit
	}
	switch b.Key {
	case "USING":
		coef, ok := bwCoef(unit)
		if !ok {
			p.log.Warn("ignoring unknown bandwidth unit", zap.String("unit", unit))
			return nil
		}
		reqs.Using = amount * coef
	case "DURING", "EVERY":
		coef, ok := durCoef(unit)
		if !ok {
			p.log.Warn("ignoring unknown time unit", zap.String("unit", unit))
			return nil
		}
		if b.Key == "DURING" {
			reqs.During = amount * coef
		} else {
			reqs.Every = amount * coef
		}
	}
	return nil
}

func bwCoef(unit string) (float64, bool) {
	if unit == "" {
		return 1, true // bare numbers are already Mbps
	}
	coef, ok := bwUnits[unit]
	return coef, ok
}

func durCoef(unit string) (float64, bool) {
	if unit == "" {
		return 1, true // bare numbers are already seconds
	}
	coef, ok := durUnits[unit]
	return coef, ok
}

func (p *parser) buildQueries(q *queryStmt) ([]*query.Query, error) {
	kind := query.Mirror
	if q.Action == "CONFINE" {
		kind = query.Confine
	}
	prefixes := make([]netip.Prefix, 0, len(q.Prefixes))
	for _, raw := range q.Prefixes {
		pfx, err := netip.ParsePrefix(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid prefix %q: %v", ErrCannotParse, raw, err)
		}
		prefixes = append(prefixes, pfx)
	}
	regions := make([][]string, 0, len(q.Regions))
	for _, r := range q.Regions {
		regions = append(regions, r.Tokens)
	}
	opts, err := p.buildOptions(q.Props)
	if err != nil {
		return nil, err
	}
	return query.NewSet(kind, prefixes, regions, opts...), nil
}

func (p *parser) buildOptions(props []*propStmt) ([]query.Option, error) {
	var opts []query.Option
	for _, prop := range props {
		switch prop.Key {
		case "name":
			opts = append(opts, query.WithName(prop.Val))
		case "weight":
			w, err := strconv.ParseFloat(prop.Val, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not a weight", ErrCannotParse, prop.Val)
			}
			opts = append(opts, query.WithWeight(w))
		default:
			p.log.Warn("ignoring unknown query property", zap.String("key", prop.Key))
		}
	}
	return opts, nil
}
