package expr

import (
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "mintgate/pkg/domain-errors"
)

type ExprSuite struct {
	suite.Suite
}

func TestExprSuite(t *testing.T) {
	suite.Run(t, new(ExprSuite))
}

func (s *ExprSuite) TestEvaluate() {
	facts := Facts{
		"assetClass":     "ART",
		"ledger":         "XRPL",
		"isCaspInvolved": true,
		"transferType":   "CASP_TO_CASP",
	}

	s.Run("single string comparison", func() {
		got, err := Evaluate("assetClass == 'ART'", facts)
		s.NoError(err)
		s.True(got)
	})

	s.Run("single boolean comparison", func() {
		got, err := Evaluate("isCaspInvolved == true", facts)
		s.NoError(err)
		s.True(got)
	})

	s.Run("double-quoted strings are accepted", func() {
		got, err := Evaluate(`ledger == "XRPL"`, facts)
		s.NoError(err)
		s.True(got)
	})

	s.Run("non-matching value", func() {
		got, err := Evaluate("assetClass == 'EMT'", facts)
		s.NoError(err)
		s.False(got)
	})

	s.Run("and requires both sides", func() {
		got, err := Evaluate("assetClass == 'ART' && ledger == 'XRPL'", facts)
		s.NoError(err)
		s.True(got)

		got, err = Evaluate("assetClass == 'ART' && ledger == 'ETHEREUM'", facts)
		s.NoError(err)
		s.False(got)
	})

	s.Run("or requires either side", func() {
		got, err := Evaluate("assetClass == 'EMT' || assetClass == 'ART'", facts)
		s.NoError(err)
		s.True(got)
	})

	s.Run("and binds tighter than or", func() {
		// Parsed as (EMT) || (ART && ETHEREUM): false || false.
		got, err := Evaluate(
			"assetClass == 'EMT' || assetClass == 'ART' && ledger == 'ETHEREUM'", facts)
		s.NoError(err)
		s.False(got)

		// Parsed as (EMT && ETHEREUM) || (ART): false || true.
		got, err = Evaluate(
			"assetClass == 'EMT' && ledger == 'ETHEREUM' || assetClass == 'ART'", facts)
		s.NoError(err)
		s.True(got)
	})

	s.Run("type mismatch is a non-match", func() {
		got, err := Evaluate("isCaspInvolved == 'true'", facts)
		s.NoError(err)
		s.False(got)
	})
}

// Missing facts must evaluate as non-match, not error: templates reference
// fields that many assets simply do not supply.
func (s *ExprSuite) TestMissingFactIsNonMatch() {
	facts := Facts{"assetClass": "ART"}

	got, err := Evaluate("custodyModel == 'SELF'", facts)
	s.NoError(err)
	s.False(got)

	got, err = Evaluate("assetClass == 'ART' && custodyModel == 'SELF'", facts)
	s.NoError(err)
	s.False(got)

	got, err = Evaluate("custodyModel == 'SELF' || assetClass == 'ART'", facts)
	s.NoError(err)
	s.True(got)
}

func (s *ExprSuite) TestMalformedExpressions() {
	cases := map[string]string{
		"empty":                "",
		"blank":                "   ",
		"lone identifier":      "assetClass",
		"single equals":        "assetClass = 'ART'",
		"dangling operator":    "assetClass == 'ART' &&",
		"leading operator":     "|| assetClass == 'ART'",
		"single ampersand":     "a == 'x' & b == 'y'",
		"unterminated string":  "assetClass == 'ART",
		"identifier as value":  "assetClass == ledger",
		"parentheses rejected": "(assetClass == 'ART') && ledger == 'XRPL'",
		"negation rejected":    "!isCaspInvolved == true",
		"trailing garbage":     "assetClass == 'ART' ledger",
	}
	for name, input := range cases {
		s.Run(name, func() {
			_, err := Evaluate(input, Facts{})
			s.Error(err)
			s.True(dErrors.HasCode(err, dErrors.CodeMalformedExpression),
				"expected malformed_expression for %q, got %v", input, err)
		})
	}
}

func (s *ExprSuite) TestDeterminism() {
	facts := Facts{"assetClass": "ART", "isCaspInvolved": true}
	const input = "assetClass == 'ART' && isCaspInvolved == true || ledger == 'XRPL'"

	prog, err := Compile(input)
	s.Require().NoError(err)
	for range 100 {
		s.True(prog.Eval(facts))
	}
	s.Equal(Facts{"assetClass": "ART", "isCaspInvolved": true}, facts,
		"evaluation must not mutate the facts record")
}

func (s *ExprSuite) TestMatchedFields() {
	facts := Facts{"assetClass": "ART", "ledger": "XRPL"}

	prog, err := Compile("assetClass == 'ART' && ledger == 'XRPL' || transferType == 'CASP_TO_CASP'")
	s.Require().NoError(err)

	s.Equal([]string{"assetClass", "ledger"}, prog.MatchedFields(facts))
	s.Equal([]string{"assetClass", "ledger", "transferType"}, prog.Idents())
}

func (s *ExprSuite) TestCache() {
	cache := NewCache()

	first, err := cache.Get("tpl-1:v1", "assetClass == 'ART'")
	s.Require().NoError(err)
	second, err := cache.Get("tpl-1:v1", "assetClass == 'ART'")
	s.Require().NoError(err)
	s.Same(first, second, "cache must reuse the compiled program")

	_, err = cache.Get("tpl-2:v1", "assetClass ==")
	s.Error(err)
}
