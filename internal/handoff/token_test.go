package handoff

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

// ---------------------------------------------------------------------------
// Tokens
// ---------------------------------------------------------------------------

type TokenTestSuite struct {
	suite.Suite
}

func TestTokenTestSuite(t *testing.T) {
	suite.Run(t, new(TokenTestSuite))
}

func (s *TokenTestSuite) TestNewToken() {
	raw, hash, err := NewToken()
	s.Require().NoError(err)
	s.Len(hash, 64)
	s.NotContains(raw, hash, "the stored hash must not reveal the raw token")
	s.Equal(hash, HashToken(raw))
}

func (s *TokenTestSuite) TestTokensAreUnique() {
	seen := make(map[string]bool)
	for range 64 {
		raw, _, err := NewToken()
		s.Require().NoError(err)
		s.False(seen[raw])
		seen[raw] = true
	}
}

func (s *TokenTestSuite) TestMatchesToken() {
	raw, hash, err := NewToken()
	s.Require().NoError(err)
	s.True(MatchesToken(hash, raw))
	s.False(MatchesToken(hash, raw+"x"))
	s.False(MatchesToken(hash, ""))
}
