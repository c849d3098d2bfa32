package tenant

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	dErrors "mintgate/pkg/domain-errors"
	"mintgate/pkg/requestcontext"
)

// ---------------------------------------------------------------------------
// Tenant service
// ---------------------------------------------------------------------------

type ServiceTestSuite struct {
	suite.Suite

	ctx     context.Context
	service *Service
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func (s *ServiceTestSuite) SetupTest() {
	now := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), now)
	s.service = NewService(NewMemoryStore(), WithBcryptCost(bcrypt.MinCost))
}

func (s *ServiceTestSuite) TestCreate() {
	t, creds, err := s.service.Create(s.ctx, "Alpine Issuance AG")
	s.Require().NoError(err)

	s.Run("mints a usable key pair", func() {
		s.True(strings.HasPrefix(creds.APIKeyID, "mg_"))
		s.NotEmpty(creds.Secret)
		s.Equal(StatusActive, t.Status)
	})

	s.Run("the secret is stored only as a hash", func() {
		s.NotContains(string(t.APIKeyHash), creds.Secret)
		s.NoError(bcrypt.CompareHashAndPassword(t.APIKeyHash, []byte(creds.Secret)))
	})

	s.Run("name is required", func() {
		_, _, err := s.service.Create(s.ctx, "")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceTestSuite) TestAuthenticate() {
	t, creds, err := s.service.Create(s.ctx, "Alpine Issuance AG")
	s.Require().NoError(err)

	s.Run("valid credentials resolve the tenant", func() {
		got, err := s.service.Authenticate(s.ctx, creds.APIKeyID, creds.Secret)
		s.Require().NoError(err)
		s.Equal(t.ID, got.ID)
	})

	s.Run("wrong secret and unknown key id fail identically", func() {
		_, errSecret := s.service.Authenticate(s.ctx, creds.APIKeyID, "nope")
		_, errKey := s.service.Authenticate(s.ctx, "mg_unknown", creds.Secret)
		s.Require().Error(errSecret)
		s.Require().Error(errKey)
		s.Equal(errSecret.Error(), errKey.Error())
		s.True(dErrors.HasCode(errSecret, dErrors.CodeUnauthorized))
	})

	s.Run("suspended tenant is rejected until reactivated", func() {
		s.Require().NoError(s.service.Suspend(s.ctx, t.ID))
		_, err := s.service.Authenticate(s.ctx, creds.APIKeyID, creds.Secret)
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		s.Require().NoError(s.service.Reactivate(s.ctx, t.ID))
		_, err = s.service.Authenticate(s.ctx, creds.APIKeyID, creds.Secret)
		s.NoError(err)
	})
}
