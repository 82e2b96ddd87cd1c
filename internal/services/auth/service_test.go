package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/tapearn/internal/dependencies/mocks"
)

type ServiceSuite struct {
	suite.Suite
	clock   *mocks.MockClock
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.service = New(s.clock, Config{AdminKeyHash: string(hash)})
}

func (s *ServiceSuite) TestVerifyCorrectKey() {
	s.NoError(s.service.VerifyAdminKey("s3cret"))
}

func (s *ServiceSuite) TestVerifyWrongKey() {
	s.ErrorIs(s.service.VerifyAdminKey("guess"), ErrInvalidAdminKey)
}

func (s *ServiceSuite) TestVerifyEmptyKey() {
	s.ErrorIs(s.service.VerifyAdminKey(""), ErrInvalidAdminKey)
}

func (s *ServiceSuite) TestDisabledWithoutHash() {
	service := New(s.clock, DefaultConfig())

	s.False(service.Enabled())
	s.ErrorIs(service.VerifyAdminKey("s3cret"), ErrAdminDisabled)
}

func (s *ServiceSuite) TestRememberedKeyExpires() {
	s.Require().NoError(s.service.VerifyAdminKey("s3cret"))
	s.Len(s.service.verified, 1)

	s.clock.Advance(6 * time.Minute)
	s.Require().NoError(s.service.VerifyAdminKey("s3cret"))

	s.service.Forget()
	s.Empty(s.service.verified)
}

func (s *ServiceSuite) TestWrongKeyIsNotRemembered() {
	_ = s.service.VerifyAdminKey("guess")
	s.Empty(s.service.verified)
}

func (s *ServiceSuite) TestHashAdminKeyRoundTrip() {
	hash, err := HashAdminKey("other-key")
	s.Require().NoError(err)

	service := New(s.clock, Config{AdminKeyHash: hash})
	s.NoError(service.VerifyAdminKey("other-key"))
	s.ErrorIs(service.VerifyAdminKey("s3cret"), ErrInvalidAdminKey)

	_, err = HashAdminKey("")
	s.ErrorIs(err, ErrInvalidAdminKey)
}
