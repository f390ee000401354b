package user

import (
	"github.com/trezcool/colegio/core"
)

type serviceMock struct {
	service
}

// NewServiceMock returns a Service able to hand out password reset tokens to tests.
func NewServiceMock(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &serviceMock{
		service: service{
			repo:     repo,
			mailSvc:  mailSvc,
			tokenGen: newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
		},
	}
}

// MakePasswordResetToken exposes the password reset token of usr to tests.
func (svc *serviceMock) MakePasswordResetToken(usr User) (string, error) {
	return svc.tokenGen.MakeToken(usr)
}
