package service

import (
	"time"

	"teamwear/internal/model"

	"github.com/golang-jwt/jwt/v5"
)

func (s *ServiceSuite) TestLoginIssuesSignedToken() {
	svc := NewUserService(s.repos.Users, "test-secret", time.Hour)
	created, err := svc.CreateUser(s.ctx, CreateUserRequest{
		Username: "lena",
		FullName: "Lena Lead",
		Email:    "Lena@Teamwear.test",
		Password: "s3cret!",
		Role:     model.RoleManager,
	})
	s.Require().NoError(err)
	s.Equal("lena@teamwear.test", created.Email)

	_, err = svc.Login(s.ctx, LoginUserRequest{Email: "lena@teamwear.test", Password: "wrong"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = svc.Login(s.ctx, LoginUserRequest{Email: "nobody@teamwear.test", Password: "s3cret!"})
	s.ErrorIs(err, ErrInvalidCredentials)

	tok, err := svc.Login(s.ctx, LoginUserRequest{Email: "LENA@teamwear.test", Password: "s3cret!"})
	s.Require().NoError(err)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	s.Require().NoError(err)
	claims := parsed.Claims.(jwt.MapClaims)
	sub, err := claims.GetSubject()
	s.Require().NoError(err)
	s.Equal(created.ID.String(), sub)
	s.Equal(model.RoleManager, claims["role"])

	me, err := svc.GetUserByID(s.ctx, sub)
	s.Require().NoError(err)
	s.Equal("Lena Lead", me.FullName)
}

func (s *ServiceSuite) TestCreateUserRejectsUnknownRoleAndDuplicateEmail() {
	svc := NewUserService(s.repos.Users, "test-secret", time.Hour)

	_, err := svc.CreateUser(s.ctx, CreateUserRequest{Username: "x", Email: "x@teamwear.test", Password: "123456", Role: "staff"})
	s.ErrorIs(err, ErrInvalidInput)

	_, err = svc.CreateUser(s.ctx, CreateUserRequest{Username: "sam2", Email: s.salesperson.Email, Password: "123456", Role: model.RoleSalesperson})
	s.ErrorIs(err, ErrInvalidInput)
}
