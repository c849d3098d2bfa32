package jwttoken

import (
	"mintgate/internal/platform/middleware"
)

// ServiceAdapter exposes Service through the middleware.OperatorValidator
// interface.
type ServiceAdapter struct {
	service *Service
}

func NewServiceAdapter(service *Service) *ServiceAdapter {
	return &ServiceAdapter{service: service}
}

func (a *ServiceAdapter) ValidateToken(tokenString string) (*middleware.OperatorClaims, error) {
	claims, err := a.service.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return &middleware.OperatorClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}
