// Package nonce issues single-use anti-forgery values for the OAuth
// handshake. A value can be redeemed exactly once before it expires.
package nonce

import (
	"fmt"

	"github.com/hashicorp/go-secure-stdlib/nonceutil"
)

type Service interface {
	Get() (string, error)
	Redeem(nonceStr string) error
}

type HashicorpService struct {
	nonceService nonceutil.NonceService
}

func NewHashicorpService() (*HashicorpService, error) {
	nonceService := nonceutil.NewNonceService()
	if err := nonceService.Initialize(); err != nil {
		return nil, fmt.Errorf("could not initialize nonce service: %w", err)
	}
	return &HashicorpService{nonceService}, nil
}

func (s *HashicorpService) Get() (string, error) {
	nonceStr, _, err := s.nonceService.Get()
	if err != nil {
		return "", err
	}
	return nonceStr, nil
}

func (s *HashicorpService) Redeem(nonceStr string) error {
	if ok := s.nonceService.Redeem(nonceStr); !ok {
		return fmt.Errorf("nonce %s unknown, expired or already redeemed", nonceStr)
	}
	return nil
}
