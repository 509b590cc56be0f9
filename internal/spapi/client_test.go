package spapi

import (
	"testing"

	"github.com/ilhanselcuk/sellergenix-sub005/config"

	"github.com/stretchr/testify/assert"
)

func TestNewClientForSellerBindsSellerToken(t *testing.T) {
	cfg := config.SPAPIConfig{
		Endpoint:     "https://sellingpartnerapi-na.amazon.com",
		TokenURL:     "https://api.amazon.com/auth/o2/token",
		ClientID:     "app-id",
		ClientSecret: "app-secret",
	}

	// One application config, two seller accounts: each client must carry
	// its own seller's token, never a shared one
	a := NewClientForSeller(cfg, "token-seller-a")
	b := NewClientForSeller(cfg, "token-seller-b")

	assert.Equal(t, "token-seller-a", a.RefreshToken())
	assert.Equal(t, "token-seller-b", b.RefreshToken())

	// The application config itself carries no token to leak
	assert.Empty(t, cfg.RefreshToken)
	assert.Empty(t, NewClient(cfg).RefreshToken())
}
