package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Signer verifies the provider's HMAC-SHA256 signatures. The checkout
// signature covers "orderID|paymentID" with the API key secret; the webhook
// signature covers the raw request body with the webhook secret.
type Signer struct {
	keySecret     string
	webhookSecret string
}

// NewSigner creates a Signer. An empty webhookSecret enables weak mode:
// webhook signatures are not verified. That mode is an explicit, supported
// operating configuration, not a fallback.
func NewSigner(keySecret, webhookSecret string) *Signer {
	return &Signer{keySecret: keySecret, webhookSecret: webhookSecret}
}

// CheckoutSignature returns the expected hex signature for a checkout
// confirmation.
func (s *Signer) CheckoutSignature(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(s.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyCheckout reports whether the client-submitted signature matches.
func (s *Signer) VerifyCheckout(orderID, paymentID, signature string) bool {
	expected := s.CheckoutSignature(orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WeakMode reports whether webhook verification is disabled.
func (s *Signer) WeakMode() bool {
	return s.webhookSecret == ""
}

// VerifyWebhook reports whether the signature header matches the raw body.
// In weak mode every body passes.
func (s *Signer) VerifyWebhook(body []byte, signature string) bool {
	if s.WeakMode() {
		return true
	}
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
