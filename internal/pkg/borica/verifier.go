package borica

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Verifier checks P_SIGN on gateway callbacks.
type Verifier struct {
	keys *keyCache[*rsa.PublicKey]
}

func NewVerifier(publicKeyPath string) (*Verifier, error) {
	if strings.TrimSpace(publicKeyPath) == "" {
		return nil, fmt.Errorf("%w: missing gateway public key path", ErrConfig)
	}
	return &Verifier{keys: &keyCache[*rsa.PublicKey]{load: func() (*rsa.PublicKey, error) {
		return LoadPublicKey(publicKeyPath)
	}}}, nil
}

// NewVerifierWithKey wraps an already loaded key.
func NewVerifierWithKey(pub *rsa.PublicKey) *Verifier {
	return &Verifier{keys: &keyCache[*rsa.PublicKey]{key: pub, ok: true}}
}

// Preload loads the gateway key so a broken path fails at startup.
func (v *Verifier) Preload() error {
	if _, err := v.keys.get(); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return nil
}

// Verify reports whether resp carries a valid gateway signature. A bad signature
// is false with a nil error; only an unusable key is an error.
// No field of resp may be trusted before this returns true.
func (v *Verifier) Verify(resp *PaymentResponse) (bool, error) {
	pub, err := v.keys.get()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrConfig, err)
	}
	return VerifyFields(resp, resp.TrType, resp.PSign, pub), nil
}

// VerifyFields checks sigHex against the response-side signing string for t.
func VerifyFields(src FieldSource, t TransactionType, sigHex string, pub *rsa.PublicKey) bool {
	order, err := ResponseFields(t)
	if err != nil {
		return false
	}
	sig, err := hex.DecodeString(strings.TrimSpace(sigHex))
	if err != nil || len(sig) == 0 {
		return false
	}
	digest := sha256.Sum256([]byte(BuildSigningString(src, order)))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}
