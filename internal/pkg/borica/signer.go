package borica

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

type SignerConfig struct {
	Terminal       string
	Merchant       string
	PrivateKeyPath string
	Passphrase     string
}

// Signer produces P_SIGN for outbound requests. It holds no mutable state besides
// the cached key and is safe for concurrent use.
type Signer struct {
	cfg  SignerConfig
	keys *keyCache[*rsa.PrivateKey]
}

func NewSigner(cfg SignerConfig) (*Signer, error) {
	var missing []string
	if strings.TrimSpace(cfg.Terminal) == "" {
		missing = append(missing, "terminal")
	}
	if strings.TrimSpace(cfg.Merchant) == "" {
		missing = append(missing, "merchant")
	}
	if strings.TrimSpace(cfg.PrivateKeyPath) == "" {
		missing = append(missing, "private key path")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing %s", ErrConfig, strings.Join(missing, ", "))
	}

	s := &Signer{cfg: cfg}
	s.keys = &keyCache[*rsa.PrivateKey]{load: func() (*rsa.PrivateKey, error) {
		return LoadPrivateKey(cfg.PrivateKeyPath, cfg.Passphrase)
	}}
	return s, nil
}

// Preload loads the private key so a broken key fails at startup.
func (s *Signer) Preload() error {
	if _, err := s.keys.get(); err != nil {
		return fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return nil
}

// Sign returns the uppercase hex P_SIGN of req. req is not modified.
func (s *Signer) Sign(req *PaymentRequest) (string, error) {
	key, err := s.keys.get()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return SignFields(req, req.TrType, key)
}

// SignRequest signs req and stores the result in req.PSign.
func (s *Signer) SignRequest(req *PaymentRequest) error {
	sig, err := s.Sign(req)
	if err != nil {
		return err
	}
	req.PSign = sig
	return nil
}

// SignFields signs the request-side signing string for t with key.
func SignFields(src FieldSource, t TransactionType, key *rsa.PrivateKey) (string, error) {
	order, err := RequestFields(t)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signString(BuildSigningString(src, order), key)
}

// SignResponse signs resp the way the gateway does. Sandbox simulators and tests
// use it to produce callbacks for a test key pair.
func SignResponse(resp *PaymentResponse, key *rsa.PrivateKey) (string, error) {
	order, err := ResponseFields(resp.TrType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return signString(BuildSigningString(resp, order), key)
}

func signString(mac string, key *rsa.PrivateKey) (string, error) {
	digest := sha256.Sum256([]byte(mac))
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, digest[:])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return strings.ToUpper(hex.EncodeToString(sig)), nil
}
