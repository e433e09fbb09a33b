package borica

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func writePEM(t *testing.T, name string, block *pem.Block) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))
	return path
}

func writePrivateKey(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	return writePEM(t, "merchant.key", &pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
}

func writePublicKey(t *testing.T, pub *rsa.PublicKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(pub)
	require.NoError(t, err)
	return writePEM(t, "gateway.pub", &pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func sampleRequest() *PaymentRequest {
	return &PaymentRequest{
		Terminal:    "V1800001",
		TrType:      TrTypeSale,
		Amount:      "25.40",
		Currency:    "BGN",
		Order:       "004211",
		Desc:        "Order 004211",
		Merchant:    "1600000001",
		MerchName:   "Pizza Place",
		MerchURL:    "https://pizza.example",
		Country:     "BG",
		MerchGMT:    "+03",
		Lang:        "BG",
		Addendum:    AddendumDefault,
		CustOrderID: "0042113F2A9C1D0E4B7A55",
		Timestamp:   "20261016120000",
		Nonce:       "0123456789ABCDEF0123456789ABCDEF",
	}
}

func sampleResponse() *PaymentResponse {
	return &PaymentResponse{
		Action:    ActionSuccess,
		RC:        RCApproved,
		Approval:  "S78952",
		Terminal:  "V1800001",
		TrType:    TrTypeSale,
		Amount:    "25.40",
		Currency:  "BGN",
		Order:     "004211",
		RRN:       "628900012345",
		IntRef:    "7B9F1C2D3E4F5A6B",
		ECI:       "05",
		Timestamp: "20261016120130",
		Nonce:     "0123456789ABCDEF0123456789ABCDEF",
		Card:      "5100XXXXXXXX0022",
		StatusMsg: "Approved",
	}
}
