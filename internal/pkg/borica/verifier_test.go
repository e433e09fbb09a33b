package borica

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verifyWith(src FieldSource, order []FieldName, sigHex string, pub *rsa.PublicKey) bool {
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return false
	}
	digest := sha256.Sum256([]byte(BuildSigningString(src, order)))
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, digest[:], sig) == nil
}

func TestVerifier_RoundTrip(t *testing.T) {
	gateway := generateKey(t)
	verifier, err := NewVerifier(writePublicKey(t, &gateway.PublicKey))
	require.NoError(t, err)

	resp := sampleResponse()
	resp.PSign, err = SignResponse(resp, gateway)
	require.NoError(t, err)

	ok, err := verifier.Verify(resp)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifier_FlippedSignatureByteFails(t *testing.T) {
	gateway := generateKey(t)
	verifier := NewVerifierWithKey(&gateway.PublicKey)

	resp := sampleResponse()
	sig, err := SignResponse(resp, gateway)
	require.NoError(t, err)

	raw, err := hex.DecodeString(sig)
	require.NoError(t, err)
	for _, i := range []int{0, len(raw) / 2, len(raw) - 1} {
		tampered := append([]byte(nil), raw...)
		tampered[i] ^= 0x01
		resp.PSign = hex.EncodeToString(tampered)

		ok, err := verifier.Verify(resp)
		require.NoError(t, err)
		assert.False(t, ok, "byte %d flipped", i)
	}
}

func TestVerifier_TamperedFieldFails(t *testing.T) {
	gateway := generateKey(t)
	verifier := NewVerifierWithKey(&gateway.PublicKey)

	resp := sampleResponse()
	resp.Action, resp.RC = ActionDeclined, "05"
	var err error
	resp.PSign, err = SignResponse(resp, gateway)
	require.NoError(t, err)

	resp.Action, resp.RC = ActionSuccess, RCApproved
	ok, err := verifier.Verify(resp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifier_WrongFieldOrderFails(t *testing.T) {
	gateway := generateKey(t)
	verifier := NewVerifierWithKey(&gateway.PublicKey)

	resp := sampleResponse()
	// Signed over the request list instead of the response list.
	sig, err := SignFields(resp, resp.TrType, gateway)
	require.NoError(t, err)
	resp.PSign = sig

	ok, err := verifier.Verify(resp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifier_GarbageSignatureAndUnknownType(t *testing.T) {
	gateway := generateKey(t)
	verifier := NewVerifierWithKey(&gateway.PublicKey)

	resp := sampleResponse()
	resp.PSign = "not-hex"
	ok, err := verifier.Verify(resp)
	require.NoError(t, err)
	assert.False(t, ok)

	resp.PSign, err = SignResponse(resp, gateway)
	require.NoError(t, err)
	resp.TrType = "77"
	ok, err = verifier.Verify(resp)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifier_MissingKeyIsConfigError(t *testing.T) {
	_, err := NewVerifier("")
	assert.ErrorIs(t, err, ErrConfig)

	verifier, err := NewVerifier(filepath.Join(t.TempDir(), "missing.pem"))
	require.NoError(t, err)
	_, err = verifier.Verify(sampleResponse())
	assert.ErrorIs(t, err, ErrConfig)
}

func TestParseResponse_ToleratesMissingOptionalFields(t *testing.T) {
	resp := sampleResponse()
	values := resp.Values()
	values.Del(string(FieldRRN))
	values.Del(string(FieldApproval))

	parsed := ParseResponse(values)

	assert.Equal(t, resp.Order, parsed.Order)
	assert.Empty(t, parsed.RRN)
	_, ok := parsed.Lookup(FieldApproval)
	assert.False(t, ok)
}

func TestVerifier_SignedFieldsAreNotTrimmed(t *testing.T) {
	gateway := generateKey(t)
	verifier := NewVerifierWithKey(&gateway.PublicKey)

	resp := sampleResponse()
	resp.RRN = resp.RRN + " "
	sig, err := SignResponse(resp, gateway)
	require.NoError(t, err)
	resp.PSign = sig

	parsed := ParseResponse(resp.Values())
	assert.Equal(t, resp.RRN, parsed.RRN)
	ok, err := verifier.Verify(parsed)
	require.NoError(t, err)
	assert.True(t, ok)

	// padding added in transit changes the signed bytes
	values := sampleResponse().Values()
	clean := sampleResponse()
	clean.PSign, err = SignResponse(clean, gateway)
	require.NoError(t, err)
	values.Set(string(FieldPSign), clean.PSign)
	values.Set(string(FieldAmount), " "+clean.Amount)
	ok, err = verifier.Verify(ParseResponse(values))
	require.NoError(t, err)
	assert.False(t, ok)
}
