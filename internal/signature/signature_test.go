package signature_test

import (
	"testing"

	"github.com/ariefcatur/go-payment-recon.git/internal/signature"
)

func TestVerifyRoundTrip(t *testing.T) {
	payload := []byte("order_abc|pay_xyz")
	secret := []byte("test-secret")

	sig := signature.Sign(payload, secret)
	if !signature.Verify(payload, sig, secret) {
		t.Error("expected valid signature to verify")
	}
}

func TestVerifySingleByteFlips(t *testing.T) {
	payload := []byte("order_abc|pay_xyz")
	secret := []byte("test-secret")
	sig := signature.Sign(payload, secret)

	badPayload := append([]byte(nil), payload...)
	badPayload[0] ^= 0x01
	if signature.Verify(badPayload, sig, secret) {
		t.Error("flipped payload byte must not verify")
	}

	badSig := []byte(sig)
	if badSig[0] == '0' {
		badSig[0] = '1'
	} else {
		badSig[0] = '0'
	}
	if signature.Verify(payload, string(badSig), secret) {
		t.Error("flipped signature byte must not verify")
	}

	badSecret := append([]byte(nil), secret...)
	badSecret[0] ^= 0x01
	if signature.Verify(payload, sig, badSecret) {
		t.Error("flipped secret byte must not verify")
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	secret := []byte("test-secret")
	cases := []struct {
		name string
		sig  string
	}{
		{"empty", ""},
		{"not hex", "zzzz"},
		{"odd length", "abc"},
		{"truncated", signature.Sign([]byte("x"), secret)[:10]},
	}
	for _, tc := range cases {
		if signature.Verify([]byte("x"), tc.sig, secret) {
			t.Errorf("%s: malformed signature must verify false", tc.name)
		}
	}

	if signature.Verify([]byte("x"), signature.Sign([]byte("x"), secret), nil) {
		t.Error("empty secret must verify false")
	}
}
