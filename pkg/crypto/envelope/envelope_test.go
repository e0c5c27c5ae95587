package envelope

import "testing"

func testRoundTrip(t *testing.T, method Method) {
	sender, err := FromSharedKey(method, "test")
	if err != nil {
		t.Fatalf("FromSharedKey: %v", err)
	}
	receiver, err := FromSharedKey(method, "test")
	if err != nil {
		t.Fatalf("FromSharedKey: %v", err)
	}

	msg := []byte("HelloWorld0123456789")
	header := make([]byte, 8)

	buf := make([]byte, 1024)
	n := copy(buf, msg)

	var nonce1 [NonceSize]byte
	size, err := sender.Encrypt(buf, n, &nonce1, header)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if size != len(msg)+sender.AdditionalBytes() {
		t.Errorf("ciphertext size = %d, want %d", size, len(msg)+sender.AdditionalBytes())
	}
	if string(buf[:len(msg)]) == string(msg) {
		t.Errorf("plaintext leaked unencrypted into buf")
	}

	plain, err := receiver.Decrypt(buf[:size], nonce1, header)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plain) != string(msg) {
		t.Errorf("decrypted = %q, want %q", plain, msg)
	}

	// A second encrypt call must use a fresh nonce.
	n = copy(buf, msg)
	var nonce2 [NonceSize]byte
	size, err = sender.Encrypt(buf, n, &nonce2, header)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if nonce1 == nonce2 {
		t.Errorf("successive Encrypt calls produced the same nonce")
	}
	plain, err = receiver.Decrypt(buf[:size], nonce2, header)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plain) != string(msg) {
		t.Errorf("decrypted = %q, want %q", plain, msg)
	}
}

func TestChaCha20Poly1305RoundTrip(t *testing.T) {
	testRoundTrip(t, MethodChaCha20Poly1305)
}

func TestAES256GCMRoundTrip(t *testing.T) {
	Init()
	if !AES256Available() {
		t.Skip("AES-256 not available on this build")
	}
	testRoundTrip(t, MethodAES256GCM)
}

func TestDecryptRejectsTamperedAAD(t *testing.T) {
	sender, _ := FromSharedKey(MethodChaCha20Poly1305, "test")
	receiver, _ := FromSharedKey(MethodChaCha20Poly1305, "test")

	buf := make([]byte, 64)
	n := copy(buf, []byte("payload"))
	var nonce [NonceSize]byte
	size, err := sender.Encrypt(buf, n, &nonce, []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := receiver.Decrypt(buf[:size], nonce, []byte{1, 2, 4}); err == nil {
		t.Errorf("Decrypt should fail when AAD is tampered with")
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	sender, _ := FromSharedKey(MethodChaCha20Poly1305, "test")
	other, _ := FromSharedKey(MethodChaCha20Poly1305, "different passphrase")

	buf := make([]byte, 64)
	n := copy(buf, []byte("payload"))
	var nonce [NonceSize]byte
	size, err := sender.Encrypt(buf, n, &nonce, nil)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := other.Decrypt(buf[:size], nonce, nil); err == nil {
		t.Errorf("Decrypt should fail with the wrong key")
	}
}

func TestParseMethodRejectsUnknown(t *testing.T) {
	if _, err := ParseMethod(0xAA); err == nil {
		t.Errorf("ParseMethod(0xAA) should fail")
	}
	for _, m := range []byte{0, 1, 2} {
		if _, err := ParseMethod(m); err != nil {
			t.Errorf("ParseMethod(%d) should succeed: %v", m, err)
		}
	}
}

func TestNoneStateHasNoOverhead(t *testing.T) {
	s := NewNone()
	if s.AdditionalBytes() != 0 {
		t.Errorf("None state should add no bytes, got %d", s.AdditionalBytes())
	}
	if s.Method() != MethodNone {
		t.Errorf("Method() = %v, want None", s.Method())
	}
}

func TestDeriveKeyIsDeterministic(t *testing.T) {
	a := deriveKey("test")
	b := deriveKey("test")
	if a != b {
		t.Errorf("deriveKey must be deterministic for the same passphrase")
	}
	c := deriveKey("other")
	if a == c {
		t.Errorf("deriveKey must differ for different passphrases")
	}
}
