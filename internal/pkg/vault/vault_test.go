package vault_test

import (
	"encoding/base64"
	"encoding/hex"

	"brandwatch/internal/pkg/vault"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Encrypt and Decrypt", func() {
	var key []byte

	BeforeEach(func() {
		var err error
		key, err = vault.GenerateKey()
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips plaintext under the same key", func() {
		ciphertext, err := vault.Encrypt("sk-test-12345", key)
		Expect(err).NotTo(HaveOccurred())

		plaintext, err := vault.Decrypt(ciphertext, key)
		Expect(err).NotTo(HaveOccurred())
		Expect(plaintext).To(Equal("sk-test-12345"))
	})

	It("produces different ciphertexts for the same plaintext", func() {
		first, err := vault.Encrypt("sk-test-12345", key)
		Expect(err).NotTo(HaveOccurred())

		second, err := vault.Encrypt("sk-test-12345", key)
		Expect(err).NotTo(HaveOccurred())

		Expect(first).NotTo(Equal(second))
	})

	It("rejects decryption under a different key", func() {
		ciphertext, err := vault.Encrypt("sk-test-12345", key)
		Expect(err).NotTo(HaveOccurred())

		otherKey, err := vault.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		plaintext, err := vault.Decrypt(ciphertext, otherKey)
		Expect(err).To(MatchError(vault.ErrDecrypt))
		Expect(plaintext).To(BeEmpty())
	})

	It("rejects a tampered ciphertext", func() {
		ciphertext, err := vault.Encrypt("sk-test-12345", key)
		Expect(err).NotTo(HaveOccurred())

		raw, err := base64.StdEncoding.DecodeString(ciphertext)
		Expect(err).NotTo(HaveOccurred())
		raw[len(raw)-1] ^= 0xff
		tampered := base64.StdEncoding.EncodeToString(raw)

		_, err = vault.Decrypt(tampered, key)
		Expect(err).To(MatchError(vault.ErrDecrypt))
	})

	DescribeTable("rejects malformed ciphertexts",
		func(ciphertext string) {
			plaintext, err := vault.Decrypt(ciphertext, key)
			Expect(err).To(MatchError(vault.ErrDecrypt))
			Expect(plaintext).To(BeEmpty())
		},
		Entry("not base64", "%%%not-base64%%%"),
		Entry("empty string", ""),
		Entry("shorter than a nonce", base64.StdEncoding.EncodeToString([]byte("abc"))),
	)

	It("rejects keys of the wrong size", func() {
		_, err := vault.Encrypt("sk-test-12345", []byte("short"))
		Expect(err).To(MatchError(vault.ErrBadKeySize))
	})
})

var _ = Describe("ParseHexKey", func() {
	It("parses a 64-char hex key", func() {
		raw, err := vault.GenerateKey()
		Expect(err).NotTo(HaveOccurred())

		key, err := vault.ParseHexKey(hex.EncodeToString(raw))
		Expect(err).NotTo(HaveOccurred())
		Expect(key).To(Equal(raw))
	})

	It("rejects keys of the wrong length", func() {
		_, err := vault.ParseHexKey("abcd")
		Expect(err).To(MatchError(vault.ErrBadKeySize))
	})

	It("rejects non-hex input", func() {
		_, err := vault.ParseHexKey("zzzz")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Store", func() {
	var store *vault.Store

	BeforeEach(func() {
		tmp := GinkgoT().TempDir()
		store = vault.NewStore(tmp+"/config", tmp+"/runtime")
	})

	It("returns the same session key across calls", func() {
		first, err := store.EnsureSessionKey()
		Expect(err).NotTo(HaveOccurred())
		Expect(first).To(HaveLen(vault.KeySize))

		second, err := store.EnsureSessionKey()
		Expect(err).NotTo(HaveOccurred())
		Expect(second).To(Equal(first))
	})

	It("stores and retrieves a provider key", func() {
		Expect(store.SetKey("openai", "sk-live-abc")).To(Succeed())

		plaintext, err := store.GetKey("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(plaintext).To(Equal("sk-live-abc"))
	})

	It("returns ErrNoCredential for an unknown provider", func() {
		_, err := store.GetKey("anthropic")
		Expect(err).To(MatchError(vault.ErrNoCredential))
	})

	It("removes a stored credential", func() {
		Expect(store.SetKey("openai", "sk-live-abc")).To(Succeed())
		Expect(store.Remove("openai")).To(Succeed())

		_, ok, err := store.Load("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("lists credentials sorted by provider", func() {
		Expect(store.SetKey("openai", "sk-1")).To(Succeed())
		Expect(store.SetKey("anthropic", "sk-2")).To(Succeed())

		creds, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(creds).To(HaveLen(2))
		Expect(creds[0].Provider).To(Equal("anthropic"))
		Expect(creds[1].Provider).To(Equal("openai"))
		Expect(creds[0].EncryptedKey).NotTo(ContainSubstring("sk-2"))
	})

	It("wipes everything on ClearAll", func() {
		Expect(store.SetKey("openai", "sk-live-abc")).To(Succeed())
		Expect(store.ClearAll()).To(Succeed())

		_, ok, err := store.Load("openai")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("cannot open credentials from a lost session", func() {
		Expect(store.SetKey("openai", "sk-live-abc")).To(Succeed())

		// Same durable credentials, fresh runtime dir: the old session
		// key is gone and a new one gets generated.
		nextSession := vault.NewStore(store.ConfigDir(), GinkgoT().TempDir())

		_, err := nextSession.GetKey("openai")
		Expect(err).To(MatchError(vault.ErrDecrypt))
	})
})
