package platform

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

const secretAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const secretLength = 24

const tagPrefix = "vpshost-cust-"

func NewID() string {
	return uuid.New().String()
}

// NewSecret generates a high-entropy login secret. Secrets are generated
// per instance and never reused.
func NewSecret() string {
	b := make([]byte, secretLength)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand: " + err.Error())
	}
	for i := range b {
		b[i] = secretAlphabet[b[i]%byte(len(secretAlphabet))]
	}
	return string(b)
}

// CustomerTag builds the provider-level tag binding a cloud machine to a
// customer. The tag is the fallback link when the provider id was never
// persisted.
func CustomerTag(customerID string) string {
	return tagPrefix + customerID
}

// CustomerIDFromTag extracts the customer id from a provisioning tag, or ""
// when the tag is not ours.
func CustomerIDFromTag(tag string) string {
	if !strings.HasPrefix(tag, tagPrefix) {
		return ""
	}
	return strings.TrimPrefix(tag, tagPrefix)
}
