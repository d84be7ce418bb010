package sha256

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	t.Parallel()

	got := Fingerprint([]byte("hello world"))
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", got)
	assert.Equal(t, got, Fingerprint([]byte("hello world")))
	assert.NotEqual(t, got, Fingerprint([]byte("hello world!")))
}
