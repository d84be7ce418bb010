package crawler

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	got, err := CanonicalURL("  HTTPS://Example.com/about#team ")
	require.NoError(t, err)
	assert.Equal(t, "https://Example.com/about", got.String())

	for _, raw := range []string{"example.com", "mailto:a@b.c", "ftp://example.com", "https://"} {
		_, err := CanonicalURL(raw)
		assert.Error(t, err, raw)
	}
}

func TestResolveLink(t *testing.T) {
	t.Parallel()

	base, err := url.Parse("https://acme.io/products/")
	require.NoError(t, err)

	tests := []struct {
		href string
		want string
		ok   bool
	}{
		{href: "robots", want: "https://acme.io/products/robots", ok: true},
		{href: "/about#team", want: "https://acme.io/about", ok: true},
		{href: "//cdn.acme.io/x", want: "https://cdn.acme.io/x", ok: true},
		{href: "#top"},
		{href: ""},
		{href: "mailto:hello@acme.io"},
		{href: "javascript:void(0)"},
		{href: "tel:+15555555"},
	}
	for _, tc := range tests {
		got, ok := ResolveLink(base, tc.href)
		assert.Equal(t, tc.ok, ok, tc.href)
		assert.Equal(t, tc.want, got, tc.href)
	}
}

func TestSameDomain(t *testing.T) {
	t.Parallel()

	scope, err := NewDomainScope("https://Acme.io/")
	require.NoError(t, err)

	assert.True(t, scope.SameDomain("http://acme.io/about"))
	assert.True(t, scope.SameDomain("https://ACME.IO/x?y=1"))
	assert.False(t, scope.SameDomain("https://www.acme.io/"))
	assert.False(t, scope.SameDomain("https://acme.io:8443/"))
	assert.False(t, scope.SameDomain("https://other.io/"))
	assert.False(t, DomainScope{}.SameDomain("https://acme.io/"))
}

func TestDomainAndCacheFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "acme-robotics.io", Domain("https://www.Acme-Robotics.io/about"))
	assert.Equal(t, "localhost:8080", Domain("http://localhost:8080/"))
	assert.Equal(t, "scraped_data_acme-robotics.io.json", CacheFileName("https://www.acme-robotics.io"))
	assert.Equal(t, "scraped_data_localhost_8080.json", CacheFileName("http://localhost:8080/"))
}

func TestCompanyName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Acme Robotics", CompanyName("https://www.acme-robotics.io/"))
	assert.Equal(t, "Stripe", CompanyName("https://stripe.com"))
	assert.Equal(t, "Localhost", CompanyName("http://localhost:8080"))
	assert.Equal(t, "", CompanyName("not a url"))
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Truncate("abcdef", 3))
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "héé", Truncate("hééllo", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
