package navigation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowlistMatchesDomainGlobs(t *testing.T) {
	al, err := New([]string{"*.example.com", "docs.example.org"}, nil)
	require.NoError(t, err)

	assert.NoError(t, al.Check("https://shop.example.com/cart"))
	assert.NoError(t, al.Check("http://docs.example.org"))

	err = al.Check("https://evil.test/login")
	require.Error(t, err)
	var violation *Violation
	assert.True(t, errors.As(err, &violation))
}

func TestAllowlistSeparatorBoundsWildcard(t *testing.T) {
	al, err := New([]string{"*.example.com"}, nil)
	require.NoError(t, err)

	// The wildcard covers one label, not arbitrary prefixes across dots.
	assert.NoError(t, al.Check("https://www.example.com"))
	assert.Error(t, al.Check("https://a.b.example.com"))
	assert.Error(t, al.Check("https://example.com"), "bare apex needs its own pattern")
}

func TestAllowlistDeniedTakesPrecedence(t *testing.T) {
	al, err := New([]string{"*.example.com"}, []string{"admin.example.com"})
	require.NoError(t, err)

	assert.NoError(t, al.Check("https://shop.example.com"))

	err = al.Check("https://admin.example.com")
	require.Error(t, err)
	var violation *Violation
	require.True(t, errors.As(err, &violation))
	assert.Equal(t, "admin.example.com", violation.Pattern)
}

func TestAllowlistEmptyAllowsAllExceptDenied(t *testing.T) {
	al, err := New(nil, []string{"*.internal"})
	require.NoError(t, err)

	assert.NoError(t, al.Check("https://anything.test"))
	assert.Error(t, al.Check("https://vault.internal"))
}

func TestAllowlistRejectsNonWebSchemes(t *testing.T) {
	al, err := New(nil, nil)
	require.NoError(t, err)

	assert.NoError(t, al.Check("about:blank"))
	assert.Error(t, al.Check("file:///etc/passwd"))
	assert.Error(t, al.Check("javascript:alert(1)"))
}

func TestAllowlistInvalidPattern(t *testing.T) {
	_, err := New([]string{"[invalid"}, nil)
	assert.Error(t, err)
}
