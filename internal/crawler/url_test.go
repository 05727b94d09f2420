package crawler

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		base string
		want string
	}{
		{
			name: "lowercases scheme and host",
			raw:  "HTTP://Example.COM/Path",
			want: "http://example.com/Path",
		},
		{
			name: "strips default http port",
			raw:  "http://example.com:80/a",
			want: "http://example.com/a",
		},
		{
			name: "strips default https port",
			raw:  "https://example.com:443/a",
			want: "https://example.com/a",
		},
		{
			name: "keeps explicit non-default port",
			raw:  "http://example.com:8080/a",
			want: "http://example.com:8080/a",
		},
		{
			name: "strips fragment",
			raw:  "http://example.com/a#section",
			want: "http://example.com/a",
		},
		{
			name: "strips trailing slash",
			raw:  "http://example.com/a/",
			want: "http://example.com/a",
		},
		{
			name: "root with trailing slash collapses to host",
			raw:  "http://example.com/",
			want: "http://example.com",
		},
		{
			name: "sorts query parameters",
			raw:  "http://example.com/a?b=2&a=1",
			want: "http://example.com/a?a=1&b=2",
		},
		{
			name: "resolves relative path against base",
			raw:  "../c",
			base: "http://example.com/a/b",
			want: "http://example.com/c",
		},
		{
			name: "resolves absolute path against base",
			raw:  "/x/y",
			base: "http://example.com/a/b",
			want: "http://example.com/x/y",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.raw, tc.base)
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeRejectsMalformed(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{
		"mailto:someone@example.com",
		"javascript:void(0)",
		"ftp://example.com/file",
		"http://",
		"://broken",
	} {
		_, err := Normalize(raw, "")
		require.ErrorIs(t, err, ErrMalformedURL, "expected malformed error for %q", raw)
	}
}

func TestNormalizeCollapsesEquivalentSpellings(t *testing.T) {
	t.Parallel()
	variants := []string{
		"http://Example.com/page/",
		"http://example.com:80/page",
		"http://example.com/page#top",
	}
	first, err := Normalize(variants[0], "")
	require.NoError(t, err)
	for _, v := range variants[1:] {
		got, err := Normalize(v, "")
		require.NoError(t, err)
		require.Equal(t, first, got)
	}
}

func TestHostOf(t *testing.T) {
	t.Parallel()
	require.Equal(t, "example.com", hostOf("http://EXAMPLE.com:8080/a"))
	require.Empty(t, hostOf("://broken"))
}
