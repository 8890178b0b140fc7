package cookie

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCookie_Matches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		cookie Cookie
		url    string
		want   bool
	}{
		{"domain_cookie_subdomain", Cookie{Domain: ".example.com", Path: "/"}, "http://a.b.example.com/", true},
		{"domain_cookie_apex", Cookie{Domain: ".example.com", Path: "/"}, "http://example.com/", true},
		{"domain_cookie_label_boundary", Cookie{Domain: ".example.com", Path: "/"}, "http://badexample.com/", false},
		{"host_only_exact", Cookie{Domain: "example.com", Path: "/"}, "http://EXAMPLE.com/", true},
		{"host_only_subdomain", Cookie{Domain: "example.com", Path: "/"}, "http://www.example.com/", false},
		{"secure_https", Cookie{Domain: "example.com", Path: "/", Secure: true}, "https://example.com/", true},
		{"secure_wss", Cookie{Domain: "example.com", Path: "/", Secure: true}, "wss://example.com/", true},
		{"secure_http", Cookie{Domain: "example.com", Path: "/", Secure: true}, "http://example.com/", false},
		{"path_exact", Cookie{Domain: "example.com", Path: "/docs"}, "http://example.com/docs", true},
		{"path_child", Cookie{Domain: "example.com", Path: "/docs"}, "http://example.com/docs/a", true},
		{"path_trailing_slash", Cookie{Domain: "example.com", Path: "/docs/"}, "http://example.com/docs/a", true},
		{"path_sibling", Cookie{Domain: "example.com", Path: "/docs"}, "http://example.com/docsearch", false},
		{"path_root_request", Cookie{Domain: "example.com", Path: "/docs"}, "http://example.com", false},
		{"ip_host_only", Cookie{Domain: "127.0.0.1", Path: "/"}, "http://127.0.0.1:8080/", true},
		{"ip_no_suffix_match", Cookie{Domain: ".0.0.1", Path: "/"}, "http://127.0.0.1/", false},
		{"empty_domain", Cookie{Path: "/"}, "http://example.com/", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cookie.Matches(mustURL(t, tc.url)))
		})
	}
}

func TestCookie_Key(t *testing.T) {
	t.Parallel()

	a := Cookie{Name: "sid", Value: "1", Domain: ".Example.com", Path: "/"}
	b := Cookie{Name: "sid", Value: "2", Domain: ".example.com", Path: "/", Secure: true}

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.Key(), Cookie{Name: "sid", Domain: "example.com", Path: "/"}.Key())
}
