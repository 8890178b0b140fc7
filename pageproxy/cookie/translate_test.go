package cookie

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestToWireHeader(t *testing.T) {
	t.Parallel()

	target := mustURL(t, "https://app.example.com/account/settings")
	cookies := []Cookie{
		{Name: "z", Value: "1", Domain: ".example.com", Path: "/", Expires: SessionExpiry},
		{Name: "expired", Value: "x", Domain: ".example.com", Path: "/", Expires: testNow.Add(-time.Minute).Unix()},
		{Name: "a", Value: "2", Domain: "app.example.com", Path: "/account", Expires: testNow.Add(time.Hour).Unix()},
		{Name: "other_path", Value: "x", Domain: ".example.com", Path: "/admin", Expires: SessionExpiry},
		{Name: "host_only_parent", Value: "x", Domain: "example.com", Path: "/", Expires: SessionExpiry},
		{Name: "other_site", Value: "x", Domain: ".example.org", Path: "/", Expires: SessionExpiry},
		{Name: "m", Value: "3", Domain: ".example.com", Path: "/", Expires: SessionExpiry, Secure: true},
	}

	t.Run("order_and_filter", func(t *testing.T) {
		assert.Equal(t, "z=1; a=2; m=3", ToWireHeader(cookies, target, testNow))
	})

	t.Run("secure_over_http", func(t *testing.T) {
		plain := mustURL(t, "http://app.example.com/account")

		assert.Equal(t, "z=1; a=2", ToWireHeader(cookies, plain, testNow))
	})

	t.Run("expiry_boundary", func(t *testing.T) {
		c := []Cookie{{Name: "a", Value: "1", Domain: "example.com", Path: "/", Expires: testNow.Unix()}}

		assert.Empty(t, ToWireHeader(c, mustURL(t, "https://example.com/"), testNow))
		assert.Equal(t, "a=1", ToWireHeader(c, mustURL(t, "https://example.com/"), testNow.Add(-time.Second)))
	})

	t.Run("none_match", func(t *testing.T) {
		assert.Empty(t, ToWireHeader(cookies, mustURL(t, "https://unrelated.test/"), testNow))
		assert.Empty(t, ToWireHeader(nil, target, testNow))
		assert.Nil(t, WirePairs(nil, target, testNow))
	})

	t.Run("pairs", func(t *testing.T) {
		pairs := WirePairs(cookies, target, testNow)

		assert.Equal(t, []WirePair{{Name: "z", Value: "1"}, {Name: "a", Value: "2"}, {Name: "m", Value: "3"}}, pairs)
	})
}

func TestParseSetCookie(t *testing.T) {
	t.Parallel()

	reqURL := mustURL(t, "https://www.example.com/login/form")

	t.Run("session_defaults", func(t *testing.T) {
		cookies, err := ParseSetCookie([]string{"foo=bar"}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, Cookie{
			Name:    "foo",
			Value:   "bar",
			Domain:  "www.example.com",
			Path:    "/",
			Expires: SessionExpiry,
		}, cookies[0])
		assert.True(t, cookies[0].Session())
		assert.True(t, cookies[0].HostOnly())
	})

	t.Run("all_attributes", func(t *testing.T) {
		line := "sid=abc; Domain=Example.com; Path=/app; Max-Age=120; Secure; HttpOnly; SameSite=Lax"
		cookies, err := ParseSetCookie([]string{line}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, Cookie{
			Name:     "sid",
			Value:    "abc",
			Domain:   ".example.com",
			Path:     "/app",
			Expires:  testNow.Unix() + 120,
			Secure:   true,
			HTTPOnly: true,
			SameSite: SameSiteLax,
		}, cookies[0])
	})

	t.Run("expires_sixty_minutes", func(t *testing.T) {
		expiry := testNow.Add(60 * time.Minute)
		line := "foo=bar; expires=" + expiry.Format(http.TimeFormat)
		cookies, err := ParseSetCookie([]string{line}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, expiry.Truncate(time.Minute), cookies[0].ExpiresTime().Truncate(time.Minute))
		assert.Equal(t, expiry.Unix(), cookies[0].Expires)
	})

	t.Run("max_age_wins", func(t *testing.T) {
		line := "foo=bar; Expires=" + testNow.Add(24*time.Hour).Format(http.TimeFormat) + "; Max-Age=60"
		cookies, err := ParseSetCookie([]string{line}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, testNow.Unix()+60, cookies[0].Expires)
	})

	t.Run("max_age_relative_to_received", func(t *testing.T) {
		received := testNow.Add(-5 * time.Second)
		cookies, err := ParseSetCookie([]string{"foo=bar; Max-Age=10"}, reqURL, received)

		require.NoError(t, err)
		assert.Equal(t, received.Unix()+10, cookies[0].Expires)
	})

	t.Run("expired_on_arrival", func(t *testing.T) {
		lines := []string{
			"a=1; Max-Age=0",
			"b=2; Max-Age=-5",
			"c=3; Expires=Thu, 01 Jan 1970 00:00:01 GMT",
		}
		cookies, err := ParseSetCookie(lines, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 3)
		for _, c := range cookies {
			assert.Equal(t, testNow.Unix()-1, c.Expires, c.Name)
			assert.True(t, c.Expired(testNow), c.Name)
		}
	})

	t.Run("expires_date_forms", func(t *testing.T) {
		want := time.Date(2037, 1, 1, 0, 0, 0, 0, time.UTC).Unix()
		tests := []struct {
			name string
			line string
		}{
			{name: "imf_fixdate", line: "a=1; Expires=Thu, 01 Jan 2037 00:00:00 GMT"},
			{name: "rfc850", line: "a=1; Expires=Thursday, 01-Jan-37 00:00:00 GMT"},
			{name: "asctime", line: "a=1; Expires=Thu Jan  1 00:00:00 2037"},
			{name: "dashed_legacy", line: "a=1; Expires=Thu, 01-Jan-2037 00:00:00 GMT"},
			{name: "lowercase_attr", line: "a=1; expires=Thu, 01 Jan 2037 00:00:00 GMT"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				cookies, err := ParseSetCookie([]string{tc.line}, reqURL, testNow)

				require.NoError(t, err)
				require.Len(t, cookies, 1)
				assert.False(t, cookies[0].Session())
				assert.Equal(t, want, cookies[0].Expires)
			})
		}
	})

	t.Run("invalid_attributes_dropped", func(t *testing.T) {
		tests := []struct {
			name string
			line string
			want error
		}{
			{name: "garbage_expires", line: "c=1; Expires=garbage", want: ErrInvalidExpires},
			{name: "garbage_max_age", line: "c=1; Max-Age=soon", want: ErrInvalidMaxAge},
			{name: "fractional_max_age", line: "c=1; Max-Age=1.5", want: ErrInvalidMaxAge},
			{name: "bad_max_age_with_valid_expires", line: "c=1; Expires=Thu, 01 Jan 2037 00:00:00 GMT; Max-Age=x", want: ErrInvalidMaxAge},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				cookies, err := ParseSetCookie([]string{tc.line}, reqURL, testNow)

				assert.Empty(t, cookies)
				var decodeErr *DecodeError
				require.ErrorAs(t, err, &decodeErr)
				assert.Equal(t, "c", decodeErr.Name)
				assert.ErrorIs(t, err, tc.want)
			})
		}
	})

	t.Run("empty_expires_ignored", func(t *testing.T) {
		cookies, err := ParseSetCookie([]string{"a=1; Expires="}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.True(t, cookies[0].Session())
	})

	t.Run("max_age_capped", func(t *testing.T) {
		limit := int64(MaxAgeLimit / time.Second)
		lines := []string{
			"a=1; Max-Age=9223372036854775807",
			"b=1; Max-Age=99999999999999999999999",
			"c=1; Max-Age=" + strconv.FormatInt(limit+1, 10),
		}
		cookies, err := ParseSetCookie(lines, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 3)
		for _, c := range cookies {
			assert.Equal(t, testNow.Unix()+limit, c.Expires, c.Name)
			assert.False(t, c.Expired(testNow), c.Name)
		}
	})

	t.Run("huge_negative_max_age_expires", func(t *testing.T) {
		cookies, err := ParseSetCookie([]string{"a=1; Max-Age=-99999999999999999999999"}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, testNow.Unix()-1, cookies[0].Expires)
	})

	t.Run("malformed_dropped", func(t *testing.T) {
		lines := []string{"good=1", "no_equals_sign", "", "=anonymous", "also=2"}
		cookies, err := ParseSetCookie(lines, reqURL, testNow)

		require.Error(t, err)
		require.Len(t, cookies, 2)
		assert.Equal(t, "good", cookies[0].Name)
		assert.Equal(t, "also", cookies[1].Name)

		var decodeErr *DecodeError
		require.ErrorAs(t, err, &decodeErr)
		assert.Equal(t, 1, decodeErr.Index)
		assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), 3)
	})

	t.Run("domain_mismatch", func(t *testing.T) {
		cookies, err := ParseSetCookie([]string{"a=1; Domain=example.org"}, reqURL, testNow)

		assert.Empty(t, cookies)
		assert.ErrorIs(t, err, ErrDomainMismatch)
	})

	t.Run("public_suffix", func(t *testing.T) {
		cookies, err := ParseSetCookie([]string{"a=1; Domain=com"}, reqURL, testNow)

		assert.Empty(t, cookies)
		assert.ErrorIs(t, err, ErrPublicSuffix)
	})

	t.Run("ip_host", func(t *testing.T) {
		ipURL := mustURL(t, "http://127.0.0.1:8080/")
		cookies, err := ParseSetCookie([]string{"a=1; Domain=127.0.0.1", "b=2"}, ipURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 2)
		assert.Equal(t, "127.0.0.1", cookies[0].Domain)
		assert.Equal(t, "127.0.0.1", cookies[1].Domain)
	})

	t.Run("relative_path_defaults", func(t *testing.T) {
		cookies, err := ParseSetCookie([]string{"a=1; Path=relative"}, reqURL, testNow)

		require.NoError(t, err)
		assert.Equal(t, "/", cookies[0].Path)
	})

	t.Run("error_omits_value", func(t *testing.T) {
		_, err := ParseSetCookie([]string{"token=secret; Domain=evil.test"}, reqURL, testNow)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "token")
		assert.NotContains(t, err.Error(), "secret")
	})
}

func TestFormatSetCookie(t *testing.T) {
	t.Parallel()

	reqURL := mustURL(t, "https://www.example.com/")

	t.Run("round_trip_absolute", func(t *testing.T) {
		original := Cookie{
			Name:     "sid",
			Value:    "abc123",
			Domain:   ".example.com",
			Path:     "/app",
			Expires:  testNow.Add(90*time.Minute + 17*time.Second).Unix(),
			Secure:   true,
			HTTPOnly: true,
			SameSite: SameSiteStrict,
		}
		line := FormatSetCookie(original, testNow)
		cookies, err := ParseSetCookie([]string{line}, reqURL, testNow.Add(3*time.Second))

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, original, cookies[0])
	})

	t.Run("round_trip_host_only_session", func(t *testing.T) {
		original := Cookie{Name: "foo", Value: "bar", Domain: "www.example.com", Path: "/", Expires: SessionExpiry}
		line := FormatSetCookie(original, testNow)
		cookies, err := ParseSetCookie([]string{line}, reqURL, testNow)

		require.NoError(t, err)
		require.Len(t, cookies, 1)
		assert.Equal(t, original, cookies[0])
		assert.NotContains(t, line, "Expires")
		assert.NotContains(t, line, "Domain")
	})

	t.Run("expired_carries_max_age", func(t *testing.T) {
		c := Cookie{Name: "old", Value: "x", Domain: "www.example.com", Path: "/", Expires: testNow.Add(-time.Hour).Unix()}
		line := FormatSetCookie(c, testNow)

		assert.Contains(t, line, "Max-Age=0")
		assert.Contains(t, line, "Expires="+testNow.Add(-time.Hour).Format(http.TimeFormat))
	})
}

func TestDecodeError(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := &DecodeError{Index: 2, Name: "a", Err: inner}

	assert.Equal(t, "set-cookie line 2 (a): boom", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "set-cookie line 0: boom", (&DecodeError{Err: inner}).Error())
}
