package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCookie = SessionCookie{Name: "hs_session", Secret: []byte("0123456789abcdef0123456789abcdef")}

func sessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Session(testCookie))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(SessionIDKey)) })
	return r
}

func signed(t *testing.T, secret []byte, sid string, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sid": sid, "exp": exp.Unix()}).SignedString(secret)
	require.NoError(t, err)
	return token
}

func do(r *gin.Engine, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func responseCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == testCookie.Name {
			return c
		}
	}
	return nil
}

func TestSessionIssuesCookie(t *testing.T) {
	r := sessionRouter()
	w := do(r, nil)

	c := responseCookie(w)
	require.NotNil(t, c)
	assert.True(t, c.HttpOnly)
	sid := w.Body.String()
	assert.NotEmpty(t, sid)

	// same cookie, same session, no reissue
	w2 := do(r, c)
	assert.Equal(t, sid, w2.Body.String())
	assert.Nil(t, responseCookie(w2))
}

func TestSessionRenewsNearExpiry(t *testing.T) {
	r := sessionRouter()
	raw := signed(t, testCookie.Secret, "abc", time.Now().Add(2*time.Hour))

	w := do(r, &http.Cookie{Name: testCookie.Name, Value: raw})
	assert.Equal(t, "abc", w.Body.String())
	renewed := responseCookie(w)
	require.NotNil(t, renewed)
	assert.NotEqual(t, raw, renewed.Value)
}

func TestSessionRejectsForeignOrExpiredCookie(t *testing.T) {
	tests := map[string]string{
		"wrong secret": signed(t, []byte("another-secret-another-secret!!!"), "abc", time.Now().Add(48*time.Hour)),
		"expired":      signed(t, testCookie.Secret, "abc", time.Now().Add(-time.Minute)),
		"garbage":      "not-a-token",
		"no sid":       signed(t, testCookie.Secret, "", time.Now().Add(48*time.Hour)),
	}
	for name, raw := range tests {
		t.Run(name, func(t *testing.T) {
			w := do(sessionRouter(), &http.Cookie{Name: testCookie.Name, Value: raw})
			assert.NotEqual(t, "abc", w.Body.String())
			assert.NotEmpty(t, w.Body.String())
			assert.NotNil(t, responseCookie(w))
		})
	}
}
