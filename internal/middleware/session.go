package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	SessionIDKey = "session_id"

	sessionLifetime = 7 * 24 * time.Hour
	renewWithin     = 24 * time.Hour
)

type SessionCookie struct {
	Name   string
	Secret []byte
	Secure bool
}

func (s SessionCookie) sign(sid string) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sid": sid,
		"exp": time.Now().Add(sessionLifetime).Unix(),
	}).SignedString(s.Secret)
}

func (s SessionCookie) parse(raw string) (string, time.Time, bool) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", time.Time{}, false
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", time.Time{}, false
	}
	sid, _ := claims["sid"].(string)
	if sid == "" {
		return "", time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, false
	}
	return sid, exp.Time, true
}

func (s SessionCookie) set(c *gin.Context, sid string) {
	token, err := s.sign(sid)
	if err != nil {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, token, int(sessionLifetime.Seconds()), "/", "", s.Secure, true)
}

// Clear expires the cookie in the browser.
func (s SessionCookie) Clear(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(s.Name, "", -1, "/", "", s.Secure, true)
}

// Session puts the browser's session id in the context, issuing a new
// signed cookie when it is missing or invalid and renewing it when it
// expires within a day.
func Session(cookie SessionCookie) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Cookie(cookie.Name)
		sid, exp, ok := cookie.parse(raw)
		switch {
		case !ok:
			sid = uuid.NewString()
			cookie.set(c, sid)
		case time.Until(exp) < renewWithin:
			cookie.set(c, sid)
		}
		c.Set(SessionIDKey, sid)
		c.Next()
	}
}
