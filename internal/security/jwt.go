package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are issued by the account service; this service only verifies them.
type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID prefers the uid claim and falls back to the subject. The account
// service historically wrote ids as ObjectID("..."), which is unwrapped.
func (c *Claims) UserID() string {
	uid := c.UID
	if uid == "" {
		uid = c.Subject
	}
	uid = strings.TrimSpace(uid)
	if strings.HasPrefix(uid, `ObjectID("`) && strings.HasSuffix(uid, `")`) {
		uid = uid[len(`ObjectID("`) : len(uid)-len(`")`)]
	}
	return uid
}

func MakeAccess(secret, uid, email string, ttl time.Duration) (string, error) {
	c := Claims{
		UID: uid, Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			Subject:   uid,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return t.SignedString([]byte(secret))
}

func ParseAccess(secret, token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}
