package auth

import (
	"errors"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidRole = errors.New("auth: token carries an unknown role")

type Claims struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for actor valid for ttl.
func GenerateToken(secret string, actor models.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: actor.ID,
		Role:   string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseToken(secret, tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, jwt.ErrTokenInvalidClaims
}

// ActorFromToken validates tokenStr and returns the caller it names.
func ActorFromToken(secret, tokenStr string) (models.Actor, error) {
	claims, err := ParseToken(secret, tokenStr)
	if err != nil {
		return models.Actor{}, err
	}
	role := models.Role(claims.Role)
	if !role.Valid() {
		return models.Actor{}, ErrInvalidRole
	}
	return models.Actor{ID: claims.UserID, Role: role}, nil
}
