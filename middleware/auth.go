package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// GatewayClaims identify one chat participant on the gateway.
type GatewayClaims struct {
	Addr string `json:"addr"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// ParseToken validates a gateway token and returns the participant
// identity it carries.
func ParseToken(secret, tokenString string) (addr, name string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &GatewayClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", "", err
	}

	claims, ok := token.Claims.(*GatewayClaims)
	if !ok || !token.Valid || claims.Addr == "" {
		return "", "", errors.New("invalid token claims")
	}
	return claims.Addr, claims.Name, nil
}

// AuthMiddleware requires a valid bearer token and stores the sender
// identity in the Gin context.
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		addr, name, err := ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set("addr", addr)
		c.Set("name", name)
		c.Next()
	}
}
