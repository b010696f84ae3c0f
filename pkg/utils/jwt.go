package utils

import (
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
)

// TokenUser is the identity carried by an access token.
type TokenUser struct {
	UserID     int64
	Role       string
	ExternalID string
}

func CreateJWTToken(userID int64, role string, externalID string, jwtSecretKey string) (string, error) {
	claims := jwt.MapClaims{}
	claims["authorized"] = true
	claims["userID"] = userID
	claims["role"] = role
	claims["externalID"] = externalID
	claims["exp"] = time.Now().Add(time.Hour * 24).Unix()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecretKey))
}

// ExtractTokenUser reads the claims stored by the JWT middleware. ok is false
// when the request carries no valid token.
func ExtractTokenUser(c echo.Context) (user TokenUser, ok bool) {
	token, isToken := c.Get("user").(*jwt.Token)
	if !isToken || !token.Valid {
		return user, false
	}

	claims, isMap := token.Claims.(jwt.MapClaims)
	if !isMap {
		return user, false
	}

	userID, _ := claims["userID"].(float64)
	role, _ := claims["role"].(string)
	externalID, _ := claims["externalID"].(string)
	if userID == 0 {
		return user, false
	}

	return TokenUser{UserID: int64(userID), Role: role, ExternalID: externalID}, true
}
