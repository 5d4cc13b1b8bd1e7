package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/configuration"
)

// Auth validates the Bearer JWT and scopes the request to the token's team.
func Auth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		res := gin.H{"error": "unauthorized"}

		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		auth := strings.Split(authorization, "Bearer ")
		if len(auth) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}

		claims, token, err := getClaim(auth[1], configuration.C.App.SecretKey)
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": describe(err)})
			return
		}
		if claims.TeamID == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		ctx.Set("team_id", claims.TeamID)
		ctx.Next()
	}
}

func describe(err error) string {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			return "That's not even a token"
		}
		if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			return "Timing is everything"
		}
		return fmt.Sprintf("Couldn't handle this token:%v", err)
	}
	return "unauthorized"
}

func getClaim(tokenString, secretKey string) (model.TeamClaims, *jwt.Token, error) {
	var claims model.TeamClaims
	token, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
	)
	return claims, token, err
}
