package model

import "github.com/golang-jwt/jwt"

// TeamClaims is the JWT payload API callers present. TeamID scopes every
// request; the worker itself never sees a JWT.
type TeamClaims struct {
	TeamID string `json:"team_id"`
	jwt.StandardClaims
}
