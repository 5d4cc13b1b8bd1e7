package utils

import (
	"time"

	"github.com/golang-jwt/jwt"

	"social-publisher/domain/model"
	"social-publisher/infrastructure/logger"
)

func GetCurrentTime() time.Time {
	return time.Now().UTC()
}

// GenerateTeamToken mints the HS256 bearer token the API expects. Used by
// the CLI onboarding flow and by tests.
func GenerateTeamToken(teamID, secretKey string, ttl time.Duration) (string, error) {
	claims := model.TeamClaims{
		TeamID: teamID,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  GetCurrentTime().Unix(),
			ExpiresAt: GetCurrentTime().Add(ttl).Unix(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(secretKey))
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while generate token")
		return "", err
	}
	return tokenString, nil
}
