package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/bala2006-m/smart-school-server-sub001/core"
	"github.com/bala2006-m/smart-school-server-sub001/core/tenant"
)

const tokenContextKey = "deviceToken"

// Claims represents the tenant claims transmitted via a device JWT.
// The token is a carrier of tenant context, not a user identity.
type Claims struct {
	jwt.StandardClaims
	SchoolID int    `json:"school_id"`
	DeviceID string `json:"device_id"`
}

// appJWTConfig is the JWT auth middleware config.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// GetDeviceClaims builds the claims binding a device to its school.
func GetDeviceClaims(conf *core.Config, tc tenant.Context) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   tc.DeviceID,
			Audience:  "SyncDevices",
			ExpiresAt: now.Add(conf.Server.DeviceTokenExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		SchoolID: tc.SchoolID,
		DeviceID: tc.DeviceID,
	}
}

// GenerateDeviceToken generates a signed JWT token string representing the
// device Claims.
func GenerateDeviceToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// getContextTenant derives the tenant context from the device claims.
func getContextTenant(ctx echo.Context) (tenant.Context, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return tenant.Context{}, err
	}
	return tenant.Context{SchoolID: claims.SchoolID, DeviceID: claims.DeviceID}, nil
}
