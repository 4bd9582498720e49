package auth

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Claims is the JWT payload issued by the identity collaborator.
type Claims struct {
	jwt.RegisteredClaims
	Role     string `json:"role"`
	ClinicID string `json:"clinic_id"`
	DoctorID string `json:"doctor_id,omitempty"`
}

// JWTMiddleware validates a Bearer token signed with the shared HMAC secret
// and resolves the Actor into the request context.
func JWTMiddleware(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
			}

			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), actor)))
			return next(c)
		}
	}
}

func actorFromClaims(claims *Claims) (Actor, error) {
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid subject claim")
	}
	clinicID, err := uuid.Parse(claims.ClinicID)
	if err != nil {
		return Actor{}, fmt.Errorf("invalid clinic_id claim")
	}

	actor := Actor{UserID: userID, Role: claims.Role, ClinicID: clinicID}
	if claims.DoctorID != "" {
		doctorID, err := uuid.Parse(claims.DoctorID)
		if err != nil {
			return Actor{}, fmt.Errorf("invalid doctor_id claim")
		}
		actor.DoctorID = doctorID
	}
	return actor, nil
}

// SignToken issues an HMAC token for the given actor. Used by tests and the
// dev tooling; production tokens come from the identity collaborator.
func SignToken(secret []byte, actor Actor, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role:     actor.Role,
		ClinicID: actor.ClinicID.String(),
	}
	if actor.DoctorID != uuid.Nil {
		claims.DoctorID = actor.DoctorID.String()
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// DevAuthMiddleware injects an admin actor into every request. Development
// only; never wired in production mode.
func DevAuthMiddleware() echo.MiddlewareFunc {
	// Clinic matches the development seed so staff endpoints return data.
	devActor := Actor{
		UserID:   uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		Role:     RoleAdmin,
		ClinicID: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.SetRequest(c.Request().WithContext(WithActor(c.Request().Context(), devActor)))
			return next(c)
		}
	}
}
