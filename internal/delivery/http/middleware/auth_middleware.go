package middleware

import (
	"errors"
	"net/http"
	"strings"

	"go-profile-backend/config"
	"go-profile-backend/internal/delivery/http/response"
	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/auth"
	"go-profile-backend/pkg/logger"
	"go-profile-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the bearer token, resolves the local user and profile,
// and stores them on the gin context.
//
// RS256 tokens are checked against the Auth0 JWKS, issuer and audience. HS256 tokens
// are accepted only when JWT_SECRET is configured.
func AuthMiddleware(jwksProvider *auth.Provider, cfg *config.Config, authUC domain.AuthUsecase) gin.HandlerFunc {
	var opts []jwt.ParserOption
	if cfg.Auth0Domain != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Auth0Issuer()))
	}
	if cfg.Auth0Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Auth0Audience))
	}
	parser := jwt.NewParser(opts...)
	hmacParser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "Authorization header or auth_token cookie required", nil)
			c.Abort()
			return
		}

		var (
			token *jwt.Token
			err   error
		)
		unverified, _, parseErr := jwt.NewParser().ParseUnverified(tokenString, jwt.MapClaims{})
		switch {
		case parseErr != nil:
			err = parseErr
		case isHMAC(unverified):
			if cfg.JWTSecret == "" {
				err = errors.New("HS256 token received but JWT_SECRET is not configured")
				break
			}
			token, err = hmacParser.Parse(tokenString, func(*jwt.Token) (interface{}, error) {
				return []byte(cfg.JWTSecret), nil
			})
		default:
			if jwksProvider == nil {
				err = errors.New("RS256 token received but AUTH0_DOMAIN is not configured")
				break
			}
			token, err = parser.Parse(tokenString, jwksProvider.KeyFunc)
		}

		if err != nil || token == nil || !token.Valid {
			logger.Log.Debug("Token validation failed", "error", err)
			security.DefaultLogger().Log(c.Request.Context(), security.SecurityEvent{
				Event:     security.EventTokenRejected,
				IP:        c.ClientIP(),
				UserAgent: c.Request.UserAgent(),
				RequestID: c.GetString(string(domain.KeyRequestID)),
			})
			response.Error(c, http.StatusUnauthorized, "Invalid token", nil)
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.Error(c, http.StatusUnauthorized, "Invalid claims", nil)
			c.Abort()
			return
		}

		sub, _ := claims["sub"].(string)
		email, _ := claims["email"].(string)
		if sub == "" {
			response.Error(c, http.StatusUnauthorized, "Invalid claims", nil)
			c.Abort()
			return
		}

		principal, err := authUC.ResolveUser(c.Request.Context(), sub, email)
		if err != nil {
			// infrastructure failures go through the error handler
			_ = c.Error(err)
			c.Abort()
			return
		}

		c.Set(string(domain.KeyUserID), principal.User.ID)
		c.Set(string(domain.KeyUserEmail), principal.User.Email)
		c.Set(string(domain.KeyIsStaff), principal.User.IsStaff)
		c.Set(string(domain.KeyProfileID), principal.Profile.ID)

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if after, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return ""
	}
	if cookie, err := c.Cookie("auth_token"); err == nil {
		return cookie
	}
	return ""
}

func isHMAC(token *jwt.Token) bool {
	_, ok := token.Method.(*jwt.SigningMethodHMAC)
	return ok
}
