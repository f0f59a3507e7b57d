package middleware

import (
	"strconv"

	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// ProfileParam is the route parameter naming the owning profile.
const ProfileParam = "profile_id"

const targetProfileKey = "TargetProfileID"

// TargetProfileID returns the profile id admitted by ProfileAccess.
func TargetProfileID(c *gin.Context) int64 {
	return c.GetInt64(targetProfileKey)
}

// ProfileAccess admits the profile's owner and staff users. It must run after AuthMiddleware.
//
// Denials answer 404 rather than 403 so profile ids cannot be probed.
func ProfileAccess(profiles domain.ProfileRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		profileID, err := strconv.ParseInt(c.Param(ProfileParam), 10, 64)
		if err != nil || profileID <= 0 {
			_ = c.Error(apperror.BadRequest("Invalid profile id"))
			c.Abort()
			return
		}

		if c.GetInt64(string(domain.KeyProfileID)) == profileID {
			c.Set(targetProfileKey, profileID)
			c.Next()
			return
		}

		if !c.GetBool(string(domain.KeyIsStaff)) {
			security.DefaultLogger().Log(c.Request.Context(), security.SecurityEvent{
				Event:        security.EventUnauthorizedAccess,
				SubjectType:  "user_id",
				SubjectValue: strconv.FormatInt(c.GetInt64(string(domain.KeyUserID)), 10),
				IP:           c.ClientIP(),
				RequestID:    c.GetString(string(domain.KeyRequestID)),
				Details:      map[string]interface{}{"profile_id": profileID},
			})
			_ = c.Error(apperror.NotFound("Profile not found").Wrap(domain.ErrNotFound))
			c.Abort()
			return
		}

		exists, err := profiles.Exists(c.Request.Context(), profileID)
		if err != nil {
			_ = c.Error(apperror.Internal(err))
			c.Abort()
			return
		}
		if !exists {
			_ = c.Error(apperror.NotFound("Profile not found").Wrap(domain.ErrNotFound))
			c.Abort()
			return
		}

		security.DefaultLogger().Log(c.Request.Context(), security.SecurityEvent{
			Event:        security.EventStaffAccess,
			SubjectType:  "user_id",
			SubjectValue: strconv.FormatInt(c.GetInt64(string(domain.KeyUserID)), 10),
			IP:           c.ClientIP(),
			RequestID:    c.GetString(string(domain.KeyRequestID)),
			Details:      map[string]interface{}{"profile_id": profileID, "method": c.Request.Method, "path": c.FullPath()},
		})
		c.Set(targetProfileKey, profileID)
		c.Next()
	}
}
