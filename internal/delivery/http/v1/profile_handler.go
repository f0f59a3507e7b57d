package v1

import (
	"net/http"

	"go-profile-backend/internal/delivery/http/response"
	"go-profile-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct{}

type currentProfileResponse struct {
	UserID    int64  `json:"user_id"`
	ProfileID int64  `json:"profile_id"`
	Email     string `json:"email"`
	IsStaff   bool   `json:"is_staff"`
}

func NewProfileHandler(r *gin.RouterGroup) {
	handler := &ProfileHandler{}
	r.GET("/profiles/me", handler.Me)
}

// Me godoc
// @Summary      Current profile
// @Description  The caller's user and profile ids, provisioned on first login
// @Tags         profiles
// @Produce      json
// @Success      200  {object}  response.Response{data=currentProfileResponse}
// @Failure      401  {object}  response.Response
// @Router       /profiles/me [get]
// @Security     BearerAuth
func (h *ProfileHandler) Me(c *gin.Context) {
	response.Success(c, http.StatusOK, "Current profile", currentProfileResponse{
		UserID:    c.GetInt64(string(domain.KeyUserID)),
		ProfileID: c.GetInt64(string(domain.KeyProfileID)),
		Email:     c.GetString(string(domain.KeyUserEmail)),
		IsStaff:   c.GetBool(string(domain.KeyIsStaff)),
	})
}
