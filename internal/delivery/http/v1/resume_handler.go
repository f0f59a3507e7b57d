package v1

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"go-profile-backend/internal/delivery/http/middleware"
	"go-profile-backend/internal/delivery/http/response"
	"go-profile-backend/internal/domain"
	"go-profile-backend/pkg/apperror"
	"go-profile-backend/pkg/validation"

	"github.com/gin-gonic/gin"
)

// multipart framing on top of the file itself
const uploadOverhead = 1 << 20

type ResumeHandler struct {
	resumeUC domain.ResumeUsecase
}

type uploadResumeRequest struct {
	Title string                `form:"title" binding:"required,max=100,resume_title"`
	File  *multipart.FileHeader `form:"file" binding:"required"`
}

type resumeURLResponse struct {
	URL string `json:"url"`
}

type resumeTextResponse struct {
	ResumeID int64  `json:"resume_id"`
	Text     string `json:"text"`
}

// NewResumeHandler mounts the résumé routes on a group that already carries
// AuthMiddleware and ProfileAccess.
func NewResumeHandler(r *gin.RouterGroup, resumeUC domain.ResumeUsecase, uploadLimit gin.HandlerFunc) {
	handler := &ResumeHandler{resumeUC: resumeUC}

	resumes := r.Group("/resumes")
	{
		resumes.GET("", handler.List)
		resumes.POST("", uploadLimit, handler.Upload)
		resumes.DELETE("", handler.DeleteAll)
		resumes.GET("/default", handler.GetDefault)
		resumes.GET("/:resume_id", handler.Get)
		resumes.DELETE("/:resume_id", handler.Delete)
		resumes.PUT("/:resume_id/default", handler.SetDefault)
		resumes.GET("/:resume_id/download", handler.Download)
		resumes.GET("/:resume_id/url", handler.DownloadURL)
		resumes.GET("/:resume_id/text", handler.ExtractText)
	}
}

func resumeID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("resume_id"), 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperror.BadRequest("Invalid resume id"))
		return 0, false
	}
	return id, true
}

// List godoc
// @Summary      List resumes
// @Description  Resumes of the profile, most recently updated first
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Success      200  {object}  response.Response{data=[]domain.Resume}
// @Failure      401  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes [get]
// @Security     BearerAuth
func (h *ResumeHandler) List(c *gin.Context) {
	resumes, err := h.resumeUC.List(c.Request.Context(), middleware.TargetProfileID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Resumes", resumes)
}

// Upload godoc
// @Summary      Upload or replace a resume
// @Description  Creates a resume, or replaces the file of the resume with the same title. At most 3 per profile, 5MB, .pdf/.doc/.docx/.txt.
// @Tags         resumes
// @Accept       multipart/form-data
// @Produce      json
// @Param        profile_id  path      int     true  "Profile ID"
// @Param        title       formData  string  true  "Resume title"
// @Param        file        formData  file    true  "Resume file"
// @Success      201  {object}  response.Response{data=domain.Resume}
// @Failure      400  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Failure      429  {object}  response.Response
// @Failure      503  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes [post]
// @Security     BearerAuth
func (h *ResumeHandler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, domain.MaxFileSize+uploadOverhead)

	var req uploadResumeRequest
	if err := c.ShouldBind(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, http.StatusBadRequest, "File size must be no more than 5MB", nil)
			return
		}
		response.Error(c, http.StatusBadRequest, "Invalid upload", validation.FormatValidationErrors(err))
		return
	}

	src, err := req.File.Open()
	if err != nil {
		_ = c.Error(apperror.BadRequest("Could not read uploaded file"))
		return
	}
	defer src.Close()

	// one byte past the limit is enough for the size check to fail
	data, err := io.ReadAll(io.LimitReader(src, domain.MaxFileSize+1))
	if err != nil {
		_ = c.Error(apperror.BadRequest("Could not read uploaded file"))
		return
	}

	resume, err := h.resumeUC.Upload(c.Request.Context(), middleware.TargetProfileID(c), domain.ResumeUpload{
		Title:            req.Title,
		OriginalFilename: req.File.Filename,
		Data:             data,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusCreated, "Resume uploaded", resume)
}

// Get godoc
// @Summary      Get a resume
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Param        resume_id   path  int  true  "Resume ID"
// @Success      200  {object}  response.Response{data=domain.Resume}
// @Failure      404  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes/{resume_id} [get]
// @Security     BearerAuth
func (h *ResumeHandler) Get(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	resume, err := h.resumeUC.Get(c.Request.Context(), middleware.TargetProfileID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Resume", resume)
}

// Delete godoc
// @Summary      Delete a resume
// @Description  Deleting the default resume promotes the most recently updated remaining one.
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Param        resume_id   path  int  true  "Resume ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes/{resume_id} [delete]
// @Security     BearerAuth
func (h *ResumeHandler) Delete(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	if err := h.resumeUC.Delete(c.Request.Context(), middleware.TargetProfileID(c), id); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Resume deleted", nil)
}

// DeleteAll godoc
// @Summary      Delete all resumes of a profile
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Success      200  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes [delete]
// @Security     BearerAuth
func (h *ResumeHandler) DeleteAll(c *gin.Context) {
	if err := h.resumeUC.DeleteAllForProfile(c.Request.Context(), middleware.TargetProfileID(c)); err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "All resumes deleted", nil)
}

// SetDefault godoc
// @Summary      Make a resume the default
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Param        resume_id   path  int  true  "Resume ID"
// @Success      200  {object}  response.Response{data=domain.Resume}
// @Failure      404  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes/{resume_id}/default [put]
// @Security     BearerAuth
func (h *ResumeHandler) SetDefault(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	resume, err := h.resumeUC.SetDefault(c.Request.Context(), middleware.TargetProfileID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Default resume updated", resume)
}

// GetDefault godoc
// @Summary      Get the default resume
// @Description  Data is null when the profile has no resumes.
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Success      200  {object}  response.Response{data=domain.Resume}
// @Router       /profiles/{profile_id}/resumes/default [get]
// @Security     BearerAuth
func (h *ResumeHandler) GetDefault(c *gin.Context) {
	resume, err := h.resumeUC.GetDefault(c.Request.Context(), middleware.TargetProfileID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if resume == nil {
		response.Success(c, http.StatusOK, "No resume uploaded yet", nil)
		return
	}
	response.Success(c, http.StatusOK, "Default resume", resume)
}

// Download godoc
// @Summary      Download a resume file
// @Tags         resumes
// @Produce      application/octet-stream
// @Param        profile_id  path  int  true  "Profile ID"
// @Param        resume_id   path  int  true  "Resume ID"
// @Success      200  {file}    file
// @Failure      404  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes/{resume_id}/download [get]
// @Security     BearerAuth
func (h *ResumeHandler) Download(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	file, err := h.resumeUC.Download(c.Request.Context(), middleware.TargetProfileID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": file.Resume.OriginalFilename})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// DownloadURL godoc
// @Summary      Get a temporary download link
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Param        resume_id   path  int  true  "Resume ID"
// @Success      200  {object}  response.Response{data=resumeURLResponse}
// @Failure      404  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes/{resume_id}/url [get]
// @Security     BearerAuth
func (h *ResumeHandler) DownloadURL(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	url, err := h.resumeUC.DownloadURL(c.Request.Context(), middleware.TargetProfileID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Download link", resumeURLResponse{URL: url})
}

// ExtractText godoc
// @Summary      Extract plain text from a resume
// @Description  Supported for .pdf, .docx and .txt files.
// @Tags         resumes
// @Produce      json
// @Param        profile_id  path  int  true  "Profile ID"
// @Param        resume_id   path  int  true  "Resume ID"
// @Success      200  {object}  response.Response{data=resumeTextResponse}
// @Failure      422  {object}  response.Response
// @Router       /profiles/{profile_id}/resumes/{resume_id}/text [get]
// @Security     BearerAuth
func (h *ResumeHandler) ExtractText(c *gin.Context) {
	id, ok := resumeID(c)
	if !ok {
		return
	}
	text, err := h.resumeUC.ExtractText(c.Request.Context(), middleware.TargetProfileID(c), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Resume text", resumeTextResponse{ResumeID: id, Text: text})
}
