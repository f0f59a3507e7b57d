package validation_test

import (
	"strings"
	"testing"

	"go-profile-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeText(t *testing.T) {
	cases := map[string]string{
		"Data Resume":            "dataresume",
		"Software-Engineer_2024": "softwareengineer2024",
		"  C++ / Go!! ":          "cgo",
		"Résumé":                 "rsum",
		"":                       "",
		"!!!":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, validation.SanitizeText(in), "input %q", in)
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "cv.pdf", validation.SanitizeFilename("../../etc/cv.pdf", 255))
	assert.Equal(t, "cv.pdf", validation.SanitizeFilename(`C:\Users\me\cv.pdf`, 255))
	assert.Equal(t, "mycv.pdf", validation.SanitizeFilename("my\x00cv.pdf", 255))

	long := strings.Repeat("é", 200) + ".pdf"
	got := validation.SanitizeFilename(long, 255)
	assert.LessOrEqual(t, len(got), 255)
	assert.True(t, strings.HasPrefix(got, "é"))
}

type titleForm struct {
	Title string `validate:"required,max=100,resume_title"`
}

func TestResumeTitleValidator(t *testing.T) {
	v := validator.New()
	validation.RegisterValidators(v)

	require.NoError(t, v.Struct(titleForm{Title: "Data Scientist Resume"}))

	err := v.Struct(titleForm{Title: "   "})
	require.Error(t, err)
	assert.Equal(t, []string{"Resume title must contain visible text and no emoji"}, validation.FormatValidationErrors(err))

	err = v.Struct(titleForm{Title: "Resume 🚀"})
	require.Error(t, err)

	err = v.Struct(titleForm{Title: strings.Repeat("a", 101)})
	require.Error(t, err)
	assert.Equal(t, []string{"Resume title must be at most 100 characters"}, validation.FormatValidationErrors(err))
}
