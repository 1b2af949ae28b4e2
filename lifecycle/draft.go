package lifecycle

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"social-publisher/media"
	"social-publisher/models"

	"github.com/go-playground/validator/v10"
)

// Draft is the caller-editable content of a post.
type Draft struct {
	Title         string            `json:"title" validate:"max=200"`
	Content       string            `json:"content" validate:"required,max=63206"`
	Platforms     []models.Platform `json:"platforms" validate:"required,min=1,dive,oneof=facebook instagram twitter"`
	ScheduledDate *time.Time        `json:"scheduled_date,omitempty"`
	Images        []string          `json:"images" validate:"dive,http_url"`
	// Media are references still to be uploaded, e.g. local files or raw bytes.
	Media    []media.Ref `json:"media,omitempty" validate:"dive"`
	URLs     []string    `json:"urls" validate:"dive,http_url"`
	Hashtags []string    `json:"hashtags" validate:"max=30,dive,max=100"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// check runs the struct tags and converts failures into a *models.ValidationError.
func (d *Draft) check() error {
	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return models.Invalid("", "%v", err)
	}
	fe := fields[0]
	return &models.ValidationError{
		Field:   fieldPath(fe),
		Message: describe(fe),
	}
}

// fieldPath is the lowercased namespace without the struct name, e.g. "media[0].url".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("needs at least %s entries", fe.Param())
	case "max":
		return fmt.Sprintf("exceeds the limit of %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("%v is not one of %s", fe.Value(), fe.Param())
	case "url", "http_url":
		return fmt.Sprintf("%v is not a valid http(s) URL", fe.Value())
	}
	return "failed " + fe.Tag()
}

// apply copies the draft's content fields onto post.
func (d *Draft) apply(post *models.Post) {
	post.Title = strings.TrimSpace(d.Title)
	post.Content = d.Content
	post.Platforms = models.OrderPlatforms(d.Platforms)
	post.Images = append([]string(nil), d.Images...)
	post.URLs = append([]string(nil), d.URLs...)
	post.Hashtags = append([]string(nil), d.Hashtags...)
}
