package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"changemgmt/models"

	"github.com/go-playground/validator/v10"
)

// dateInputLayout matches <input type="datetime-local">.
const dateInputLayout = "2006-01-02T15:04"

// formZone is the zone decision dates are shown and read in on the edit form.
var formZone = time.UTC

// RequestForm is the posted request form. Decision fields are only read
// from admin submissions.
type RequestForm struct {
	Title             string `form:"Title"`
	Description       string `form:"Description"`
	Priority          string `form:"Priority"`
	Status            string `form:"Status"`
	AdminApprovalDate string `form:"AdminApprovalDate"`
	AdminReason       string `form:"AdminReason"`
}

type LoginForm struct {
	Username  string `form:"Username"`
	Password  string `form:"Password"`
	ReturnURL string `form:"ReturnUrl"`
}

// fieldErrors maps form field names to a message.
type fieldErrors map[string]string

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("priority", func(fl validator.FieldLevel) bool {
		p, ok := fl.Field().Interface().(models.Priority)
		return ok && p.Valid()
	})
	_ = v.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		s, ok := fl.Field().Interface().(models.Status)
		return ok && s.Valid()
	})
	return v
}

func (h *Handler) decodeForm(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parse form: %w", err)
	}
	if err := h.decoder.Decode(dst, r.PostForm); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}

// validateRequest checks r against the model rules.
func (h *Handler) validateRequest(r *models.Request) fieldErrors {
	err := h.validate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fieldErrors{"": err.Error()}
	}
	out := fieldErrors{}
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = fieldMessage(fe)
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", name, fe.Param())
	case "priority", "status":
		return fmt.Sprintf("%s is not a valid value.", name)
	}
	return fmt.Sprintf("%s is invalid.", name)
}

// applyContent copies the fields every role may edit.
func (f *RequestForm) applyContent(r *models.Request) {
	r.Title = f.Title
	r.Description = f.Description
	r.Priority = models.Priority(strings.TrimSpace(f.Priority))
}

// applyDecision copies the decision fields. A date submitted exactly as
// the form rendered prev keeps prev, seconds included. A malformed date is
// reported as a field error.
func (f *RequestForm) applyDecision(r *models.Request, prev *time.Time) fieldErrors {
	r.Status = models.Status(strings.TrimSpace(f.Status))

	r.AdminReason = nil
	if reason := strings.TrimSpace(f.AdminReason); reason != "" {
		r.AdminReason = &reason
	}

	r.AdminApprovalDate = nil
	raw := strings.TrimSpace(f.AdminApprovalDate)
	if raw == "" {
		return nil
	}
	if prev != nil && raw == formatFormDate(*prev) {
		kept := *prev
		r.AdminApprovalDate = &kept
		return nil
	}
	t, err := parseFormDate(raw)
	if err != nil {
		return fieldErrors{"AdminApprovalDate": "AdminApprovalDate is not a valid date."}
	}
	r.AdminApprovalDate = &t
	return nil
}

func formatFormDate(t time.Time) string {
	return t.In(formZone).Format(dateInputLayout)
}

func parseFormDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(dateInputLayout, raw, formZone)
}

func sameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// formFromRequest fills the form for editing an existing request.
func formFromRequest(r *models.Request) *RequestForm {
	f := &RequestForm{
		Title:       r.Title,
		Description: r.Description,
		Priority:    string(r.Priority),
		Status:      string(r.Status),
	}
	if r.AdminApprovalDate != nil {
		f.AdminApprovalDate = formatFormDate(*r.AdminApprovalDate)
	}
	if r.AdminReason != nil {
		f.AdminReason = *r.AdminReason
	}
	return f
}

func mergeErrors(a, b fieldErrors) fieldErrors {
	if len(b) == 0 {
		return a
	}
	if a == nil {
		a = fieldErrors{}
	}
	for k, v := range b {
		if _, ok := a[k]; !ok {
			a[k] = v
		}
	}
	return a
}
