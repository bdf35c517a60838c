package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"emergency_dashboard/internal/logger"
	"emergency_dashboard/internal/models"
)

const (
	submitStatusStub = "stub"
	submitMessage    = "received; authentication backend not connected"
	redacted         = "***"
)

var knownForms = map[string]bool{
	models.FormLogin:         true,
	models.FormSignup:        true,
	models.FormFindID:        true,
	models.FormResetPassword: true,
}

// FormService accepts auth screen submissions and answers with a stub result.
type FormService struct {
	flows Verification
	rec   *Recorder
	log   *logger.Logger
}

func NewFormService(flows Verification, rec *Recorder, log *logger.Logger) *FormService {
	return &FormService{flows: flows, rec: rec, log: logger.OrNop(log)}
}

// Submit logs the payload with secrets redacted. A submission bound to a
// verification flow is refused with ErrCodeExpired when the flow's policy
// blocks submission after expiry.
func (s *FormService) Submit(ctx context.Context, sub models.FormSubmission) (models.SubmitResult, error) {
	form := strings.ToLower(strings.TrimSpace(sub.Form))
	if !knownForms[form] {
		return models.SubmitResult{}, fmt.Errorf("%w: %q", ErrUnknownForm, sub.Form)
	}

	if sub.FlowID != "" {
		ok, err := s.flows.CanSubmit(ctx, sub.FlowID)
		if err != nil {
			return models.SubmitResult{}, err
		}
		if !ok {
			return models.SubmitResult{}, fmt.Errorf("%w: flow %s", ErrCodeExpired, sub.FlowID)
		}
	}

	fields := redact(sub.Fields)
	s.log.Infow("form_submitted", "form", form, "flow_id", sub.FlowID, "fields", fields)
	s.rec.Record(models.EventFormSubmitted, "Form submitted: "+form, map[string]any{
		"form":   form,
		"fields": fieldNames(fields),
	})

	return models.SubmitResult{
		Form:    form,
		Status:  submitStatusStub,
		Message: submitMessage,
	}, nil
}

// redact copies fields, masking anything that looks like a password.
func redact(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if isSecret(k) {
			v = redacted
		}
		out[k] = v
	}
	return out
}

func isSecret(key string) bool {
	k := strings.ToLower(key)
	return strings.Contains(k, "password") || strings.Contains(k, "passwd") ||
		k == "pw" || strings.HasSuffix(k, "_pw") || strings.HasPrefix(k, "pw_")
}

func fieldNames(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for k := range fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
