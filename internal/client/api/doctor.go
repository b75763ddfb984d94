package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/pvault/internal/client/models"
	"github.com/dmitrijs2005/pvault/internal/netx"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/login", nil,
		loginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (*models.AuthResponse, error) {
	var resp models.AuthResponse
	if err := c.doJSON(ctx, "register", http.MethodPost, "/auth/register", nil,
		registerRequest{Name: name, Email: email, Password: password}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) DoctorProfile(ctx context.Context, id models.ID) (*models.DoctorProfile, error) {
	var resp models.DoctorProfile
	path := "/doctor/" + url.PathEscape(id.String())
	if err := c.doJSON(ctx, "doctor profile", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Prescriptions lists the authenticated doctor's own uploads.
func (c *HTTPClient) Prescriptions(ctx context.Context) ([]models.PrescriptionSummary, error) {
	var resp []models.PrescriptionSummary
	if err := c.doJSON(ctx, "list prescriptions", http.MethodGet, "/doctor/prescriptions", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) DoctorPrescriptions(ctx context.Context, doctorID models.ID) ([]models.PrescriptionSummary, error) {
	var resp []models.PrescriptionSummary
	path := "/doctor/" + url.PathEscape(doctorID.String()) + "/prescriptions"
	if err := c.doJSON(ctx, "list doctor prescriptions", http.MethodGet, path, nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Upload posts the form as multipart/form-data. Empty optional fields are
// left out.
func (c *HTTPClient) Upload(ctx context.Context, form models.UploadForm) (*models.UploadResult, error) {
	const op = "upload prescription"

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"patientName", form.PatientName},
		{"patientPhone", form.PatientPhone},
		{"patientEmail", form.PatientEmail},
		{"patientAddress", form.PatientAddress},
		{"gender", form.Gender},
		{"age", form.Age},
		{"bloodGroup", form.BloodGroup},
	}
	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("%s: write field %s: %w", op, f.name, err)
		}
	}

	if form.File != nil {
		part, err := w.CreateFormFile("file", form.FileName)
		if err != nil {
			return nil, fmt.Errorf("%s: create file part: %w", op, err)
		}
		if _, err := io.Copy(part, form.File); err != nil {
			return nil, fmt.Errorf("%s: copy file: %w", op, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%s: close multipart: %w", op, err)
	}

	resp, err := c.send(ctx, op, http.MethodPost, "/doctor/upload-prescription", nil, &buf, w.FormDataContentType())
	if err != nil {
		return nil, err
	}
	defer netx.DrainAndClose(resp.Body)

	// some deployments answer with a bare text confirmation
	raw := netx.ReadSnippet(resp.Body, maxErrorBody)
	var result models.UploadResult
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, &result); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
	} else {
		result.Message = string(trimmed)
	}
	return &result, nil
}
