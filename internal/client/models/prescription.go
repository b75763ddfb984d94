package models

import (
	"io"
	"time"
)

// PrescriptionSummary is an immutable snapshot of one uploaded file as
// listed by the server. Doctor fields are filled on the patient path only,
// the optional patient details on the doctor path only.
type PrescriptionSummary struct {
	ID         ID        `json:"id"`
	FileName   string    `json:"fileName"`
	UploadedAt Timestamp `json:"uploadedAt"`

	PatientName       string `json:"patientName,omitempty"`
	PatientEmail      string `json:"patientEmail,omitempty"`
	PatientPhone      string `json:"patientPhone,omitempty"`
	PatientAge        *int   `json:"patientAge,omitempty"`
	PatientGender     string `json:"patientGender,omitempty"`
	PatientBloodGroup string `json:"patientBloodGroup,omitempty"`

	DoctorName  string `json:"doctorName,omitempty"`
	DoctorEmail string `json:"doctorEmail,omitempty"`
}

// DownloadRequest identifies one artifact to fetch.
type DownloadRequest struct {
	ID                ID
	SuggestedFileName string
}

// UploadForm carries the multipart fields of /doctor/upload-prescription.
// Empty optional fields are not sent.
type UploadForm struct {
	PatientName    string
	PatientPhone   string
	PatientEmail   string
	PatientAddress string
	Gender         string
	Age            string
	BloodGroup     string

	FileName string
	File     io.Reader
}

// UploadResult is the body returned after a successful upload.
type UploadResult struct {
	ID       ID     `json:"id"`
	FileName string `json:"fileName"`
	Message  string `json:"message"`
}

// DownloadRecord is one entry of the local download ledger.
type DownloadRecord struct {
	ArtifactID  ID
	Name        string
	Location    string
	ContentType string
	Size        int
	SavedAt     time.Time
}
