// Package common contains shared constants and sentinel errors used across
// PVault client components.
package common

// AuthorizationHeaderName and BearerPrefix form the header attached to every
// RemoteAPI call made while a doctor session holds a token.
const (
	AuthorizationHeaderName = "Authorization"
	BearerPrefix            = "Bearer "
)

// RequestIDHeaderName carries a per-call correlation id.
const RequestIDHeaderName = "X-Request-ID"

// Durable keys of the doctor session. Both are written and cleared together.
const (
	SessionTokenKey   = "doctorToken"
	SessionProfileKey = "doctorData"
)

// Route paths understood by the CLI router.
const (
	RouteHome                = "/"
	RoutePatientPrescription = "/patient-prescription"
	RouteDoctorLogin         = "/doctor/login"
	RouteDoctorDashboard     = "/doctor/dashboard"
	RouteDoctorPrescriptions = "/doctor/prescriptions"
	RouteDoctorUpload        = "/doctor/upload-prescription"
)

// DefaultArtifactName is used when neither the caller nor the server supplies
// a file name for a downloaded prescription.
const DefaultArtifactName = "prescription"
