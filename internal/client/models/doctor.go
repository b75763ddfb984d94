package models

// Doctor is the profile persisted next to the session token.
type Doctor struct {
	ID    ID     `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the doctor's authenticated identity plus the opaque token.
// A Session value always carries both; absence is expressed by the caller
// (ok == false), never by a half-filled struct.
type Session struct {
	Token  string
	Doctor Doctor
}

// AuthResponse is the body of /auth/login and /auth/register. Profile
// fields arrive either flat or nested under "user".
type AuthResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	ID      ID     `json:"id"`
	User    *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		ID    ID     `json:"id"`
	} `json:"user,omitempty"`
}

// DoctorProfile is the body of GET /doctor/{id}.
type DoctorProfile struct {
	ID             ID     `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Specialization string `json:"specialization,omitempty"`
	Phone          string `json:"phone,omitempty"`
}
