// Package apitest provides an in-process fake of the PVault RemoteAPI for
// tests. Doctor tokens are real HS256 JWTs so bearer handling is exercised
// end to end.
package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/pvault/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultOTP is the code issued by RequestOtp unless OTP is changed.
const DefaultOTP = "123456"

// Artifact is a stored prescription file.
type Artifact struct {
	ID          int64
	DoctorID    int64
	FileName    string
	ContentType string
	Data        []byte
	UploadedAt  time.Time

	PatientName  string
	PatientEmail string
	PatientPhone string
	Gender       string
	Age          *int
	BloodGroup   string
}

type doctor struct {
	ID       int64
	Name     string
	Email    string
	Password string
}

// Request is one recorded call.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

type Server struct {
	*httptest.Server

	// OTP is the code handed out by request-otp.
	OTP string
	// Intercept, when set, may answer a request before the normal routes;
	// returning true marks it handled.
	Intercept func(w http.ResponseWriter, r *http.Request) bool

	mu        sync.Mutex
	key       []byte
	gen       int
	nextID    int64
	doctors   map[string]*doctor
	artifacts map[int64]*Artifact
	issued    map[string]string
	requests  []Request
}

// NewServer starts a fake API. It is closed by t's cleanup when t is given.
func NewServer(t interface{ Cleanup(func()) }) *Server {
	s := &Server{
		OTP:       DefaultOTP,
		key:       []byte("pvault-test-signing-key"),
		nextID:    1,
		doctors:   map[string]*doctor{},
		artifacts: map[int64]*Artifact{},
		issued:    map[string]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("GET /api/doctor/prescriptions", s.auth(s.handleOwnPrescriptions))
	mux.HandleFunc("GET /api/doctor/{id}/prescriptions", s.auth(s.handleDoctorPrescriptions))
	mux.HandleFunc("GET /api/doctor/{id}", s.auth(s.handleProfile))
	mux.HandleFunc("POST /api/doctor/upload-prescription", s.auth(s.handleUpload))
	mux.HandleFunc("GET /api/patient/download", s.handleDownload)
	mux.HandleFunc("POST /api/patient/request-otp", s.handleRequestOtp)
	mux.HandleFunc("POST /api/patient/verify-otp", s.handleVerifyOtp)

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get(common.AuthorizationHeaderName),
			RequestID:     r.Header.Get(common.RequestIDHeaderName),
		})
		intercept := s.Intercept
		s.mu.Unlock()

		if intercept != nil && intercept(w, r) {
			return
		}
		mux.ServeHTTP(w, r)
	}))
	if t != nil {
		t.Cleanup(s.Close)
	}
	return s
}

// BaseURL is the API root to hand to api.New.
func (s *Server) BaseURL() string { return s.URL + "/api" }

// Requests returns a copy of every recorded call.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// AddDoctor registers a doctor directly and returns its id.
func (s *Server) AddDoctor(name, email, password string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addDoctorLocked(name, email, password).ID
}

func (s *Server) addDoctorLocked(name, email, password string) *doctor {
	d := &doctor{ID: s.nextID, Name: name, Email: email, Password: password}
	s.nextID++
	s.doctors[strings.ToLower(email)] = d
	return d
}

// AddArtifact stores a prescription file and returns its id.
func (s *Server) AddArtifact(a Artifact) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.nextID
	s.nextID++
	if a.UploadedAt.IsZero() {
		a.UploadedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	}
	s.artifacts[a.ID] = &a
	return a.ID
}

// Token mints a valid bearer token for the doctor id.
func (s *Server) Token(doctorID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenLocked(doctorID)
}

func (s *Server) tokenLocked(doctorID int64) string {
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(doctorID, 10),
		"gen": s.gen,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		panic(err)
	}
	return signed
}

// RevokeTokens invalidates every token issued so far.
func (s *Server) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
}

func (s *Server) doctorFromToken(raw string) (*doctor, error) {
	token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims")
	}
	gen, _ := claims["gen"].(float64)
	sub, _ := claims.GetSubject()

	s.mu.Lock()
	defer s.mu.Unlock()
	if int(gen) != s.gen {
		return nil, errors.New("token revoked")
	}
	for _, d := range s.doctors {
		if strconv.FormatInt(d.ID, 10) == sub {
			return d, nil
		}
	}
	return nil, errors.New("unknown doctor")
}

type ctxDoctor func(w http.ResponseWriter, r *http.Request, d *doctor)

func (s *Server) auth(next ctxDoctor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := r.Header.Get(common.AuthorizationHeaderName)
		raw, ok := strings.CutPrefix(h, common.BearerPrefix)
		if !ok || raw == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		d, err := s.doctorFromToken(raw)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r, d)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.doctors[strings.ToLower(in.Email)]
	if !ok || d.Password != in.Password {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"token":   s.tokenLocked(d.ID),
		"id":      d.ID,
		"name":    d.Name,
		"email":   d.Email,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Email == "" || in.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Name, email and password are required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.doctors[strings.ToLower(in.Email)]; exists {
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	d := s.addDoctorLocked(in.Name, in.Email, in.Password)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Registration successful",
		"token":   s.tokenLocked(d.ID),
		"user":    map[string]any{"id": d.ID, "name": d.Name, "email": d.Email},
	})
}

func (s *Server) summaries(match func(*Artifact) bool, withDoctor bool) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := map[int64]*doctor{}
	for _, d := range s.doctors {
		byID[d.ID] = d
	}

	out := []map[string]any{}
	for _, a := range s.artifacts {
		if !match(a) {
			continue
		}
		m := map[string]any{
			"id":                a.ID,
			"fileName":          a.FileName,
			"uploadedAt":        a.UploadedAt.Format("2006-01-02T15:04:05"),
			"patientName":       a.PatientName,
			"patientEmail":      a.PatientEmail,
			"patientPhone":      a.PatientPhone,
			"patientGender":     a.Gender,
			"patientBloodGroup": a.BloodGroup,
		}
		if a.Age != nil {
			m["patientAge"] = *a.Age
		}
		if d := byID[a.DoctorID]; withDoctor && d != nil {
			m["doctorName"] = d.Name
			m["doctorEmail"] = d.Email
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i]["id"].(int64) < out[j]["id"].(int64) })
	return out
}

func (s *Server) handleOwnPrescriptions(w http.ResponseWriter, _ *http.Request, d *doctor) {
	writeJSON(w, http.StatusOK, s.summaries(func(a *Artifact) bool { return a.DoctorID == d.ID }, false))
}

func (s *Server) handleDoctorPrescriptions(w http.ResponseWriter, r *http.Request, _ *doctor) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.summaries(func(a *Artifact) bool { return a.DoctorID == id }, false))
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request, caller *doctor) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "Doctor not found", http.StatusNotFound)
		return
	}
	if id != caller.ID {
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Access denied"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": caller.ID, "name": caller.Name, "email": caller.Email})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, d *doctor) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Malformed form"})
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "File is required"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Unreadable file"})
		return
	}

	a := Artifact{
		DoctorID:     d.ID,
		FileName:     fmt.Sprintf("%d_%s", time.Now().UnixMilli(), header.Filename),
		ContentType:  header.Header.Get("Content-Type"),
		Data:         data,
		PatientName:  r.FormValue("patientName"),
		PatientEmail: r.FormValue("patientEmail"),
		PatientPhone: r.FormValue("patientPhone"),
		Gender:       r.FormValue("gender"),
		BloodGroup:   r.FormValue("bloodGroup"),
	}
	if v := r.FormValue("age"); v != "" {
		if age, err := strconv.Atoi(v); err == nil {
			a.Age = &age
		}
	}
	if a.PatientName == "" || a.PatientEmail == "" || a.PatientPhone == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "Missing patient details"})
		return
	}
	id := s.AddArtifact(a)
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "fileName": a.FileName, "message": "Prescription uploaded"})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		http.Error(w, "Prescription not found", http.StatusNotFound)
		return
	}
	s.mu.Lock()
	a, ok := s.artifacts[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "Prescription not found", http.StatusNotFound)
		return
	}
	if a.ContentType != "" {
		w.Header().Set("Content-Type", a.ContentType)
	} else {
		// suppress content sniffing so the client sees no type at all
		w.Header()["Content-Type"] = nil
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.FileName))
	_, _ = w.Write(a.Data)
}

func (s *Server) handleRequestOtp(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(r.URL.Query().Get("email"))
	if email == "" {
		http.Error(w, "Email is required", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.issued[email] = s.OTP
	s.mu.Unlock()
	_, _ = io.WriteString(w, "OTP sent to "+email)
}

func (s *Server) handleVerifyOtp(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(r.URL.Query().Get("email"))
	otp := r.URL.Query().Get("otp")

	s.mu.Lock()
	want, ok := s.issued[email]
	if ok && want == otp {
		delete(s.issued, email)
	}
	s.mu.Unlock()

	if !ok || want != otp {
		http.Error(w, "Invalid or expired OTP", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, s.summaries(func(a *Artifact) bool {
		return strings.EqualFold(a.PatientEmail, email)
	}, true))
}
