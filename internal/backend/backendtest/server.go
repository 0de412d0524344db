// Package backendtest hosts an in-process fake of the hosted backend:
// identity provider, relational store, object storage, and mail
// endpoint. Tests drive the real HTTP clients against it, including
// the profile provisioning lag the coordinator must tolerate.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var signingKey = []byte("backendtest-signing-key")

type account struct {
	id           uuid.UUID
	email        string
	passwordHash []byte
	metadata     map[string]string
}

// Server is the fake backend. All exported mutators are safe for
// concurrent use with request handling.
type Server struct {
	Router chi.Router

	// ProvisionDelay is how long after signup the profile row stays
	// invisible, simulating the backend's provisioning trigger lag.
	ProvisionDelay time.Duration

	mu             sync.Mutex
	accounts       map[string]*account // by email
	refreshTokens  map[string]uuid.UUID
	recoveryTokens map[string]uuid.UUID
	tables         map[string][]map[string]any
	visibleAt      map[string]time.Time // profiles row id -> provisioning time
	failures       map[string]int       // "method table" -> remaining injected failures
	objects        map[string][]byte
	sentMail       []MailMessage
	resetEmails    []string
}

// MailMessage records a call to the mail endpoint.
type MailMessage struct {
	Kind string `json:"kind"`
	To   string `json:"to"`
}

// New constructs the fake backend.
func New() *Server {
	s := &Server{
		accounts:       make(map[string]*account),
		refreshTokens:  make(map[string]uuid.UUID),
		recoveryTokens: make(map[string]uuid.UUID),
		tables:         make(map[string][]map[string]any),
		visibleAt:      make(map[string]time.Time),
		failures:       make(map[string]int),
		objects:        make(map[string][]byte),
	}

	r := chi.NewRouter()
	r.Post("/auth/v1/signup", s.handleSignup)
	r.Post("/auth/v1/token", s.handleToken)
	r.Post("/auth/v1/logout", s.handleLogout)
	r.Post("/auth/v1/recover", s.handleRecover)
	r.Put("/auth/v1/user", s.handleUpdateUser)
	r.HandleFunc("/rest/v1/{table}", s.handleTable)
	r.Post("/storage/v1/object/{bucket}/*", s.handleUpload)
	r.Delete("/storage/v1/object/{bucket}", s.handleRemoveObjects)
	r.Post("/functions/v1/send-email", s.handleSendEmail)
	s.Router = r

	return s
}

// Register creates an account directly, bypassing the signup endpoint.
func (s *Server) Register(email, password string, metadata map[string]string) uuid.UUID {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := &account{id: uuid.New(), email: email, passwordHash: hash, metadata: metadata}
	s.accounts[email] = acc
	return acc.id
}

// Seed appends a row to a table, immediately visible.
func (s *Server) Seed(table string, row map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[table] = append(s.tables[table], row)
}

// Rows returns a copy of a table's currently visible rows.
func (s *Server) Rows(table string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.visibleRowsLocked(table)
}

// FailNext makes the next n requests of the given method against the
// table answer 500.
func (s *Server) FailNext(method, table string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method+" "+table] = n
}

// IssueRecoveryToken returns a recovery token for email, as the
// recovery link in a real reset mail would carry.
func (s *Server) IssueRecoveryToken(email string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return ""
	}
	token := "rec_" + uuid.NewString()
	s.recoveryTokens[token] = acc.id
	return token
}

// SentMail returns all messages received by the mail endpoint.
func (s *Server) SentMail() []MailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MailMessage(nil), s.sentMail...)
}

// ResetRequests returns the emails passed to the recover endpoint.
func (s *Server) ResetRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.resetEmails...)
}

// Object returns an uploaded object's bytes, if present.
func (s *Server) Object(path string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	return data, ok
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string            `json:"email"`
		Password string            `json:"password"`
		Data     map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed signup")
		return
	}

	s.mu.Lock()
	if _, exists := s.accounts[req.Email]; exists {
		s.mu.Unlock()
		writeError(w, http.StatusUnprocessableEntity, "user already registered")
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	acc := &account{id: uuid.New(), email: req.Email, passwordHash: hash, metadata: req.Data}
	s.accounts[req.Email] = acc

	// The provisioning trigger: the profile row exists but stays
	// invisible for ProvisionDelay.
	rowID := uuid.NewString()
	s.tables["profiles"] = append(s.tables["profiles"], map[string]any{
		"id":         acc.id.String(),
		"email":      acc.email,
		"first_name": req.Data["first_name"],
		"last_name":  req.Data["last_name"],
		"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
		"_row":       rowID,
	})
	s.visibleAt[rowID] = time.Now().Add(s.ProvisionDelay)
	s.mu.Unlock()

	s.writeSession(w, acc)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	grant := r.URL.Query().Get("grant_type")
	var req struct {
		Email        string `json:"email"`
		Password     string `json:"password"`
		RefreshToken string `json:"refresh_token"`
		Token        string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed token request")
		return
	}

	s.mu.Lock()
	var acc *account
	switch grant {
	case "password":
		candidate, ok := s.accounts[req.Email]
		if ok && bcrypt.CompareHashAndPassword(candidate.passwordHash, []byte(req.Password)) == nil {
			acc = candidate
		}
	case "refresh_token":
		if id, ok := s.refreshTokens[req.RefreshToken]; ok {
			delete(s.refreshTokens, req.RefreshToken)
			acc = s.accountByIDLocked(id)
		}
	case "recovery":
		if id, ok := s.recoveryTokens[req.Token]; ok {
			delete(s.recoveryTokens, req.Token)
			acc = s.accountByIDLocked(id)
		}
	}
	s.mu.Unlock()

	if acc == nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	s.writeSession(w, acc)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed recover request")
		return
	}
	s.mu.Lock()
	s.resetEmails = append(s.resetEmails, req.Email)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	acc := s.authenticate(r)
	if acc == nil {
		writeError(w, http.StatusUnauthorized, "missing or invalid token")
		return
	}
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "malformed user update")
		return
	}
	hash, _ := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.MinCost)
	s.mu.Lock()
	acc.passwordHash = hash
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var msg MailMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "malformed mail request")
		return
	}
	s.mu.Lock()
	s.sentMail = append(s.sentMail, msg)
	s.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	path := chi.URLParam(r, "*")
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body")
		return
	}
	s.mu.Lock()
	s.objects[path] = data
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRemoveObjects(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Prefixes []string `json:"prefixes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed remove request")
		return
	}
	s.mu.Lock()
	for _, p := range req.Prefixes {
		delete(s.objects, p)
	}
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func (s *Server) writeSession(w http.ResponseWriter, acc *account) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   acc.id.String(),
		"email": acc.email,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sign token")
		return
	}

	refresh := "ref_" + uuid.NewString()
	s.mu.Lock()
	s.refreshTokens[refresh] = acc.id
	metadata := acc.metadata
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  token,
		"refresh_token": refresh,
		"expires_in":    3600,
		"user": map[string]any{
			"id":            acc.id.String(),
			"email":         acc.email,
			"user_metadata": metadata,
		},
	})
}

func (s *Server) authenticate(r *http.Request) *account {
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if bearer == "" {
		return nil
	}
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(bearer, claims, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	})
	if err != nil {
		return nil
	}
	sub, _ := claims.GetSubject()
	id, err := uuid.Parse(sub)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accountByIDLocked(id)
}

func (s *Server) accountByIDLocked(id uuid.UUID) *account {
	for _, acc := range s.accounts {
		if acc.id == id {
			return acc
		}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg, "message": msg})
}
