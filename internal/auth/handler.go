package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/2beens/watchstats/internal/telemetry/tracing"
	"github.com/2beens/watchstats/pkg"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=auth_test

type usersRepo interface {
	Add(ctx context.Context, user User) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
}

type sessions interface {
	Login(ctx context.Context, userID int) (string, error)
	Logout(ctx context.Context, token string) (bool, error)
}

type RegisterRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	User    *User  `json:"user"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	User    *User  `json:"user"`
	Token   string `json:"token"`
}

type Handler struct {
	repo     usersRepo
	sessions sessions
}

func NewHandler(repo usersRepo, sessions sessions) *Handler {
	return &Handler{
		repo:     repo,
		sessions: sessions,
	}
}

func (handler *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.register")
	defer span.End()

	var registerReq RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Tracef("register, unmarshal json params: %s", err)
		http.Error(w, "register failed", http.StatusBadRequest)
		return
	}

	registerReq.Email = strings.TrimSpace(registerReq.Email)
	if registerReq.FullName == "" || registerReq.Email == "" || registerReq.Password == "" {
		http.Error(w, "error, full name, email or password empty", http.StatusUnprocessableEntity)
		return
	}
	if !strings.Contains(registerReq.Email, "@") {
		http.Error(w, "error, invalid email", http.StatusUnprocessableEntity)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register, hash password: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	user, err := handler.repo.Add(ctx, User{
		FullName:     registerReq.FullName,
		Email:        registerReq.Email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		if pkg.IsUniqueViolationError(err) {
			http.Error(w, "error, email already taken", http.StatusConflict)
			return
		}
		log.Errorf("failed to register user [%s]: %s", registerReq.Email, err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(RegisterResponse{
		Success: true,
		Message: "User registered successfully",
		User:    user,
	})
	if err != nil {
		log.Errorf("failed to marshal register response: %s", err)
		http.Error(w, "register failed", http.StatusInternalServerError)
		return
	}

	log.Debugf("new user registered: %d", user.ID)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, respJson, http.StatusCreated)
}

func (handler *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.login")
	defer span.End()

	var loginReq LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Tracef("login, unmarshal json params: %s", err)
		http.Error(w, "login failed", http.StatusBadRequest)
		return
	}

	if loginReq.Email == "" || loginReq.Password == "" {
		http.Error(w, "error, email or password empty", http.StatusUnprocessableEntity)
		return
	}

	user, err := handler.repo.GetByEmail(ctx, loginReq.Email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		log.Errorf("login, get user [%s]: %s", loginReq.Email, err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	if user == nil || !pkg.CheckPasswordHash(loginReq.Password, user.PasswordHash) {
		userIP, ipErr := pkg.ReadUserIP(r)
		if ipErr != nil {
			userIP = r.RemoteAddr
		}
		log.Tracef("failed login attempt for user %s from %s", loginReq.Email, userIP)
		http.Error(w, "error, email or password incorrect", http.StatusUnauthorized)
		return
	}

	token, err := handler.sessions.Login(ctx, user.ID)
	if err != nil {
		log.Errorf("login failed, generate token error: %s", err)
		http.Error(w, "generate token error", http.StatusInternalServerError)
		return
	}

	respJson, err := json.Marshal(LoginResponse{
		Success: true,
		User:    user,
		Token:   token,
	})
	if err != nil {
		log.Errorf("failed to marshal login response: %s", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success: %d", user.ID)
	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := BearerToken(r)
	if token == "" {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.sessions.Logout(ctx, token)
	if err != nil {
		log.Errorf("logout: %s", err)
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}
	if !loggedOut {
		http.Error(w, "no can do", http.StatusUnauthorized)
		return
	}

	pkg.WriteJSONResponseOK(w, `{"success":true,"message":"Logged out successfully"}`)
}

// BearerToken extracts the session token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[len("Bearer "):])
}
