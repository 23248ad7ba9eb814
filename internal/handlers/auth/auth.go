package auth

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"gitlab.com/fcv-2025.net/assessment/internal/config"
	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/auth"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers/response"
)

const (
	stateCookie     = "oauth_state"
	googleUserInfo  = "https://www.googleapis.com/oauth2/v3/userinfo"
	stateCookieLife = 10 * time.Minute
)

type ServiceDependencies struct {
	GGAuthService    auth.IAuthService
	LocalAuthService auth.IAuthService
}

// GoogleUser struct to decode Google API response
type GoogleUser struct {
	ID    string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type LoginRequest struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

type Handler struct {
	providerHandler map[domain.Provider]auth.IAuthService
	oauthConfig     *oauth2.Config
	userInfoURL     string
	logger          primary.Logger
}

func NewHandler(cfg *config.GGAuthConfig, logger primary.Logger) *Handler {
	return &Handler{
		providerHandler: make(map[domain.Provider]auth.IAuthService),
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfo,
		logger:      logger,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router, svcDep *ServiceDependencies) {
	h.providerHandler[domain.ProviderGoogle] = svcDep.GGAuthService
	h.providerHandler[domain.ProviderLocal] = svcDep.LocalAuthService
	router.HandleFunc("/auth/login", h.LocalLoginHandler).Methods(http.MethodPost)
	router.HandleFunc("/auth/google", h.GoogleLoginHandler).Methods(http.MethodGet)
	router.HandleFunc("/auth/callback", h.GoogleCallbackHandler).Methods(http.MethodGet)
}

// LocalLoginHandler signs in with a user name and password
func (h *Handler) LocalLoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserName == "" {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid request", StatusCode: http.StatusBadRequest})
		return
	}

	loginResponse, err := h.providerHandler[domain.ProviderLocal].Login(r.Context(), &domain.Users{
		UserName:     req.UserName,
		AuthProvider: string(domain.ProviderLocal),
	}, req.Password)
	if err != nil {
		h.logger.Debug("Local login refused", "userName", req.UserName, "error", err)
		response.FromError(w, err)
		return
	}
	response.WriteSuccess(w, loginResponse)
}

// GoogleLoginHandler redirects user to Google OAuth2 login
func (h *Handler) GoogleLoginHandler(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/auth",
		Expires:  time.Now().Add(stateCookieLife),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.oauthConfig.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallbackHandler handles Google OAuth2 callback
func (h *Handler) GoogleCallbackHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		response.WriteError(w, response.ErrorMessage{Message: "Invalid OAuth state", StatusCode: http.StatusBadRequest})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		response.WriteError(w, response.ErrorMessage{Message: "No code in URL", StatusCode: http.StatusBadRequest})
		return
	}

	token, err := h.oauthConfig.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("Failed to exchange OAuth code", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to get token", StatusCode: http.StatusBadGateway})
		return
	}

	resp, err := h.oauthConfig.Client(ctx, token).Get(h.userInfoURL)
	if err != nil {
		h.logger.Error("Failed to get Google user info", "error", err)
		response.WriteError(w, response.ErrorMessage{Message: "Failed to get user info", StatusCode: http.StatusBadGateway})
		return
	}
	defer resp.Body.Close()

	var googleUser GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		response.WriteError(w, response.ErrorMessage{Message: "Failed to decode user info", StatusCode: http.StatusBadGateway})
		return
	}

	loginResponse, err := h.providerHandler[domain.ProviderGoogle].Login(ctx, &domain.Users{
		GoogleID:     &googleUser.ID,
		Email:        &googleUser.Email,
		AuthProvider: string(domain.ProviderGoogle),
	}, "")
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.WriteSuccess(w, loginResponse)
}
