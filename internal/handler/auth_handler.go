package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/taskman/internal/middleware"
	"github.com/hitoshi/taskman/internal/model"
)

// AuthServiceInterface はログイン処理に必要なユーザーサービスのインターフェース。
type AuthServiceInterface interface {
	Authenticate(ctx context.Context, email, password string) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

// SessionServiceInterface はセッションの開始と終了を行うインターフェース。
// auth.SessionManagerが実装する。
type SessionServiceInterface interface {
	Start(ctx context.Context, userID, userName string) (*model.Session, error)
	End(ctx context.Context, token string) error
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieDomain  string
	CookieSecure  bool
	SessionMaxAge int    // セッションCookieの有効期間（秒）
	LoginPath     string // ログアウト後のリダイレクト先
}

// AuthHandler はログイン・ログアウト関連のHTTPハンドラー。
type AuthHandler struct {
	users    AuthServiceInterface
	sessions SessionServiceInterface
	config   AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(users AuthServiceInterface, sessions SessionServiceInterface, config AuthHandlerConfig) *AuthHandler {
	if config.LoginPath == "" {
		config.LoginPath = "/login"
	}
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		config:   config,
	}
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginResponse はログイン成功時のレスポンス。
type loginResponse struct {
	Message string       `json:"message"`
	User    userResponse `json:"user"`
}

// Login は資格情報を検証し、新しいセッションを開始する。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	// 既存セッションは引き継がない
	if token := middleware.SessionTokenFromRequest(r); token != "" {
		if err := h.sessions.End(r.Context(), token); err != nil {
			slog.Error("failed to end previous session", slog.String("error", err.Error()))
		}
	}

	session, err := h.sessions.Start(r.Context(), user.ID, user.FullName)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	h.setSessionCookie(w, session.ID, h.config.SessionMaxAge)

	slog.Info("user logged in", slog.String("user_id", user.ID))

	writeJSON(w, http.StatusOK, loginResponse{
		Message: "Login successful",
		User:    toUserResponse(user),
	})
}

// Logout はセッションを破棄し、ログインページへリダイレクトする。
// GET /logout, POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionTokenFromRequest(r); token != "" {
		if err := h.sessions.End(r.Context(), token); err != nil {
			slog.Error("failed to logout", slog.String("error", err.Error()))
			// ログアウト失敗してもCookieはクリアする
		}
	}

	if userID, err := middleware.UserIDFromContext(r.Context()); err == nil {
		slog.Info("user logged out", slog.String("user_id", userID))
	}

	h.setSessionCookie(w, "", -1)
	http.Redirect(w, r, h.config.LoginPath, http.StatusFound)
}

// Me は現在のログインユーザー情報を返す。
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		handleServiceError(w, model.NewUnauthorizedError())
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		// セッションが残っていてもユーザーが存在しなければ未認証扱い
		var apiErr *model.APIError
		if errors.As(err, &apiErr) && apiErr.Code == model.ErrCodeUserNotFound {
			handleServiceError(w, model.NewUnauthorizedError())
			return
		}
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
