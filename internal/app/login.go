package app

import (
	"database/sql"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/saurabh1e/pos-api/internal/auth"
	"github.com/saurabh1e/pos-api/internal/web/response"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string          `json:"token"`
	User  *auth.Principal `json:"user"`
}

// login verifies credentials against the users table and issues a
// signed token. Unknown email and wrong password are indistinguishable
// to the caller.
func (a *App) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RenderBadRequest(w, "request body must be a JSON object")
		return
	}
	if req.Email == "" || req.Password == "" {
		response.RenderBadRequest(w, "email and password are required")
		return
	}

	var (
		userID int64
		hash   string
	)
	err := a.DB.QueryRowContext(r.Context(),
		"SELECT id, password FROM users WHERE email = $1 AND active = TRUE",
		req.Email,
	).Scan(&userID, &hash)
	if err == sql.ErrNoRows {
		response.RenderUnauthorized(w, "invalid credentials")
		return
	}
	if err != nil {
		a.log.Error("login lookup failed", zap.Error(err))
		response.RenderInternalError(w)
		return
	}

	if !auth.CheckPassword(req.Password, hash) {
		response.RenderUnauthorized(w, "invalid credentials")
		return
	}

	token, err := a.Tokens.Generate(userID)
	if err != nil {
		a.log.Error("token generation failed", zap.Error(err))
		response.RenderInternalError(w)
		return
	}

	principal, err := a.Source.Load(r.Context(), userID)
	if err != nil {
		a.log.Error("principal load failed", zap.Int64("user_id", userID), zap.Error(err))
		response.RenderInternalError(w)
		return
	}

	response.RenderJSON(w, http.StatusOK, loginResponse{Token: token, User: principal})
}
