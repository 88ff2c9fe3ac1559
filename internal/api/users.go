package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"iot-ingest-backend/internal/apperr"
	"iot-ingest-backend/internal/users"
)

func (a *API) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/",
		Expires:  a.now().Add(a.refreshTTL),
		MaxAge:   int(a.refreshTTL.Seconds()),
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	in := users.CreateInput{Name: req.Name, Email: req.Email, Password: req.Password}
	if req.DateOfBirth.Set {
		in.DateOfBirth = &req.DateOfBirth.Time
	}
	user, tokens, err := a.users.Create(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.setRefreshCookie(w, tokens.RefreshToken)
	respond(w, http.StatusCreated, "User created", SessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	user, tokens, err := a.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.setRefreshCookie(w, tokens.RefreshToken)
	respond(w, http.StatusOK, "Login successful", SessionResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	})
}

// RefreshToken takes the refresh token from the cookie, or from the body for
// clients that do not keep cookies.
func (a *API) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var token string
	if c, err := r.Cookie(refreshCookie); err == nil {
		token = c.Value
	}
	if token == "" && r.ContentLength != 0 {
		var req RefreshRequest
		if err := decode(r, &req); err != nil {
			fail(w, r, err)
			return
		}
		token = req.RefreshToken
	}
	if token == "" {
		fail(w, r, apperr.New(apperr.ErrUnauthorized, "Refresh token not found"))
		return
	}
	tokens, err := a.users.Refresh(r.Context(), token)
	if err != nil {
		fail(w, r, err)
		return
	}
	a.setRefreshCookie(w, tokens.RefreshToken)
	respond(w, http.StatusOK, "Token refreshed", tokens)
}

func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.secureCookies,
		SameSite: http.SameSiteStrictMode,
	})
	respond(w, http.StatusOK, "Logged out", nil)
}

func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := a.users.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", list)
}

func (a *API) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.users.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "Success", user)
}

func (a *API) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UpdateUserRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	user, err := a.users.Update(r.Context(), chi.URLParam(r, "id"), req.Name, req.Email)
	if err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User updated", user)
}

func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.users.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		fail(w, r, err)
		return
	}
	respond(w, http.StatusOK, "User deleted", nil)
}
