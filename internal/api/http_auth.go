package api

import (
	"net/http"
	"time"

	"catalog-admin-console/internal/auth"
	"catalog-admin-console/internal/ui"
)

// LoginInput defines the expected input for signing in.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Lang     string `json:"lang" validate:"omitempty,oneof=uz ru en"`
}

// SessionView is the public part of a session.
type SessionView struct {
	SessionID string    `json:"session_id"`
	Operator  string    `json:"operator"`
	Lang      string    `json:"lang"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var input LoginInput
	if err := h.decodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}

	session, err := h.auth.Login(ctx, input.Email, input.Password, input.Lang)
	if err != nil {
		ui.NotifierFrom(ctx, nil).Notify(ui.Error, ui.TranslatorFrom(ctx, nil).T("auth.loginFailed"))
		h.fail(w, r, err)
		return
	}
	ui.NotifierFrom(ctx, nil).Notify(ui.Success, h.messages.Lookup(session.Lang, "auth.loggedIn"))

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	h.respond(w, r, http.StatusOK, SessionView{
		SessionID: session.ID,
		Operator:  session.Operator,
		Lang:      session.Lang,
		UpdatedAt: session.UpdatedAt,
	})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if err := h.auth.Logout(r.Context(), session.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// LocaleInput defines the expected input for switching languages.
type LocaleInput struct {
	Lang string `json:"lang" validate:"required"`
}

func (h *HTTPHandler) SetLocale(w http.ResponseWriter, r *http.Request) {
	var input LocaleInput
	if err := h.decodeJSON(r, &input); err != nil {
		h.fail(w, r, err)
		return
	}
	session, err := h.auth.SetLocale(r.Context(), auth.FromContext(r.Context()).ID, input.Lang)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, SessionView{
		SessionID: session.ID,
		Operator:  session.Operator,
		Lang:      session.Lang,
		UpdatedAt: session.UpdatedAt,
	})
}
