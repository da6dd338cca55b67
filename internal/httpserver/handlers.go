package httpserver

import (
	"bytes"
	"errors"
	"html"
	"html/template"
	"log/slog"
	"mime"
	"net/http"

	"myconnectionsvr/loginportal/internal/audit"
	"myconnectionsvr/loginportal/internal/auth"
)

const (
	invalidCredentialsMessage = "Invalid credentials. Try again."
	multipartMaxMemory        = 32 << 20
)

var errMissingField = errors.New("missing form field")

func registerPortalHandlers(mux *http.ServeMux, deps Deps) {
	log := deps.Logger

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		if r.Method != http.MethodPost {
			renderPage(w, r, log, deps.Templates, loginTemplate, "Login")
			return
		}
		if deps.Auth == nil || deps.Sessions == nil {
			log.Error("login handler not configured")
			internalError(w)
			return
		}

		username, password, err := credentialsFromForm(r)
		if err != nil {
			log.Error("login form rejected", "error", err, "request_id", requestIDFromContext(r.Context()))
			internalError(w)
			return
		}

		if err := deps.Auth.Login(r.Context(), username, password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				auditReq(deps.Audit, log, r, username, audit.ActionLogin, audit.OutcomeFailure, "invalid credentials")
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte(invalidCredentialsMessage))
				return
			}
			log.Error("login failed", "error", err, "request_id", requestIDFromContext(r.Context()))
			auditReq(deps.Audit, log, r, username, audit.ActionLogin, audit.OutcomeError, err.Error())
			internalError(w)
			return
		}

		if err := deps.Sessions.SetUser(w, username); err != nil {
			log.Error("set session failed", "error", err, "request_id", requestIDFromContext(r.Context()))
			internalError(w)
			return
		}
		auditReq(deps.Audit, log, r, username, audit.ActionLogin, audit.OutcomeSuccess, "")
		http.Redirect(w, r, "/dashboard", http.StatusFound)
	})

	mux.HandleFunc("/register", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost) {
			return
		}
		if r.Method != http.MethodPost {
			renderPage(w, r, log, deps.Templates, registerTemplate, "Register")
			return
		}
		if deps.Auth == nil {
			log.Error("register handler not configured")
			internalError(w)
			return
		}

		username, password, err := credentialsFromForm(r)
		if err != nil {
			log.Error("register form rejected", "error", err, "request_id", requestIDFromContext(r.Context()))
			internalError(w)
			return
		}

		if err := deps.Auth.Register(r.Context(), username, password); err != nil {
			log.Error("register failed", "error", err, "request_id", requestIDFromContext(r.Context()))
			auditReq(deps.Audit, log, r, username, audit.ActionRegister, audit.OutcomeError, err.Error())
			internalError(w)
			return
		}
		auditReq(deps.Audit, log, r, username, audit.ActionRegister, audit.OutcomeSuccess, "")
		http.Redirect(w, r, "/", http.StatusFound)
	})

	mux.HandleFunc("/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		user, ok := sessionUser(deps.Sessions, r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		writeHTML(w, http.StatusOK, "Welcome, "+html.EscapeString(user)+"! <br><a href='/logout'>Logout</a>")
	})

	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet) {
			return
		}
		if deps.Sessions != nil {
			user, ok := deps.Sessions.User(r)
			deps.Sessions.Clear(w)
			if ok {
				auditReq(deps.Audit, log, r, user, audit.ActionLogout, audit.OutcomeSuccess, "")
			}
		}
		http.Redirect(w, r, "/", http.StatusFound)
	})
}

func sessionUser(s SessionManager, r *http.Request) (string, bool) {
	if s == nil {
		return "", false
	}
	return s.User(r)
}

// credentialsFromForm reads username and password from the request body,
// urlencoded or multipart. Both keys must be present; empty values are
// accepted.
func credentialsFromForm(r *http.Request) (string, string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(multipartMaxMemory); err != nil {
			return "", "", err
		}
	} else if err := r.ParseForm(); err != nil {
		return "", "", err
	}
	username, ok := r.PostForm["username"]
	if !ok || len(username) == 0 {
		return "", "", errMissingField
	}
	password, ok := r.PostForm["password"]
	if !ok || len(password) == 0 {
		return "", "", errMissingField
	}
	return username[0], password[0], nil
}

func renderPage(w http.ResponseWriter, r *http.Request, log *slog.Logger, tmpl *template.Template, name, title string) {
	if tmpl == nil {
		log.Error("templates not loaded", "template", name)
		internalError(w)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, pageData{Title: title}); err != nil {
		log.Error("render template failed", "template", name, "error", err, "request_id", requestIDFromContext(r.Context()))
		internalError(w)
		return
	}
	writeHTML(w, http.StatusOK, buf.String())
}
