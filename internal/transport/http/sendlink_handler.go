package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"pledgeboard/internal/app"
	"pledgeboard/internal/auth"
	mailsvc "pledgeboard/internal/mail"
	"pledgeboard/internal/ratelimit"
)

// genericOK deliberately hides whether the address exists or the send
// worked, so the endpoint cannot be used to enumerate accounts.
const genericOK = "If eligible, you will receive a sign-in link"

// SendLinkHandler serves POST /send-link: validate the institutional
// address, rate limit per address, mint a one-time sign-in link, and mail
// it.
type SendLinkHandler struct {
	identity      auth.Identity
	mailer        mailsvc.Mailer
	limiter       *ratelimit.Limiter
	stats         *app.StatsService
	log           *zap.Logger
	allowedDomain string
	allowedOrigin string
	appName       string
}

func NewSendLinkHandler(identity auth.Identity, mailer mailsvc.Mailer, limiter *ratelimit.Limiter,
	stats *app.StatsService, log *zap.Logger, allowedDomain, allowedOrigin, appName string) *SendLinkHandler {
	if allowedOrigin == "" {
		allowedOrigin = "*"
	}
	return &SendLinkHandler{
		identity:      identity,
		mailer:        mailer,
		limiter:       limiter,
		stats:         stats,
		log:           log,
		allowedDomain: strings.ToLower(allowedDomain),
		allowedOrigin: allowedOrigin,
		appName:       appName,
	}
}

type sendLinkRequest struct {
	Email string `json:"email"`
}

type apiResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *SendLinkHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.cors(w)

	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, apiResponse{Success: false, Message: "Method not allowed"})
		return
	}

	var req sendLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: genericOK})
		return
	}

	email, ok := h.eligible(req.Email)
	if !ok {
		// Ineligible input reports generic success; nothing reaches the
		// rate limiter or the log beyond diagnostics.
		h.log.Debug("send-link: ineligible address rejected")
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: genericOK})
		return
	}

	if d := h.limiter.Allow(email); !d.Allowed {
		writeJSON(w, http.StatusTooManyRequests, apiResponse{Success: false, Message: d.Message})
		return
	}

	h.dispatch(r.Context(), w, email)
}

// eligible validates shape and institutional domain, returning the
// normalized address.
func (h *SendLinkHandler) eligible(raw string) (string, bool) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	email := strings.ToLower(addr.Address)
	if h.allowedDomain != "" && !strings.HasSuffix(email, h.allowedDomain) {
		return "", false
	}
	return email, true
}

func (h *SendLinkHandler) dispatch(ctx context.Context, w http.ResponseWriter, email string) {
	link, err := h.identity.MintSignInLink(ctx, email)
	if err != nil {
		h.log.Error("send-link: mint failed", zap.Error(err))
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: genericOK})
		return
	}

	msg := mailsvc.Message{
		To:       email,
		Subject:  "Sign in to " + h.appName,
		TextBody: "Click the link below to securely sign in. It expires in 1 hour and can be used once.\n\n" + link,
		HTMLBody: signInHTML(h.appName, link),
	}
	if err := h.mailer.Send(ctx, msg); err != nil {
		// Genuine send failures also report generic success.
		h.log.Error("send-link: send failed", zap.Error(err))
		writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: genericOK})
		return
	}

	h.stats.NoteLinkRequest(ctx, email, "")
	writeJSON(w, http.StatusOK, apiResponse{Success: true, Message: genericOK})
}

func (h *SendLinkHandler) cors(w http.ResponseWriter) {
	header := w.Header()
	header.Set("Access-Control-Allow-Origin", h.allowedOrigin)
	header.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	header.Set("Access-Control-Allow-Headers", "Content-Type")
	header.Set("Access-Control-Allow-Credentials", "true")
}

func signInHTML(appName, link string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>Sign in to " + appName + "</h2>")
	b.WriteString("<p>Click the button below to securely sign in. This link expires in 1 hour.</p>")
	b.WriteString(`<p><a href="` + link + `">Sign in</a></p>`)
	b.WriteString("<p>If you didn't request this email, you can safely ignore it. This link can only be used once.</p>")
	b.WriteString("</body></html>")
	return b.String()
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
