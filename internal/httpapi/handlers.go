package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"incubator-platform/internal/audit"
	"incubator-platform/internal/auth"
	"incubator-platform/internal/identity"
	"incubator-platform/internal/incubation"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, record explicit audit events, return JSON.
type Handlers struct {
	Identity   *identity.Service
	Codec      *auth.Codec
	Audit      *audit.Service
	Incubation *incubation.Service
	// DB answers the status probe; nil reports the store as unavailable.
	DB  *sql.DB
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func message(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"message": msg})
}

// internalError attaches err so the capture pipeline records the request as a fault.
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	message(c, http.StatusInternalServerError, "Internal server error")
}

// --- Auth ---

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Register(c *gin.Context) {
	ctx := c.Request.Context()
	req := audit.RequestFromGin(c)

	var in registerRequest
	_ = c.ShouldBindJSON(&in)

	created, err := h.Identity.Register(ctx, identity.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	switch {
	case errors.Is(err, identity.ErrMissingFields):
		h.Audit.CRUD(ctx, req, nil, "users", "CREATE_FAILED", nil, map[string]any{"erro": "campos_faltando"})
		message(c, http.StatusBadRequest, "Missing required fields!")
		return
	case errors.Is(err, identity.ErrUsernameTaken):
		h.Audit.CRUD(ctx, req, nil, "users", "CREATE_FAILED", nil, map[string]any{"erro": "username_existe", "username": in.Username})
		message(c, http.StatusBadRequest, "Username already exists!")
		return
	case errors.Is(err, identity.ErrEmailTaken):
		h.Audit.CRUD(ctx, req, nil, "users", "CREATE_FAILED", nil, map[string]any{"erro": "email_existe", "email": in.Email})
		message(c, http.StatusBadRequest, "Email already exists!")
		return
	case err != nil:
		internalError(c, err)
		return
	}

	h.Audit.CRUD(ctx, req, nil, "users", "CREATE", created.ID, map[string]any{"username": created.Username, "email": created.Email})
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully!"})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	ctx := c.Request.Context()
	req := audit.RequestFromGin(c)

	var in loginRequest
	_ = c.ShouldBindJSON(&in)
	if in.Username == "" || in.Password == "" {
		h.Audit.LoginAttempt(ctx, req, "", false, "campos_faltando")
		message(c, http.StatusBadRequest, "Missing username or password!")
		return
	}

	i, err := h.Identity.Authenticate(ctx, in.Username, in.Password)
	if errors.Is(err, identity.ErrInvalidCredentials) {
		h.Audit.LoginAttempt(ctx, req, in.Username, false, "credenciais_invalidas")
		message(c, http.StatusUnauthorized, "Invalid username or password!")
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}

	token, err := h.Codec.IssueFor(h.now(), i)
	if err != nil {
		internalError(c, err)
		return
	}
	h.Audit.LoginAttempt(ctx, req, in.Username, true, "")
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// Logout only records the event; tokens stay valid until they expire.
func (h Handlers) Logout(c *gin.Context, actor identity.Identity) {
	h.Audit.Logout(c.Request.Context(), audit.RequestFromGin(c), actor)
	c.JSON(http.StatusOK, gin.H{"message": "Logout realizado com sucesso"})
}

// --- Audit ---

// Logs answers the elevated audit query. Filters: usuario_id, acao, data_inicio, data_fim, limite.
func (h Handlers) Logs(c *gin.Context, actor identity.Identity) {
	f, err := audit.ParseFilter(c.Request.URL.Query())
	if err != nil {
		message(c, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := h.Audit.Query(c.Request.Context(), f)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, recs)
}

// --- Status ---

func (h Handlers) Status(c *gin.Context) {
	if h.DB == nil {
		internalError(c, errors.New("database not configured"))
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	var dbNow time.Time
	if err := h.DB.QueryRowContext(ctx, "SELECT CURRENT_TIMESTAMP").Scan(&dbNow); err != nil {
		_ = c.Error(err)
		message(c, http.StatusInternalServerError, "Erro ao recuperar hora")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"mensagem":     "Bem-vindo ao Backend do Sistema Embryotech",
		"data_hora":    dbNow.UTC().Format(time.RFC3339),
		"fuso_horario": "UTC",
	})
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Screen answers the page routes. Rendering lives in the front end; the route exists so page
// views are recorded.
func Screen(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tela":           name,
			"logout_success": c.Query("logout") == "success",
		})
	}
}
