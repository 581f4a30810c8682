package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"incubator-platform/internal/audit"
	"incubator-platform/internal/identity"
	"incubator-platform/internal/incubation"

	"github.com/gin-gonic/gin"
)

func (h Handlers) incubationError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, incubation.ErrNotFound):
		message(c, http.StatusNotFound, notFound)
	case errors.Is(err, incubation.ErrMissingFields):
		message(c, http.StatusBadRequest, "Empresa, lote, temperatura e umidade são obrigatórios")
	case errors.Is(err, incubation.ErrInvalidInput):
		message(c, http.StatusBadRequest, err.Error())
	default:
		internalError(c, err)
	}
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

// --- Readings ---

// CreateReadings accepts a single reading object or an array of them.
func (h Handlers) CreateReadings(c *gin.Context, actor identity.Identity) {
	ctx := c.Request.Context()
	req := audit.RequestFromGin(c)

	if c.ContentType() != gin.MIMEJSON {
		message(c, http.StatusBadRequest, "O corpo da requisição deve ser JSON")
		return
	}
	in, err := decodeReadings(c.Request.Body)
	if err == nil {
		var created []incubation.Reading
		created, err = h.Incubation.CreateReadings(ctx, in)
		if err == nil {
			h.Audit.CRUD(ctx, req, &actor, "leituras", "CREATE_BATCH", nil, map[string]any{"quantidade": len(created)})
			c.JSON(http.StatusCreated, gin.H{
				"message":    fmt.Sprintf("%d leituras criadas com sucesso", len(created)),
				"quantidade": len(created),
			})
			return
		}
	}

	h.Audit.CRUD(ctx, req, &actor, "leituras", "CREATE_FAILED", nil, map[string]any{"erro": err.Error()})
	message(c, http.StatusBadRequest, "Erro ao processar os dados: "+err.Error())
}

func decodeReadings(body io.Reader) ([]incubation.ReadingInput, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty body", incubation.ErrInvalidInput)
	}
	if raw[0] == '[' {
		var many []incubation.ReadingInput
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one incubation.ReadingInput
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []incubation.ReadingInput{one}, nil
}

func (h Handlers) ListReadings(c *gin.Context, actor identity.Identity) {
	rs, err := h.Incubation.ListReadings(c.Request.Context(), c.Query("lote"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, rs)
}

func (h Handlers) UpdateReading(c *gin.Context, actor identity.Identity) {
	const notFound = "Leitura não encontrada"
	id, ok := pathID(c)
	if !ok {
		message(c, http.StatusNotFound, notFound)
		return
	}
	var u incubation.ReadingUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		message(c, http.StatusBadRequest, "Erro ao processar os dados: "+err.Error())
		return
	}

	before, _, err := h.Incubation.UpdateReading(c.Request.Context(), id, u)
	if err != nil {
		h.incubationError(c, err, notFound)
		return
	}
	req := audit.RequestFromGin(c)
	h.Audit.CRUD(c.Request.Context(), req, &actor, "leituras", "UPDATE", id, map[string]any{
		"anteriores": before,
		"novos":      req.Body,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Leitura atualizada com sucesso"})
}

func (h Handlers) DeleteReading(c *gin.Context, actor identity.Identity) {
	const notFound = "Leitura não encontrada"
	id, ok := pathID(c)
	if !ok {
		message(c, http.StatusNotFound, notFound)
		return
	}
	deleted, err := h.Incubation.DeleteReading(c.Request.Context(), id)
	if err != nil {
		h.incubationError(c, err, notFound)
		return
	}
	h.Audit.CRUD(c.Request.Context(), audit.RequestFromGin(c), &actor, "leituras", "DELETE", id, map[string]any{
		"id":          deleted.ID,
		"lote":        deleted.Batch,
		"temperatura": deleted.Temperature,
	})
	c.JSON(http.StatusOK, gin.H{"message": "Leitura deletada com sucesso"})
}

// --- Parameters ---

func (h Handlers) CreateParameter(c *gin.Context, actor identity.Identity) {
	ctx := c.Request.Context()
	req := audit.RequestFromGin(c)

	var in incubation.ParameterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		message(c, http.StatusBadRequest, "Erro ao salvar parâmetro: "+err.Error())
		return
	}
	p, err := h.Incubation.CreateParameter(ctx, in)
	if err != nil {
		if !errors.Is(err, incubation.ErrMissingFields) {
			h.Audit.CRUD(ctx, req, &actor, "parametros", "CREATE_FAILED", nil, map[string]any{"erro": err.Error()})
		}
		h.incubationError(c, err, "Parâmetro não encontrado")
		return
	}
	h.Audit.CRUD(ctx, req, &actor, "parametros", "CREATE", p.ID, map[string]any{"empresa": p.Company, "lote": p.Batch})
	c.JSON(http.StatusCreated, gin.H{"message": "Parâmetro criado com sucesso!", "parametro": p})
}

func (h Handlers) FindParameters(c *gin.Context, actor identity.Identity) {
	ps, err := h.Incubation.FindParameters(c.Request.Context(), c.Query("empresa"), c.Query("lote"))
	if errors.Is(err, incubation.ErrMissingFields) {
		message(c, http.StatusBadRequest, "Empresa e lote são obrigatórios")
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, ps)
}

func (h Handlers) UpdateParameter(c *gin.Context, actor identity.Identity) {
	const notFound = "Parâmetro não encontrado"
	ctx := c.Request.Context()
	id, ok := pathID(c)
	if !ok {
		message(c, http.StatusNotFound, notFound)
		return
	}
	var u incubation.ParameterUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		message(c, http.StatusBadRequest, "Erro ao atualizar parâmetro: "+err.Error())
		return
	}

	req := audit.RequestFromGin(c)
	before, after, err := h.Incubation.UpdateParameter(ctx, id, u)
	if err != nil {
		if !errors.Is(err, incubation.ErrNotFound) {
			h.Audit.CRUD(ctx, req, &actor, "parametros", "UPDATE_FAILED", id, map[string]any{"erro": err.Error()})
		}
		h.incubationError(c, err, notFound)
		return
	}
	h.Audit.ParameterChange(ctx, req, actor, id, before, after, "UPDATE")
	c.JSON(http.StatusOK, gin.H{"message": "Parâmetro atualizado com sucesso!", "parametro": after})
}

func (h Handlers) ListCompanies(c *gin.Context, actor identity.Identity) {
	out, err := h.Incubation.Companies(c.Request.Context())
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListBatches(c *gin.Context, actor identity.Identity) {
	out, err := h.Incubation.Batches(c.Request.Context(), c.Query("empresa"))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
