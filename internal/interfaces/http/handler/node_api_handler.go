package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dreschagin/health-checker/internal/application/dto"
	"github.com/dreschagin/health-checker/internal/application/port"
	"github.com/dreschagin/health-checker/internal/application/usecase"
	"github.com/dreschagin/health-checker/internal/domain/entity"
	"github.com/dreschagin/health-checker/pkg/logger"
)

const defaultMaxPayloadBytes = 64 << 10

// NodeAPIHandler обрабатывает отчеты узлов и чтение кэша узлов
type NodeAPIHandler struct {
	ingestUC        *usecase.IngestNodeUseCase
	removeUC        *usecase.RemoveNodeUseCase
	listUC          *usecase.ListNodesUseCase
	maxPayloadBytes int64
	logger          *logger.Logger
}

// NewNodeAPIHandler создает новый handler
func NewNodeAPIHandler(
	ingestUC *usecase.IngestNodeUseCase,
	removeUC *usecase.RemoveNodeUseCase,
	listUC *usecase.ListNodesUseCase,
	maxPayloadBytes int64,
	logger *logger.Logger,
) *NodeAPIHandler {
	if maxPayloadBytes <= 0 {
		maxPayloadBytes = defaultMaxPayloadBytes
	}

	return &NodeAPIHandler{
		ingestUC:        ingestUC,
		removeUC:        removeUC,
		listUC:          listUC,
		maxPayloadBytes: maxPayloadBytes,
		logger:          logger,
	}
}

type nodeListResponse struct {
	Offset int            `json:"offset"`
	Limit  int            `json:"limit"`
	Count  int            `json:"count"`
	Nodes  []*entity.Node `json:"nodes"`
}

// UpsertNode принимает снимок узла (POST /nodes)
func (h *NodeAPIHandler) UpsertNode(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxPayloadBytes)
	defer r.Body.Close()

	var req dto.UpsertNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "Payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := h.ingestUC.Execute(r.Context(), &req)
	if err != nil {
		h.writeError(w, err, "Failed to ingest node", "node_id", req.SystemHostname)
		return
	}

	writeJSON(w, http.StatusOK, node, h.logger)
}

// ListNodes возвращает страницу кэша узлов (GET /nodes?offset=&limit=)
func (h *NodeAPIHandler) ListNodes(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		http.Error(w, "Invalid offset", http.StatusBadRequest)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	nodes, err := h.listUC.Execute(r.Context(), offset, limit)
	if err != nil {
		h.writeError(w, err, "Failed to list nodes")
		return
	}

	writeJSON(w, http.StatusOK, nodeListResponse{
		Offset: offset,
		Limit:  limit,
		Count:  len(nodes),
		Nodes:  nodes,
	}, h.logger)
}

// DeleteNode снимает узел с мониторинга (DELETE /nodes/{id})
func (h *NodeAPIHandler) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.removeUC.Execute(r.Context(), id); err != nil {
		h.writeError(w, err, "Failed to remove node", "node_id", id)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NodeAPIHandler) writeError(w http.ResponseWriter, err error, msg string, args ...interface{}) {
	switch {
	case errors.Is(err, usecase.ErrInvalidNode), errors.Is(err, usecase.ErrInvalidPage):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, port.ErrNodeNotFound):
		http.Error(w, "Node not found", http.StatusNotFound)
	case errors.Is(err, usecase.ErrShuttingDown):
		w.Header().Set("Retry-After", "5")
		http.Error(w, "Service is shutting down", http.StatusServiceUnavailable)
	default:
		h.logger.Error(msg, err, args...)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, log *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to encode response", err)
	}
}
