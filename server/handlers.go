package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pkg/logging"
	"github.com/rushteam/unitrec/service"
)

const liveMessage = "recommendation engine is live"

// logEventRequest 是 POST /logEvent 的请求体。event 字段只接收不使用，b2bUnit 即租户。
type logEventRequest struct {
	UserID    string `json:"userId" validate:"required"`
	Event     string `json:"event"`
	ProductID string `json:"productId" validate:"required"`
	B2BUnit   string `json:"b2bUnit" validate:"required"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ingestErrorResponse 在存储失败时附带两个独立写入各自的结果，部分成功不会被回滚。
type ingestErrorResponse struct {
	Error          string `json:"error"`
	Status         string `json:"status,omitempty"`
	EventAppended  bool   `json:"eventAppended"`
	CatalogCreated bool   `json:"catalogCreated"`
}

func (s *Server) home(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": liveMessage})
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) logEvent(w http.ResponseWriter, r *http.Request) {
	var req logEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	ack, err := s.svc.Ingest(r.Context(), req.UserID, req.ProductID, req.B2BUnit, req.Timestamp)
	if core.IsUnavailable(err) {
		writeJSON(w, http.StatusServiceUnavailable, ingestErrorResponse{
			Error:          "storage unavailable",
			Status:         ack.Status,
			EventAppended:  ack.EventAppended,
			CatalogCreated: ack.CatalogCreated,
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (s *Server) recommendations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("userId")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "userId is required"})
		return
	}
	// 不带 topN 时使用配置的默认数量；topN=0 得到空列表
	topN := service.DefaultTopN
	if v := q.Get("topN"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "topN must be a non-negative integer"})
			return
		}
		topN = n
	}

	recs, err := s.svc.Recommend(r.Context(), userID, topN)
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []core.Recommendation{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// writeError 按领域错误码映射 HTTP 状态码
func writeError(w http.ResponseWriter, err error) {
	switch {
	case core.IsUserNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: core.ErrUserNotFound.Message})
	case core.IsInvalidInput(err):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: core.GetDomainError(err).Message})
	case core.IsUnavailable(err):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "storage unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field() + " is " + verrs[0].Tag()
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		l := logging.With("http")
		l.Warn().Err(err).Msg("write response")
	}
}
