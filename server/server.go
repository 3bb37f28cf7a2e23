// Package server 是推荐服务的 HTTP 适配层（chi 路由）。
//
//	GET  /                 存活消息
//	POST /logEvent         记录一次交互
//	GET  /recommendations  ?userId=..&topN=..
//	GET  /healthz
//	GET  /metrics          Prometheus
package server

import (
	"context"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rushteam/unitrec/core"
	"github.com/rushteam/unitrec/pkg/logging"
)

// Service 是 HTTP 层依赖的推荐服务能力，由 service.Recommender 实现。
type Service interface {
	Ingest(ctx context.Context, userID, productID, tenantID, timestamp string) (core.Ack, error)
	Recommend(ctx context.Context, userID string, topN int) ([]core.Recommendation, error)
}

// Server 持有路由所需的依赖。
type Server struct {
	svc      Service
	validate *validator.Validate
}

func New(svc Service) *Server {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 校验错误里使用 json 字段名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Server{svc: svc, validate: v}
}

// Router 返回完整的路由。
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.home)
	r.Post("/logEvent", s.logEvent)
	r.Get("/recommendations", s.recommendations)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())
	return r
}

// requestLogger 用 zerolog 记录每个请求
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		l := logging.With("http")
		l.Info().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
