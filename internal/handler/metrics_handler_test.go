package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classgrid-api/internal/service"
)

func TestMetricsHandlerReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	healthy := PingFunc(func(ctx context.Context) error { return nil })
	broken := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })

	h := NewMetricsHandler(nil, map[string]Pinger{"db": healthy})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ready","checks":{"db":"ok"}}`, w.Body.String())

	h = NewMetricsHandler(nil, map[string]Pinger{"db": healthy, "redis": broken})
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)
	h.Ready(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.RecordExport("csv", "local")

	h := NewMetricsHandler(metrics, nil)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	h.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "export")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	NewMetricsHandler(nil, nil).Prometheus(c)
	c.Writer.WriteHeaderNow() // flush status as gin's engine does after the handler chain
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
