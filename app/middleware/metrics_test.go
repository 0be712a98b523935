package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vibast-solutions/ms-go-accounts/app/metrics"
	"github.com/vibast-solutions/ms-go-accounts/app/middleware"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RecordsRouteAndStatus(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Metrics)
	e.GET("/items/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	})
	e.GET("/boom", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusTeapot, "boom")
	})

	okCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/items/:id", "202")
	errCounter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/boom", "418")
	okBefore := testutil.ToFloat64(okCounter)
	errBefore := testutil.ToFloat64(errCounter)

	for _, path := range []string{"/items/1", "/items/2", "/boom"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(okCounter) - okBefore; got != 2 {
		t.Fatalf("expected 2 recorded requests for /items/:id, got %v", got)
	}
	if got := testutil.ToFloat64(errCounter) - errBefore; got != 1 {
		t.Fatalf("expected 1 recorded request for /boom, got %v", got)
	}
}

func TestMetrics_PassesHandlerErrorOutward(t *testing.T) {
	e := echo.New()
	handlerErr := echo.NewHTTPError(http.StatusBadRequest, "bad")

	var seen error
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			seen = next(c)
			return seen
		}
	})
	e.Use(middleware.Metrics)
	e.GET("/bad", func(c echo.Context) error {
		return handlerErr
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/bad", "400")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bad", nil))

	if !errors.Is(seen, handlerErr) {
		t.Fatalf("expected outer middleware to receive the handler error, got %v", seen)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 response, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected 1 recorded request for /bad, got %v", got)
	}
}

func TestMetrics_CountsRecoveredPanics(t *testing.T) {
	e := echo.New()
	e.Use(middleware.Metrics)
	e.Use(echomiddleware.Recover())
	e.GET("/panic", func(c echo.Context) error {
		panic("handler exploded")
	})

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/panic", "500")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 response, got %d", rec.Code)
	}
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Fatalf("expected recovered panic to be counted, got %v", got)
	}
}
