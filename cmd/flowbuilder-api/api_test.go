package main

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/atelierhq/flowbuilder/pkg/channels/gochannel"
	"github.com/atelierhq/flowbuilder/pkg/eventbus"
	"github.com/atelierhq/flowbuilder/pkg/persistence/file"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestAPI(t *testing.T) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())

	pub, sub, err := gochannel.CreateTestChannel(watermill.NopLogger{})
	require.NoError(t, err)

	bus := eventbus.NewWatermillEventBus(pub, sub)
	t.Cleanup(func() { _ = bus.Close() })

	api := NewAPI(slog.Default(), persistence, bus)

	return api.App()
}

func TestAPI_RootEndpoint(t *testing.T) {
	app := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Flowbuilder API", string(body))
}

func TestAPI_Liveness(t *testing.T) {
	app := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAPI_CORS_Headers(t *testing.T) {
	app := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodOptions, "/workflows", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestAPI_GetWorkflows_Empty(t *testing.T) {
	app := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/workflows", nil)
	req.Header.Set("Accept", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Workflows []any `json:"workflows"`
	}

	err = json.NewDecoder(resp.Body).Decode(&list)
	require.NoError(t, err)
	assert.Empty(t, list.Workflows)
}

func TestAPI_HealthEndpoint(t *testing.T) {
	app := setupTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health struct {
		Status string `json:"status"`
	}

	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
}
