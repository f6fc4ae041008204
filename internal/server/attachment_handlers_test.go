package server

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadAttachment(t *testing.T) {
	s, _ := newTestServer(t)
	app := fiber.New()
	app.Use(asUser(1))
	app.Get("/attachments/:name", s.DownloadAttachment)

	saved, err := s.store.Save("notes.txt", []byte("groundwater well log"))
	require.NoError(t, err)

	t.Run("Stored file", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/attachments/"+saved.Name, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		content, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "groundwater well log", string(content))
	})

	t.Run("Unknown file", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/attachments/nope.txt", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Traversal", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/attachments/..%2Fsecret", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	app := fiber.New()
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	t.Run("Liveness", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("Readiness without redis", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/health/ready", nil))
		require.NoError(t, err)
		// Redis is optional; only a failing database makes the check fail.
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body struct {
			Status string `json:"status"`
			Checks struct {
				Database string `json:"database"`
				Redis    string `json:"redis"`
			} `json:"checks"`
		}
		decodeJSON(t, resp, &body)
		assert.Equal(t, "healthy", body.Checks.Database)
		assert.Equal(t, "unavailable", body.Checks.Redis)
	})
}
