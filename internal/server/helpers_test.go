package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"greenline/internal/attachments"
	"greenline/internal/config"
	"greenline/internal/middleware"
	"greenline/internal/models"
	"greenline/internal/repository"
	"greenline/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.GroupMember{},
		&models.Conversation{},
		&models.Message{},
		&models.ConversationRead{},
	))
	return db
}

// newTestServer wires a Server over an in-memory database, without Redis or
// metrics, the way the bootstrap path does for a single-node deployment.
func newTestServer(t *testing.T) (*Server, *gorm.DB) {
	t.Helper()
	db := setupHandlerTestDB(t)

	store, err := attachments.NewStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{JWTSecret: "test-secret", Env: "test"}
	middleware.InitMiddleware(cfg)

	userRepo := repository.NewUserRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	resolver := service.NewResolver(convRepo, groupRepo, userRepo)

	s := &Server{
		config:         cfg,
		db:             db,
		userRepo:       userRepo,
		groupRepo:      groupRepo,
		convRepo:       convRepo,
		msgRepo:        msgRepo,
		store:          store,
		messageService: service.NewMessageService(resolver, msgRepo, convRepo, groupRepo, userRepo, nil),
		groupService:   service.NewGroupService(groupRepo, userRepo),
	}
	return s, db
}

// asUser injects an authenticated user the way AuthRequired would.
func asUser(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("userID", userID)
		return c.Next()
	}
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func createHandlerUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@greenline.test", username),
		Password: "hashed",
		Active:   true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func TestParseID(t *testing.T) {
	s, _ := newTestServer(t)
	app := fiber.New()
	app.Get("/things/:id", func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		return c.JSON(fiber.Map{"id": id})
	})

	t.Run("Valid", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/things/7", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	for _, bad := range []string{"abc", "0", "-3"} {
		t.Run("Invalid "+bad, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/things/"+bad, nil))
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHumanizeParam(t *testing.T) {
	assert.Equal(t, "ID", humanizeParam("id"))
	assert.Equal(t, "user ID", humanizeParam("userId"))
	assert.Equal(t, "name", humanizeParam("name"))
}
