package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_wallet/internal/access"
	"github.com/congo-pay/congo_wallet/internal/apperr"
	"github.com/congo-pay/congo_wallet/internal/logging"
)

func testErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}
	return c.Status(apperr.Status(err)).JSON(fiber.Map{"error": apperr.PublicMessage(err)})
}

// withUser stands in for Authenticate: the caller id comes from a header.
func withUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			c.SetUserContext(access.WithPrincipal(c.UserContext(), access.SessionPrincipal(id, "")))
		}
		return c.Next()
	}
}

func setupTestApp(t *testing.T) (*fiber.App, *int32, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New(fiber.Config{ErrorHandler: testErrorHandler})
	calls := new(int32)
	app.Use(withUser(), Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		n := atomic.AddInt32(calls, 1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": n})
	})
	app.Post("/broken", func(c *fiber.Ctx) error {
		atomic.AddInt32(calls, 1)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "boom"})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, calls, cleanup
}

func send(t *testing.T, app *fiber.App, path, key, user, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(payload)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	for i := 0; i < 2; i++ {
		if status, _ := send(t, app, "/resource", "", "u1", "{}"); status != fiber.StatusCreated {
			t.Fatalf("expected %d got %d", fiber.StatusCreated, status)
		}
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected handler to run twice, ran %d", got)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	status, payload := send(t, app, "/resource", "abc123", "u1", "{}")
	if status != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, status)
	}

	// Second request should return the cached response without invoking handler again.
	status, cachedPayload := send(t, app, "/resource", "abc123", "u1", "{}")
	if status != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, status)
	}
	if cachedPayload != payload {
		t.Fatalf("expected cached payload %s got %s", payload, cachedPayload)
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(cachedPayload), &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
	if got := atomic.LoadInt32(calls); got != 1 {
		t.Fatalf("expected handler to run once, ran %d", got)
	}
}

func TestIdempotencyKeysAreScopedPerCaller(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	send(t, app, "/resource", "shared", "u1", "{}")
	send(t, app, "/resource", "shared", "u2", "{}")
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected each caller to execute, ran %d", got)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	app, _, cleanup := setupTestApp(t)
	defer cleanup()

	send(t, app, "/resource", "k1", "u1", `{"amount":1}`)
	status, _ := send(t, app, "/resource", "k1", "u1", `{"amount":2}`)
	if status != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, status)
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	app, calls, cleanup := setupTestApp(t)
	defer cleanup()

	send(t, app, "/broken", "k1", "u1", "{}")
	send(t, app, "/broken", "k1", "u1", "{}")
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("expected retry after server error to execute, ran %d", got)
	}
}
