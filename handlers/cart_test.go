package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crystosjewel-server/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invokeHandler(t *testing.T, handler gin.HandlerFunc, method, target, body string, params gin.Params, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	c.Request = req
	c.Params = params

	handler(c)
	return w
}

func seededSession(t *testing.T, productID uuid.UUID) (*Session, *http.Cookie) {
	t.Helper()
	seed, _ := newTestContext(t)
	session := Sessions.Get(seed)
	session.Cart.Upsert(models.GuestCartItem{ProductID: productID, ProductName: "ring", Quantity: 1})
	return session, &http.Cookie{Name: sessionCookie, Value: session.ID}
}

func TestUpdateCartItemSessionLine(t *testing.T) {
	Sessions = NewSessionStore()

	productID := uuid.New()
	session, cookie := seededSession(t, productID)

	w := invokeHandler(t, UpdateCartItem, http.MethodPut, "/", `{"quantity":3}`,
		gin.Params{{Key: "productId", Value: productID.String()}}, cookie)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Len(t, session.Cart.Items, 1)
	assert.Equal(t, 3, session.Cart.Items[0].Quantity)
}

func TestUpdateCartItemUnknownLineIs404(t *testing.T) {
	Sessions = NewSessionStore()

	_, cookie := seededSession(t, uuid.New())

	w := invokeHandler(t, UpdateCartItem, http.MethodPut, "/", `{"quantity":3}`,
		gin.Params{{Key: "productId", Value: uuid.New().String()}}, cookie)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateCartItemZeroQuantityRemoves(t *testing.T) {
	Sessions = NewSessionStore()

	productID := uuid.New()
	session, cookie := seededSession(t, productID)

	w := invokeHandler(t, UpdateCartItem, http.MethodPut, "/", `{"quantity":0}`,
		gin.Params{{Key: "productId", Value: productID.String()}}, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, session.Cart.IsEmpty())
}

func TestRemoveFromCartSessionLine(t *testing.T) {
	Sessions = NewSessionStore()

	productID := uuid.New()
	session, cookie := seededSession(t, productID)

	w := invokeHandler(t, RemoveFromCart, http.MethodDelete, "/", "",
		gin.Params{{Key: "productId", Value: productID.String()}}, cookie)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, session.Cart.IsEmpty())
}

func TestRemoveFromCartUnknownLineIs404(t *testing.T) {
	Sessions = NewSessionStore()

	_, cookie := seededSession(t, uuid.New())

	w := invokeHandler(t, RemoveFromCart, http.MethodDelete, "/", "",
		gin.Params{{Key: "productId", Value: uuid.New().String()}}, cookie)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
