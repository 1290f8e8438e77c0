package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/mzanotto/funkostore/internal/cache"
	"github.com/mzanotto/funkostore/internal/db"
	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/notify"
	"github.com/mzanotto/funkostore/internal/storage"
	"github.com/mzanotto/funkostore/internal/store"
)

const testJWTSecret = "test-secret"

func newTestRouter(t *testing.T) (http.Handler, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	files, err := storage.New(t.TempDir())
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	router := NewRouter(database, testJWTSecret, cache.New(cache.DefaultTTL), notify.New(), files)
	return router, database
}

func setupTestServer(t *testing.T) (*httptest.Server, *sql.DB, string) {
	t.Helper()
	router, database := newTestRouter(t)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	// Create admin user.
	ctx := context.Background()
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	store.CreateUser(ctx, database, "admin", "admin@example.com", string(hash), []string{model.RoleAdmin, model.RoleUser})

	return server, database, signIn(t, server, "admin", "password")
}

func signIn(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/signin", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signin request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("signin failed: %d", resp.StatusCode)
	}

	var signinResp map[string]string
	json.NewDecoder(resp.Body).Decode(&signinResp)
	token := signinResp["token"]
	if token == "" {
		t.Fatal("empty token from signin")
	}
	return token
}

func signUp(t *testing.T, server *httptest.Server, username, email, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "email": email, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup failed: %d", resp.StatusCode)
	}

	var signupResp map[string]string
	json.NewDecoder(resp.Body).Decode(&signupResp)
	return signupResp["token"]
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func testCustomer() model.Customer {
	return model.Customer{
		FullName: "Test Customer",
		Email:    "customer@example.com",
		Phone:    "600000000",
		Address: model.Address{
			Street: "Calle Mayor", Number: "1", City: "Madrid",
			Province: "Madrid", Country: "Spain", PostalCode: "28001",
		},
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	server, _, _ := setupTestServer(t)

	token := signUp(t, server, "alice", "alice@example.com", "longenough")
	if token == "" {
		t.Fatal("expected token from signup")
	}

	// Duplicate username is a conflict.
	body, _ := json.Marshal(map[string]string{"username": "alice", "email": "other@example.com", "password": "longenough"})
	resp, _ := http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate username, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Short password is rejected.
	body, _ = json.Marshal(map[string]string{"username": "bob", "email": "bob@example.com", "password": "short"})
	resp, _ = http.Post(server.URL+"/api/auth/signup", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for short password, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Wrong password on signin.
	body, _ = json.Marshal(map[string]string{"username": "alice", "password": "wrong"})
	resp, _ = http.Post(server.URL+"/api/auth/signin", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUnauthenticatedAccess(t *testing.T) {
	router, _ := newTestRouter(t)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	resp, _ := http.Get(server.URL + "/api/funkos")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, _, _ := setupTestServer(t)

	userToken := signUp(t, server, "user1", "user1@example.com", "longenough")

	// Regular user cannot create categories.
	req, _ := authRequest("POST", server.URL+"/api/categories", userToken, map[string]string{"name": "Marvel"})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user creating category, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Regular user cannot list all orders.
	req, _ = authRequest("GET", server.URL+"/api/orders", userToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user listing orders, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCategoriesAPIFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Create category.
	req, _ := authRequest("POST", server.URL+"/api/categories", token, map[string]string{"name": "Marvel"})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.Category
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.ID == "" || created.Name != "Marvel" {
		t.Fatalf("unexpected category: %+v", created)
	}

	// Duplicate name (case-insensitive) is a conflict.
	req, _ = authRequest("POST", server.URL+"/api/categories", token, map[string]string{"name": "MARVEL"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate name, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List categories.
	req, _ = authRequest("GET", server.URL+"/api/categories", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var categories []model.Category
	json.NewDecoder(resp.Body).Decode(&categories)
	resp.Body.Close()
	if len(categories) != 1 {
		t.Errorf("expected 1 category, got %d", len(categories))
	}

	// Rename.
	req, _ = authRequest("PUT", server.URL+"/api/categories/"+created.ID, token, map[string]string{"name": "DC"})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 on update, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Soft delete hides it from listings.
	req, _ = authRequest("PATCH", server.URL+"/api/categories/"+created.ID+"/soft", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 on soft delete, got %d", resp.StatusCode)
	}
	var softDeleted model.Category
	json.NewDecoder(resp.Body).Decode(&softDeleted)
	resp.Body.Close()
	if !softDeleted.IsDeleted {
		t.Error("expected is_deleted on soft-deleted category")
	}

	req, _ = authRequest("GET", server.URL+"/api/categories", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	categories = nil
	json.NewDecoder(resp.Body).Decode(&categories)
	resp.Body.Close()
	if len(categories) != 0 {
		t.Errorf("expected no categories after soft delete, got %d", len(categories))
	}
}

func TestFunkosAPIFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Unknown category is rejected.
	req, _ := authRequest("POST", server.URL+"/api/funkos", token, map[string]any{
		"name": "Spider-Man", "price": "14.99", "quantity": 10, "category_id": "no-such-id",
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown category, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Create category, then funko.
	req, _ = authRequest("POST", server.URL+"/api/categories", token, map[string]string{"name": "Marvel"})
	resp, _ = http.DefaultClient.Do(req)
	var category model.Category
	json.NewDecoder(resp.Body).Decode(&category)
	resp.Body.Close()

	req, _ = authRequest("POST", server.URL+"/api/funkos", token, map[string]any{
		"name": "Spider-Man", "price": "14.99", "quantity": 10, "category_id": category.ID,
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var funko model.Funko
	json.NewDecoder(resp.Body).Decode(&funko)
	resp.Body.Close()
	if !funko.Price.Equal(decimal.RequireFromString("14.99")) {
		t.Errorf("expected price 14.99, got %s", funko.Price)
	}
	if funko.Image != model.DefaultImage {
		t.Errorf("expected placeholder image, got %q", funko.Image)
	}

	// Filtered listing.
	req, _ = authRequest("GET", server.URL+"/api/funkos?category="+category.ID, token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var funkos []model.Funko
	json.NewDecoder(resp.Body).Decode(&funkos)
	resp.Body.Close()
	if len(funkos) != 1 {
		t.Errorf("expected 1 funko in category, got %d", len(funkos))
	}

	// Soft delete hides it.
	req, _ = authRequest("DELETE", server.URL+"/api/funkos/1", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 on delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = authRequest("GET", server.URL+"/api/funkos/1", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestOrdersAPIFlow(t *testing.T) {
	server, database, token := setupTestServer(t)
	ctx := context.Background()

	funko, err := store.CreateFunko(ctx, database, "Batman", decimal.RequireFromString("19.99"), 10, nil)
	if err != nil {
		t.Fatalf("CreateFunko: %v", err)
	}

	orderBody := map[string]any{
		"customer_id": 1,
		"customer":    testCustomer(),
		"lines": []map[string]any{
			{"funko_id": funko.ID, "price": "19.99", "quantity": 3},
		},
	}

	// Create order.
	req, _ := authRequest("POST", server.URL+"/api/orders", token, orderBody)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.Order
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()
	if created.TotalItems != 3 || !created.Total.Equal(decimal.RequireFromString("59.97")) {
		t.Errorf("unexpected totals: items=%d total=%s", created.TotalItems, created.Total)
	}

	// Stock was reserved.
	after, _ := store.GetFunko(ctx, database, funko.ID)
	if after.Quantity != 7 {
		t.Errorf("expected quantity 7 after reservation, got %d", after.Quantity)
	}

	// Price mismatch is rejected.
	badBody := map[string]any{
		"customer_id": 1,
		"customer":    testCustomer(),
		"lines": []map[string]any{
			{"funko_id": funko.ID, "price": "19.98", "quantity": 1},
		},
	}
	req, _ = authRequest("POST", server.URL+"/api/orders", token, badBody)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for price mismatch, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Insufficient stock is rejected.
	badBody["lines"] = []map[string]any{{"funko_id": funko.ID, "price": "19.99", "quantity": 8}}
	req, _ = authRequest("POST", server.URL+"/api/orders", token, badBody)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for insufficient stock, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Deleting the order returns the stock.
	req, _ = authRequest("DELETE", server.URL+"/api/orders/"+created.ID.Hex(), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	after, _ = store.GetFunko(ctx, database, funko.ID)
	if after.Quantity != 10 {
		t.Errorf("expected quantity back to 10, got %d", after.Quantity)
	}
}

func TestOrdersPaginationParams(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Unknown sort field.
	req, _ := authRequest("GET", server.URL+"/api/orders?sort=total", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown sort, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Unknown direction.
	req, _ = authRequest("GET", server.URL+"/api/orders?order=sideways", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown order, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Defaults work on an empty table.
	req, _ = authRequest("GET", server.URL+"/api/orders", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var page store.OrderPage
	json.NewDecoder(resp.Body).Decode(&page)
	resp.Body.Close()
	if page.Total != 0 || page.Page != 1 || page.Limit != 20 {
		t.Errorf("unexpected page metadata: %+v", page)
	}
}

func TestMyOrdersOwnership(t *testing.T) {
	server, database, _ := setupTestServer(t)
	ctx := context.Background()

	aliceToken := signUp(t, server, "alice", "alice@example.com", "longenough")
	bobToken := signUp(t, server, "bob", "bob@example.com", "longenough")

	funko, err := store.CreateFunko(ctx, database, "Batman", decimal.RequireFromString("19.99"), 10, nil)
	if err != nil {
		t.Fatalf("CreateFunko: %v", err)
	}

	// Alice places an order through the self-service endpoint. The
	// customer_id in the body is ignored in favor of the token's user.
	orderBody := map[string]any{
		"customer_id": 999,
		"customer":    testCustomer(),
		"lines": []map[string]any{
			{"funko_id": funko.ID, "price": "19.99", "quantity": 2},
		},
	}
	req, _ := authRequest("POST", server.URL+"/api/users/me/orders", aliceToken, orderBody)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.Order
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// Alice sees her order.
	req, _ = authRequest("GET", server.URL+"/api/users/me/orders/"+created.ID.Hex(), aliceToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for own order, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Bob does not.
	req, _ = authRequest("GET", server.URL+"/api/users/me/orders/"+created.ID.Hex(), bobToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for another user's order, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Profile endpoint returns the caller.
	req, _ = authRequest("GET", server.URL+"/api/users/me", aliceToken, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from /api/users/me, got %d", resp.StatusCode)
	}
	var me model.User
	json.NewDecoder(resp.Body).Decode(&me)
	resp.Body.Close()
	if me.Username != "alice" {
		t.Errorf("expected alice, got %q", me.Username)
	}
}

func TestUsersAdminFlow(t *testing.T) {
	server, _, token := setupTestServer(t)

	// Create a user with explicit roles.
	req, _ := authRequest("POST", server.URL+"/api/users", token, map[string]any{
		"username": "carol", "email": "carol@example.com", "password": "longenough",
		"roles": []string{model.RoleUser},
	})
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var created model.User
	json.NewDecoder(resp.Body).Decode(&created)
	resp.Body.Close()

	// Unknown roles are rejected.
	req, _ = authRequest("POST", server.URL+"/api/users", token, map[string]any{
		"username": "dave", "email": "dave@example.com", "password": "longenough",
		"roles": []string{"root"},
	})
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown role, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// List includes admin and carol.
	req, _ = authRequest("GET", server.URL+"/api/users", token, nil)
	resp, _ = http.DefaultClient.Do(req)
	var users []model.User
	json.NewDecoder(resp.Body).Decode(&users)
	resp.Body.Close()
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	// Delete carol (no orders, so the row goes away).
	req, _ = authRequest("DELETE", server.URL+"/api/users/"+strconv.FormatInt(created.ID, 10), token, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204 on delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
