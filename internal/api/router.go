package api

import (
	"database/sql"
	"net/http"

	"github.com/mzanotto/funkostore/internal/cache"
	"github.com/mzanotto/funkostore/internal/model"
	"github.com/mzanotto/funkostore/internal/notify"
	"github.com/mzanotto/funkostore/internal/storage"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, c *cache.Cache, relay *notify.Relay, files *storage.Store) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db, Cache: c}
	categoriesHandler := &CategoriesHandler{DB: db, Cache: c, Relay: relay}
	funkosHandler := &FunkosHandler{DB: db, Cache: c, Relay: relay, Files: files}
	ordersHandler := &OrdersHandler{DB: db, Cache: c}
	notificationsHandler := &NotificationsHandler{Relay: relay}

	authMW := AuthMiddleware(jwtSecret)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireUser := RequireRole(model.RoleUser)

	// Public: account creation and sign-in.
	mux.HandleFunc("POST /api/auth/signup", authHandler.SignUp)
	mux.HandleFunc("POST /api/auth/signin", authHandler.SignIn)

	// Uploaded images, referenced by funko image paths.
	mux.HandleFunc("GET /storage/{filename}", func(w http.ResponseWriter, r *http.Request) {
		path, err := files.Path(r.PathValue("filename"))
		if err != nil {
			jsonError(w, http.StatusNotFound, "file not found")
			return
		}
		http.ServeFile(w, r, path)
	})

	// Change-event stream.
	mux.Handle("GET /api/notifications", authMW(http.HandlerFunc(notificationsHandler.Stream)))

	// Categories: read (authenticated), write (admin).
	mux.Handle("GET /api/categories", authMW(http.HandlerFunc(categoriesHandler.List)))
	mux.Handle("GET /api/categories/{id}", authMW(http.HandlerFunc(categoriesHandler.Get)))
	mux.Handle("POST /api/categories", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Create))))
	mux.Handle("PUT /api/categories/{id}", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Update))))
	mux.Handle("DELETE /api/categories/{id}", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.Delete))))
	mux.Handle("PATCH /api/categories/{id}/soft", authMW(requireAdmin(http.HandlerFunc(categoriesHandler.SoftDelete))))

	// Funkos: read (authenticated), write (admin).
	mux.Handle("GET /api/funkos", authMW(http.HandlerFunc(funkosHandler.List)))
	mux.Handle("GET /api/funkos/{id}", authMW(http.HandlerFunc(funkosHandler.Get)))
	mux.Handle("POST /api/funkos", authMW(requireAdmin(http.HandlerFunc(funkosHandler.Create))))
	mux.Handle("PUT /api/funkos/{id}", authMW(requireAdmin(http.HandlerFunc(funkosHandler.Update))))
	mux.Handle("DELETE /api/funkos/{id}", authMW(requireAdmin(http.HandlerFunc(funkosHandler.Delete))))
	mux.Handle("PUT /api/funkos/{id}/image", authMW(requireAdmin(http.HandlerFunc(funkosHandler.UploadImage))))

	// Orders (admin).
	mux.Handle("GET /api/orders", authMW(requireAdmin(http.HandlerFunc(ordersHandler.List))))
	mux.Handle("GET /api/orders/{id}", authMW(requireAdmin(http.HandlerFunc(ordersHandler.Get))))
	mux.Handle("POST /api/orders", authMW(requireAdmin(http.HandlerFunc(ordersHandler.Create))))
	mux.Handle("PUT /api/orders/{id}", authMW(requireAdmin(http.HandlerFunc(ordersHandler.Update))))
	mux.Handle("DELETE /api/orders/{id}", authMW(requireAdmin(http.HandlerFunc(ordersHandler.Delete))))

	// Users (admin).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Self-service: own profile and own orders, ownership checked in the
	// handlers.
	mux.Handle("GET /api/users/me", authMW(requireUser(http.HandlerFunc(usersHandler.Me))))
	mux.Handle("GET /api/users/me/orders", authMW(requireUser(http.HandlerFunc(usersHandler.MyOrders))))
	mux.Handle("GET /api/users/me/orders/{id}", authMW(requireUser(http.HandlerFunc(usersHandler.MyOrder))))
	mux.Handle("POST /api/users/me/orders", authMW(requireUser(http.HandlerFunc(usersHandler.CreateMyOrder))))
	mux.Handle("PUT /api/users/me/orders/{id}", authMW(requireUser(http.HandlerFunc(usersHandler.UpdateMyOrder))))
	mux.Handle("DELETE /api/users/me/orders/{id}", authMW(requireUser(http.HandlerFunc(usersHandler.DeleteMyOrder))))

	return mux
}
