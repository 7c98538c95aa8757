package web

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/lostfound/internal/service"
	webembed "github.com/erazemk/lostfound/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(svc *service.LostFound, db *sql.DB, jwtSecret string) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		Service:   svc,
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
	}

	mux := http.NewServeMux()
	login := func(h http.HandlerFunc) http.Handler { return RequireLogin(h) }

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /{$}", s.HomePage)
	mux.HandleFunc("GET /items", s.ItemsPage)
	mux.HandleFunc("GET /items/{id}", s.ItemDetailPage)
	mux.HandleFunc("POST /items/{id}", s.ItemSubscribeSubmit)
	mux.HandleFunc("GET /items/{id}/image", s.ItemImageGet)
	mux.HandleFunc("POST /subscribe", s.SubscribeSubmit)
	mux.HandleFunc("GET /unsubscribe/{email}", s.UnsubscribePage)
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("GET /register", s.RegisterPage)
	mux.HandleFunc("POST /register", s.RegisterSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /report", login(s.ReportPage))
	mux.Handle("POST /report", login(s.ReportSubmit))
	mux.Handle("GET /items/{id}/edit", login(s.EditPage))
	mux.Handle("POST /items/{id}/edit", login(s.EditSubmit))
	mux.Handle("POST /items/{id}/found", login(s.MarkFoundSubmit))
	mux.Handle("GET /items/{id}/delete", login(s.DeletePage))
	mux.Handle("POST /items/{id}/delete", login(s.DeleteSubmit))
	mux.Handle("POST /items/{id}/image", login(s.ItemImageSubmit))

	return CookieAuthMiddleware(jwtSecret, db)(mux), nil
}
