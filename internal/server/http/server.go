// Package httpserver is the HTTP/JSON API for browsers. It exposes the same
// operations as the gRPC service under /v1, plus a server-sent event stream
// of bookmark changes.
package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/service"
)

// Deps are the services behind the routes. Images and Importer may be nil;
// their routes are then not registered.
type Deps struct {
	Auth      service.AuthService
	Recipes   service.RecipeService
	Bookmarks service.BookmarkService
	Images    service.ImageUploader
	Importer  service.RecipeImporter
	Verifier  *identity.Verifier
	Log       *zap.Logger
}

// Options tune the HTTP surface.
type Options struct {
	CORSOrigins []string
	// MediaDir, when set, is served at /media for the filesystem image store.
	MediaDir  string
	MaxUpload int64
}

type handlers struct {
	d         Deps
	maxUpload int64
}

// New builds the gin engine.
func New(d Deps, opts Options) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = 10 << 20
	}

	r := gin.New()
	r.Use(Recovery(d.Log), Logger(d.Log))
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Authorization", "Content-Type"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(ErrorHandler(d.Log), Auth(d.Verifier))

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	if opts.MediaDir != "" {
		r.Static("/media", opts.MediaDir)
	}

	h := &handlers{d: d, maxUpload: opts.MaxUpload}
	v1 := r.Group("/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.register)
		auth.POST("/login", h.login)

		v1.GET("/categories", h.categories)

		recipes := v1.Group("/recipes")
		recipes.GET("", h.listRecipes)
		recipes.GET("/search", h.searchRecipes)
		recipes.GET("/mine", RequireUser(), h.listOwned)
		recipes.GET("/:id", h.getRecipe)
		recipes.POST("", RequireUser(), h.createRecipe)
		recipes.PATCH("/:id", RequireUser(), h.updateRecipe)
		recipes.DELETE("/:id", RequireUser(), h.deleteRecipe)
		if d.Importer != nil {
			recipes.POST("/import", RequireUser(), h.importRecipe)
		}

		if d.Images != nil {
			v1.POST("/images", RequireUser(), h.uploadImage)
		}

		marks := v1.Group("/bookmarks", RequireUser())
		marks.GET("", h.listBookmarks)
		marks.GET("/events", h.bookmarkEvents)
		marks.GET("/:recipeId", h.bookmarkState)
		marks.POST("/:recipeId/toggle", h.toggleBookmark)
	}
	return r
}
