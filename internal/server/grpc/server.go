// Package grpcserver exposes the RecipeBook gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/identity"
	"github.com/and161185/recipebox/internal/rpc"
	"github.com/and161185/recipebox/internal/schema"
	"github.com/and161185/recipebox/internal/service"
)

// Deps are the services behind the handlers. Images and Importer may be nil;
// their methods then answer Unimplemented.
type Deps struct {
	Auth      service.AuthService
	Recipes   service.RecipeService
	Bookmarks service.BookmarkService
	Images    service.ImageUploader
	Importer  service.RecipeImporter
	Log       *zap.Logger
}

// Server wires services into gRPC handlers.
type Server struct {
	rpc.UnimplementedRecipeBookServer
	d Deps
}

var _ rpc.RecipeBookServer = (*Server)(nil)

// New constructs a gRPC server with injected services.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Server{d: d}
}

// toStatus maps service errors onto gRPC codes. Unknown errors are logged and
// reported without detail.
func (s *Server) toStatus(op string, err error) error {
	switch {
	case errors.Is(err, errs.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "not signed in")
	case errors.Is(err, errs.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, errs.ErrCompressionFailed):
		return status.Error(codes.InvalidArgument, "image could not be processed")
	case errors.Is(err, errs.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, errs.ErrAlreadyExists):
		return status.Error(codes.AlreadyExists, "already exists")
	case errors.Is(err, errs.ErrRateLimited):
		return status.Error(codes.ResourceExhausted, "too many attempts, try later")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "canceled")
	}
	s.d.Log.Error("grpc handler failed", zap.String("op", op), zap.Error(err))
	return status.Error(codes.Internal, "internal error")
}

func requireUser(ctx context.Context) error {
	if _, ok := identity.UserID(ctx); !ok {
		return status.Error(codes.Unauthenticated, "not signed in")
	}
	return nil
}

func remoteIP(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
		return host
	}
	return p.Addr.String()
}

// --- Auth ---

func (s *Server) Register(ctx context.Context, req *rpc.RegisterRequest) (*rpc.RegisterResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, status.Error(codes.InvalidArgument, "empty username/password")
	}
	id, err := s.d.Auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		return nil, s.toStatus("register", err)
	}
	return &rpc.RegisterResponse{UserID: id.String()}, nil
}

// Login authenticates a profile and returns an access token.
func (s *Server) Login(ctx context.Context, req *rpc.LoginRequest) (*rpc.LoginResponse, error) {
	tok, p, err := s.d.Auth.LoginWithIP(ctx, req.Username, req.Password, remoteIP(ctx))
	if err != nil {
		if errors.Is(err, errs.ErrUnauthorized) {
			return nil, status.Error(codes.Unauthenticated, "bad credentials")
		}
		return nil, s.toStatus("login", err)
	}
	return &rpc.LoginResponse{AccessToken: tok.AccessToken, ExpiresAt: tok.ExpiresAt, UserID: p.ID.String()}, nil
}

// --- Recipes ---

func (s *Server) ListRecipes(ctx context.Context, _ *rpc.Empty) (*rpc.RecipeList, error) {
	return &rpc.RecipeList{Recipes: s.d.Recipes.List(ctx)}, nil
}

func (s *Server) GetRecipe(ctx context.Context, req *rpc.IDRequest) (*rpc.RecipeResponse, error) {
	r := s.d.Recipes.GetByID(ctx, req.ID)
	if r == nil {
		return nil, status.Error(codes.NotFound, "recipe not found")
	}
	return &rpc.RecipeResponse{Recipe: *r}, nil
}

func (s *Server) SearchRecipes(ctx context.Context, req *rpc.SearchRequest) (*rpc.RecipeList, error) {
	if err := schema.Filters(req.Filters); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if req.Filters.BookmarkedOnly {
		if err := requireUser(ctx); err != nil {
			return nil, err
		}
	}
	return &rpc.RecipeList{Recipes: s.d.Recipes.Search(ctx, req.Filters)}, nil
}

func (s *Server) CreateRecipe(ctx context.Context, req *rpc.CreateRequest) (*rpc.RecipeResponse, error) {
	if err := requireUser(ctx); err != nil {
		return nil, err
	}
	if err := schema.Recipe(req.Recipe); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r := s.d.Recipes.Create(ctx, req.Recipe)
	if r == nil {
		return nil, status.Error(codes.Internal, "recipe could not be saved")
	}
	return &rpc.RecipeResponse{Recipe: *r}, nil
}

// UpdateRecipe applies a partial update. Updating a recipe the caller does not
// own looks the same as updating one that does not exist.
func (s *Server) UpdateRecipe(ctx context.Context, req *rpc.UpdateRequest) (*rpc.RecipeResponse, error) {
	if err := requireUser(ctx); err != nil {
		return nil, err
	}
	if req.Patch.Empty() {
		return nil, status.Error(codes.InvalidArgument, "nothing to update")
	}
	if err := schema.Patch(req.Patch); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	r := s.d.Recipes.Update(ctx, req.ID, req.Patch)
	if r == nil {
		return nil, status.Error(codes.NotFound, "recipe not found")
	}
	return &rpc.RecipeResponse{Recipe: *r}, nil
}

func (s *Server) DeleteRecipe(ctx context.Context, req *rpc.IDRequest) (*rpc.DeleteResponse, error) {
	if err := requireUser(ctx); err != nil {
		return nil, err
	}
	if !s.d.Recipes.Delete(ctx, req.ID) {
		return nil, status.Error(codes.NotFound, "recipe not found")
	}
	return &rpc.DeleteResponse{Deleted: true}, nil
}

func (s *Server) ListOwnRecipes(ctx context.Context, _ *rpc.Empty) (*rpc.RecipeList, error) {
	if err := requireUser(ctx); err != nil {
		return nil, err
	}
	return &rpc.RecipeList{Recipes: s.d.Recipes.ListOwned(ctx)}, nil
}

func (s *Server) Categories(_ context.Context, _ *rpc.Empty) (*rpc.CategoriesResponse, error) {
	return &rpc.CategoriesResponse{Categories: s.d.Recipes.Categories()}, nil
}

func (s *Server) ImportRecipe(ctx context.Context, req *rpc.ImportRequest) (*rpc.RecipeResponse, error) {
	if s.d.Importer == nil {
		return s.UnimplementedRecipeBookServer.ImportRecipe(ctx, req)
	}
	if err := requireUser(ctx); err != nil {
		return nil, err
	}
	r, err := s.d.Importer.Import(ctx, req.URL)
	if err != nil {
		if errors.Is(err, errs.ErrValidation) || errors.Is(err, errs.ErrNotFound) {
			return nil, s.toStatus("import", err)
		}
		s.d.Log.Warn("import fetch failed", zap.Error(err))
		return nil, status.Error(codes.Unavailable, "recipe page could not be fetched")
	}
	return &rpc.RecipeResponse{Recipe: r}, nil
}

func (s *Server) UploadImage(ctx context.Context, req *rpc.UploadImageRequest) (*rpc.UploadImageResponse, error) {
	if s.d.Images == nil {
		return s.UnimplementedRecipeBookServer.UploadImage(ctx, req)
	}
	url, err := s.d.Images.Upload(ctx, req.RecipeID, req.Data)
	if err != nil {
		return nil, s.toStatus("upload_image", err)
	}
	return &rpc.UploadImageResponse{URL: url}, nil
}

// --- Bookmarks ---

func (s *Server) ListBookmarks(ctx context.Context, _ *rpc.Empty) (*rpc.BookmarkList, error) {
	list, err := s.d.Bookmarks.List(ctx)
	if err != nil {
		return nil, s.toStatus("list_bookmarks", err)
	}
	return &rpc.BookmarkList{Bookmarks: list}, nil
}

func (s *Server) ContainsBookmark(ctx context.Context, req *rpc.BookmarkRequest) (*rpc.BookmarkState, error) {
	on, err := s.d.Bookmarks.IsBookmarked(ctx, req.RecipeID)
	if err != nil {
		return nil, s.toStatus("contains_bookmark", err)
	}
	return &rpc.BookmarkState{Bookmarked: on}, nil
}

func (s *Server) AddBookmark(ctx context.Context, req *rpc.BookmarkRequest) (*rpc.Empty, error) {
	if err := s.d.Bookmarks.Add(ctx, req.RecipeID); err != nil {
		return nil, s.toStatus("add_bookmark", err)
	}
	return &rpc.Empty{}, nil
}

func (s *Server) RemoveBookmark(ctx context.Context, req *rpc.BookmarkRequest) (*rpc.Empty, error) {
	if err := s.d.Bookmarks.Remove(ctx, req.RecipeID); err != nil {
		return nil, s.toStatus("remove_bookmark", err)
	}
	return &rpc.Empty{}, nil
}

func (s *Server) ToggleBookmark(ctx context.Context, req *rpc.BookmarkRequest) (*rpc.BookmarkState, error) {
	on, err := s.d.Bookmarks.Toggle(ctx, req.RecipeID)
	if err != nil {
		return nil, s.toStatus("toggle_bookmark", err)
	}
	return &rpc.BookmarkState{Bookmarked: on}, nil
}

// WatchBookmarks streams the caller's bookmark list after every change,
// starting with the current list.
func (s *Server) WatchBookmarks(_ *rpc.Empty, stream grpc.ServerStreamingServer[rpc.BookmarkList]) error {
	ctx := stream.Context()
	ch, cancel, err := s.d.Bookmarks.Subscribe(ctx)
	if err != nil {
		return s.toStatus("watch_bookmarks", err)
	}
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case list, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.Send(&rpc.BookmarkList{Bookmarks: list}); err != nil {
				return err
			}
		}
	}
}
