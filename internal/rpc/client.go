package rpc

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/model"
)

// Client calls the RecipeBook service. It carries an optional bearer token.
type Client struct {
	cc    grpc.ClientConnInterface
	token string
}

// NewClient wraps an existing connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial connects to addr. A nil tlsCfg dials without transport security.
func Dial(addr string, tlsCfg *tls.Config) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if tlsCfg != nil {
		creds = credentials.NewTLS(tlsCfg)
	}
	return grpc.NewClient(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(ContentSubtype)),
	)
}

// WithToken returns a copy of c that sends token as a bearer credential.
func (c *Client) WithToken(token string) *Client {
	cp := *c
	cp.token = token
	return &cp
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.token == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+c.token)
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	err := c.cc.Invoke(c.outgoing(ctx), FullMethod(method), in, out, grpc.CallContentSubtype(ContentSubtype))
	return FromStatus(err)
}

// FromStatus maps a gRPC status to the matching errs sentinel, keeping the
// server's message.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var base error
	switch st.Code() {
	case codes.NotFound:
		base = errs.ErrNotFound
	case codes.Unauthenticated:
		base = errs.ErrUnauthorized
	case codes.InvalidArgument:
		base = errs.ErrValidation
	case codes.AlreadyExists:
		base = errs.ErrAlreadyExists
	case codes.ResourceExhausted:
		base = errs.ErrRateLimited
	default:
		return err
	}
	return fmt.Errorf("%w: %s", base, st.Message())
}

func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	var out RegisterResponse
	err := c.invoke(ctx, "Register", &RegisterRequest{Username: username, Password: password}, &out)
	return out.UserID, err
}

func (c *Client) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.invoke(ctx, "Login", &LoginRequest{Username: username, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListRecipes(ctx context.Context) ([]model.Recipe, error) {
	var out RecipeList
	err := c.invoke(ctx, "ListRecipes", &Empty{}, &out)
	return out.Recipes, err
}

func (c *Client) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	var out RecipeResponse
	if err := c.invoke(ctx, "GetRecipe", &IDRequest{ID: id}, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) Search(ctx context.Context, f model.RecipeFilters) ([]model.Recipe, error) {
	var out RecipeList
	err := c.invoke(ctx, "SearchRecipes", &SearchRequest{Filters: f}, &out)
	return out.Recipes, err
}

// Create and Update make Client a form.Saver.
func (c *Client) Create(ctx context.Context, r model.Recipe) (*model.Recipe, error) {
	var out RecipeResponse
	if err := c.invoke(ctx, "CreateRecipe", &CreateRequest{Recipe: r}, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) Update(ctx context.Context, id string, p model.RecipePatch) (*model.Recipe, error) {
	var out RecipeResponse
	if err := c.invoke(ctx, "UpdateRecipe", &UpdateRequest{ID: id, Patch: p}, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	var out DeleteResponse
	if err := c.invoke(ctx, "DeleteRecipe", &IDRequest{ID: id}, &out); err != nil {
		return err
	}
	if !out.Deleted {
		return errs.ErrNotFound
	}
	return nil
}

func (c *Client) ListOwned(ctx context.Context) ([]model.Recipe, error) {
	var out RecipeList
	err := c.invoke(ctx, "ListOwnRecipes", &Empty{}, &out)
	return out.Recipes, err
}

func (c *Client) Categories(ctx context.Context) ([]model.Category, error) {
	var out CategoriesResponse
	err := c.invoke(ctx, "Categories", &Empty{}, &out)
	return out.Categories, err
}

// Import asks the server to build a draft from a recipe page; nothing is saved.
func (c *Client) Import(ctx context.Context, url string) (*model.Recipe, error) {
	var out RecipeResponse
	if err := c.invoke(ctx, "ImportRecipe", &ImportRequest{URL: url}, &out); err != nil {
		return nil, err
	}
	return &out.Recipe, nil
}

func (c *Client) UploadImage(ctx context.Context, recipeID string, data []byte) (string, error) {
	var out UploadImageResponse
	err := c.invoke(ctx, "UploadImage", &UploadImageRequest{RecipeID: recipeID, Data: data}, &out)
	return out.URL, err
}

// ToggleBookmark flips the bookmark on the server in one call.
func (c *Client) ToggleBookmark(ctx context.Context, recipeID uuid.UUID) (bool, error) {
	var out BookmarkState
	err := c.invoke(ctx, "ToggleBookmark", &BookmarkRequest{RecipeID: recipeID}, &out)
	return out.Bookmarked, err
}

// WatchBookmarks streams the bookmark list, current state first, until ctx
// ends or the server closes the stream.
func (c *Client) WatchBookmarks(ctx context.Context) (grpc.ServerStreamingClient[BookmarkList], error) {
	stream, err := c.cc.NewStream(c.outgoing(ctx), &ServiceDesc.Streams[0], FullMethod("WatchBookmarks"),
		grpc.CallContentSubtype(ContentSubtype))
	if err != nil {
		return nil, FromStatus(err)
	}
	x := &grpc.GenericClientStream[Empty, BookmarkList]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(&Empty{}); err != nil {
		return nil, FromStatus(err)
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, FromStatus(err)
	}
	return x, nil
}

// Bookmarks returns the bookmark store view of the client.
func (c *Client) Bookmarks() *BookmarkClient { return &BookmarkClient{c: c} }

// BookmarkClient is a bookmarks.Store backed by the server.
type BookmarkClient struct{ c *Client }

func (b *BookmarkClient) List(ctx context.Context) ([]model.BookmarkRef, error) {
	var out BookmarkList
	err := b.c.invoke(ctx, "ListBookmarks", &Empty{}, &out)
	return out.Bookmarks, err
}

func (b *BookmarkClient) Contains(ctx context.Context, recipeID uuid.UUID) (bool, error) {
	var out BookmarkState
	err := b.c.invoke(ctx, "ContainsBookmark", &BookmarkRequest{RecipeID: recipeID}, &out)
	return out.Bookmarked, err
}

func (b *BookmarkClient) Add(ctx context.Context, recipeID uuid.UUID) error {
	return b.c.invoke(ctx, "AddBookmark", &BookmarkRequest{RecipeID: recipeID}, &Empty{})
}

func (b *BookmarkClient) Remove(ctx context.Context, recipeID uuid.UUID) error {
	return b.c.invoke(ctx, "RemoveBookmark", &BookmarkRequest{RecipeID: recipeID}, &Empty{})
}
