package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "recipebox.v1.RecipeBook"

// RecipeBookServer is implemented by the server side of the service.
type RecipeBookServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)

	ListRecipes(context.Context, *Empty) (*RecipeList, error)
	GetRecipe(context.Context, *IDRequest) (*RecipeResponse, error)
	SearchRecipes(context.Context, *SearchRequest) (*RecipeList, error)
	CreateRecipe(context.Context, *CreateRequest) (*RecipeResponse, error)
	UpdateRecipe(context.Context, *UpdateRequest) (*RecipeResponse, error)
	DeleteRecipe(context.Context, *IDRequest) (*DeleteResponse, error)
	ListOwnRecipes(context.Context, *Empty) (*RecipeList, error)
	Categories(context.Context, *Empty) (*CategoriesResponse, error)
	ImportRecipe(context.Context, *ImportRequest) (*RecipeResponse, error)
	UploadImage(context.Context, *UploadImageRequest) (*UploadImageResponse, error)

	ListBookmarks(context.Context, *Empty) (*BookmarkList, error)
	ContainsBookmark(context.Context, *BookmarkRequest) (*BookmarkState, error)
	AddBookmark(context.Context, *BookmarkRequest) (*Empty, error)
	RemoveBookmark(context.Context, *BookmarkRequest) (*Empty, error)
	ToggleBookmark(context.Context, *BookmarkRequest) (*BookmarkState, error)
	WatchBookmarks(*Empty, grpc.ServerStreamingServer[BookmarkList]) error
}

// FullMethod returns the gRPC path of a method, e.g. "/recipebox.v1.RecipeBook/Login".
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

func unary[Req, Resp any](name string, call func(RecipeBookServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(RecipeBookServer)
			if ic == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}

func watchBookmarksHandler(srv any, stream grpc.ServerStream) error {
	in := new(Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(RecipeBookServer).WatchBookmarks(in, &grpc.GenericServerStream[Empty, BookmarkList]{ServerStream: stream})
}

// ServiceDesc describes the service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RecipeBookServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("Register", RecipeBookServer.Register),
		unary("Login", RecipeBookServer.Login),
		unary("ListRecipes", RecipeBookServer.ListRecipes),
		unary("GetRecipe", RecipeBookServer.GetRecipe),
		unary("SearchRecipes", RecipeBookServer.SearchRecipes),
		unary("CreateRecipe", RecipeBookServer.CreateRecipe),
		unary("UpdateRecipe", RecipeBookServer.UpdateRecipe),
		unary("DeleteRecipe", RecipeBookServer.DeleteRecipe),
		unary("ListOwnRecipes", RecipeBookServer.ListOwnRecipes),
		unary("Categories", RecipeBookServer.Categories),
		unary("ImportRecipe", RecipeBookServer.ImportRecipe),
		unary("UploadImage", RecipeBookServer.UploadImage),
		unary("ListBookmarks", RecipeBookServer.ListBookmarks),
		unary("ContainsBookmark", RecipeBookServer.ContainsBookmark),
		unary("AddBookmark", RecipeBookServer.AddBookmark),
		unary("RemoveBookmark", RecipeBookServer.RemoveBookmark),
		unary("ToggleBookmark", RecipeBookServer.ToggleBookmark),
	},
	Streams: []grpc.StreamDesc{{
		StreamName:    "WatchBookmarks",
		Handler:       watchBookmarksHandler,
		ServerStreams: true,
	}},
	Metadata: "recipebox/v1/recipebook",
}

// RegisterRecipeBookServer registers srv on s.
func RegisterRecipeBookServer(s grpc.ServiceRegistrar, srv RecipeBookServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// UnimplementedRecipeBookServer answers every method with codes.Unimplemented.
// Embed it to implement only part of the service.
type UnimplementedRecipeBookServer struct{}

var _ RecipeBookServer = UnimplementedRecipeBookServer{}

func unimplemented(method string) error {
	return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
}

func (UnimplementedRecipeBookServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, unimplemented("Register")
}
func (UnimplementedRecipeBookServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, unimplemented("Login")
}
func (UnimplementedRecipeBookServer) ListRecipes(context.Context, *Empty) (*RecipeList, error) {
	return nil, unimplemented("ListRecipes")
}
func (UnimplementedRecipeBookServer) GetRecipe(context.Context, *IDRequest) (*RecipeResponse, error) {
	return nil, unimplemented("GetRecipe")
}
func (UnimplementedRecipeBookServer) SearchRecipes(context.Context, *SearchRequest) (*RecipeList, error) {
	return nil, unimplemented("SearchRecipes")
}
func (UnimplementedRecipeBookServer) CreateRecipe(context.Context, *CreateRequest) (*RecipeResponse, error) {
	return nil, unimplemented("CreateRecipe")
}
func (UnimplementedRecipeBookServer) UpdateRecipe(context.Context, *UpdateRequest) (*RecipeResponse, error) {
	return nil, unimplemented("UpdateRecipe")
}
func (UnimplementedRecipeBookServer) DeleteRecipe(context.Context, *IDRequest) (*DeleteResponse, error) {
	return nil, unimplemented("DeleteRecipe")
}
func (UnimplementedRecipeBookServer) ListOwnRecipes(context.Context, *Empty) (*RecipeList, error) {
	return nil, unimplemented("ListOwnRecipes")
}
func (UnimplementedRecipeBookServer) Categories(context.Context, *Empty) (*CategoriesResponse, error) {
	return nil, unimplemented("Categories")
}
func (UnimplementedRecipeBookServer) ImportRecipe(context.Context, *ImportRequest) (*RecipeResponse, error) {
	return nil, unimplemented("ImportRecipe")
}
func (UnimplementedRecipeBookServer) UploadImage(context.Context, *UploadImageRequest) (*UploadImageResponse, error) {
	return nil, unimplemented("UploadImage")
}
func (UnimplementedRecipeBookServer) ListBookmarks(context.Context, *Empty) (*BookmarkList, error) {
	return nil, unimplemented("ListBookmarks")
}
func (UnimplementedRecipeBookServer) ContainsBookmark(context.Context, *BookmarkRequest) (*BookmarkState, error) {
	return nil, unimplemented("ContainsBookmark")
}
func (UnimplementedRecipeBookServer) AddBookmark(context.Context, *BookmarkRequest) (*Empty, error) {
	return nil, unimplemented("AddBookmark")
}
func (UnimplementedRecipeBookServer) RemoveBookmark(context.Context, *BookmarkRequest) (*Empty, error) {
	return nil, unimplemented("RemoveBookmark")
}
func (UnimplementedRecipeBookServer) ToggleBookmark(context.Context, *BookmarkRequest) (*BookmarkState, error) {
	return nil, unimplemented("ToggleBookmark")
}
func (UnimplementedRecipeBookServer) WatchBookmarks(*Empty, grpc.ServerStreamingServer[BookmarkList]) error {
	return unimplemented("WatchBookmarks")
}
