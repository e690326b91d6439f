// Command rb is a CLI client for the recipebox service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/recipebox/internal/bookmarks"
	"github.com/and161185/recipebox/internal/form"
	"github.com/and161185/recipebox/internal/model"
	"github.com/and161185/recipebox/internal/rpc"
)

func usage() {
	fmt.Fprintf(os.Stderr, `rb CLI
Usage:
  rb -addr HOST:PORT [-cacert file | -insecure | -plaintext] <cmd> [args]

Commands:
  version
  register      -u <username> -p <password>
  login         -u <username> -p <password>        (saves token)
  logout
  categories
  list                                             (recipes visible to you)
  mine
  search        [-q text] [-category c] [-max-time m] [-tag t] [-ingredients a,b] [-bookmarked]
  get           -id <uuid>
  add           -file <recipe.json|->
  edit          -id <uuid> [-file <recipe.json|->] [-title ..] [-summary ..] [-tips ..]
                [-cook-time m] [-servings n] [-category c] [-tags a,b] [-image url] [-public true|false]
  rm            -id <uuid>
  import        -url <page> [-save]
  upload-image  -recipe <uuid> -file <image>
  bookmark      -id <uuid>                          (toggle; local file when logged out)
  bookmarks     [-watch]
`)
	os.Exit(2)
}

var (
	version   = "dev"
	buildDate = "unknown"
)

type conn struct {
	addr, caPath        string
	insecure, plaintext bool
	cc                  *grpc.ClientConn
}

func (c *conn) client(token string) *rpc.Client {
	if c.cc == nil {
		tlsCfg, err := loadTLS(c.caPath, c.insecure, c.plaintext)
		if err != nil {
			fail(err)
		}
		cc, err := rpc.Dial(c.addr, tlsCfg)
		if err != nil {
			fail(err)
		}
		c.cc = cc
	}
	return rpc.NewClient(c.cc).WithToken(token)
}

func (c *conn) authed() *rpc.Client {
	token, err := loadToken()
	if err != nil {
		fail(err)
	}
	return c.client(token)
}

func (c *conn) close() {
	if c.cc != nil {
		_ = c.cc.Close()
	}
}

// main dispatches subcommands and configures TLS/auth for RPC calls.
func main() {
	addr := flag.String("addr", "localhost:8443", "server addr")
	caPath := flag.String("cacert", "", "CA cert (PEM)")
	insecure := flag.Bool("insecure", false, "skip cert verify (dev)")
	plaintext := flag.Bool("plaintext", false, "no TLS (dev)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cmd != "bookmarks" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
	}

	c := &conn{addr: *addr, caPath: *caPath, insecure: *insecure, plaintext: *plaintext}
	defer c.close()

	switch cmd {
	case "version":
		fmt.Printf("rb %s (%s)\n", version, buildDate)

	case "register":
		fs := flag.NewFlagSet("register", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		id, err := c.client("").Register(ctx, *u, *p)
		if err != nil {
			fail(err)
		}
		fmt.Println(id)

	case "login":
		fs := flag.NewFlagSet("login", flag.ExitOnError)
		u := fs.String("u", "", "username")
		p := fs.String("p", "", "password")
		_ = fs.Parse(args)
		if *u == "" || *p == "" {
			fmt.Fprintln(os.Stderr, "need -u and -p")
			os.Exit(1)
		}
		resp, err := c.client("").Login(ctx, *u, *p)
		if err != nil {
			fail(err)
		}
		exp := resp.ExpiresAt
		if exp.IsZero() {
			exp = tokenExpiry(resp.AccessToken, time.Now().Add(15*time.Minute))
		}
		if err := saveToken(tokenFile{AccessToken: resp.AccessToken, ExpiresAt: exp, UserID: resp.UserID}); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "logout":
		if err := removeToken(); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "categories":
		out, err := c.client("").Categories(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "list":
		token, _ := loadToken()
		out, err := c.client(token).ListRecipes(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(summaries(out))

	case "mine":
		out, err := c.authed().ListOwned(ctx)
		if err != nil {
			fail(err)
		}
		printJSON(summaries(out))

	case "search":
		fs := flag.NewFlagSet("search", flag.ExitOnError)
		q := fs.String("q", "", "text in title or summary")
		cat := fs.String("category", "", "category")
		maxTime := fs.Int("max-time", 0, "max cooking time, minutes")
		tag := fs.String("tag", "", "tag")
		ingr := fs.String("ingredients", "", "comma separated ingredient names")
		marked := fs.Bool("bookmarked", false, "only bookmarked recipes (login required)")
		_ = fs.Parse(args)

		f := model.RecipeFilters{
			Search:         *q,
			Category:       model.Category(*cat),
			MaxCookingTime: *maxTime,
			Tag:            *tag,
			Ingredients:    splitList(*ingr),
			BookmarkedOnly: *marked,
		}
		token, _ := loadToken()
		if *marked && token == "" {
			fail(errNoToken)
		}
		out, err := c.client(token).Search(ctx, f)
		if err != nil {
			fail(err)
		}
		printJSON(summaries(out))

	case "get":
		fs := flag.NewFlagSet("get", flag.ExitOnError)
		id := fs.String("id", "", "recipe id (uuid)")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		token, _ := loadToken()
		out, err := c.client(token).GetRecipe(ctx, *id)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "add":
		fs := flag.NewFlagSet("add", flag.ExitOnError)
		file := fs.String("file", "", "recipe JSON ('-'=stdin)")
		_ = fs.Parse(args)
		if *file == "" {
			fmt.Fprintln(os.Stderr, "need -file")
			os.Exit(1)
		}
		st := form.New()
		draft, err := readDraft(*file, st.Draft())
		if err != nil {
			fail(err)
		}
		out, err := st.Submit(ctx, c.authed(), draft)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "edit":
		fs := flag.NewFlagSet("edit", flag.ExitOnError)
		id := fs.String("id", "", "recipe id (uuid)")
		file := fs.String("file", "", "full recipe JSON ('-'=stdin)")
		fs.String("title", "", "title")
		fs.String("summary", "", "summary")
		fs.String("tips", "", "tips")
		fs.String("cook-time", "", "cooking time, minutes")
		fs.String("servings", "", "servings")
		fs.String("category", "", "category")
		fs.String("tags", "", "comma separated tags")
		fs.String("image", "", "image url")
		fs.String("public", "", "true|false")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}

		cli := c.authed()
		initial, err := cli.GetRecipe(ctx, *id)
		if err != nil {
			fail(err)
		}
		draft := *initial
		if *file != "" {
			if draft, err = readDraft(*file, draft); err != nil {
				fail(err)
			}
		}
		set := map[string]string{}
		fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })
		if draft, err = editDraft(draft, set); err != nil {
			fail(err)
		}
		out, err := form.Edit(*initial).Submit(ctx, cli, draft)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "rm":
		fs := flag.NewFlagSet("rm", flag.ExitOnError)
		id := fs.String("id", "", "recipe id (uuid)")
		_ = fs.Parse(args)
		if *id == "" {
			fmt.Fprintln(os.Stderr, "need -id")
			os.Exit(1)
		}
		if err := c.authed().Delete(ctx, *id); err != nil {
			fail(err)
		}
		fmt.Println("ok")

	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		url := fs.String("url", "", "recipe page url")
		save := fs.Bool("save", false, "save the imported draft")
		_ = fs.Parse(args)
		if *url == "" {
			fmt.Fprintln(os.Stderr, "need -url")
			os.Exit(1)
		}
		cli := c.authed()
		draft, err := cli.Import(ctx, *url)
		if err != nil {
			fail(err)
		}
		if !*save {
			printJSON(draft)
			break
		}
		out, err := form.New().Submit(ctx, cli, *draft)
		if err != nil {
			fail(err)
		}
		printJSON(out)

	case "upload-image":
		fs := flag.NewFlagSet("upload-image", flag.ExitOnError)
		recipe := fs.String("recipe", "", "recipe id (uuid)")
		file := fs.String("file", "", "image file ('-'=stdin)")
		_ = fs.Parse(args)
		if *recipe == "" || *file == "" {
			fmt.Fprintln(os.Stderr, "need -recipe and -file")
			os.Exit(1)
		}
		data, err := readAll(*file)
		if err != nil {
			fail(err)
		}
		url, err := c.authed().UploadImage(ctx, *recipe, data)
		if err != nil {
			fail(err)
		}
		fmt.Println(url)

	case "bookmark":
		fs := flag.NewFlagSet("bookmark", flag.ExitOnError)
		id := fs.String("id", "", "recipe id (uuid)")
		_ = fs.Parse(args)
		rid, err := uuid.FromString(*id)
		if err != nil {
			fmt.Fprintln(os.Stderr, "need -id <uuid>")
			os.Exit(1)
		}
		on, err := toggleBookmark(ctx, c, rid)
		if err != nil {
			fail(err)
		}
		printJSON(map[string]bool{"bookmarked": on})

	case "bookmarks":
		fs := flag.NewFlagSet("bookmarks", flag.ExitOnError)
		watch := fs.Bool("watch", false, "follow changes (login required)")
		_ = fs.Parse(args)
		if !*watch {
			list, err := bookmarkService(c).List(ctx)
			if err != nil {
				fail(err)
			}
			printJSON(list)
			break
		}
		stream, err := c.authed().WatchBookmarks(ctx)
		if err != nil {
			fail(err)
		}
		for {
			msg, err := stream.Recv()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				fail(rpc.FromStatus(err))
			}
			printJSON(msg.Bookmarks)
		}

	default:
		usage()
	}
}

// bookmarkService picks the server when a session exists and the local file
// otherwise.
func bookmarkService(c *conn) *bookmarks.Service {
	if token, err := loadToken(); err == nil {
		return bookmarks.NewService(c.client(token).Bookmarks(), nil, bookmarks.FixedScope("server"), zap.NewNop())
	}
	return localBookmarks()
}

// toggleBookmark flips the bookmark on the server in one call when a session
// exists, and in the local file otherwise.
func toggleBookmark(ctx context.Context, c *conn, recipeID uuid.UUID) (bool, error) {
	if token, err := loadToken(); err == nil {
		return c.client(token).ToggleBookmark(ctx, recipeID)
	}
	return localBookmarks().Toggle(ctx, recipeID)
}

func localBookmarks() *bookmarks.Service {
	return bookmarks.NewService(bookmarks.NewFileStore(bookmarksPath()), nil, bookmarks.FixedScope(bookmarks.LocalScope), zap.NewNop())
}

type summary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	CookTime int    `json:"cookTime"`
}

func summaries(rs []model.Recipe) []summary {
	out := make([]summary, 0, len(rs))
	for _, r := range rs {
		out = append(out, summary{ID: r.ID.String(), Title: r.Title, Category: string(r.Category), CookTime: r.CookTime})
	}
	return out
}

// readDraft decodes a recipe from path on top of base, so fields missing
// from the file keep their base value.
func readDraft(path string, base model.Recipe) (model.Recipe, error) {
	b, err := readAll(path)
	if err != nil {
		return model.Recipe{}, err
	}
	if err := json.Unmarshal(b, &base); err != nil {
		return model.Recipe{}, fmt.Errorf("decode recipe: %w", err)
	}
	return base, nil
}

// editDraft applies the field flags that were set on the command line.
func editDraft(r model.Recipe, set map[string]string) (model.Recipe, error) {
	atoi := func(name, v string) (int, error) {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("-%s: %w", name, err)
		}
		return n, nil
	}
	for name, v := range set {
		var err error
		switch name {
		case "title":
			r.Title = v
		case "summary":
			r.Summary = v
		case "tips":
			r.Tips = v
		case "category":
			r.Category = model.Category(v)
		case "tags":
			r.Tags = splitList(v)
		case "image":
			r.ImageURL = v
		case "cook-time":
			r.CookTime, err = atoi(name, v)
		case "servings":
			r.Servings, err = atoi(name, v)
		case "public":
			r.IsPublic, err = strconv.ParseBool(v)
			if err != nil {
				err = fmt.Errorf("-public: %w", err)
			}
		}
		if err != nil {
			return model.Recipe{}, err
		}
	}
	return r, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
