// Package importer turns a recipe web page into a draft recipe. It reads
// schema.org Recipe JSON-LD when the page has it and falls back to scraping
// the page title and list items otherwise.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/and161185/recipebox/internal/errs"
	"github.com/and161185/recipebox/internal/model"
)

const maxPage = 5 << 20

// Importer fetches pages over HTTP.
type Importer struct {
	client *http.Client
	log    *zap.Logger
}

// New returns an Importer. A nil client gets a 15 second timeout.
func New(client *http.Client, log *zap.Logger) *Importer {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{client: client, log: log}
}

// Import fetches rawURL and parses a draft from it. The draft is not saved.
func (im *Importer) Import(ctx context.Context, rawURL string) (model.Recipe, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.Recipe{}, fmt.Errorf("%w: import url must be http(s)", errs.ErrValidation)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return model.Recipe{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := im.client.Do(req)
	if err != nil {
		return model.Recipe{}, fmt.Errorf("fetch %s: %w", u.Host, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return model.Recipe{}, fmt.Errorf("fetch %s: status %d", u.Host, resp.StatusCode)
	}

	r, err := Parse(io.LimitReader(resp.Body, maxPage), u.String())
	if err != nil {
		im.log.Info("import found no recipe", zap.String("host", u.Host), zap.Error(err))
		return model.Recipe{}, err
	}
	return r, nil
}

// Parse reads an HTML document. source becomes the draft's Source.
func Parse(r io.Reader, source string) (model.Recipe, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return model.Recipe{}, fmt.Errorf("parse html: %w", err)
	}

	var found map[string]any
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var v any
		if json.Unmarshal([]byte(s.Text()), &v) != nil {
			return true
		}
		found = findRecipe(v)
		return found == nil
	})

	var out model.Recipe
	if found != nil {
		out = fromLD(found)
	} else {
		out = scrape(doc)
	}
	if out.Title == "" && len(out.Ingredients) == 0 {
		return model.Recipe{}, fmt.Errorf("%w: no recipe on page", errs.ErrNotFound)
	}
	out.Source = source
	if out.Servings < 1 {
		out.Servings = 1
	}
	if out.Category == "" {
		out.Category = "Other"
	}
	return out, nil
}

func findRecipe(v any) map[string]any {
	switch t := v.(type) {
	case []any:
		for _, el := range t {
			if m := findRecipe(el); m != nil {
				return m
			}
		}
	case map[string]any:
		if isType(t["@type"], "Recipe") {
			return t
		}
		if g, ok := t["@graph"]; ok {
			return findRecipe(g)
		}
	}
	return nil
}

func isType(v any, want string) bool {
	switch t := v.(type) {
	case string:
		return t == want
	case []any:
		for _, el := range t {
			if s, ok := el.(string); ok && s == want {
				return true
			}
		}
	}
	return false
}

func fromLD(m map[string]any) model.Recipe {
	r := model.Recipe{
		Title:    clean(str(m["name"])),
		Summary:  clean(str(m["description"])),
		Category: category(m["recipeCategory"]),
		Servings: yield(m["recipeYield"]),
		ImageURL: image(m["image"]),
	}
	for _, line := range strs(m["recipeIngredient"]) {
		if line = clean(line); line != "" {
			r.Ingredients = append(r.Ingredients, splitIngredient(line))
		}
	}
	r.Directions = instructions(m["recipeInstructions"])
	r.Tags = keywords(m["keywords"])

	total := Duration(str(m["totalTime"]))
	if total == 0 {
		total = Duration(str(m["prepTime"])) + Duration(str(m["cookTime"]))
	}
	r.CookTime = int(math.Ceil(total.Minutes()))
	return r
}

func instructions(v any) []model.Direction {
	var out []model.Direction
	switch t := v.(type) {
	case string:
		for _, line := range strings.Split(t, "\n") {
			if line = clean(line); line != "" {
				out = append(out, model.Direction{Description: line})
			}
		}
	case []any:
		for _, el := range t {
			out = append(out, instructions(el)...)
		}
	case map[string]any:
		switch {
		case isType(t["@type"], "HowToSection"):
			if name := clean(str(t["name"])); name != "" {
				out = append(out, model.Direction{Title: name})
			}
			out = append(out, instructions(t["itemListElement"])...)
		default:
			text, name := clean(str(t["text"])), clean(str(t["name"]))
			if name == text || strings.HasPrefix(text, name) {
				name = ""
			}
			if text != "" || name != "" {
				out = append(out, model.Direction{Title: name, Description: text})
			}
		}
	}
	return out
}

var isoDuration = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// Duration parses an ISO-8601 duration such as "PT1H30M". Unparsable input is 0.
func Duration(s string) time.Duration {
	m := isoDuration.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if m == nil {
		return 0
	}
	var d time.Duration
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute}
	for i, u := range units {
		if m[i+1] != "" {
			n, _ := strconv.Atoi(m[i+1])
			d += time.Duration(n) * u
		}
	}
	if m[4] != "" {
		f, _ := strconv.ParseFloat(m[4], 64)
		d += time.Duration(f * float64(time.Second))
	}
	return d
}

var leadingInt = regexp.MustCompile(`\d+`)

func yield(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		if n, err := strconv.Atoi(leadingInt.FindString(t)); err == nil {
			return n
		}
	case []any:
		for _, el := range t {
			if n := yield(el); n > 0 {
				return n
			}
		}
	}
	return 0
}

func category(v any) model.Category {
	for _, s := range strs(v) {
		for _, c := range model.Categories {
			if strings.EqualFold(strings.TrimSpace(s), string(c)) {
				return c
			}
		}
	}
	return ""
}

func keywords(v any) []string {
	var raw []string
	if s, ok := v.(string); ok {
		raw = strings.Split(s, ",")
	} else {
		raw = strs(v)
	}
	var out []string
	seen := map[string]bool{}
	for _, k := range raw {
		k = strings.ToLower(clean(k))
		if k != "" && !seen[k] {
			seen[k] = true
			out = append(out, k)
		}
	}
	return out
}

func image(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, el := range t {
			if s := image(el); s != "" {
				return s
			}
		}
	case map[string]any:
		return str(t["url"])
	}
	return ""
}

var amountPrefix = regexp.MustCompile(`^((?:[\d¼½¾⅓⅔⅛]+(?:[.,/]\d+)?\s*)+(?:-\s*\d+\s*)?(?:cups?|tbsp|tablespoons?|tsp|teaspoons?|g|grams?|kg|ml|l|oz|ounces?|lbs?|pounds?|pinch|cloves?)?\.?)\s+(.+)$`)

func splitIngredient(line string) model.Ingredient {
	if m := amountPrefix.FindStringSubmatch(line); m != nil {
		return model.Ingredient{Name: m[2], Amount: strings.TrimSpace(m[1])}
	}
	return model.Ingredient{Name: line}
}

func scrape(doc *goquery.Document) model.Recipe {
	var r model.Recipe
	r.Title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
	if r.Title == "" {
		r.Title = doc.Find("h1").First().Text()
	}
	if r.Title == "" {
		r.Title = doc.Find("title").First().Text()
	}
	r.Title = clean(r.Title)
	r.Summary, _ = doc.Find(`meta[property="og:description"]`).Attr("content")
	r.Summary = clean(r.Summary)
	r.ImageURL, _ = doc.Find(`meta[property="og:image"]`).Attr("content")

	doc.Find(`[class*="ingredient"] li`).Each(func(_ int, s *goquery.Selection) {
		if line := clean(s.Text()); line != "" {
			r.Ingredients = append(r.Ingredients, splitIngredient(line))
		}
	})
	doc.Find(`[class*="instruction"] li, [class*="direction"] li`).Each(func(_ int, s *goquery.Selection) {
		if line := clean(s.Text()); line != "" {
			r.Directions = append(r.Directions, model.Direction{Description: line})
		}
	})
	return r
}

func str(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			return str(t[0])
		}
	}
	return ""
}

func strs(v any) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		out := make([]string, 0, len(t))
		for _, el := range t {
			if s, ok := el.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
