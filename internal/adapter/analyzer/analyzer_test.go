package analyzer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

const pageURL = "https://shop.example/products/vase"

const richPage = `<!doctype html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>Blue Ceramic Vase, handmade in small batches</title>
  <meta name="description" content="A hand-thrown ceramic vase glazed in deep cobalt blue. Each piece is unique and food safe.">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <meta property="og:title" content="Blue Ceramic Vase">
  <meta property="og:image" content="https://shop.example/img/vase.jpg">
  <meta name="twitter:card" content="summary_large_image">
  <link rel="canonical" href="/products/vase">
  <script type="application/ld+json">{"@context":"https://schema.org","@type":"Product","name":"Blue Ceramic Vase"}</script>
  <script type="application/ld+json">[{"@type":"Organization","name":"Shop"},{"@type":"WebSite"}]</script>
  <script type="application/ld+json">{not json</script>
</head>
<body>
  <h1>Blue Ceramic Vase</h1>
  <h2>Details</h2>
  <h2>Shipping</h2>
  <img src="/img/vase.jpg" alt="Blue vase" width="400" height="600">
  <img src="/img/detail.jpg">
  <table>
    <caption>Sizes</caption>
    <tr><th>Size</th><th>Height</th></tr>
    <tr><td>Small</td><td>20 cm</td></tr>
    <tr><td>Large</td><td>35 cm</td></tr>
  </table>
  <p>Questions? Write to Sales@Shop.example or call us.</p>
  <a href="mailto:support@shop.example?subject=Vase">Support</a>
  <a href="tel:+1-555-0100">Call</a>
  <a href="https://www.instagram.com/shop">Instagram</a>
  <a href="/products" rel="nofollow">All products</a>
  <a href="#reviews">Reviews</a>
</body>
</html>`

func TestExtract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dataType string
		check    func(t *testing.T, got any)
	}{
		{"jsonld", func(t *testing.T, got any) {
			items := got.([]any)
			if len(items) != 3 {
				t.Fatalf("jsonld items = %d, want 3 (invalid block skipped, array flattened)", len(items))
			}
			if items[0].(map[string]any)["@type"] != "Product" {
				t.Errorf("first item = %v", items[0])
			}
		}},
		{"opengraph", func(t *testing.T, got any) {
			want := map[string]string{"og:title": "Blue Ceramic Vase", "og:image": "https://shop.example/img/vase.jpg"}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("opengraph = %v, want %v", got, want)
			}
		}},
		{"twitter", func(t *testing.T, got any) {
			if got.(map[string]string)["twitter:card"] != "summary_large_image" {
				t.Errorf("twitter = %v", got)
			}
		}},
		{"META", func(t *testing.T, got any) {
			m := got.(PageMeta)
			if m.Lang != "en" || m.Charset != "utf-8" || m.Canonical != "https://shop.example/products/vase" {
				t.Errorf("meta = %+v", m)
			}
			if m.Tags["og:title"] != "Blue Ceramic Vase" || m.Tags["viewport"] == "" {
				t.Errorf("meta tags = %v", m.Tags)
			}
		}},
		{"headings", func(t *testing.T, got any) {
			want := []Heading{{1, "Blue Ceramic Vase"}, {2, "Details"}, {2, "Shipping"}}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("headings = %+v, want %+v", got, want)
			}
		}},
		{"tables", func(t *testing.T, got any) {
			want := []Table{{
				Caption: "Sizes",
				Headers: []string{"Size", "Height"},
				Rows:    [][]string{{"Small", "20 cm"}, {"Large", "35 cm"}},
			}}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("tables = %+v, want %+v", got, want)
			}
		}},
		{"contacts", func(t *testing.T, got any) {
			c := got.(Contacts)
			if !reflect.DeepEqual(c.Emails, []string{"support@shop.example", "sales@shop.example"}) {
				t.Errorf("emails = %v", c.Emails)
			}
			if !reflect.DeepEqual(c.Phones, []string{"+1-555-0100"}) {
				t.Errorf("phones = %v", c.Phones)
			}
			if !reflect.DeepEqual(c.Social, []string{"https://www.instagram.com/shop"}) {
				t.Errorf("social = %v", c.Social)
			}
		}},
		{"links", func(t *testing.T, got any) {
			ls := got.([]Link)
			if len(ls) != 4 {
				t.Fatalf("links = %+v, want 4 (fragment skipped)", ls)
			}
			last := ls[3]
			if last.URL != "https://shop.example/products" || !last.Internal || !last.NoFollow {
				t.Errorf("products link = %+v", last)
			}
			if ls[2].Internal {
				t.Errorf("instagram link marked internal: %+v", ls[2])
			}
		}},
		{"images", func(t *testing.T, got any) {
			want := []Image{
				{URL: "https://shop.example/img/vase.jpg", Alt: "Blue vase", Width: "400", Height: "600"},
				{URL: "https://shop.example/img/detail.jpg"},
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("images = %+v, want %+v", got, want)
			}
		}},
	}

	e := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.dataType, func(t *testing.T) {
			t.Parallel()
			got, err := e.Extract(context.Background(), pageURL, richPage, tt.dataType)
			if err != nil {
				t.Fatalf("Extract(%s) error = %v", tt.dataType, err)
			}
			tt.check(t, got)
		})
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	t.Parallel()

	_, err := NewExtractor().Extract(context.Background(), pageURL, richPage, "prices")
	if !errors.Is(err, ErrUnsupportedDataType) {
		t.Fatalf("error = %v, want ErrUnsupportedDataType", err)
	}
}

func TestAnalyzeWellFormedPage(t *testing.T) {
	t.Parallel()

	r, err := NewSEOAnalyzer().Analyze(context.Background(), pageURL, richPage)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if r.TitleLength != 44 || r.H1Count != 1 || r.Headings["h2"] != 2 {
		t.Errorf("report = %+v", r)
	}
	if !r.HasViewport || r.Lang != "en" || r.Canonical != "https://shop.example/products/vase" {
		t.Errorf("report = %+v", r)
	}
	if r.ImageCount != 2 || r.ImagesMissingAlt != 1 {
		t.Errorf("images = %d, missing alt = %d", r.ImageCount, r.ImagesMissingAlt)
	}
	if r.InternalLinks != 1 || r.ExternalLinks != 3 {
		t.Errorf("internal = %d, external = %d", r.InternalLinks, r.ExternalLinks)
	}

	// Only the missing alt and the short body are flagged.
	if len(r.Issues) != 2 || r.Score != 100-2-5 {
		t.Errorf("issues = %v, score = %d", r.Issues, r.Score)
	}
}

func TestAnalyzeBarePage(t *testing.T) {
	t.Parallel()

	markup := `<html><head><meta name="robots" content="noindex, nofollow"></head><body><p>hi</p></body></html>`
	r, err := NewSEOAnalyzer().Analyze(context.Background(), pageURL, markup)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	for _, want := range []string{"Missing <title>", "Missing meta description", "No <h1>", "blocks indexing", "viewport"} {
		found := false
		for _, issue := range r.Issues {
			if strings.Contains(issue, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("issues %v missing %q", r.Issues, want)
		}
	}
	if want := 100 - 20 - 15 - 10 - 5 - 15 - 5 - 10 - 5 - 5; r.Score != want {
		t.Errorf("score = %d, want %d", r.Score, want)
	}
}
