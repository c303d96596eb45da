package enumerator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/raysh454/design-polish/internal/logging"
)

// DefaultMaxPages bounds a crawl when no limit is given.
const DefaultMaxPages = 50

type Spider struct {
	MaxDepth int
	MaxPages int
	wc       Fetcher
	logger   logging.Logger
}

type spiderHelper struct {
	spider *Spider
	root   *url.URL
	depth  map[string]int
	queue  []*url.URL
	routes []string
}

func NewSpider(maxDepth int, wc Fetcher, logger logging.Logger) *Spider {
	if logger == nil {
		logger = logging.NopLogger{}
	}
	return &Spider{
		MaxDepth: maxDepth,
		MaxPages: DefaultMaxPages,
		wc:       wc,
		logger:   logger.With(logging.Field{Key: "component", Value: "enumerator"}),
	}
}

func newSpiderHelper(spider *Spider, root string) (*spiderHelper, error) {
	rootURL, err := parseRoot(root)
	if err != nil {
		return nil, err
	}
	key := rootURL.String()

	return &spiderHelper{
		spider: spider,
		root:   rootURL,
		depth:  map[string]int{key: 0},
		queue:  []*url.URL{rootURL},
		routes: []string{routeOf(rootURL, rootURL)},
	}, nil
}

func (sh *spiderHelper) crawlPage(ctx context.Context, target *url.URL) ([]*url.URL, error) {
	resp, err := sh.spider.wc.Get(ctx, target.String())
	if err != nil {
		return nil, fmt.Errorf("error making http request: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("received %d from target", resp.StatusCode)
	}
	if ct := resp.Headers.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "text/html") {
		return nil, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(resp.Body)))
	if err != nil {
		return nil, fmt.Errorf("couldn't parse %s: %w", target, err)
	}

	base := target
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if u := resolve(target, href); u != nil {
			base = u
		}
	}

	var links []*url.URL
	doc.Find("a[href], area[href]").Each(func(_ int, s *goquery.Selection) {
		if rel, _ := s.Attr("rel"); strings.Contains(rel, "nofollow") {
			return
		}
		if _, dl := s.Attr("download"); dl {
			return
		}
		href, _ := s.Attr("href")
		if u := resolve(base, href); u != nil {
			links = append(links, u)
		}
	})
	return links, nil
}

// appendPages records unseen same-origin links one level below lastDepth.
// It reports false once the page limit is reached.
func (sh *spiderHelper) appendPages(pages []*url.URL, lastDepth int) bool {
	for _, page := range pages {
		if !sameOrigin(sh.root, page) || !strings.HasPrefix(page.Path, sh.root.Path) {
			continue
		}
		key := page.String()
		if _, exists := sh.depth[key]; exists {
			continue
		}
		if sh.spider.MaxPages > 0 && len(sh.routes) >= sh.spider.MaxPages {
			return false
		}
		sh.depth[key] = lastDepth + 1
		sh.queue = append(sh.queue, page)
		sh.routes = append(sh.routes, routeOf(sh.root, page))
	}
	return true
}

func (sh *spiderHelper) run(ctx context.Context) error {
	for i := 0; i < len(sh.queue); i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		page := sh.queue[i]
		depth := sh.depth[page.String()]
		if depth > sh.spider.MaxDepth {
			break
		}

		links, err := sh.crawlPage(ctx, page)
		if err != nil {
			// The root must answer; deeper failures only lose that branch.
			if i == 0 {
				return err
			}
			sh.spider.logger.Warn("error while crawling page",
				logging.Field{Key: "url", Value: page.String()},
				logging.Field{Key: "error", Value: err})
			continue
		}
		sh.spider.logger.Debug("crawled page",
			logging.Field{Key: "url", Value: page.String()},
			logging.Field{Key: "links", Value: len(links)})

		if !sh.appendPages(links, depth) {
			sh.spider.logger.Info("page limit reached", logging.Field{Key: "limit", Value: sh.spider.MaxPages})
			break
		}
	}
	return nil
}

// Enumerate crawls target breadth-first and returns the discovered routes in
// discovery order, starting with "/". Pages up to MaxDepth links away from
// the root are crawled; the links they contain are included.
func (s *Spider) Enumerate(ctx context.Context, target string) ([]string, error) {
	helper, err := newSpiderHelper(s, target)
	if err != nil {
		return nil, err
	}

	if err := helper.run(ctx); err != nil {
		return nil, err
	}
	return helper.routes, nil
}
