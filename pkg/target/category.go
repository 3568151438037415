package target

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
	"github.com/aincatoni/pcfactory-monitor/pkg/httpclient"
)

// CategoryNode is one node of the catalog menu tree as served by the menu
// endpoint.
type CategoryNode struct {
	ID       int            `json:"id"`
	Name     string         `json:"name"`
	Link     string         `json:"link"`
	Children []CategoryNode `json:"children"`
}

// FetchCategoryTree retrieves and decodes the menu endpoint. A failure here
// is fatal for the run: with no tree there is nothing to probe.
func FetchCategoryTree(ctx context.Context, client *httpclient.Client, url string) ([]CategoryNode, error) {
	resp, err := client.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch category menu: %w", err)
	}
	if resp.StatusCode != 200 {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch category menu: status %d", resp.StatusCode)
	}
	var nodes []CategoryNode
	if err := httpclient.DecodeJSON(resp, &nodes); err != nil {
		return nil, fmt.Errorf("decode category menu: %w", err)
	}
	return nodes, nil
}

// FromCategoryTree walks the tree without depth limit and returns one Target
// per category carrying an id and a link, deduplicated by link. Output order
// follows the tree walk; the output set is identical across calls on the
// same tree.
func FromCategoryTree(nodes []CategoryNode, cfg config.CatalogConfig) []Target {
	var out []Target
	seen := make(map[string]struct{})

	var walk func(items []CategoryNode)
	walk = func(items []CategoryNode) {
		for _, item := range items {
			link := strings.TrimSpace(item.Link)
			if item.ID != 0 && link != "" {
				if _, dup := seen[link]; !dup {
					seen[link] = struct{}{}
					out = append(out, Target{
						ID:   strconv.Itoa(item.ID),
						Name: item.Name,
						URL:  strings.TrimRight(cfg.CategoryBaseURL, "/") + "/" + link,
						Params: map[string]string{
							"link": link,
						},
					})
				}
			}
			if len(item.Children) > 0 {
				walk(item.Children)
			}
		}
	}
	walk(nodes)
	return out
}
