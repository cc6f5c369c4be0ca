package extract

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/domain"
)

// ldNode is a loosely typed JSON-LD node; sites disagree on nesting so
// everything is optional.
type ldNode struct {
	Type        string   `json:"@type"`
	Graph       []ldNode `json:"@graph"`
	ItemListEl  []ldItem `json:"itemListElement"`
	MainEntity  *ldNode  `json:"mainEntity"`
	Name        string   `json:"name"`
	URL         string   `json:"url"`
	Image       string   `json:"image"`
	Description string   `json:"description"`
}

type ldItem struct {
	Type     string  `json:"@type"`
	Position int     `json:"position"`
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Image    string  `json:"image"`
	Item     *ldNode `json:"item"`
}

// extractStructuredList pulls a schema.org-style item list out of embedded
// ld+json script blocks. Each list entry seeds one record.
func extractStructuredList(doc *goquery.Document, src config.Source) []domain.ScrapedRecord {
	var out []domain.ScrapedRecord

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}

		for _, node := range parseLDNodes(raw) {
			for _, item := range itemsOf(node) {
				name := cleanText(item.Name)
				url := strings.TrimSpace(item.URL)
				image := strings.TrimSpace(item.Image)
				if item.Item != nil {
					if name == "" {
						name = cleanText(item.Item.Name)
					}
					if url == "" {
						url = strings.TrimSpace(item.Item.URL)
					}
					if image == "" {
						image = strings.TrimSpace(item.Item.Image)
					}
				}
				if name == "" && url == "" {
					continue
				}
				out = append(out, domain.ScrapedRecord{
					Name:      name,
					DetailURL: absoluteURL(url, src.BaseURL),
					ImageURL:  absoluteURL(image, src.BaseURL),
				})
			}
		}
	})

	return out
}

func parseLDNodes(raw string) []ldNode {
	var one ldNode
	if err := json.Unmarshal([]byte(raw), &one); err == nil {
		if len(one.Graph) > 0 {
			return one.Graph
		}
		return []ldNode{one}
	}
	var many []ldNode
	if err := json.Unmarshal([]byte(raw), &many); err == nil {
		return many
	}
	return nil
}

func itemsOf(node ldNode) []ldItem {
	if strings.EqualFold(node.Type, "ItemList") && len(node.ItemListEl) > 0 {
		return node.ItemListEl
	}
	if node.MainEntity != nil {
		return itemsOf(*node.MainEntity)
	}
	return nil
}
