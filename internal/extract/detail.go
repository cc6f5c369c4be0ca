package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"probatescout-engine/internal/domain"
)

// ExtractDetail parses a single notice detail page into a partial record.
// Only fields the page actually yields are set; merging into the listing
// record is the caller's job.
func (e *Extractor) ExtractDetail(htmlBody, baseURL string) (domain.ScrapedRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlBody))
	if err != nil {
		return domain.ScrapedRecord{}, err
	}

	region := doc.Find("main, #content, #main, .content, article").First()
	if region.Length() == 0 {
		region = doc.Find("body").First()
	}

	var rec domain.ScrapedRecord
	rec.Name = cleanText(doc.Find("h1").First().Text())

	// Paragraph text is the notice body; keep a bounded snippet of it.
	var parts []string
	region.Find("p").Each(func(_ int, p *goquery.Selection) {
		if t := cleanText(p.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	body := strings.Join(parts, " ")
	if body == "" {
		body = cleanText(region.Text())
	}
	rec.Snippet = truncate(body, 600)

	rec.DateRange = reDate.FindString(body)
	if img, ok := region.Find("img[src]").First().Attr("src"); ok {
		rec.ImageURL = absoluteURL(img, baseURL)
	}
	if pdf, ok := region.Find(`a[href$=".pdf"]`).First().Attr("href"); ok {
		rec.PDFURL = absoluteURL(pdf, baseURL)
	}
	if loc, ok := doc.Find(`meta[property="og:locality"], meta[name="locality"]`).First().Attr("content"); ok {
		rec.Locality = cleanText(loc)
	}

	rec.NoticeType = ClassifyNoticeType(rec.Name + " " + body)
	rec.County = ResolveCounty(body+" "+rec.Locality, e.counties)
	rec.FuneralHome = FuneralHomeFrom(body)
	rec.SurvivedBy = SurvivedByFrom(body)
	return rec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return cut
}
