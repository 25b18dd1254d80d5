package newsletter

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"newsletter-agent/model"
)

const htmlHead = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Newsletter</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            line-height: 1.6;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .newsletter-container {
            max-width: 800px;
            margin: 0 auto;
            padding: 20px;
            background-color: #fff;
            box-shadow: 0 0 10px rgba(0,0,0,0.1);
        }
        .abstract {
            background-color: #f9f9f9;
            padding: 15px;
            margin-bottom: 20px;
            border-left: 4px solid #0066cc;
        }
        .summary {
            margin-bottom: 30px;
            padding-bottom: 20px;
            border-bottom: 1px solid #eee;
        }
        .summary-title {
            color: #0066cc;
            font-size: 18px;
            margin-bottom: 10px;
        }
        .summary-image {
            max-width: 100%;
            height: auto;
            background-color: #f0f0f0;
            display: block;
            margin: 10px 0;
            text-align: center;
            padding: 30px 0;
            color: #666;
        }
        .summary-image img {
            max-width: 100%;
            height: auto;
        }
        .summary-content {
            margin-bottom: 10px;
        }
        .source {
            font-style: italic;
            font-size: 14px;
            color: #666;
        }
        .other-news {
            background-color: #f9f9f9;
            padding: 15px;
            margin-top: 20px;
        }
        .other-news h2 {
            font-size: 18px;
            color: #333;
            margin-bottom: 10px;
        }
        .other-news-links {
            list-style-type: none;
            padding-left: 0;
        }
        .other-news-links li {
            margin-bottom: 5px;
        }
        a {
            color: #0066cc;
            text-decoration: none;
        }
        a:hover {
            text-decoration: underline;
        }
    </style>
</head>
<body>
    <div class="newsletter-container">
`

const abstractSection = `
        <div class="abstract">
            <h1>Newsletter</h1>
            <p>%s</p>
        </div>
`

const summarySection = `
        <div class="summary">
            <h2 class="summary-title">%s</h2>
            %s
            <div class="summary-content">
                <p>%s</p>
            </div>
            <div class="source">Source: <a href="%s" target="_blank">%s</a></div>
        </div>
`

const (
	imagePlaceholder = `<div class="summary-image">[Image Placeholder]</div>`
	imageTag         = `<div class="summary-image"><img src="data:image/png;base64,%s" alt="%s"></div>`
)

const otherNewsStart = `
        <div class="other-news">
            <h2>Other News:</h2>
            <ul class="other-news-links">
`

const otherNewsLink = `                <li><a href="%s" target="_blank">%s</a></li>
`

const otherNewsEnd = `            </ul>
        </div>
`

const htmlFooter = `
    </div>
</body>
</html>
`

// errorHTML is the whole document returned when composition fails.
const errorHTML = "<p>%s: %s</p>"

// renderer writes newsletter fragments. Model-generated text is reduced to
// escaped plain text; links are attribute-escaped.
type renderer struct {
	text *bluemonday.Policy
}

func newRenderer() *renderer {
	return &renderer{text: bluemonday.StrictPolicy()}
}

func (r *renderer) render(w io.Writer, abstract model.ArticleAbstract, featured []model.PageSummary, overflow []string) {
	io.WriteString(w, htmlHead)
	fmt.Fprintf(w, abstractSection, r.clean(abstract.Abstract))

	for _, s := range featured {
		link := html.EscapeString(s.Link)
		title := r.clean(s.Title)
		fmt.Fprintf(w, summarySection, title, r.image(s.Image, title), r.clean(s.ContentSummary), link, link)
	}

	if len(overflow) > 0 {
		io.WriteString(w, otherNewsStart)
		for _, l := range overflow {
			link := html.EscapeString(l)
			fmt.Fprintf(w, otherNewsLink, link, link)
		}
		io.WriteString(w, otherNewsEnd)
	}

	io.WriteString(w, htmlFooter)
}

func (r *renderer) image(img *model.Image, alt string) string {
	if img == nil || img.Base64PNG == "" {
		return imagePlaceholder
	}
	return fmt.Sprintf(imageTag, img.Base64PNG, alt)
}

func (r *renderer) clean(s string) string {
	return strings.TrimSpace(r.text.Sanitize(s))
}

func errorDocument(prefix string, err error) string {
	return fmt.Sprintf(errorHTML, prefix, html.EscapeString(err.Error()))
}
