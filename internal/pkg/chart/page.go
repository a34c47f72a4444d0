package chart

import (
	"io"

	"github.com/fredbi/flightviz/internal/pkg/dashboard"
	"github.com/go-echarts/go-echarts/v2/components"
)

// Page represents a page containing the charts of the dashboard.
//
// A [Page] knows how to [Page.Render] as HTML.
type Page struct {
	Title  string
	Charts []*Chart
}

// NewPage creates a new page with the given title.
func NewPage(title string) *Page {
	return &Page{
		Title: title,
	}
}

// AddChart adds a chart to the page.
func (p *Page) AddChart(c *Chart) {
	p.Charts = append(p.Charts, c)
}

// Render writes the page HTML to the given writer.
func (p *Page) Render(w io.Writer) error {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.SetPageTitle(p.Title)

	for _, c := range p.Charts {
		page.AddCharts(c.Build())
	}

	return page.Render(w)
}

// Render paints a snapshot of the dashboard as an HTML page.
func (b *Builder) Render(w io.Writer, v dashboard.View) error {
	return b.BuildPage(v).Render(w)
}
