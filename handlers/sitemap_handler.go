package handlers

import (
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapPage struct {
	Path     string
	Priority string
}

// Public routes of the site, in navigation order.
var sitemapPages = []sitemapPage{
	{"/", "1.0"},
	{"/services", "0.8"},
	{"/about", "0.6"},
	{"/compliance", "0.6"},
	{"/contact", "0.8"},
	{"/imprint", "0.6"},
	{"/privacy", "0.6"},
	{"/terms", "0.6"},
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// SitemapHandler renders sitemap.xml. The document is built once at startup.
type SitemapHandler struct {
	body []byte
}

// NewSitemapHandler builds the sitemap for baseURL. lastModified is stamped on every entry.
func NewSitemapHandler(baseURL string, lastModified time.Time) (*SitemapHandler, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	set := urlSet{XMLNS: sitemapNamespace}
	for _, p := range sitemapPages {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        baseURL + p.Path,
			LastMod:    lastModified.UTC().Format("2006-01-02"),
			ChangeFreq: "monthly",
			Priority:   p.Priority,
		})
	}

	body, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return &SitemapHandler{body: append([]byte(xml.Header), body...)}, nil
}

// GetSitemap godoc
// @Summary      Sitemap
// @Tags         site
// @Produce      xml
// @Success      200  {string}  string  "sitemap.xml"
// @Router       /sitemap.xml [get]
func (h *SitemapHandler) GetSitemap(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=3600")
	c.Data(http.StatusOK, "application/xml; charset=utf-8", h.body)
}
