package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SiteRouter registers the static content endpoints backing the
// frontend's landing pages.
func SiteRouter(r chi.Router) {
	r.Get("/home", Home)
	r.Get("/about", About)
}

// Home provides static content for the home page.
func Home(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"title":       "Your Favorite Place for Free Bootstrap Themes",
		"tagline":     "Start Bootstrap can help you build better websites using the Bootstrap framework! Just download a theme and start customizing, no strings attached!",
		"button_text": "Find Out More",
		"button_link": "#about",
	})
}

// About provides static content for the about page.
func About(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"title":       "We've got what you need!",
		"content":     "Start Bootstrap has everything you need to get your new website up and running in no time! Choose one of our open source, free to download, and easy to use themes! No strings attached!",
		"button_text": "Get Started!",
		"button_link": "#services",
	})
}
