package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
	"github.com/fredcamaral/slidekiosk/internal/domain/ports"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string    `json:"error"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// NotFoundResponse is returned with status 200 for unknown slide IDs; the
// browser client checks the error field
type NotFoundResponse struct {
	Error string `json:"error"`
}

// SlideResponse is one slide as the browser client sees it
type SlideResponse struct {
	SlideID        int                      `json:"slide_id"`
	Title          string                   `json:"title"`
	Content        string                   `json:"content"`
	ContentHTML    string                   `json:"content_html"`
	Layout         string                   `json:"layout"`
	TotalSlides    int                      `json:"total_slides"`
	Timestamp      string                   `json:"timestamp"`
	CanvasElements []entities.CanvasElement `json:"canvas_elements,omitempty"`
}

// SlideSummary is one entry of the slide listing
type SlideSummary struct {
	SlideID int    `json:"slide_id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Layout  string `json:"layout"`
}

// SlidesListResponse represents the slide listing
type SlidesListResponse struct {
	Slides  []SlideSummary `json:"slides"`
	Total   int            `json:"total"`
	Current int            `json:"current"`
}

// ControlRequest is the body of POST /api/control
type ControlRequest struct {
	Action string `json:"action"`
	Slide  int    `json:"slide,omitempty"`
}

// ControlResponse acknowledges a control command whatever its effect
type ControlResponse struct {
	Status string `json:"status"`
	Action string `json:"action"`
}

const slideNotFound = "Slide not found"

// routes builds the router with websocket clients attached to cm
func (s *Server) routes(cm *ConnectionManager) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/static/style.css", s.handleStylesheet).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/static/script.js", s.handleScript).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ws", s.handleWebSocket(cm)).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/current_slide", s.handleCurrentSlide).Methods(http.MethodGet)
	api.HandleFunc("/slide", s.handleSlide).Methods(http.MethodGet)
	api.HandleFunc("/slides_list", s.handleSlidesList).Methods(http.MethodGet)
	api.HandleFunc("/image/{slide:[0-9]+}/{name}", s.handleSlideImage).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/image/{name}", s.handleSharedImage).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/control", s.handleControl).Methods(http.MethodGet, http.MethodPost)
	api.HandleFunc("/server_info", s.handleServerInfo).Methods(http.MethodGet)
	api.HandleFunc("/statistics", s.handleStatistics).Methods(http.MethodGet)
	if s.monitor != nil {
		api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	}

	// Apply middleware in order: security -> rate limiting -> logging -> activity -> recovery
	var handler http.Handler = r
	handler = securityHeadersMiddleware(handler)
	// control always answers success, so it is never throttled
	handler = createRateLimitMiddleware(handler, s.limiter, controlPath)
	handler = createLoggingMiddleware(handler, s.logger)
	if s.monitor != nil {
		handler = createActivityMiddleware(handler, s.monitor)
	}
	handler = createRecoveryMiddleware(handler, s.logger)

	return handler
}

const controlPath = "/api/control"

// handleIndex serves the browser client page
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	slides := s.store.GetAllSlides()

	seen := make(map[string]bool)
	var layouts []string
	for _, slide := range slides {
		l := string(slide.Layout)
		if !seen[l] {
			seen[l] = true
			layouts = append(layouts, l)
		}
	}
	sort.Strings(layouts)

	var buf bytes.Buffer
	err := s.pages.RenderIndex(r.Context(), &buf, ports.ClientPageData{
		TotalSlides:  len(slides),
		CurrentSlide: s.nav.CurrentSlide(),
		Layouts:      layouts,
	})
	if err != nil {
		s.handleError(w, err, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStylesheet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	_, _ = w.Write(s.pages.Stylesheet())
}

func (s *Server) handleScript(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write(s.pages.Script())
}

// handleCurrentSlide serves the slide under the cursor
func (s *Server) handleCurrentSlide(w http.ResponseWriter, r *http.Request) {
	s.writeSlide(w, s.nav.CurrentSlide())
}

// handleSlide serves /api/slide?id=N; a missing id means slide 1
func (s *Server) handleSlide(w http.ResponseWriter, r *http.Request) {
	id := 1
	if raw := r.URL.Query().Get("id"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.handleError(w, fmt.Errorf("invalid slide id %q: %w", raw, err), http.StatusBadRequest)
			return
		}
		id = n
	}
	s.writeSlide(w, id)
}

func (s *Server) writeSlide(w http.ResponseWriter, id int) {
	slide, err := s.store.GetSlide(id)
	if errors.Is(err, entities.ErrSlideNotFound) {
		s.writeJSON(w, NotFoundResponse{Error: slideNotFound})
		return
	}
	if err != nil {
		s.handleError(w, err, http.StatusInternalServerError)
		return
	}

	html, err := s.content.RenderContent(slide.Content)
	if err != nil {
		s.logger.Warn("Rendering slide %d failed: %v", id, err)
		html = ""
	}

	s.writeJSON(w, SlideResponse{
		SlideID:        slide.ID,
		Title:          slide.Title,
		Content:        slide.Content,
		ContentHTML:    html,
		Layout:         string(slide.Layout),
		TotalSlides:    s.store.SlideCount(),
		Timestamp:      entities.FormatTimestamp(time.Now()),
		CanvasElements: browserElements(slide),
	})
}

// browserElements copies the canvas list with image entries pointing at the
// image route instead of the filesystem
func browserElements(slide *entities.Slide) []entities.CanvasElement {
	if _, ok := slide.ExtraData[entities.CanvasElementsKey]; !ok {
		return nil
	}

	elems := slide.CanvasElements()
	out := make([]entities.CanvasElement, 0, len(elems))
	for _, e := range elems {
		c := e.Clone()
		if c.IsImage() {
			if rel := c.RelativePath(); rel != "" {
				c["web_url"] = imageURL(slide.ID, rel)
			}
			delete(c, "file_path")
		}
		out = append(out, c)
	}
	return out
}

func imageURL(slideID int, relativePath string) string {
	name := filepath.Base(filepath.FromSlash(relativePath))
	return fmt.Sprintf("/api/image/%d/%s", slideID, url.PathEscape(name))
}

// handleSlidesList serves the lightweight listing
func (s *Server) handleSlidesList(w http.ResponseWriter, r *http.Request) {
	slides := s.store.GetAllSlides()
	limit := s.cfg.GetPreviewLength()

	ids := make([]int, 0, len(slides))
	for id := range slides {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	resp := SlidesListResponse{
		Slides:  make([]SlideSummary, 0, len(ids)),
		Total:   len(ids),
		Current: s.nav.CurrentSlide(),
	}
	for _, id := range ids {
		slide := slides[id]
		resp.Slides = append(resp.Slides, SlideSummary{
			SlideID: id,
			Title:   slide.Title,
			Content: preview(slide.Content, limit),
			Layout:  string(slide.Layout),
		})
	}

	s.writeJSON(w, resp)
}

// preview cuts content to limit characters followed by "..."
func preview(content string, limit int) string {
	runes := []rune(content)
	if len(runes) <= limit {
		return content
	}
	return string(runes[:limit]) + "..."
}

// handleSlideImage streams a file from a slide's images directory
func (s *Server) handleSlideImage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["slide"])
	if err != nil {
		http.NotFound(w, r)
		return
	}
	s.serveImage(w, r, s.store.Paths().ImagesDir(id), vars["name"])
}

// handleSharedImage streams a file from the legacy shared images directory
func (s *Server) handleSharedImage(w http.ResponseWriter, r *http.Request) {
	s.serveImage(w, r, s.store.Paths().SharedImagesDir(), mux.Vars(r)["name"])
}

func (s *Server) serveImage(w http.ResponseWriter, r *http.Request, dir, name string) {
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		http.NotFound(w, r)
		return
	}

	f, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if s.cfg.ImageCacheSeconds > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", s.cfg.ImageCacheSeconds))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleControl evaluates a navigation command. The response reports
// success whether or not the cursor moved.
func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest

	if r.Method == http.MethodPost {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
			s.handleError(w, fmt.Errorf("decoding control request: %w", err), http.StatusBadRequest)
			return
		}
	} else {
		q := r.URL.Query()
		req.Action = q.Get("action")
		if raw := q.Get("slide"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				s.handleError(w, fmt.Errorf("invalid slide %q: %w", raw, err), http.StatusBadRequest)
				return
			}
			req.Slide = n
		}
	}

	s.nav.Command(req.Action, req.Slide)
	s.writeJSON(w, ControlResponse{Status: "success", Action: req.Action})
}

func (s *Server) handleServerInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Info())
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.store.Statistics())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.monitor.Health())
}

// handleError writes a sanitized JSON error and logs the real cause
func (s *Server) handleError(w http.ResponseWriter, err error, status int) {
	var message string
	switch status {
	case http.StatusBadRequest:
		message = "Invalid request"
	case http.StatusNotFound:
		message = "Resource not found"
	case http.StatusInternalServerError:
		message = "Internal server error"
	default:
		message = "An error occurred"
	}

	s.logger.Warn("HTTP error (status %d): %v", status, err)

	s.allowAnyOrigin(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Time:    time.Now(),
	}); encodeErr != nil {
		s.logger.Error("Failed to encode error response: %v", encodeErr)
	}
}

// writeJSON encodes data before touching the response so an encoding
// failure can still become a 500
func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		s.handleError(w, fmt.Errorf("encoding response: %w", err), http.StatusInternalServerError)
		return
	}

	s.allowAnyOrigin(w)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// allowAnyOrigin sets the wildcard CORS header on JSON responses when every
// origin is allowed and the CORS handler did not already answer
func (s *Server) allowAnyOrigin(w http.ResponseWriter) {
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		return
	}
	for _, o := range s.cfg.GetCORSOrigins() {
		if o == "*" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			return
		}
	}
}
