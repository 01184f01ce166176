package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/h2non/filetype"

	"github.com/pagerender/pagerender/internal/imageio"
	"github.com/pagerender/pagerender/internal/rasterize"
	"github.com/pagerender/pagerender/internal/rendering"
)

// acceptedMIME lists the sniffed upload types handed to MuPDF. Uploads that
// filetype cannot identify are passed through and left to the renderer.
var acceptedMIME = map[string]bool{
	"application/pdf":      true,
	"application/epub+zip": true,
}

// RenderParams holds the query parameters of POST /render.
type RenderParams struct {
	Page      int     `validate:"gte=1"`
	DPI       float64 `validate:"gt=0,lte=2400"`
	Width     int     `validate:"gte=0,lte=20000"`
	Height    int     `validate:"gte=0,lte=20000"`
	Crop      []int   `validate:"omitempty,len=4,dive,gte=0"`
	Gray      bool
	Antialias bool
	Format    string `validate:"oneof=png jpeg jpg"`
	Quality   int    `validate:"gte=0,lte=100"`
}

// Options converts the parameters to rendering options.
func (p *RenderParams) Options() rendering.Options {
	opts := rendering.Options{
		DPI:       p.DPI,
		Width:     p.Width,
		Height:    p.Height,
		Gray:      p.Gray,
		Antialias: p.Antialias,
	}
	if len(p.Crop) == 4 {
		opts.Crop.Min.X, opts.Crop.Min.Y = p.Crop[0], p.Crop[1]
		opts.Crop.Max.X, opts.Crop.Max.Y = p.Crop[2], p.Crop[3]
	}
	return opts
}

// PageInfo describes one page in a POST /pages response.
type PageInfo struct {
	Page   int    `json:"page"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Error  string `json:"error,omitempty"` // failure kind when the page size is unreadable
}

// PagesResponse represents the response for POST /pages
type PagesResponse struct {
	RequestID string     `json:"request_id"`
	PageCount int        `json:"page_count"`
	Pages     []PageInfo `json:"pages"`
}

// handleRender renders one page of the uploaded document and returns the image.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	params, err := s.parseRenderParams(r.URL.Query())
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	data, err := s.readUpload(w, r)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	doc, err := openDocument(data, "upload")
	if err != nil {
		log.Printf("[%s] open failed: %v", requestID(r.Context()), err)
		s.failResponse(w, r, err)
		return
	}
	defer closeDocument(doc)

	page, err := doc.Page(params.Page - 1)
	if err != nil {
		s.failResponse(w, r, &ErrValidation{
			Field:   "page",
			Message: fmt.Sprintf("must be between 1 and %d", doc.NumPages()),
		})
		return
	}

	if err := s.renderSlots.Acquire(r.Context(), 1); err != nil {
		s.failResponse(w, r, &ErrBusy{Cause: err})
		return
	}
	img, err := s.guard.RenderPageImage(page, params.Options())
	s.renderSlots.Release(1)
	if err != nil {
		log.Printf("[%s] %v", requestID(r.Context()), err)
		s.failResponse(w, r, err)
		return
	}

	format, _ := imageio.ParseFormat(params.Format)
	var buf bytes.Buffer
	if err := imageio.Encode(&buf, img, format, params.Quality); err != nil {
		s.errorResponse(w, r, http.StatusInternalServerError, "failed to encode image: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Page-Count", strconv.Itoa(doc.NumPages()))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[%s] Error writing image: %v", requestID(r.Context()), err)
	}
}

// handlePages reports the page count and page sizes (at 72 dpi) of the uploaded document.
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	data, err := s.readUpload(w, r)
	if err != nil {
		s.failResponse(w, r, err)
		return
	}

	doc, err := openDocument(data, "upload")
	if err != nil {
		s.failResponse(w, r, err)
		return
	}
	defer closeDocument(doc)

	resp := PagesResponse{
		RequestID: requestID(r.Context()),
		PageCount: doc.NumPages(),
		Pages:     make([]PageInfo, 0, doc.NumPages()),
	}
	for _, page := range doc.Pages() {
		info := PageInfo{Page: page.Index() + 1}
		err := rendering.Protect(func() error {
			b, err := page.Bounds()
			if err != nil {
				return err
			}
			info.Width, info.Height = b.Dx(), b.Dy()
			return nil
		})
		var failure *rendering.RenderFailure
		if errors.As(err, &failure) {
			info.Error = string(failure.Kind)
		}
		resp.Pages = append(resp.Pages, info)
	}

	s.jsonResponse(w, http.StatusOK, resp)
}

// parseRenderParams reads and validates the query string of POST /render.
func (s *Server) parseRenderParams(q url.Values) (*RenderParams, error) {
	params := &RenderParams{
		Page:      1,
		DPI:       s.defaultDPI,
		Antialias: true,
		Format:    "png",
	}

	if err := intParam(q, "page", &params.Page); err != nil {
		return nil, err
	}
	if err := intParam(q, "width", &params.Width); err != nil {
		return nil, err
	}
	if err := intParam(q, "height", &params.Height); err != nil {
		return nil, err
	}
	if err := intParam(q, "quality", &params.Quality); err != nil {
		return nil, err
	}
	if err := boolParam(q, "gray", &params.Gray); err != nil {
		return nil, err
	}
	if err := boolParam(q, "antialias", &params.Antialias); err != nil {
		return nil, err
	}
	if v := q.Get("dpi"); v != "" {
		dpi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, &ErrValidation{Field: "dpi", Message: "must be a number"}
		}
		params.DPI = dpi
	}
	if v := q.Get("format"); v != "" {
		params.Format = strings.ToLower(v)
	}
	if v := q.Get("crop"); v != "" {
		crop, err := parseCrop(v)
		if err != nil {
			return nil, err
		}
		params.Crop = crop
	}

	if err := s.validate.Struct(params); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return nil, &ErrValidation{
				Field:   strings.ToLower(fe.Field()),
				Message: strings.TrimSpace(fmt.Sprintf("failed %s %s", fe.Tag(), fe.Param())),
			}
		}
		return nil, &ErrValidation{Field: "query", Message: err.Error()}
	}

	return params, nil
}

func intParam(q url.Values, name string, dst *int) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return &ErrValidation{Field: name, Message: "must be an integer"}
	}
	*dst = n
	return nil
}

func boolParam(q url.Values, name string, dst *bool) error {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return &ErrValidation{Field: name, Message: "must be true or false"}
	}
	*dst = b
	return nil
}

// parseCrop parses "x0,y0,x1,y1".
func parseCrop(v string) ([]int, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return nil, &ErrValidation{Field: "crop", Message: "must be x0,y0,x1,y1"}
	}
	crop := make([]int, 4)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, &ErrValidation{Field: "crop", Message: "must be x0,y0,x1,y1"}
		}
		crop[i] = n
	}
	if crop[2] <= crop[0] || crop[3] <= crop[1] {
		return nil, &ErrValidation{Field: "crop", Message: "must satisfy x0 < x1 and y0 < y1"}
	}
	return crop, nil
}

// readUpload reads the request body up to the configured limit and rejects
// recognizable non-document uploads.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, &ErrValidation{Field: "body", Message: err.Error()}
	}
	if len(data) == 0 {
		return nil, &ErrValidation{Field: "body", Message: "document is empty"}
	}

	if kind, _ := filetype.Match(data); kind != filetype.Unknown && !acceptedMIME[kind.MIME.Value] {
		return nil, &ErrUnsupportedMedia{MIME: kind.MIME.Value}
	}
	return data, nil
}

// openDocument opens an uploaded document inside the render boundary, so a
// broken upload yields a *rendering.RenderFailure like a broken page does.
func openDocument(data []byte, name string) (*rasterize.Document, error) {
	var doc *rasterize.Document
	err := rendering.Protect(func() error {
		var err error
		doc, err = rasterize.OpenBytes(data, name)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func closeDocument(doc *rasterize.Document) {
	if err := doc.Close(); err != nil {
		log.Printf("Error closing document: %v", err)
	}
}
