// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"bytes"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html
var templatesFS embed.FS

type Server struct {
	session   *Session
	geocoder  Geocoder
	db        *sql.DB
	metrics   *Metrics
	renderers []Renderer
}

// NewServer creates the operator facing server. db is used to read uploaded
// tables; renderers produce the side by side maps, in order. /metrics is only
// served when metrics is not nil.
func NewServer(session *Session, geocoder Geocoder, db *sql.DB, metrics *Metrics, renderers ...Renderer) *Server {
	return &Server{
		session:   session,
		geocoder:  geocoder,
		db:        db,
		metrics:   metrics,
		renderers: renderers,
	}
}

// Router returns the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templatesFS, "templates/*.html")))

	r.GET("/", s.reviewView)
	r.POST("/upload", s.upload)
	r.POST("/decide", s.decideForm)
	r.GET("/summary/flagged.csv", s.downloadFlagged)
	r.GET("/api/session", s.getSession)
	r.GET("/api/current", s.getCurrent)
	r.GET("/api/decisions", s.listDecisions)
	r.POST("/api/decisions", s.postDecision)
	r.GET("/api/summary", s.getSummary)

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}

// actionSet is the template friendly form of AvailableActions.
type actionSet struct {
	Confirm, Reject, Skip bool
}

func newActionSet(result *LookupResult) actionSet {
	return actionSet{
		Confirm: Allowed(ActionConfirm, result),
		Reject:  Allowed(ActionReject, result),
		Skip:    Allowed(ActionSkip, result),
	}
}

func (s *Server) reviewView(ctx *gin.Context) {
	snap := s.session.Snapshot()

	data := gin.H{
		"State":     snap.State().String(),
		"Cursor":    snap.Cursor,
		"Total":     len(snap.Entries),
		"Confirmed": snap.Confirmed,
		"Flagged":   snap.Flagged,
		"Saved":     ctx.Query("saved"),
		"Error":     ctx.Query("error"),
	}

	if snap.State() == StateReviewing {
		visit := s.session.Visit(ctx.Request.Context(), s.geocoder)
		if visit == nil {
			// the session moved on while looking up
			ctx.Redirect(http.StatusSeeOther, "/")

			return
		}

		view := ComposeMap(visit.Result.Polygon, visit.Entry.Point)

		panels, err := RenderComparison(view, s.renderers...)
		if err != nil {
			ctx.String(http.StatusInternalServerError, err.Error())

			return
		}

		data["Visit"] = visit
		if view.DistanceMeters != nil {
			data["Distance"] = fmt.Sprintf("%.0f m", *view.DistanceMeters)
		}
		data["Position"] = visit.Index + 1
		data["View"] = view
		data["Panels"] = panels
		data["GoogleURL"] = GoogleSearchURL(visit.Entry)
		data["Can"] = newActionSet(&visit.Result)
	}

	ctx.HTML(http.StatusOK, "index.html", data)
}

func redirectHome(ctx *gin.Context, key, value string) {
	target := "/"
	if value != "" {
		target += "?" + url.Values{key: {value}}.Encode()
	}

	ctx.Redirect(http.StatusSeeOther, target)
}

func (s *Server) upload(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		redirectHome(ctx, "error", "no file uploaded")

		return
	}

	dir, err := os.MkdirTemp("", "polycheck-upload-")
	if err != nil {
		redirectHome(ctx, "error", err.Error())

		return
	}
	defer os.RemoveAll(dir)

	// the extension picks the reader, the name itself is not trusted
	path := filepath.Join(dir, "input"+strings.ToLower(filepath.Ext(file.Filename)))
	if err := ctx.SaveUploadedFile(file, path); err != nil {
		redirectHome(ctx, "error", err.Error())

		return
	}

	entries, err := LoadEntries(ctx.Request.Context(), s.db, path)
	if err != nil {
		log.Printf("❗ upload %s: %v", file.Filename, err)
		redirectHome(ctx, "error", fmt.Sprintf("can't read %s: %v", file.Filename, err))

		return
	}

	s.session.Load(entries)
	redirectHome(ctx, "", "")
}

func (s *Server) decideForm(ctx *gin.Context) {
	action, err := ParseAction(ctx.PostForm("action"))
	if err != nil {
		redirectHome(ctx, "error", err.Error())

		return
	}

	index, err := strconv.Atoi(ctx.PostForm("index"))
	if err != nil {
		redirectHome(ctx, "error", "invalid index")

		return
	}

	decision, err := s.session.Decide(ctx.Request.Context(), s.geocoder, action, index)
	if err != nil {
		log.Printf("❗ %s: %v", action, err)
		redirectHome(ctx, "error", err.Error())

		return
	}

	if decision.Path != "" {
		log.Printf("✅ Saved %s", decision.Path)
		redirectHome(ctx, "saved", filepath.Base(decision.Path))

		return
	}

	redirectHome(ctx, "", "")
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownAction):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoJournal):
		return http.StatusNotFound
	case errors.Is(err, ErrStaleDecision),
		errors.Is(err, ErrActionNotAllowed),
		errors.Is(err, ErrSessionComplete),
		errors.Is(err, ErrSessionNotComplete),
		errors.Is(err, ErrNoInput):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// SessionResponse is the JSON form of the session.
type SessionResponse struct {
	State     string   `json:"state"`
	Cursor    int      `json:"cursor"`
	Total     int      `json:"total"`
	Confirmed []string `json:"confirmed"`
	Flagged   []string `json:"flagged"`
}

func (s *Server) getSession(ctx *gin.Context) {
	snap := s.session.Snapshot()

	ctx.JSON(http.StatusOK, SessionResponse{
		State:     snap.State().String(),
		Cursor:    snap.Cursor,
		Total:     len(snap.Entries),
		Confirmed: snap.Confirmed,
		Flagged:   snap.Flagged,
	})
}

// CurrentResponse describes the entry under review.
type CurrentResponse struct {
	Visit     *Visit   `json:"visit"`
	Map       MapView  `json:"map"`
	Actions   []Action `json:"actions"`
	GoogleURL string   `json:"google_url"`
}

func (s *Server) getCurrent(ctx *gin.Context) {
	visit := s.session.Visit(ctx.Request.Context(), s.geocoder)
	if visit == nil {
		ctx.JSON(http.StatusConflict, gin.H{"error": "no entry under review", "state": s.session.Snapshot().State().String()})

		return
	}

	ctx.JSON(http.StatusOK, CurrentResponse{
		Visit:     visit,
		Map:       ComposeMap(visit.Result.Polygon, visit.Entry.Point),
		Actions:   AvailableActions(&visit.Result),
		GoogleURL: GoogleSearchURL(visit.Entry),
	})
}

type DecisionRequest struct {
	Action string `json:"action" binding:"required"`
	Index  *int   `json:"index" binding:"required"`
}

func (s *Server) postDecision(ctx *gin.Context) {
	var req DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	action, err := ParseAction(req.Action)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	decision, err := s.session.Decide(ctx.Request.Context(), s.geocoder, action, *req.Index)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, decision)
}

func (s *Server) listDecisions(ctx *gin.Context) {
	limit, err := strconv.Atoi(ctx.DefaultQuery("limit", "100"))
	if err != nil || limit < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})

		return
	}

	offset, err := strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})

		return
	}

	records, err := s.session.History(limit, offset)
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, records)
}

func (s *Server) getSummary(ctx *gin.Context) {
	summary, err := s.session.Snapshot().Summary()
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, summary)
}

func (s *Server) downloadFlagged(ctx *gin.Context) {
	summary, err := s.session.Snapshot().Summary()
	if err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})

		return
	}

	var buf bytes.Buffer
	if err := WriteFlaggedCSV(&buf, summary.Flagged); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})

		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", FlaggedFilename))
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
