package dashboard

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/speedwagon-io/wastemon/internal/config"
	"github.com/speedwagon-io/wastemon/internal/level"
	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
	"github.com/speedwagon-io/wastemon/internal/model"
)

const Title = "Smart Waste Management System Monitor"

//go:embed templates/index.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

type SnapshotSource interface {
	Snapshot() model.Snapshot
}

type Handler struct {
	log     *slog.Logger
	source  SnapshotSource
	bins    []config.BinConfig
	refresh time.Duration
}

func NewHandler(log *slog.Logger, source SnapshotSource, bins []config.BinConfig, refresh time.Duration) *Handler {
	return &Handler{
		log:     log,
		source:  source,
		bins:    bins,
		refresh: refresh,
	}
}

func (h *Handler) Routes(r chi.Router) {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("dashboard: " + err.Error())
	}

	r.Get("/", h.handleIndex)
	r.Get("/api/bins", h.handleBins)
	r.Get("/tints.css", h.handleTints)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
}

type pageData struct {
	Title          string
	RefreshSeconds int
	UpdatedAt      string
	Rows           []Row
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()

	data := pageData{
		Title:          Title,
		RefreshSeconds: refreshSeconds(h.refresh),
		Rows:           Render(snap, h.bins),
	}
	if !snap.FetchedAt.IsZero() {
		data.UpdatedAt = snap.FetchedAt.Format(time.RFC3339)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := indexTemplate.Execute(w, data); err != nil {
		h.log.Error("failed to render dashboard", sl.Err(err))
	}
}

// refreshSeconds rounds up so a sub-second refresh still reloads the page.
func refreshSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

var tintsCSS = buildTints()

func buildTints() string {
	var b strings.Builder
	for _, c := range []level.Color{level.Neutral, level.Nominal, level.Warning, level.Critical} {
		fmt.Fprintf(&b, ".%s { background: %s; }\n", c.Class(), c.Hex())
	}
	return b.String()
}

func (h *Handler) handleTints(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Write([]byte(tintsCSS))
}

type binsResponse struct {
	SnapshotID string     `json:"snapshot_id,omitempty"`
	EntryID    int64      `json:"entry_id,omitempty"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	Rows       []Row      `json:"rows"`
}

func (h *Handler) handleBins(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()

	resp := binsResponse{
		SnapshotID: snap.ID,
		EntryID:    snap.EntryID,
		Rows:       Render(snap, h.bins),
	}
	if !snap.FetchedAt.IsZero() {
		resp.FetchedAt = &snap.FetchedAt
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.log.Error("failed to encode bins", sl.Err(err))
	}
}
