package internal

import (
	"alumni-chat/repositories"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

//go:embed inspect.html
var templatesFS embed.FS

type InspectRow struct {
	Key    string
	Kind   string
	Path   string
	Detail string
}

type RowMapper func(key string, val []byte) InspectRow

type PageData struct {
	Prefix string
	Items  []InspectRow
}

// maxInspectRows bounds the page so a large store does not lock the inspector.
const maxInspectRows = 500

// DebugServer serves operator endpoints next to the gRPC port: Prometheus
// metrics, a liveness probe, the Badger inspector and stored images.
type DebugServer struct {
	log    *slog.Logger
	db     *badger.DB
	images *repositories.ImageRepository
	mapper RowMapper
	server *http.Server
}

func NewDebugServer(log *slog.Logger, db *badger.DB, images *repositories.ImageRepository, port int) *DebugServer {
	d := &DebugServer{log: log, db: db, images: images, mapper: DocumentMapper}
	d.server = &http.Server{
		Addr:              fmt.Sprintf("0.0.0.0:%d", port),
		Handler:           d.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return d
}

func (d *DebugServer) Router() http.Handler {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if d.db.IsClosed() {
			http.Error(w, "store closed", http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "OK")
	})
	r.Get("/inspect", func(w http.ResponseWriter, r *http.Request) {
		prefix := r.URL.Query().Get("prefix")
		if prefix == "" {
			prefix = "doc:"
		}
		data := PageData{Prefix: prefix, Items: d.scan(prefix)}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	})
	if d.images != nil {
		r.Get("/images/{id}", d.serveImage)
	}
	return r
}

// Run serves until ctx is done.
func (d *DebugServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		d.log.Info("Debug server listening", "address", d.server.Addr)
		if err := d.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return d.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (d *DebugServer) scan(prefix string) []InspectRow {
	var rows []InspectRow
	_ = d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek([]byte(prefix)); it.ValidForPrefix([]byte(prefix)) && len(rows) < maxInspectRows; it.Next() {
			item := it.Item()
			_ = item.Value(func(val []byte) error {
				rows = append(rows, d.mapper(string(item.KeyCopy(nil)), val))
				return nil
			})
		}
		return nil
	})
	return rows
}

func (d *DebugServer) serveImage(w http.ResponseWriter, r *http.Request) {
	image, err := d.images.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", image.MimeType)
	w.Header().Set("Content-Length", strconv.Itoa(len(image.Data)))
	_, _ = w.Write(image.Data)
}

// DocumentMapper decodes "doc:{path}" entries and lists "grp:" index keys.
func DocumentMapper(key string, val []byte) InspectRow {
	kind, path, _ := strings.Cut(key, ":")
	row := InspectRow{Key: key, Kind: strings.ToUpper(kind), Path: path}
	if kind != "doc" {
		row.Detail = "-"
		return row
	}
	var s structpb.Struct
	if err := proto.Unmarshal(val, &s); err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}
	fields := s.AsMap()
	parts := make([]string, 0, len(fields))
	for k, v := range fields {
		text := fmt.Sprint(v)
		if len(text) > 60 {
			text = text[:60] + "…"
		}
		parts = append(parts, k+"="+text)
	}
	row.Detail = strings.Join(parts, " ")
	return row
}
