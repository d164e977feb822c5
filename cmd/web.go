package cmd

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rubiojr/fanfic/cmd/web/components"
	"github.com/rubiojr/fanfic/cmd/web/components/types"
	"github.com/rubiojr/fanfic/pkg/api"
	"github.com/rubiojr/fanfic/pkg/config"
	"github.com/rubiojr/fanfic/pkg/log"
	"github.com/rubiojr/fanfic/pkg/mirror"
	"github.com/rubiojr/fanfic/pkg/storage"
	"github.com/rubiojr/fanfic/pkg/version"
	"github.com/urfave/cli/v3"
)

//go:embed web/static/*
var staticFS embed.FS

const (
	browsePageSize = 100
	topListSize    = 50
	longestSize    = 100
	dashboardTop   = 10
)

var webLogger = log.ForService("web")

// WebCommand creates the web command with both API and UI
func WebCommand() *cli.Command {
	return &cli.Command{
		Name:  "web",
		Usage: "Start web server with both API endpoints and HTML interface",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind to (overrides the config file)",
			},
			&cli.StringFlag{
				Name:  "mirror",
				Usage: "Copy the database from this path before serving it",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Re-sync and reload when the mirror source changes",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			if c.IsSet("host") {
				cfg.Web.Host = c.String("host")
			}
			if c.IsSet("port") {
				cfg.Web.Port = c.Int("port")
			}
			if c.IsSet("mirror") {
				cfg.Mirror.Source = c.String("mirror")
				if cfg.Mirror.Destination == "" {
					cfg.Mirror.Destination = cfg.DatabasePath
				}
			}
			if c.Bool("watch") {
				cfg.Mirror.Watch = true
			}
			return startWebServer(ctx, cfg)
		},
	}
}

// WebServer holds the server dependencies
type WebServer struct {
	stories   api.Stories
	apiServer *api.Server
}

func NewWebServer(stories api.Stories) *WebServer {
	return &WebServer{
		stories:   stories,
		apiServer: api.NewServer(stories),
	}
}

// Handler returns the complete handler chain: routes, CORS, access log,
// panic recovery and response compression.
func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// API routes
	s.apiServer.RegisterRoutes(mux)

	// Web UI routes
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /browse", s.handleBrowse)
	mux.HandleFunc("GET /story/{id}", s.handleStory)
	mux.HandleFunc("GET /top/fandoms", s.handleTopFandoms)
	mux.HandleFunc("GET /top/authors", s.handleTopAuthors)
	mux.HandleFunc("GET /top/longest", s.handleLongest)

	// Static assets
	mux.Handle("GET /static/", s.staticHandler())

	mux.HandleFunc("/", s.handleNotFound)

	var handler http.Handler = api.CorsMiddleware(mux)
	handler = api.RequestLogger(handler)
	handler = middleware.Recoverer(handler)
	return gzhttp.GzipHandler(handler)
}

// startWebServer serves the configured database until SIGINT or SIGTERM.
func startWebServer(ctx context.Context, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var m *mirror.Mirror
	if cfg.Mirror.Enabled() {
		m = mirror.New(cfg.Mirror.Source, cfg.Mirror.Destination)
		if _, err := m.Sync(); err != nil {
			if _, statErr := os.Stat(cfg.Mirror.Destination); statErr != nil {
				return fmt.Errorf("syncing mirror: %w", err)
			}
			webLogger.Warnf("mirror sync failed, serving the existing copy: %v", err)
		}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	live := storage.NewLive(store)
	defer closeWithWarning("store", live)

	if m != nil && cfg.Mirror.Watch {
		go func() {
			err := m.Watch(ctx, func() {
				if err := live.Reopen(ctx); err != nil {
					webLogger.Errorf("reloading database: %v", err)
				}
			})
			if err != nil {
				webLogger.Errorf("mirror watch stopped: %v", err)
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           NewWebServer(live).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		webLogger.Infof("Starting web server on http://%s", cfg.Addr())
		webLogger.Infof("Serving %s", cfg.StorePath())
		webLogger.Infof("  Web UI: / /search /browse /story/{id} /top/fandoms /top/authors /top/longest")
		webLogger.Infof("  API: /api/search /api/story/{id} /api/stats/{basic,fandoms,authors,languages,ratings,status} /api/top/longest /health")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-sigCh:
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("web server failed: %w", err)
	}

	webLogger.Infof("Shutting down web server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	return server.Shutdown(shutdownCtx)
}

// Web UI Handlers

func (s *WebServer) pageData(title string) types.PageData {
	return types.PageData{
		Title:   title,
		Version: version.APIVersion(),
	}
}

func (s *WebServer) handleHome(w http.ResponseWriter, r *http.Request) {
	stats, err := s.stories.BasicStats(r.Context())
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}
	fandoms, err := s.stories.TopFandoms(r.Context(), dashboardTop)
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}

	data := s.pageData("Fanfic Explorer")
	data.Stats = stats
	data.Fandoms = fandoms
	s.render(w, r, http.StatusOK, components.Index(data))
}

// handleSearch shows the search form. Results are only listed once at least
// one filter is given, or show_all is set.
func (s *WebServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := storage.ParseSearchFilter(query)

	data := s.pageData("Search - Fanfic Explorer")
	data.Path = "/search"
	data.Query = query
	data.SortKeys = storage.SortKeys()
	data.Searched = !filter.IsEmpty() || query.Get("show_all") != ""

	if data.Searched {
		results, err := s.stories.Search(r.Context(), filter)
		if err != nil {
			s.renderStoreError(w, r, err)
			return
		}
		data.Stories = results.Stories
		data.Pagination = results.Pagination()
		data.PageOffset = filter.Offset()
	}

	s.render(w, r, http.StatusOK, components.Search(data))
}

// handleBrowse lists every story, newest update first.
func (s *WebServer) handleBrowse(w http.ResponseWriter, r *http.Request) {
	filter := storage.ParseSearchFilter(url.Values{"page": {r.URL.Query().Get("page")}})
	filter.PageSize = browsePageSize

	results, err := s.stories.Search(r.Context(), filter)
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}

	data := s.pageData("Browse - Fanfic Explorer")
	data.Path = "/browse"
	data.Stories = results.Stories
	data.Pagination = results.Pagination()
	data.PageOffset = filter.Offset()
	s.render(w, r, http.StatusOK, components.Browse(data))
}

func (s *WebServer) handleStory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.handleNotFound(w, r)
		return
	}

	story, found, err := s.stories.GetStory(r.Context(), id)
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}
	if !found {
		s.handleNotFound(w, r)
		return
	}

	data := s.pageData(story.Title + " - Fanfic Explorer")
	data.Story = story
	s.render(w, r, http.StatusOK, components.Story(data))
}

func (s *WebServer) handleTopFandoms(w http.ResponseWriter, r *http.Request) {
	fandoms, err := s.stories.TopFandoms(r.Context(), topListSize)
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}
	data := s.pageData("Top Fandoms - Fanfic Explorer")
	data.Fandoms = fandoms
	s.render(w, r, http.StatusOK, components.TopFandoms(data))
}

func (s *WebServer) handleTopAuthors(w http.ResponseWriter, r *http.Request) {
	authors, err := s.stories.TopAuthors(r.Context(), topListSize)
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}
	data := s.pageData("Top Authors - Fanfic Explorer")
	data.Authors = authors
	s.render(w, r, http.StatusOK, components.TopAuthors(data))
}

func (s *WebServer) handleLongest(w http.ResponseWriter, r *http.Request) {
	stories, err := s.stories.LongestStories(r.Context(), longestSize)
	if err != nil {
		s.renderStoreError(w, r, err)
		return
	}
	data := s.pageData("Longest Stories - Fanfic Explorer")
	data.Stories = stories
	s.render(w, r, http.StatusOK, components.Longest(data))
}

func (s *WebServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	data := s.pageData("Page not found")
	s.render(w, r, http.StatusNotFound, components.Error(data))
}

// renderStoreError renders the error page: 503 when the database cannot be
// read, 500 for anything else.
func (s *WebServer) renderStoreError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	webLogger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)

	status := http.StatusInternalServerError
	data := s.pageData("Something went wrong")
	data.Error = "The page could not be generated."
	if errors.Is(err, storage.ErrStoreUnavailable) {
		status = http.StatusServiceUnavailable
		data.Title = "Database unavailable"
		data.Error = "The story database cannot be read right now. Please try again later."
	}
	s.render(w, r, status, components.Error(data))
}

// render buffers the page so template failures still produce a clean 500.
func (s *WebServer) render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	var buf bytes.Buffer
	if err := c.Render(r.Context(), &buf); err != nil {
		webLogger.Errorf("rendering %s: %v", r.URL.Path, err)
		http.Error(w, "Template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		webLogger.Debugf("writing response: %v", err)
	}
}

// staticHandler serves the embedded assets.
func (s *WebServer) staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "web/static")
	if err != nil {
		panic(err)
	}
	files := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
