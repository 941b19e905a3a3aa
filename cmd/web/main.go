package main

import (
	"crypto/rand"
	"embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"pathovar/internal/cache"
	"pathovar/internal/config"
	"pathovar/internal/fasta"
	"pathovar/internal/generator"
	"pathovar/internal/logging"
	"pathovar/internal/output"
	"pathovar/internal/proteins"
	"pathovar/internal/variant"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// maxUpload bounds the size of an uploaded FASTA file.
const maxUpload = 32 << 20

// PolicyOption is one entry of the policy select and of /api/policies.
type PolicyOption struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Default     bool   `json:"default"`
}

func policyOptions() []PolicyOption {
	opts := make([]PolicyOption, 0, len(variant.Policies))
	for _, p := range variant.Policies {
		opts = append(opts, PolicyOption{Name: p.String(), Description: p.Description(), Default: p == variant.PathogenicOnly})
	}
	return opts
}

// IndexPage renders the upload form.
type IndexPage struct {
	Policies []PolicyOption
	Error    string
}

// ResultPage renders the outcome of one generate request.
type ResultPage struct {
	Token    string
	FileName string
	Policy   string
	Summary  generator.Summary
	Entries  int
	Message  string
	Preview  string
}

// result is a generated file kept for download.
type result struct {
	name    string
	text    string
	created time.Time
}

type server struct {
	lookup generator.Lookup
	logger *log.Logger
	// concurrency and qps are passed to every run
	concurrency int
	qps         int
	timeout     time.Duration
	// keep bounds how long results stay downloadable
	keep time.Duration

	mu      sync.Mutex
	results map[string]result
	now     func() time.Time
}

func newServer(lookup generator.Lookup, logger *log.Logger) *server {
	return &server{
		lookup:  lookup,
		logger:  logger,
		keep:    time.Hour,
		results: make(map[string]result),
		now:     time.Now,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.indexHandler)
	mux.HandleFunc("POST /generate", s.generateHandler)
	mux.HandleFunc("GET /download/{token}", s.downloadHandler)
	mux.HandleFunc("GET /api/policies", s.apiPoliciesHandler)
	return loggingMiddleware(s.logger, mux)
}

// statusResponseWriter captures status and bytes written for logging
type statusResponseWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// loggingMiddleware logs each request with method, path, status, size and duration
func loggingMiddleware(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusResponseWriter{ResponseWriter: w}
		next.ServeHTTP(srw, r)
		if srw.status == 0 {
			srw.status = http.StatusOK
		}
		logger.Info("request", "remote", r.RemoteAddr, "method", r.Method, "uri", r.URL.RequestURI(),
			"status", srw.status, "bytes", srw.written, "duration", time.Since(start), "agent", r.UserAgent())
	})
}

func (s *server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render template", "template", name, "err", err)
	}
}

func (s *server) indexHandler(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "index.html", IndexPage{Policies: policyOptions()})
}

func (s *server) apiPoliciesHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(policyOptions())
}

// readUpload returns the FASTA text from the "fasta" file field, falling
// back to the "text" field.
func readUpload(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return "", fmt.Errorf("parse form: %w", err)
	}
	f, _, err := r.FormFile("fasta")
	switch {
	case err == nil:
		defer f.Close()
		b, err := io.ReadAll(io.LimitReader(f, maxUpload))
		if err != nil {
			return "", fmt.Errorf("read upload: %w", err)
		}
		if len(strings.TrimSpace(string(b))) > 0 {
			return string(b), nil
		}
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		return "", fmt.Errorf("read upload: %w", err)
	}
	return r.FormValue("text"), nil
}

func (s *server) badRequest(w http.ResponseWriter, msg string) {
	s.render(w, http.StatusBadRequest, "index.html", IndexPage{Policies: policyOptions(), Error: msg})
}

func (s *server) generateHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload+1<<20)
	text, err := readUpload(r)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	policy, err := variant.ParsePolicy(r.FormValue("policy"))
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	records := fasta.ParseString(text)
	if records.Len() == 0 {
		s.badRequest(w, "no valid protein identifiers found in the provided FASTA")
		return
	}

	runner := &generator.Runner{
		Lookup:      s.lookup,
		Policy:      policy,
		Logger:      s.logger,
		Concurrency: s.concurrency,
		QPS:         s.qps,
		Timeout:     s.timeout,
	}
	res, err := runner.Run(r.Context(), records)
	if err != nil {
		s.logger.Warn("generate interrupted", "err", err)
		http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		return
	}

	token, err := s.store(output.DefaultFileName, res.Text)
	if err != nil {
		http.Error(w, "failed to store result", http.StatusInternalServerError)
		return
	}
	page := ResultPage{
		Token:    token,
		FileName: output.DefaultFileName,
		Policy:   policy.String(),
		Summary:  res.Summary,
		Entries:  len(res.Entries),
		Preview:  preview(res.Text, 40),
	}
	if len(res.Entries) == 0 {
		page.Message = res.Text
		page.Preview = ""
	}
	s.render(w, http.StatusOK, "result.html", page)
}

func (s *server) downloadHandler(w http.ResponseWriter, r *http.Request) {
	res, ok := s.lookupResult(r.PathValue("token"))
	if !ok {
		http.Error(w, "result not found or expired", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.name))
	_, _ = io.WriteString(w, res.text+"\n")
}

// store keeps text for download and drops expired results.
func (s *server) store(name, text string) (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	token := hex.EncodeToString(b[:])
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range s.results {
		if now.Sub(v.created) > s.keep {
			delete(s.results, k)
		}
	}
	s.results[token] = result{name: name, text: text, created: now}
	return token, nil
}

func (s *server) lookupResult(token string) (result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.results[token]
	if !ok || s.now().Sub(res.created) > s.keep {
		return result{}, false
	}
	return res, true
}

// preview returns at most n lines of text.
func preview(text string, n int) string {
	lines := strings.SplitN(text, "\n", n+1)
	if len(lines) > n {
		lines = append(lines[:n], "...")
	}
	return strings.Join(lines, "\n")
}

func main() {
	addr := flag.String("addr", ":8080", "HTTP listen address")
	configPath := flag.String("config", "", "path to a config file (default ./config.json when present)")
	verbose := flag.Bool("verbose", false, "enable verbose (debug) logging")
	flag.Parse()

	cfg, err := config.LoadConfig(viper.New(), *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger, closeLog := logging.New(logging.Options{File: cfg.LogFile, Level: cfg.LogLevel, Verbose: *verbose, Prefix: "web"})
	defer func() { _ = closeLog() }()

	store, err := cache.Open(cfg.CacheStore, cfg.CachePath, cfg.CacheTTL())
	if err != nil {
		logger.Fatal("open cache", "err", err)
	}
	defer store.Close()

	s := newServer(proteins.New(cfg.ProteinsAPIBase, store), logger)
	s.concurrency = cfg.Concurrency
	s.qps = cfg.QPS
	s.timeout = cfg.RequestTimeout()

	// generate requests wait on the remote API, so the write timeout is generous
	srv := &http.Server{Addr: *addr, Handler: s.routes(), ReadTimeout: 30 * time.Second, WriteTimeout: 10 * time.Minute}
	logger.Info("serving variant generator", "url", fmt.Sprintf("http://%s/", *addr), "cache_store", cfg.CacheStore)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", "err", err)
	}
}
