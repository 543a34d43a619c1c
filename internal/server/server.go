package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/tartampluch/go-vcf/internal/config"
)

// document is one cached response body and its validators.
type document struct {
	data         []byte
	etag         string
	lastModified string // http.TimeFormat
}

func newDocument(data []byte, lastModified string) *document {
	hash := sha256.Sum256(data)
	return &document{
		data:         data,
		etag:         fmt.Sprintf(config.FormatETag, hex.EncodeToString(hash[:])),
		lastModified: lastModified,
	}
}

// snapshot is everything the feed serves, swapped as a unit on Update.
type snapshot struct {
	calendar *document
	cards    map[string]*document
}

// FeedServer serves the generated calendar and the serialized cards.
type FeedServer struct {
	// Reads vastly outnumber updates, so the snapshot sits behind an
	// atomic pointer instead of a lock.
	cache atomic.Pointer[snapshot]
	Port  string
}

// NewFeedServer creates a server listening on localhost:port once started.
func NewFeedServer(port string) *FeedServer {
	return &FeedServer{
		Port: port,
	}
}

// Handler returns the routing table of the feed.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(config.RouteRoot, s.handleCalendarRequest)
	mux.HandleFunc(config.RouteCalendar, s.handleCalendarRequest)
	mux.HandleFunc(config.RouteCard, s.handleCardRequest)
	return mux
}

// Start serves the feed and blocks until ctx is cancelled.
func (s *FeedServer) Start(ctx context.Context) error {
	if s.Port == "" {
		return errors.New(config.ErrPortRequired)
	}

	srv := &http.Server{
		Addr:         config.LocalhostBindAddr + config.AddrSeparator + s.Port,
		Handler:      s.Handler(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	serverError := make(chan error, config.ChannelBufferSize)

	go func() {
		slog.Info(config.MsgServerListen,
			config.LogKeyComponent, config.CompServer,
			config.LogKeyPort, s.Port,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverError <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info(config.MsgServerStop, config.LogKeyComponent, config.CompServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("%s: %w", config.ErrServerShutdown, err)
		}
		return nil

	case err := <-serverError:
		return fmt.Errorf("%s: %w", config.ErrServerStartup, err)
	}
}

// Update atomically replaces the calendar and the card set.
// cards maps a card UID to its serialized text and may be nil.
func (s *FeedServer) Update(calendar []byte, cards map[string][]byte) {
	lastMod := time.Now().UTC().Format(http.TimeFormat)

	snap := &snapshot{
		calendar: newDocument(calendar, lastMod),
		cards:    make(map[string]*document, len(cards)),
	}
	for uid, data := range cards {
		snap.cards[uid] = newDocument(data, lastMod)
	}

	s.cache.Store(snap)

	slog.Debug(config.MsgCacheUpdated,
		config.LogKeyComponent, config.CompServer,
		config.LogKeySizeBytes, len(calendar),
		config.LogKeyCount, len(cards),
		config.LogKeyETag, snap.calendar.etag,
	)
}

func (s *FeedServer) handleCalendarRequest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != config.RouteRoot && r.URL.Path != config.RouteCalendar {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	serveDocument(w, r, snap.calendar, config.MimeTextCalendar)
}

func (s *FeedServer) handleCardRequest(w http.ResponseWriter, r *http.Request) {
	snap, ok := s.load(w, r)
	if !ok {
		return
	}
	doc, found := snap.cards[r.PathValue(config.PathValueUID)]
	if !found {
		http.Error(w, config.HTTPMsgNotFound, http.StatusNotFound)
		return
	}
	serveDocument(w, r, doc, config.MimeTextVCard)
}

// load checks the method and readiness shared by every route.
func (s *FeedServer) load(w http.ResponseWriter, r *http.Request) (*snapshot, bool) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set(config.HeaderAllow, config.AllowedMethods)
		http.Error(w, config.HTTPMsgMethodNotAll, http.StatusMethodNotAllowed)
		return nil, false
	}

	snap := s.cache.Load()
	if snap == nil {
		w.Header().Set(config.HeaderRetryAfter, config.RetryAfterSeconds)
		http.Error(w, config.HTTPMsgInitializing, http.StatusServiceUnavailable)
		return nil, false
	}
	return snap, true
}

// serveDocument writes doc with conditional-request support.
func serveDocument(w http.ResponseWriter, r *http.Request, doc *document, contentType string) {
	w.Header().Set(config.HeaderContentType, contentType)
	w.Header().Set(config.HeaderXContentType, config.MimeNoSniff)
	w.Header().Set(config.HeaderCacheControl, config.CacheControlPrivate)
	w.Header().Set(config.HeaderETag, doc.etag)
	w.Header().Set(config.HeaderLastModified, doc.lastModified)

	if match := r.Header.Get(config.HeaderIfNoneMatch); match == doc.etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	if since := r.Header.Get(config.HeaderIfModifiedSince); since != "" {
		if clientTime, err := time.Parse(http.TimeFormat, since); err == nil {
			if serverTime, err := time.Parse(http.TimeFormat, doc.lastModified); err == nil {
				if !serverTime.After(clientTime) {
					w.WriteHeader(http.StatusNotModified)
					return
				}
			}
		}
	}

	if r.Method == http.MethodGet {
		if _, err := io.Copy(w, bytes.NewReader(doc.data)); err != nil {
			slog.Error(config.ErrWriteResp,
				config.LogKeyComponent, config.CompServer,
				config.LogKeyError, err,
			)
		}
	}
}
