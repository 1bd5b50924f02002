package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "message-api/docs"
	"message-api/internal/logger"
	"message-api/internal/metrics"
	"message-api/internal/model"
)

const (
	rootMessage  = "Backend is up and running"
	helloMessage = "Hello from Python!"

	healthTimeout = 2 * time.Second
)

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&logger.StructuredLogger{Logger: a.Log}))
	r.Use(middleware.Recoverer)
	r.Use(a.corsHandler())
	r.Use(metrics.Instrument)

	r.Get("/", a.Root)
	r.Get("/healthz", a.Health)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api", func(r chi.Router) {
		r.Get("/hello", a.Hello)
		r.Post("/greet", a.Greet)
		r.Post("/send", a.SendMessage)
		r.Get("/messages", a.ListMessages)
	})

	return r
}

func (a *API) corsHandler() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: a.Cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodOptions, http.MethodHead,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: a.Cfg.CORS.AllowCredentials,
		MaxAge:           600,
	}
	// Browsers refuse a literal "*" together with credentials, so echo the origin instead.
	for _, o := range a.Cfg.CORS.AllowedOrigins {
		if o == "*" {
			opts.AllowedOrigins = nil
			opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
			break
		}
	}
	return cors.Handler(opts)
}

// @Summary Service status
// @Tags System
// @Produce json
// @Success 200 {object} StatusResponse
// @Router / [get]
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "success", Message: rootMessage})
}

// @Summary Database health
// @Tags System
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := a.Store.Ping(ctx); err != nil {
		logger.FromRequest(r, a.Log).WithError(err).Warn("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// @Summary Static greeting
// @Tags Greetings
// @Produce json
// @Success 200 {object} DataResponse
// @Router /api/hello [get]
func (a *API) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, DataResponse{Data: helloMessage})
}

// @Summary Greet by name
// @Tags Greetings
// @Accept json
// @Produce json
// @Param body body GreetRequest true "Who to greet"
// @Success 200 {object} DataResponse
// @Failure 422 {object} ValidationErrorResponse
// @Router /api/greet [post]
func (a *API) Greet(w http.ResponseWriter, r *http.Request) {
	var req GreetRequest
	if err := a.decodeAndValidate(w, r, &req); err != nil {
		a.writeRequestError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DataResponse{Data: fmt.Sprintf("Hello, %s!", *req.Name)})
}

// @Summary Store a message
// @Tags Messages
// @Accept json
// @Produce json
// @Param body body SendRequest true "Message to store"
// @Success 200 {object} StatusResponse
// @Failure 422 {object} ValidationErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/send [post]
func (a *API) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := a.decodeAndValidate(w, r, &req); err != nil {
		a.writeRequestError(w, r, err)
		return
	}

	log := logger.FromRequest(r, a.Log)

	msg := &model.Message{Name: *req.Name, Content: *req.Content}
	if err := a.Store.CreateMessage(r.Context(), msg); err != nil {
		log.WithError(err).Error("failed to store message")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: http.StatusText(http.StatusInternalServerError)})
		return
	}
	metrics.MessagesStored.Inc()

	// The row is committed; a lost event must not turn the request into a failure.
	if err := a.Publisher.PublishMessageCreated(r.Context(), *msg); err != nil {
		log.WithError(err).WithField("message_id", msg.ID).Warn("failed to publish message.created")
	}

	log.WithField("message_id", msg.ID).Info("message stored")
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Message from %s saved", msg.Name),
	})
}

// @Summary List all messages
// @Tags Messages
// @Produce json
// @Success 200 {array} MessageResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/messages [get]
func (a *API) ListMessages(w http.ResponseWriter, r *http.Request) {
	messages, err := a.Store.ListMessages(r.Context())
	if err != nil {
		logger.FromRequest(r, a.Log).WithError(err).Error("failed to list messages")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: http.StatusText(http.StatusInternalServerError)})
		return
	}

	resp := make([]MessageResponse, len(messages))
	for i, m := range messages {
		resp[i] = MessageResponse{ID: m.ID, Name: m.Name, Content: m.Content}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		logger.FromRequest(r, a.Log).WithField("detail", reqErr.Error()).Debug("rejected request body")
		writeJSON(w, reqErr.Status, ValidationErrorResponse{Detail: reqErr.Fields})
		return
	}

	logger.FromRequest(r, a.Log).WithError(err).Error("request validation failed")
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: http.StatusText(http.StatusInternalServerError)})
}
