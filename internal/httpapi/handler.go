// Package httpapi serves the layout detector over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"image"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/quiz-tapper/internal/detection"
	"github.com/ironsheep/quiz-tapper/internal/geometry"
	"github.com/ironsheep/quiz-tapper/internal/imaging"
	"github.com/ironsheep/quiz-tapper/internal/logging"
	"github.com/ironsheep/quiz-tapper/internal/screen"
)

// MaxUploadBytes caps the request body.
const MaxUploadBytes = 32 << 20

// Detector finds the quiz layout in a screenshot.
type Detector interface {
	Analyze(img image.Image) (*screen.Analysis, error)
}

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error      string            `json:"error"`
	Message    string            `json:"message,omitempty"`
	Reason     *detection.Reason `json:"reason,omitempty"`
	Candidates []geometry.Rect   `json:"candidates,omitempty"`
}

// NewHandler returns the API routes.
func NewHandler(d Detector, log logging.Logger) http.Handler {
	log = logging.Or(log)

	r := gin.New()
	r.Use(
		gin.Recovery(),
		requestLogger(log),
		requestSizeLimiter(MaxUploadBytes),
	)

	r.GET("/health", healthCheck)
	r.POST("/v1/match", matchScreen(d, log))
	return r
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func matchScreen(d Detector, log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		fh, err := c.FormFile("image")
		if err != nil {
			respondError(c, log, http.StatusBadRequest, "missing image upload", err)
			return
		}
		f, err := fh.Open()
		if err != nil {
			respondError(c, log, http.StatusBadRequest, "unreadable upload", err)
			return
		}
		defer f.Close()

		img, err := imaging.Decode(f)
		if err != nil {
			respondError(c, log, http.StatusBadRequest, "invalid image", err)
			return
		}

		an, err := d.Analyze(img)
		if err != nil {
			respondError(c, log, http.StatusInternalServerError, "detection error", err)
			return
		}
		if !an.Matched() {
			log.Debugf("%s: %v", fh.Filename, an.Failure)
			c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
				Error:      "detection failed",
				Message:    an.Failure.Error(),
				Reason:     &an.Failure.Reason,
				Candidates: an.Failure.Candidates,
			})
			return
		}
		c.JSON(http.StatusOK, an.Report())
	}
}

func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func respondError(c *gin.Context, log logging.Logger, code int, message string, err error) {
	if code >= http.StatusInternalServerError {
		log.Errorf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	} else {
		log.Warnf("%s %s: %s: %v", c.Request.Method, c.Request.URL.Path, message, err)
	}
	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   message,
		Message: err.Error(),
	})
}

// Serve listens on addr until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler, log logging.Logger) error {
	log = logging.Or(log)
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("listening on %s", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
