package server

import (
	"errors"
	"net/http"

	"github.com/RyanBlaney/sonido-wavelet/logging"
	"github.com/RyanBlaney/sonido-wavelet/pipeline"
	"github.com/gin-gonic/gin"
)

// StatusClientClosedRequest is reported when the caller went away
const StatusClientClosedRequest = 499

var kindStatus = map[pipeline.Kind]int{
	pipeline.KindInvalidColumnIndex:       http.StatusBadRequest,
	pipeline.KindUnsupportedWaveletFamily: http.StatusBadRequest,
	pipeline.KindInvalidParameter:         http.StatusBadRequest,
	pipeline.KindMalformedUpload:          http.StatusBadRequest,
	pipeline.KindRequestTooLarge:          http.StatusRequestEntityTooLarge,
	pipeline.KindFileNotFound:             http.StatusNotFound,
	pipeline.KindNonNumericColumn:         http.StatusUnprocessableEntity,
	pipeline.KindEmptySeries:              http.StatusUnprocessableEntity,
	pipeline.KindInsufficientSamples:      http.StatusUnprocessableEntity,
	pipeline.KindDegenerateSignal:         http.StatusUnprocessableEntity,
	pipeline.KindCanceled:                 StatusClientClosedRequest,
	pipeline.KindTimeout:                  http.StatusGatewayTimeout,
	pipeline.KindInternal:                 http.StatusInternalServerError,
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Detail string        `json:"detail"`
	Kind   pipeline.Kind `json:"kind"`
}

// classify maps err to a status code and kind
func classify(err error) (int, pipeline.Kind) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, pipeline.KindRequestTooLarge
	}

	kind := pipeline.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	return status, kind
}

func respondError(c *gin.Context, logger logging.Logger, err error) {
	status, kind := classify(err)

	l := logger.WithContext(c.Request.Context()).WithFields(logging.Fields{
		"status": status,
		"kind":   kind,
	})
	if status >= http.StatusInternalServerError {
		l.Error(err, "request error")
	} else {
		l.Warn("request rejected", logging.Fields{"error": err.Error()})
	}

	c.AbortWithStatusJSON(status, ErrorResponse{Detail: err.Error(), Kind: kind})
}
