package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/memofn/evalstore/cmd/evalstore/service"
	"github.com/memofn/evalstore/common/framing"
	"github.com/memofn/evalstore/common/logger"
)

// requestLogger tags log lines with the id echo's RequestID middleware
// assigned to this request.
func requestLogger(c echo.Context, base *logger.Logger) *logger.Logger {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return base.WithRequestID(id)
	}
	return base
}

// framingHTTPError maps a framed-body decode failure to a response.
// Malformed frames are the client's fault; anything else means the
// transport broke underneath us.
func framingHTTPError(err error) error {
	var decodeErr *framing.DecodeError
	switch {
	case errors.As(err, &decodeErr):
		return echo.NewHTTPError(http.StatusBadRequest, "metadata is not valid JSON")
	case errors.Is(err, framing.ErrUnexpectedEOF):
		return echo.NewHTTPError(http.StatusBadRequest, "body ended before metadata was complete")
	case errors.Is(err, framing.ErrMetadataTooLarge):
		return echo.NewHTTPError(http.StatusBadRequest, "metadata block exceeds size limit")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to read request body")
	}
}

// uploadHTTPError maps a blob store upload failure to a response.
func uploadHTTPError(err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidHash):
		return echo.NewHTTPError(http.StatusBadRequest, "malformed content hash")
	case errors.Is(err, service.ErrIntegrity):
		return echo.NewHTTPError(http.StatusBadRequest, "content hash does not match payload")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to store payload")
	}
}

func parsePositiveInt(v string) (int64, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 0, errors.New("not a positive integer")
	}
	return n, nil
}
