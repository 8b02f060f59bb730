package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/canvas-oauth/internal/errors"
)

// Environment listings are served in pages of at most MaxPageLimit rows.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

var (
	errInvalidOffset = apperrors.Wrap(apperrors.ErrInvalidInput, "offset must be a non-negative integer")
	errInvalidLimit  = apperrors.Wrap(apperrors.ErrInvalidInput, "limit must be between 1 and 100")
)

// Page is an offset/limit window over an ordered listing.
type Page struct {
	Offset int
	Limit  int
}

// NewPage validates offset and limit.
func NewPage(offset, limit int) (Page, error) {
	if offset < 0 {
		return Page{}, errInvalidOffset
	}
	if limit < 1 || limit > MaxPageLimit {
		return Page{}, errInvalidLimit
	}
	return Page{Offset: offset, Limit: limit}, nil
}

// ParsePage reads the offset and limit query parameters, defaulting to the
// first DefaultPageLimit rows.
func ParsePage(c *gin.Context) (Page, error) {
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		return Page{}, errInvalidOffset
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(DefaultPageLimit)))
	if err != nil {
		return Page{}, errInvalidLimit
	}
	return NewPage(offset, limit)
}
