package utils

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Cursor holds sequence-based paging parameters for the event log.
type Cursor struct {
	After uint64 `json:"after"`
	Limit int    `json:"limit"`
}

// GetCursor extracts `after` and `limit` from the query parameters.
// Invalid values fall back to the defaults and limit is clamped to maxLimit.
func GetCursor(c *fiber.Ctx, defaultLimit, maxLimit int) Cursor {
	after, err := strconv.ParseUint(c.Query("after", "0"), 10, 64)
	if err != nil {
		after = 0
	}

	limit, err := strconv.Atoi(c.Query("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	return Cursor{After: after, Limit: limit}
}

// Next returns the cursor that continues after the last returned sequence
// number, or nil when the page was not full.
func (c Cursor) Next(lastSeq uint64, returned int) *Cursor {
	if returned < c.Limit {
		return nil
	}
	return &Cursor{After: lastSeq, Limit: c.Limit}
}

type PaginatedResponse struct {
	Data interface{} `json:"data"`
	Next *Cursor     `json:"next,omitempty"`
}

func NewPaginatedResponse(data interface{}, next *Cursor) PaginatedResponse {
	return PaginatedResponse{
		Data: data,
		Next: next,
	}
}
