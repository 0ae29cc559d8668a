package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

func DecodeJSON(body io.Reader, v interface{}) error {
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain a single JSON object")
	}
	return nil
}

// DecodeOptionalJSON accepts an empty body and leaves v untouched in that case.
func DecodeOptionalJSON(body io.Reader, v interface{}) error {
	if body == nil {
		return nil
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	return nil
}

func ValidationDetails(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	details := make(map[string]string, len(errs))
	for _, err := range errs {
		details[err.Field()] = err.Tag()
	}
	return details
}

func ParseLimitOffset(values url.Values, defaultLimit, maxLimit int64) (int64, int64, error) {
	limit := defaultLimit
	offset := int64(0)

	rawLimit := strings.TrimSpace(values.Get("limit"))
	if rawLimit != "" {
		parsed, err := strconv.ParseInt(rawLimit, 10, 64)
		if err != nil || parsed <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = parsed
	}

	rawOffset := strings.TrimSpace(values.Get("offset"))
	if rawOffset != "" {
		parsed, err := strconv.ParseInt(rawOffset, 10, 64)
		if err != nil || parsed < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = parsed
	}

	if limit > maxLimit {
		limit = maxLimit
	}

	return limit, offset, nil
}

// Page is a 1-based page request as used by the admin listings.
type Page struct {
	Page     int64 `json:"page"`
	PageSize int64 `json:"pageSize"`
}

func (p Page) Limit() int64  { return p.PageSize }
func (p Page) Offset() int64 { return (p.Page - 1) * p.PageSize }

func ParsePage(values url.Values, defaultSize, maxSize int64) (Page, error) {
	page := Page{Page: 1, PageSize: defaultSize}

	if raw := strings.TrimSpace(values.Get("page")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return Page{}, errors.New("invalid page")
		}
		page.Page = parsed
	}

	if raw := strings.TrimSpace(values.Get("pageSize")); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			return Page{}, errors.New("invalid pageSize")
		}
		page.PageSize = parsed
	}

	if page.PageSize > maxSize {
		page.PageSize = maxSize
	}
	return page, nil
}
