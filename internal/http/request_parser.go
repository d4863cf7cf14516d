package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bilancio/internal/services"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// decodeJSON reads exactly one JSON object into dst. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return newBadRequest("Content-Type must be application/json")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			return newBadRequest("request body too large")
		case errors.Is(err, io.EOF):
			return newBadRequest("request body is empty")
		default:
			return newBadRequest("malformed JSON: " + err.Error())
		}
	}
	if dec.More() {
		return newBadRequest("request body must hold a single JSON object")
	}
	return nil
}

// queryInt reads an optional integer parameter; absent means 0.
func queryInt(query url.Values, key string) (int, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, newBadRequest(fmt.Sprintf("%s must be a number", key))
	}
	return n, nil
}

// ParseListQuery extracts the month, year and category filters of a list endpoint.
func ParseListQuery(query url.Values) (services.ListQuery, error) {
	month, err := queryInt(query, "month")
	if err != nil {
		return services.ListQuery{}, err
	}
	year, err := queryInt(query, "year")
	if err != nil {
		return services.ListQuery{}, err
	}
	return services.ListQuery{
		Month:    month,
		Year:     year,
		Category: sanitizeInput(query.Get("category")),
	}, nil
}

// pathID parses the {id} wildcard of the route.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, newBadRequest("id must be a positive integer")
	}
	return id, nil
}
