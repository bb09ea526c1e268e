package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"txview/internal/core"
	"txview/internal/dashboard"
)

var (
	errMissingID          = errors.New("missing customer id")
	errMissingPage        = errors.New("missing page id")
	errTemplatesNotLoaded = errors.New("templates not loaded")
)

// parseCriteria reads the filter inputs. The name is kept as typed; the
// amount is trimmed later by the filter itself.
func parseCriteria(v url.Values) core.Criteria {
	return core.Criteria{
		Name:   sanitizeInput(v.Get("customer")),
		Amount: v.Get("amount"),
	}
}

// parseRowRef reads the clicked row reference sent with a selection.
func parseRowRef(v url.Values) (dashboard.RowRef, error) {
	if !v.Has("id") {
		return dashboard.RowRef{}, errMissingID
	}
	group, err := parseIndex(v, "group")
	if err != nil {
		return dashboard.RowRef{}, err
	}
	row, err := parseIndex(v, "row")
	if err != nil {
		return dashboard.RowRef{}, err
	}
	return dashboard.RowRef{CustomerID: v.Get("id"), Group: group, Index: row}, nil
}

// parsePageID reads the id of the page a request comes from.
func parsePageID(v url.Values) (string, error) {
	id := strings.TrimSpace(v.Get("page"))
	if id == "" {
		return "", errMissingPage
	}
	return id, nil
}

func parseIndex(v url.Values, key string) (int, error) {
	raw := strings.TrimSpace(v.Get(key))
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return n, nil
}

// sanitizeInput removes control characters except tab, newline and
// carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
