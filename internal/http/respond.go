package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aaron7k/wealth/internal/core"
	applog "github.com/aaron7k/wealth/internal/log"
)

// Amount carries money over JSON. It accepts either a decimal number
// (12.34) or a decimal string ("12,34") and always encodes as a number.
type Amount struct {
	core.Money
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Float())
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		a.Money = core.FromFloat(num)
		return nil
	}
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return core.ErrInvalidAmount
	}
	cents, err := core.ParseDecimalToCents(str)
	if err != nil {
		return err
	}
	a.Money = core.Money{Cents: cents}
	return nil
}

// Date is a calendar day in JSON, formatted 2006-01-02. The zero value
// encodes as null.
type Date struct {
	time.Time
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(time.DateOnly))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("invalid date: %w", err)
	}
	if str == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse(time.DateOnly, str)
	if err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", str)
	}
	d.Time = t
	return nil
}

type errorResponse struct {
	Error string `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", applog.FieldError, err)
	}
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, errorResponse{Error: err.Error()})
}

// validationErrors are domain rejections that map to 422 rather
// than 500.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyName,
	core.ErrEmptyDescription,
	core.ErrInvalidAccountType,
	core.ErrInvalidType,
	core.ErrInvalidPeriod,
	core.ErrInvalidCurrency,
	core.ErrInvalidStatus,
	core.ErrInvalidDateRange,
	core.ErrMissingAccount,
	core.ErrDescriptionTooLong,
	core.ErrZeroDate,
	core.ErrInvalidPercentage,
}

// respondServiceError maps domain errors onto HTTP status codes.
func respondServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		respondError(w, http.StatusNotFound, err)
		return
	}
	for _, ve := range validationErrors {
		if errors.Is(err, ve) {
			respondError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}
	slog.Error("Request failed", applog.FieldError, err)
	respondError(w, http.StatusInternalServerError, errors.New("internal server error"))
}

// decodeJSON reads the request body into dst, limiting its size.
func decodeJSON(r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(nil, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}
