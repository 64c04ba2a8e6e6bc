package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 8 << 20

// fields holds a JSON object body decoded one level deep, so each attribute can be
// checked for presence and type on its own.
type fields map[string]json.RawMessage

func decodeFields(w http.ResponseWriter, r *http.Request) (fields, error) {
	var f fields
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&f); err != nil || f == nil {
		return nil, domain.InvalidInput("invalid request body")
	}
	return f, nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// optInt64 returns nil when the field is absent or null.
func (f fields) optInt64(name string) (*int64, error) {
	raw, ok := f[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v int64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, domain.InvalidInput("%s must be an integer", name)
	}
	return &v, nil
}

func (f fields) optString(name string) (*string, error) {
	raw, ok := f[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, domain.InvalidInput("%s must be a string", name)
	}
	return &v, nil
}

func (f fields) reqString(name string) (string, error) {
	v, err := f.optString(name)
	if err != nil {
		return "", err
	}
	if v == nil || *v == "" {
		return "", domain.Missing(name)
	}
	return *v, nil
}

func (f fields) optInt(name string) (*int, error) {
	v, err := f.optInt64(name)
	if err != nil || v == nil {
		return nil, err
	}
	n := int(*v)
	return &n, nil
}

// stringSlice returns nil when the field is absent or null.
func (f fields) stringSlice(name string) ([]string, error) {
	raw, ok := f[name]
	if !ok || isNull(raw) {
		return nil, nil
	}
	var v []string
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, domain.InvalidInput("%s must be an array of strings", name)
	}
	if v == nil {
		v = []string{}
	}
	return v, nil
}

func (f fields) raw(name string) json.RawMessage {
	raw, ok := f[name]
	if !ok || isNull(raw) {
		return nil
	}
	return raw
}

func positiveID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.InvalidInput("%s must be a positive integer", name)
	}
	return id, nil
}

func idParam(r *http.Request, name string) (int64, error) {
	return positiveID(chi.URLParam(r, name), name)
}
