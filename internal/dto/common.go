package dto

import (
	"encoding/json"
	"net/http"

	apperrors "crm-system/pkg/errors"
)

// Fields records which top-level keys a JSON body carried, so a patch can tell
// "sent as null or empty" apart from "not sent".
type Fields map[string]struct{}

func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

func (f Fields) HasAny(keys ...string) bool {
	for _, k := range keys {
		if f.Has(k) {
			return true
		}
	}
	return false
}

func PresentFields(rawBody []byte) (Fields, error) {
	var changes map[string]json.RawMessage
	if err := json.Unmarshal(rawBody, &changes); err != nil {
		return nil, apperrors.NewHttpError(http.StatusBadRequest, "invalid JSON body", err, nil)
	}
	fields := make(Fields, len(changes))
	for k := range changes {
		fields[k] = struct{}{}
	}
	return fields, nil
}
