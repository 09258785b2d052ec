package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

// Reservation is a single room booking. Keys a client sends that are not
// known fields are kept in Extra and written back verbatim. A known key sent
// with a non-string value is kept the same way: the value lands in Extra
// under that key and the string field stays empty.
type Reservation struct {
	ID          string `json:"id"`
	NomeHospede string `json:"nomeHospede"`
	Email       string `json:"email"`
	Quarto      string `json:"quarto"`
	TipoQuarto  string `json:"tipoQuarto"`
	DataEntrada string `json:"dataEntrada"`
	DataSaida   string `json:"dataSaida"`
	Status      string `json:"status"`
	DataCriacao string `json:"dataCriacao"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Patch is a partial reservation as sent in a create or update body.
type Patch map[string]json.RawMessage

// ErrInvalidField is returned when a patch value is not valid JSON.
var ErrInvalidField = errors.New("invalid field")

// fieldOrder is the key order used when writing a reservation.
var fieldOrder = []string{
	FieldID,
	FieldNomeHospede,
	FieldEmail,
	FieldQuarto,
	FieldTipoQuarto,
	FieldDataEntrada,
	FieldDataSaida,
	FieldStatus,
	FieldDataCriacao,
}

func (r *Reservation) fields() map[string]*string {
	return map[string]*string{
		FieldID:          &r.ID,
		FieldNomeHospede: &r.NomeHospede,
		FieldEmail:       &r.Email,
		FieldQuarto:      &r.Quarto,
		FieldTipoQuarto:  &r.TipoQuarto,
		FieldDataEntrada: &r.DataEntrada,
		FieldDataSaida:   &r.DataSaida,
		FieldStatus:      &r.Status,
		FieldDataCriacao: &r.DataCriacao,
	}
}

// Apply overlays the patch onto r. Server-owned fields (id, dataCriacao) are
// skipped; every other key, known or not, overwrites the current value.
func (r *Reservation) Apply(p Patch) error {
	for key, raw := range p {
		if key == FieldID || key == FieldDataCriacao {
			continue
		}
		if !json.Valid(raw) {
			return fmt.Errorf("%w %q", ErrInvalidField, key)
		}
		r.set(key, append(json.RawMessage(nil), raw...))
	}
	return nil
}

// set stores one decoded key. Known keys holding a string or null go to their
// field; anything else is kept raw in Extra.
func (r *Reservation) set(key string, raw json.RawMessage) {
	if ptr, ok := r.fields()[key]; ok {
		if decodeString(raw, ptr) == nil {
			delete(r.Extra, key)
			return
		}
		*ptr = ""
	}
	if r.Extra == nil {
		r.Extra = make(map[string]json.RawMessage)
	}
	r.Extra[key] = raw
}

// Clone returns a deep copy so callers can mutate it freely.
func (r Reservation) Clone() Reservation {
	out := r
	if r.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(r.Extra))
		for k, v := range r.Extra {
			out.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return out
}

// MarshalJSON writes the known fields in a fixed order, then the extra keys
// sorted by name. Client key order is not kept.
func (r Reservation) MarshalJSON() ([]byte, error) {
	known := r.fields()

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range fieldOrder {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, key); err != nil {
			return nil, err
		}
		if raw, ok := r.Extra[key]; ok {
			buf.Write(raw)
			continue
		}
		value, err := json.Marshal(*known[key])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	keys := make([]string, 0, len(r.Extra))
	for k := range r.Extra {
		if _, ok := known[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		buf.WriteByte(',')
		if err := writeKey(&buf, k); err != nil {
			return nil, err
		}
		buf.Write(r.Extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	name, err := json.Marshal(key)
	if err != nil {
		return err
	}
	buf.Write(name)
	buf.WriteByte(':')
	return nil
}

func (r *Reservation) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = Reservation{}
	for key, value := range raw {
		r.set(key, value)
	}
	return nil
}

// decodeString accepts a JSON string or null (stored as "").
func decodeString(raw json.RawMessage, dst *string) error {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		*dst = ""
		return nil
	}
	return json.Unmarshal(raw, dst)
}
