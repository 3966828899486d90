// Package hash derives stable identifiers from JSON-encodable values.
package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

// Prefix is prepended to every fingerprint.
const Prefix = "sha256:"

// CanonicalJSON encodes v with sorted object keys, no insignificant
// whitespace and numbers kept in their shortest decimal form, so equal
// values always produce equal bytes.
//
// v is round-tripped through a generic document: encoding/json already
// sorts map keys, so only numbers need rewriting before the final encode.
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for canonicalization: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode for canonicalization: %w", err)
	}

	if doc, err = normalize(doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode canonical form: %w", err)
	}

	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Fingerprint returns "sha256:<hex>" of the canonical JSON of v. The search
// checkpoint is keyed by the fingerprint of the search definition.
func Fingerprint(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(canonical)

	return Prefix + hex.EncodeToString(sum[:]), nil
}

// normalize rewrites every number of a decoded document in place.
func normalize(v any) (any, error) {
	var err error

	switch vv := v.(type) {
	case json.Number:
		return canonicalNumber(vv)
	case []any:
		for i := range vv {
			if vv[i], err = normalize(vv[i]); err != nil {
				return nil, err
			}
		}
	case map[string]any:
		for k, item := range vv {
			if vv[k], err = normalize(item); err != nil {
				return nil, err
			}
		}
	}

	return v, nil
}

// canonicalNumber prints integers in base 10 and everything else in the
// shortest float form that round-trips, so 1.50 and 1.5 hash alike.
func canonicalNumber(n json.Number) (json.Number, error) {
	if i, err := n.Int64(); err == nil {
		return json.Number(strconv.FormatInt(i, 10)), nil
	}

	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("invalid number %q: %w", n, err)
	}

	return json.Number(strconv.FormatFloat(f, 'g', -1, 64)), nil
}
