package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pario-ai/typedchat/pkg/models"
)

// fingerprintVersion prefixes the canonical form. Bump it whenever the
// encoding below changes so old disk entries stop matching.
const fingerprintVersion = "typedchat/v1\x00"

// Key is the SHA-256 fingerprint of a request.
type Key [sha256.Size]byte

// String returns the lowercase hex encoding used for file names.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// ParseKey decodes the output of Key.String.
func ParseKey(s string) (Key, error) {
	var k Key
	b, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("parse cache key: %w", err)
	}
	if len(b) != len(k) {
		return k, fmt.Errorf("parse cache key: want %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

// canonicalRequest lists every field that can change the remote answer.
// User and Metadata are left out on purpose.
type canonicalRequest struct {
	Model          string               `json:"model"`
	Messages       []models.ChatMessage `json:"messages"`
	ResponseFormat *canonicalFormat     `json:"response_format"`
	Temperature    *float64             `json:"temperature"`
	TopP           *float64             `json:"top_p"`
	MaxTokens      *int                 `json:"max_tokens"`
	Seed           *int64               `json:"seed"`
	Stop           []string             `json:"stop"`
}

type canonicalFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name,omitempty"`
	Strict bool            `json:"strict,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
}

// Fingerprint derives the cache key of req. It does not modify req.
func Fingerprint(req models.ChatRequest) Key {
	c := canonicalRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
		Seed:        req.Seed,
	}
	if c.Messages == nil {
		c.Messages = []models.ChatMessage{}
	}
	if len(req.Stop) > 0 {
		c.Stop = slices.Clone(req.Stop)
		slices.Sort(c.Stop)
	}
	if f := req.ResponseFormat; f != nil {
		c.ResponseFormat = &canonicalFormat{Type: f.Type}
		if s := f.JSONSchema; s != nil {
			c.ResponseFormat.Name = s.Name
			c.ResponseFormat.Strict = s.Strict
			c.ResponseFormat.Schema = canonicalJSON(s.Schema)
		}
	}

	h := sha256.New()
	h.Write([]byte(fingerprintVersion))
	// Marshalling plain structs, slices and pointers cannot fail.
	data, _ := json.Marshal(c)
	h.Write(data)

	var k Key
	h.Sum(k[:0])
	return k
}

// canonicalJSON re-encodes raw with object keys in sorted order. Input that
// is not valid JSON is embedded as a string so it still feeds the hash.
func canonicalJSON(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil {
		if out, err := json.Marshal(v); err == nil {
			return out
		}
	}
	quoted, _ := json.Marshal(string(raw))
	return quoted
}
