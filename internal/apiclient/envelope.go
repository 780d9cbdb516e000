package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Response shapes accepted from the booking API:
//
//	POST /login              {"access_token": string, "user": User}
//	GET  /users              [User]  | {"users": [User]}
//	GET  /users/:id          User    | {"user": User}
//	GET  /rooms              [Room]  | {"rooms": [Room]}
//	GET  /rooms/:id          Room    | {"room": Room}
//	GET  /events             [Event] | {"meetings": [Event]} | {"events": [Event]}
//	GET  /rooms/:id/events   same as GET /events
//	GET  /events/:id         Event   | {"event": Event}
//	POST, PUT                the created or updated resource, as for GET /:id
//
// Anything else is a decode error.
var (
	userListKeys  = []string{"users"}
	roomListKeys  = []string{"rooms"}
	eventListKeys = []string{"meetings", "events"}
	userKeys      = []string{"user"}
	roomKeys      = []string{"room"}
	eventKeys     = []string{"event"}
)

type decoder interface {
	decode(data []byte) error
}

// list decodes a collection sent either bare or under one of keys.
type list[T any] struct {
	keys  []string
	items []T
}

func newList[T any](keys []string) *list[T] {
	return &list[T]{keys: keys}
}

func (l *list[T]) decode(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &l.items); err != nil {
			return fmt.Errorf("decode collection: %w", err)
		}
		return l.ensure()
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode collection: %w", err)
	}
	for _, key := range l.keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &l.items); err != nil {
			return fmt.Errorf("decode collection %q: %w", key, err)
		}
		return l.ensure()
	}
	return fmt.Errorf("decode collection: expected an array or one of %v", l.keys)
}

func (l *list[T]) ensure() error {
	if l.items == nil {
		l.items = []T{}
	}
	return nil
}

// single decodes one resource sent either bare or under one of keys.
type single[T any] struct {
	keys []string
	item T
}

func newSingle[T any](keys []string) *single[T] {
	return &single[T]{keys: keys}
}

func (s *single[T]) decode(data []byte) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}
	for _, key := range s.keys {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && trimmed[0] == '{' {
			if err := json.Unmarshal(trimmed, &s.item); err != nil {
				return fmt.Errorf("decode resource %q: %w", key, err)
			}
			return nil
		}
	}
	if err := json.Unmarshal(data, &s.item); err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}
	return nil
}
