package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	uuid "github.com/satori/go.uuid"

	"routekit/pkg/extract"
	"routekit/pkg/response"
	"routekit/pkg/store"
)

const defaultGreeting = "Hello world!"

const notePrefix = "note:"

// appState is bound to every route. The store does its own locking.
type appState struct {
	Greeting string
	Notes    *store.Store
}

type message struct {
	Message string `json:"message"`
}

type noteInput struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

type note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var errNoteNotFound = response.NewError(http.StatusNotFound, response.ErrCodeNotFound, "note not found")

func hello(ctx context.Context, st extract.State[appState]) (extract.JSON[message], error) {
	return extract.JSON[message]{Value: message{Message: st.Value.Greeting}}, nil
}

func echo(ctx context.Context, in extract.JSON[any]) (extract.JSON[any], error) {
	return in, nil
}

func versionText(ctx context.Context) (response.Text, error) {
	return response.Text(version), nil
}

// newNoteID sorts by creation time; the uuid suffix breaks ties.
func newNoteID(now time.Time) string {
	return fmt.Sprintf("%020d-%s", now.UnixNano(), uuid.NewV4().String()[:8])
}

func createNote(ctx context.Context, st extract.State[appState], in extract.JSON[noteInput]) (response.Responder, error) {
	title := strings.TrimSpace(in.Value.Title)
	if title == "" {
		return nil, response.BadRequest("title is required")
	}
	now := time.Now().UTC()
	n := note{
		ID:        newNoteID(now),
		Title:     title,
		Body:      in.Value.Body,
		Tags:      in.Value.Tags,
		CreatedAt: now,
	}
	data, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	if err := st.Value.Notes.Put(notePrefix+n.ID, data); err != nil {
		return nil, fmt.Errorf("save note: %w", err)
	}
	return response.WithStatus(http.StatusCreated, extract.JSON[note]{Value: n}), nil
}

func listNotes(ctx context.Context, q extract.Query, st extract.State[appState]) (extract.JSON[[]note], error) {
	limit := 50
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return extract.JSON[[]note]{}, response.BadRequest("limit must be a positive integer")
		}
		limit = n
	}
	kvs, err := st.Value.Notes.List(notePrefix, limit)
	if err != nil {
		return extract.JSON[[]note]{}, fmt.Errorf("list notes: %w", err)
	}
	out := make([]note, 0, len(kvs))
	for _, kv := range kvs {
		var n note
		if err := json.Unmarshal(kv.Value, &n); err != nil {
			return extract.JSON[[]note]{}, fmt.Errorf("decode %s: %w", kv.Key, err)
		}
		out = append(out, n)
	}
	return extract.JSON[[]note]{Value: out}, nil
}

func getNote(ctx context.Context, q extract.Query, st extract.State[appState]) (extract.JSON[note], error) {
	id := q.Get("id")
	if id == "" {
		return extract.JSON[note]{}, response.BadRequest("id is required")
	}
	data, err := st.Value.Notes.Get(notePrefix + id)
	if errors.Is(err, store.ErrNotFound) {
		return extract.JSON[note]{}, errNoteNotFound
	}
	if err != nil {
		return extract.JSON[note]{}, err
	}
	var n note
	if err := json.Unmarshal(data, &n); err != nil {
		return extract.JSON[note]{}, fmt.Errorf("decode note %s: %w", id, err)
	}
	return extract.JSON[note]{Value: n}, nil
}
