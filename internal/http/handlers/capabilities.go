package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/gsmwallet/server/internal/listing"
)

// Each entity handler is built from the capabilities its store actually has.

type Creator[T any] interface {
	Create(ctx context.Context, v *T) error
}

type Getter[T any] interface {
	GetByID(ctx context.Context, id uuid.UUID) (T, error)
}

type Lister[T any] interface {
	List(ctx context.Context, q listing.Query) ([]T, int, error)
}

type Updater[T any] interface {
	Update(ctx context.Context, v *T) error
}

type Deleter interface {
	Delete(ctx context.Context, id uuid.UUID) error
}

// handleList serves a paged collection with take, skip and sort.
func handleList[T any](w http.ResponseWriter, r *http.Request, l Lister[T]) {
	q, err := listing.Parse(r.URL.Query())
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, total, err := l.List(r.Context(), q)
	if err != nil {
		log.Printf("level=error component=http msg=\"list failed\" path=%s err=%v", r.URL.Path, err)
		respondWithError(w, http.StatusInternalServerError, "An error occurred.")
		return
	}
	if items == nil {
		items = []T{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	respondJSON(w, http.StatusOK, listing.Page[T]{Data: items, TotalCount: total})
}
