package http

import (
	"net/http"

	"github.com/couchcryptid/gpv-forecast-service/internal/domain"
)

type todoRequest struct {
	Title *string `json:"title"`
	Done  bool    `json:"done"`
}

type itemRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
}

// item validates the request and converts it to a domain item.
func (req itemRequest) item() (domain.Item, *validationErrors) {
	v := &validationErrors{}
	if req.Name == nil {
		v.add("Field required", "missing", "body", "name")
	} else if len(*req.Name) > 255 {
		v.add("String should have at most 255 characters", "string_too_long", "body", "name")
	}
	if req.Price == nil {
		v.add("Field required", "missing", "body", "price")
	}
	if !v.empty() {
		return domain.Item{}, v
	}
	return domain.Item{Name: *req.Name, Description: req.Description, Price: *req.Price}, nil
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if verr := decodeBody(r, &req); verr != nil {
		writeValidation(w, verr)
		return
	}
	if req.Title == nil {
		v := &validationErrors{}
		v.add("Field required", "missing", "body", "title")
		writeValidation(w, v)
		return
	}

	todo, err := s.todos.CreateTodo(r.Context(), *req.Title, req.Done)
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	todos, err := s.todos.ListTodos(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if verr := decodeBody(r, &req); verr != nil {
		writeValidation(w, verr)
		return
	}
	item, verr := req.item()
	if verr != nil {
		writeValidation(w, verr)
		return
	}

	if err := s.store.CreateItem(r.Context(), &item); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListItems(r.Context())
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r)
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	key, err := storeID(id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	item, err := s.store.GetItem(r.Context(), key)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r)
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	var req itemRequest
	if verr := decodeBody(r, &req); verr != nil {
		writeValidation(w, verr)
		return
	}
	item, verr := req.item()
	if verr != nil {
		writeValidation(w, verr)
		return
	}

	key, err := storeID(id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	updated, err := s.store.UpdateItem(r.Context(), key, item)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id, verr := pathID(r)
	if verr != nil {
		writeValidation(w, verr)
		return
	}
	key, err := storeID(id)
	if err != nil {
		s.storeError(w, r, err)
		return
	}
	if err := s.store.DeleteItem(r.Context(), key); err != nil {
		s.storeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
