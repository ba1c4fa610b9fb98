// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"pressroom/internal/lifecycle"
	"pressroom/internal/models"
)

func termKind(r *http.Request) models.TermKind {
	return models.TermKind(chi.URLParam(r, "kind"))
}

// Terms lists the categories or series named by {kind}.
func (a *Admin) Terms(w http.ResponseWriter, r *http.Request) {
	terms, err := a.engine.Terms(r.Context(), termKind(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if terms == nil {
		terms = []models.Term{}
	}
	writeJSON(w, http.StatusOK, terms)
}

type termRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// CreateTerm adds a category or series.
func (a *Admin) CreateTerm(w http.ResponseWriter, r *http.Request) {
	var req termRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if msg := validateTerm(req.Name, req.Description); msg != "" {
		writeProblem(w, http.StatusUnprocessableEntity, lifecycle.CodeValidation, msg)
		return
	}
	term, err := a.engine.CreateTerm(r.Context(), termKind(r), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, term)
}

// DeleteTerm removes a term of {kind}. Posts lose the association.
func (a *Admin) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	terms, err := a.engine.Terms(r.Context(), termKind(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	found := false
	for _, t := range terms {
		if t.ID == id {
			found = true
			break
		}
	}
	if !found {
		writeError(w, r, &lifecycle.Error{Code: lifecycle.CodeNotFound, Message: fmt.Sprintf("%s %s not found", termKind(r), id)})
		return
	}
	if err := a.engine.DeleteTerm(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoriesRequest struct {
	CategoryIDs []uuid.UUID `json:"category_ids"`
}

// AssignCategories replaces a post's categories.
func (c *Content) AssignCategories(w http.ResponseWriter, r *http.Request) {
	var req categoriesRequest
	c.apply(w, r, &req, func(ctx context.Context, id, who uuid.UUID) (*models.Item, error) {
		return c.a.engine.AssignCategories(ctx, id, req.CategoryIDs, who)
	})
}

type seriesRequest struct {
	SeriesID *uuid.UUID `json:"series_id"`
	Position int        `json:"position"`
}

// SetSeries places a post in a series, or removes it when series_id is null.
func (c *Content) SetSeries(w http.ResponseWriter, r *http.Request) {
	var req seriesRequest
	c.apply(w, r, &req, func(ctx context.Context, id, who uuid.UUID) (*models.Item, error) {
		return c.a.engine.SetSeries(ctx, id, req.SeriesID, req.Position, who)
	})
}
