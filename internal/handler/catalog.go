package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pratofino/catering-cart/internal/domain/catalog"
	"github.com/pratofino/catering-cart/internal/domain/menu"
)

// eventMenusResponse is the browse payload for one event: its menus with
// their dishes grouped by category and the required pick count per
// category, so the client can render the selection form without further
// requests.
type eventMenusResponse struct {
	Event eventPayload  `json:"event"`
	Menus []menuPayload `json:"menus"`
}

type eventPayload struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type menuPayload struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	PricePerGuest decimal.Decimal   `json:"pricePerGuest"`
	Categories    []categoryPayload `json:"categories"`
}

type categoryPayload struct {
	Name     string   `json:"name"`
	Required int      `json:"required"`
	Dishes   []string `json:"dishes"`
}

func (h *Handler) getEventMenus(w http.ResponseWriter, r *http.Request) {
	eventID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id inválido", nil)
		return
	}

	var (
		event *catalog.Event
		menus []catalog.Menu
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		event, err = h.catalog.GetEvent(ctx, eventID)
		return err
	})
	g.Go(func() (err error) {
		menus, err = h.catalog.ListMenus(ctx, eventID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "evento não encontrado", nil)
			return
		}
		zctx.From(r.Context()).Error("Loading event menus failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
		return
	}

	resp := eventMenusResponse{
		Event: eventPayload{
			ID:          event.ID,
			Title:       event.Title,
			Description: event.Description,
			ImageURL:    event.ImageURL,
		},
		Menus: make([]menuPayload, 0, len(menus)),
	}
	for _, m := range menus {
		dishes, err := h.catalog.ListDishes(r.Context(), m.ID)
		if err != nil {
			zctx.From(r.Context()).Error("Loading menu dishes failed",
				zap.Int64("menuId", m.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "erro interno", nil)
			return
		}
		resp.Menus = append(resp.Menus, menuPayload{
			ID:            m.ID,
			Name:          m.Name,
			Description:   m.Description,
			PricePerGuest: m.PricePerGuest,
			Categories:    groupCategories(dishes),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// groupCategories groups dishes by category in first-appearance order
// and annotates each category with its required pick count.
func groupCategories(dishes []catalog.Dish) []categoryPayload {
	sel := menu.NewSelection(dishes)
	byCategory := make(map[string][]string)
	for _, d := range dishes {
		byCategory[d.Category] = append(byCategory[d.Category], d.Name)
	}

	out := make([]categoryPayload, 0, len(byCategory))
	for _, cat := range sel.Categories() {
		out = append(out, categoryPayload{
			Name:     cat,
			Required: sel.Limit(cat),
			Dishes:   byCategory[cat],
		})
	}
	return out
}
