package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pratofino/catering-cart/internal/domain/cart"
	"github.com/pratofino/catering-cart/internal/domain/catalog"
	"github.com/pratofino/catering-cart/internal/domain/checkout"
	"github.com/pratofino/catering-cart/internal/domain/menu"
	"github.com/pratofino/catering-cart/internal/orders"
)

// cartResponse is the cart payload returned by every cart-mutating
// endpoint so the client never needs a follow-up fetch.
type cartResponse struct {
	Items  []cart.Line   `json:"items"`
	Totals totalsPayload `json:"totals"`
	Open   bool          `json:"open"`
}

type totalsPayload struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	ServiceCharge decimal.Decimal `json:"serviceCharge"`
	WaiterFees    decimal.Decimal `json:"waiterFees"`
	GrandTotal    decimal.Decimal `json:"grandTotal"`
}

func cartPayload(engine *cart.Engine) cartResponse {
	totals := engine.Store.Totals()
	return cartResponse{
		Items: engine.Store.Lines(),
		Totals: totalsPayload{
			Subtotal:      totals.Subtotal,
			ServiceCharge: totals.ServiceCharge,
			WaiterFees:    totals.WaiterFees,
			GrandTotal:    totals.GrandTotal,
		},
		Open: engine.Store.IsOpen(),
	}
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}
	writeJSON(w, http.StatusOK, cartPayload(engine))
}

// addItemRequest describes the cart line the client wants to compose.
// Selections maps category name to the chosen dish names.
type addItemRequest struct {
	EventID    int64               `json:"eventId"`
	MenuID     int64               `json:"menuId"`
	Date       string              `json:"date"`
	Time       string              `json:"time"`
	GuestCount int                 `json:"guestCount"`
	Location   string              `json:"location"`
	Quantity   int                 `json:"quantity"`
	Selections map[string][]string `json:"selections"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido", nil)
		return
	}
	if missing := missingAddFields(req); len(missing) > 0 {
		writeError(w, http.StatusBadRequest,
			"preencha todos os campos obrigatórios: "+strings.Join(missing, ", "), missing)
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	line, err := h.composeLine(r, req)
	if err != nil {
		h.writeComposeError(w, r, err)
		return
	}

	err = engine.AddToCart(r.Context(), *line)
	switch {
	case errors.Is(err, cart.ErrPendingHeld):
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":  "pending",
			"message": "faça login para adicionar ao carrinho",
		})
	case errors.Is(err, cart.ErrInvalidLine):
		writeError(w, http.StatusBadRequest, "item de carrinho inválido", nil)
	case err != nil:
		zctx.From(r.Context()).Error("Adding cart line failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
	default:
		writeJSON(w, http.StatusCreated, cartPayload(engine))
	}
}

// missingAddFields reports which required fields the add request lacks.
// They are reported together as one aggregate failure rather than one
// at a time.
func missingAddFields(req addItemRequest) []string {
	var missing []string
	if req.EventID <= 0 {
		missing = append(missing, "eventId")
	}
	if req.MenuID <= 0 {
		missing = append(missing, "menuId")
	}
	if req.Date == "" {
		missing = append(missing, "date")
	}
	if req.GuestCount <= 0 {
		missing = append(missing, "guestCount")
	}
	if req.Location == "" {
		missing = append(missing, "location")
	}
	return missing
}

// composeLine resolves the catalog entities, validates the dish
// selection against the menu's category limits, and prices the line.
func (h *Handler) composeLine(r *http.Request, req addItemRequest) (*cart.Line, error) {
	var (
		event  *catalog.Event
		m      *catalog.Menu
		dishes []catalog.Dish
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		event, err = h.catalog.GetEvent(ctx, req.EventID)
		return err
	})
	g.Go(func() (err error) {
		m, err = h.catalog.GetMenu(ctx, req.MenuID)
		return err
	})
	g.Go(func() (err error) {
		dishes, err = h.catalog.ListDishes(ctx, req.MenuID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if m.EventID != req.EventID {
		return nil, errors.Wrapf(catalog.ErrNotFound, "menu %d for event %d", req.MenuID, req.EventID)
	}

	sel := menu.NewSelection(dishes)
	for category, names := range req.Selections {
		for _, name := range names {
			if err := sel.Toggle(category, name, true); err != nil {
				return nil, err
			}
		}
	}
	picks, err := sel.Commit()
	if err != nil {
		return nil, err
	}

	timeOfDay := req.Time
	if timeOfDay == "" {
		timeOfDay = cart.DefaultTime
	}

	return &cart.Line{
		ID:            time.Now().UnixMilli(),
		EventID:       event.ID,
		Title:         event.Title,
		ImageURL:      event.ImageURL,
		Date:          req.Date,
		Time:          timeOfDay,
		GuestCount:    req.GuestCount,
		Location:      req.Location,
		MenuSelection: m.Name,
		MenuItems:     picks,
		Price:         m.PricePerGuest.Mul(decimal.NewFromInt(int64(req.GuestCount))),
		Quantity:      req.Quantity,
	}, nil
}

// writeComposeError maps line-composition failures onto API responses.
func (h *Handler) writeComposeError(w http.ResponseWriter, r *http.Request, err error) {
	var incomplete *menu.IncompleteSelectionError
	var limit *menu.CategoryLimitError
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "evento ou menu não encontrado", nil)
	case errors.As(err, &incomplete):
		details := make([]map[string]any, len(incomplete.Categories))
		for i, c := range incomplete.Categories {
			details[i] = map[string]any{
				"category": c.Category,
				"required": c.Required,
				"selected": c.Selected,
			}
		}
		writeError(w, http.StatusUnprocessableEntity, incomplete.Error(), details)
	case errors.As(err, &limit):
		writeError(w, http.StatusUnprocessableEntity, limit.Error(), nil)
	case errors.Is(err, menu.ErrUnknownCategory), errors.Is(err, menu.ErrUnknownDish):
		writeError(w, http.StatusUnprocessableEntity, err.Error(), nil)
	default:
		zctx.From(r.Context()).Error("Composing cart line failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
	}
}

func lineID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}
	id, ok := lineID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id inválido", nil)
		return
	}

	var line cart.Line
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil {
		writeError(w, http.StatusBadRequest, "corpo da requisição inválido", nil)
		return
	}
	line.ID = id

	if err := engine.Store.UpdateLine(r.Context(), line); err != nil {
		zctx.From(r.Context()).Error("Updating cart line failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
		return
	}
	writeJSON(w, http.StatusOK, cartPayload(engine))
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}
	id, ok := lineID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id inválido", nil)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity <= 0 {
		writeError(w, http.StatusBadRequest, "quantidade deve ser positiva", nil)
		return
	}

	if err := engine.Store.UpdateQuantity(r.Context(), id, req.Quantity); err != nil {
		zctx.From(r.Context()).Error("Updating quantity failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
		return
	}
	writeJSON(w, http.StatusOK, cartPayload(engine))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}
	id, ok := lineID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "id inválido", nil)
		return
	}

	if err := engine.Store.Remove(r.Context(), id); err != nil {
		zctx.From(r.Context()).Error("Removing cart line failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
		return
	}
	writeJSON(w, http.StatusOK, cartPayload(engine))
}

func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}

	if err := engine.Store.Open(engine.Auth()); err != nil {
		writeError(w, http.StatusUnauthorized, "faça login para ver o carrinho", nil)
		return
	}
	writeJSON(w, http.StatusOK, cartPayload(engine))
}

// checkoutResponse reports the checkout outcome. On partial failure
// OrderIDs names the orders that were created before the failing line.
type checkoutResponse struct {
	OrderIDs    []int64 `json:"orderIds"`
	FailedIndex int     `json:"failedIndex"`
	Message     string  `json:"message,omitempty"`
}

func (h *Handler) runCheckout(w http.ResponseWriter, r *http.Request) {
	engine := h.engine(w, r)
	if engine == nil {
		return
	}

	orch := checkout.New(engine.Store, h.orders, engine.Auth(), zctx.From(r.Context()))
	result, err := orch.Checkout(r.Context())

	switch {
	case errors.Is(err, checkout.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "faça login para finalizar o pedido", nil)
	case errors.Is(err, checkout.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "carrinho vazio", nil)
	case err != nil:
		h.writeCheckoutFailure(w, result, err)
	default:
		writeJSON(w, http.StatusOK, checkoutResponse{
			OrderIDs:    result.OrderIDs,
			FailedIndex: -1,
		})
	}
}

func (h *Handler) writeCheckoutFailure(w http.ResponseWriter, result *checkout.Result, err error) {
	resp := checkoutResponse{Message: err.Error()}
	if result != nil {
		resp.OrderIDs = result.OrderIDs
		resp.FailedIndex = result.FailedIndex
	}

	status := http.StatusBadGateway
	var dateErr *checkout.DateError
	var apiErr *orders.APIError
	switch {
	case errors.As(err, &dateErr):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &apiErr):
		// Surface the backend's own message: details preferred.
		resp.Message = apiErr.Error()
	}
	writeJSON(w, status, resp)
}
