package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/iliyamo/quote-board/internal/middleware"
	"github.com/iliyamo/quote-board/internal/queue"
	"github.com/iliyamo/quote-board/internal/service"
)

const quoteNotFound = "Quote not found"

// QuoteHandler serves the quote and vote endpoints.
type QuoteHandler struct {
	Engine  *service.QueryEngine
	Manager *service.QuoteManager
	Ledger  *service.VoteLedger
	Events  queue.Publisher
}

func NewQuoteHandler(store service.Store, events queue.Publisher) *QuoteHandler {
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &QuoteHandler{
		Engine:  service.NewQueryEngine(store),
		Manager: service.NewQuoteManager(store),
		Ledger:  service.NewVoteLedger(store),
		Events:  events,
	}
}

type contentReq struct {
	Content string `json:"content"`
}

// quoteID parses the :id path parameter.  Anything that is not a positive
// integer cannot name a quote.
func quoteID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusNotFound, quoteNotFound)
	}
	return id, nil
}

// bindContent decodes the quote body.  A body that cannot be decoded counts
// as empty, so content validation reports it as a 422.
func bindContent(c echo.Context) contentReq {
	var req contentReq
	if err := c.Bind(&req); err != nil {
		log.WithError(err).Debug("quote body not decodable")
		return contentReq{}
	}
	return req
}

// queryInt reads an optional positive integer query parameter.
func queryInt(c echo.Context, name string, def int, verr *service.ValidationError) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		verr.Add(name, "The "+name+" must be an integer.")
		return def
	}
	return n
}

func (h *QuoteHandler) publish(c echo.Context, ev queue.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request().Context()), 3*time.Second)
	defer cancel()
	ev.OccurredAt = time.Now().UTC()
	if err := h.Events.Publish(ctx, ev); err != nil {
		log.WithError(err).WithField("event", ev.Type).Warn("publish event failed")
	}
}

// List handles GET /quotes?page&limit.
func (h *QuoteHandler) List(c echo.Context) error {
	verr := &service.ValidationError{}
	page := queryInt(c, "page", service.DefaultPage, verr)
	limit := queryInt(c, "limit", service.DefaultLimit, verr)
	if len(verr.Fields) > 0 {
		return verr
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.ListPaged(ctx, page, limit, middleware.Viewer(c))
	if err != nil {
		return err
	}
	return ok(c, res)
}

// Random handles GET /quotes/random.  data is null when there are no quotes.
func (h *QuoteHandler) Random(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Engine.GetRandom(ctx, middleware.Viewer(c))
	if err != nil {
		return err
	}
	if v == nil {
		return ok(c, nil)
	}
	return ok(c, v)
}

// Get handles GET /quotes/:id.
func (h *QuoteHandler) Get(c echo.Context) error {
	id, err := quoteID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Engine.GetByID(ctx, id, middleware.Viewer(c))
	if err != nil {
		return notFound(err, quoteNotFound)
	}
	return ok(c, v)
}

// Votes handles GET /quotes/:id/votes.
func (h *QuoteHandler) Votes(c echo.Context) error {
	id, err := quoteID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	votes, err := h.Engine.Votes(ctx, id)
	if err != nil {
		return notFound(err, quoteNotFound)
	}
	return ok(c, votes)
}

// Create handles POST /quotes.
func (h *QuoteHandler) Create(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	req := bindContent(c)
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Manager.Create(ctx, uid, req.Content)
	if err != nil {
		return err
	}
	h.publish(c, queue.Event{Type: queue.TypeQuoteCreated, QuoteID: q.ID, ActorID: uid})
	return ok(c, q)
}

// Edit handles PUT /quotes/:id.  Validation runs before the lookup, the
// lookup before the ownership check.
func (h *QuoteHandler) Edit(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	req := bindContent(c)
	if _, err := service.ValidateContent(req.Content); err != nil {
		return err
	}
	id, err := quoteID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	q, err := h.Manager.Edit(ctx, id, uid, req.Content)
	if err != nil {
		return notFound(err, quoteNotFound)
	}
	h.publish(c, queue.Event{Type: queue.TypeQuoteUpdated, QuoteID: q.ID, ActorID: uid})
	return ok(c, q)
}

// Delete handles DELETE /quotes/:id.
func (h *QuoteHandler) Delete(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	id, err := quoteID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Manager.Delete(ctx, id, uid); err != nil {
		return notFound(err, quoteNotFound)
	}
	h.publish(c, queue.Event{Type: queue.TypeQuoteDeleted, QuoteID: id, ActorID: uid})
	return okMessage(c, "Quote deleted")
}

// Vote handles POST /quotes/:id/:type.  The vote type is checked before the
// quote is looked up.
func (h *QuoteHandler) Vote(c echo.Context) error {
	uid, authed := middleware.UserID(c)
	if !authed {
		return service.ErrUnauthenticated
	}
	dir, err := service.ParseDirection(c.Param("type"))
	if err != nil {
		return err
	}
	id, err := quoteID(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Ledger.CastVote(ctx, id, uid, dir)
	if err != nil {
		return notFound(err, quoteNotFound)
	}
	h.publish(c, queue.Event{
		Type:      queue.TypeVoteCast,
		QuoteID:   id,
		ActorID:   uid,
		Direction: dir.String(),
		Outcome:   out.String(),
	})
	return c.NoContent(http.StatusNoContent)
}
