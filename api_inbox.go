package folio

import (
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type subscribeRequest struct {
	Name  string `json:"name" form:"name" validate:"max=100"`
	Email string `json:"email" form:"email" validate:"required"`
}

func (a *App) handleSubscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	sub, err := a.Store.Subscribe(c.Request().Context(), req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sub)
}

func (a *App) handleListSubscribers(c echo.Context) error {
	page, err := a.Store.ListSubscribers(c.Request().Context(),
		queryBool(c, "all"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleUnsubscribe(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Store.Unsubscribe(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type broadcastRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type broadcastResponse struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Recipients int    `json:"recipients"`
}

// handleBroadcast accepts a newsletter for the active subscribers. Delivery
// is not wired to a mail provider: the broadcast is logged and reported as
// queued.
func (a *App) handleBroadcast(c echo.Context) error {
	var req broadcastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Subject = strings.TrimSpace(req.Subject)
	req.Content = strings.TrimSpace(req.Content)
	if err := c.Validate(&req); err != nil {
		return err
	}
	emails, err := a.Store.ActiveSubscriberEmails(c.Request().Context())
	if err != nil {
		return err
	}
	id := uuid.NewString()
	c.Logger().Infof("broadcast %s queued: %q to %d subscribers", id, req.Subject, len(emails))
	return c.JSON(http.StatusAccepted, broadcastResponse{ID: id, Status: "queued", Recipients: len(emails)})
}

func (a *App) handleContact(c echo.Context) error {
	ip := c.RealIP()
	if !a.contactLimiter.Allow(ip) {
		wait := a.contactLimiter.RetryAfter(ip)
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many messages, try again later")
	}
	var in ContactInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	msg, err := a.Store.CreateContactMessage(c.Request().Context(), in, ip)
	if err != nil {
		return err
	}
	c.Logger().Infof("contact message %d from %s", msg.ID, msg.Email)
	return c.JSON(http.StatusCreated, map[string]any{"id": msg.ID, "status": "received"})
}

func (a *App) handleListContact(c echo.Context) error {
	page, err := a.Store.ListContactMessages(c.Request().Context(),
		queryBool(c, "unread"), queryInt(c, "page"), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleGetContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	msg, err := a.Store.ReadContactMessage(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, msg)
}

func (a *App) handleDeleteContact(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.Store.DeleteContactMessage(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
