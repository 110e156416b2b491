package team

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	commsvc "lion-backend/internal/application/commissions"
	redeemsvc "lion-backend/internal/application/redemption"
	"lion-backend/internal/domain"
	"lion-backend/internal/middleware"
	"lion-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

const (
	defaultKeepAlive      = 15 * time.Second
	defaultStreamLifetime = 10 * time.Minute
)

type Handlers struct {
	Redemption  *redeemsvc.Service
	Commissions *commsvc.Service
	// KeepAlive is the interval of SSE comment pings; StreamLifetime bounds one
	// stream, after which the browser's EventSource reconnects.
	KeepAlive      time.Duration
	StreamLifetime time.Duration
}

type summaryView struct {
	*commsvc.Summary
	RankTitle string `json:"rank_title,omitempty"`
}

func view(s *commsvc.Summary) summaryView {
	v := summaryView{Summary: s}
	if s.TeamMember != nil {
		v.RankTitle = s.TeamMember.Rank.Title()
	}
	return v
}

// Join POST /api/v1/team/join enrols the signed-in user with a TEAM code.
func (h *Handlers) Join(c *fiber.Ctx) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.BodyParser(&body); err != nil || body.Code == "" {
		return response.Error(c, "Missing required fields", fiber.StatusBadRequest, nil)
	}
	member, err := h.Redemption.JoinTeam(c.UserContext(), middleware.ActorFromContext(c), body.Code)
	if err != nil {
		return err
	}
	return response.SuccessCreated(c, "Welcome to the LION Team", member, nil)
}

// GetCommissions GET /api/v1/team/commissions returns the dashboard summary.
func (h *Handlers) GetCommissions(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	if !actor.Authenticated() {
		return domain.ErrUnauthenticated
	}
	summary, err := h.Commissions.Summary(c.UserContext(), *actor.UserID)
	if err != nil {
		return err
	}
	return response.Success(c, "Commissions retrieved", view(summary), nil)
}

// StreamCommissions GET /api/v1/team/commissions/stream pushes a "summary" event
// with the full summary on connect and after every change to commissions.
func (h *Handlers) StreamCommissions(c *fiber.Ctx) error {
	actor := middleware.ActorFromContext(c)
	if !actor.Authenticated() {
		return domain.ErrUnauthenticated
	}
	userID := *actor.UserID

	lifetime := h.StreamLifetime
	if lifetime <= 0 {
		lifetime = defaultStreamLifetime
	}
	keepAlive := h.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}

	// The stream outlives the handler, so it gets its own context.
	ctx, cancel := context.WithTimeout(context.Background(), lifetime)
	updates := make(chan *commsvc.Summary, 1)
	w, err := h.Commissions.Watch(ctx, userID, func(s *commsvc.Summary) {
		latest(updates, s)
	})
	if err != nil {
		cancel()
		return err
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(bw *bufio.Writer) {
		defer cancel()
		defer w.Close()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case s := <-updates:
				if err := writeEvent(bw, "summary", view(s)); err != nil {
					log.Debug().Err(err).Str("user_id", userID.String()).Msg("team: commission stream closed")
					return
				}
			case <-ticker.C:
				if _, err := bw.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := bw.Flush(); err != nil {
					return
				}
			}
		}
	})
	return nil
}

// latest keeps only the newest summary in a one-slot channel.
func latest(ch chan *commsvc.Summary, s *commsvc.Summary) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeEvent(bw *bufio.Writer, event string, data interface{}) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "event: %s\ndata: %s\n\n", event, b); err != nil {
		return err
	}
	return bw.Flush()
}
