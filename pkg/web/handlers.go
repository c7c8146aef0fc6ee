package web

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-callflow/pkg/callflow"
	"github.com/teslashibe/go-callflow/pkg/hub"
	"github.com/teslashibe/go-callflow/pkg/twiml"
)

const (
	// oauthState is echoed back by Google on the consent callback.
	oauthState = "callflow-export"

	healthTimeout = 3 * time.Second
)

// handleVoice begins a call.
func (s *Server) handleVoice(c *fiber.Ctx) error {
	callID := c.FormValue("CallSid")
	if callID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "CallSid is required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.TurnTimeout)
	defer cancel()

	res, err := s.calls.Begin(ctx, callID, c.FormValue("From"))
	if err != nil {
		return s.fail(c, err)
	}
	return sendTwiML(c, res.Response)
}

// handleResponse handles an answer recording for turn q.
func (s *Server) handleResponse(c *fiber.Ctx) error {
	callID := c.FormValue("CallSid")
	if callID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "CallSid is required")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), s.config.TurnTimeout)
	defer cancel()

	res, err := s.calls.HandleTurn(ctx, callflow.TurnRequest{
		CallID:       callID,
		Turn:         turnParam(c.Query("q")),
		RecordingURL: c.FormValue("RecordingUrl"),
	})
	if err != nil {
		return s.fail(c, err)
	}
	return sendTwiML(c, res.Response)
}

// turnParam parses q. Missing or malformed values mean the pending turn.
func turnParam(q string) int {
	n, err := strconv.Atoi(q)
	if err != nil || n < 0 {
		return -1
	}
	return n
}

func sendTwiML(c *fiber.Ctx, r *twiml.Response) error {
	body, err := r.Render()
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, twiml.ContentType)
	return c.Send(body)
}

func (s *Server) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, callflow.ErrEmptyCallID) {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	var busy *callflow.BusyError
	if errors.As(err, &busy) {
		s.logger.Warn("call busy", "call_id", busy.CallID, "error", err)
		return fiber.NewError(fiber.StatusServiceUnavailable, "call busy")
	}
	s.logger.Error("webhook failed", "path", c.Path(), "error", err)
	return fiber.NewError(fiber.StatusInternalServerError, "internal error")
}

// handleHealth answers 200 even when degraded.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	status, inference := "ok", "unchecked"
	if s.config.Inference != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if err := s.config.Inference.Health(ctx); err != nil {
			s.logger.Warn("inference unhealthy", "error", err)
			status, inference = "degraded", err.Error()
		} else {
			inference = "ok"
		}
	}
	return c.JSON(fiber.Map{
		"status":      status,
		"version":     Version,
		"inference":   inference,
		"subscribers": s.hub.ClientCount(),
		"export":      s.docs != nil && s.docs.Connected(),
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/plain; version=0.0.4")
	return c.SendString(metricsText(s.calls.Stats(), s.hub.ClientCount(), s.hub.Dropped()))
}

// handleGetCall returns a stored session.
func (s *Server) handleGetCall(c *fiber.Ctx) error {
	sess, ok, err := s.calls.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		s.logger.Error("failed to load call", "call_id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to load call"})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "call not found"})
	}
	return c.JSON(sess)
}

func (s *Server) handleGoogleAuth(c *fiber.Ctx) error {
	if s.docs == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "export not configured"})
	}
	return c.Redirect(s.docs.AuthURL(oauthState), fiber.StatusTemporaryRedirect)
}

func (s *Server) handleGoogleCallback(c *fiber.Ctx) error {
	if s.docs == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "export not configured"})
	}
	if c.Query("state") != oauthState {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid state"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing authorization code"})
	}
	if err := s.docs.Exchange(c.UserContext(), code); err != nil {
		s.logger.Error("google authorization failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}
	s.logger.Info("google export connected")
	return c.JSON(fiber.Map{"connected": true})
}

// handleCallsWS streams call events. ?call_id= limits the feed to one call.
func (s *Server) handleCallsWS(conn *websocket.Conn) {
	hub.NewClient(s.hub, conn, conn.Query("call_id")).Run()
}
