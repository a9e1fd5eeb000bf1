package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-dispatch/internal/auth"
	"github.com/example/ride-dispatch/internal/models"
	"github.com/example/ride-dispatch/internal/notify"
	"github.com/example/ride-dispatch/internal/presence"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// frame is the inbound websocket envelope; Data stays raw until the event
// name selects its shape.
type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type driverOnlinePayload struct {
	models.DriverProfile
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type locationPayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type statusPayload struct {
	Status string `json:"status"`
}

type bookingActionPayload struct {
	BookingID string `json:"bookingId"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	claims, err := s.verifier.Verify(auth.TokenFromRequest(r))
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "client_id", claims.ClientID, "error", err)
		return
	}

	var channel string
	switch claims.Role {
	case auth.RoleDriver:
		channel = notify.DriverChannel(claims.ClientID)
	default:
		channel = notify.UserChannel(claims.ClientID)
	}
	session := s.registry.Add(channel, conn)
	s.logger.Info("websocket connected", "channel", channel)

	defer func() {
		s.registry.Drop(channel, session)
		conn.Close()
		s.logger.Info("websocket disconnected", "channel", channel)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.logger.Debug("malformed frame dropped", "channel", channel, "error", err)
			continue
		}
		ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
		if claims.Role == auth.RoleDriver {
			s.handleDriverFrame(ctx, session, claims.ClientID, f)
		} else {
			s.handleUserFrame(ctx, session, claims.ClientID, f)
		}
		cancel()
	}
}

func (s *Server) handleDriverFrame(ctx context.Context, session *notify.Session, driverID string, f frame) {
	switch f.Event {
	case "ping":
		if err := s.presence.Heartbeat(ctx, driverID); err != nil {
			s.logger.Warn("heartbeat failed", "driver_id", driverID, "error", err)
		}
		_ = session.Send("pong", nil)

	case "driver:online":
		var p driverOnlinePayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			s.logger.Debug("bad driver:online payload", "driver_id", driverID, "error", err)
			return
		}
		p.DriverID = driverID
		if err := s.presence.Heartbeat(ctx, driverID); err != nil {
			s.logger.Warn("heartbeat failed", "driver_id", driverID, "error", err)
		}
		if err := s.presence.SetDetails(ctx, &p.DriverProfile, presence.PoolAvailable); err != nil {
			s.logger.Warn("details store failed", "driver_id", driverID, "error", err)
		}
		if err := s.presence.AddGeo(ctx, driverID, p.Lat, p.Lng, presence.PoolAvailable); err != nil {
			s.logger.Warn("geo store failed", "driver_id", driverID, "error", err)
		}
		s.logger.Info("driver online", "driver_id", driverID)

	case "location:update":
		var p locationPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return
		}
		if err := s.presence.Heartbeat(ctx, driverID); err != nil {
			s.logger.Warn("heartbeat failed", "driver_id", driverID, "error", err)
		}
		if err := s.presence.AddGeo(ctx, driverID, p.Lat, p.Lng, presence.PoolAvailable); err != nil {
			s.logger.Warn("geo update failed", "driver_id", driverID, "error", err)
		}

	case "driver:status":
		var p statusPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return
		}
		if p.Status == "offline" {
			if err := s.presence.Remove(ctx, driverID, presence.PoolAvailable); err != nil {
				s.logger.Warn("presence removal failed", "driver_id", driverID, "error", err)
			}
			s.logger.Info("driver offline", "driver_id", driverID)
		} else if err := s.presence.Heartbeat(ctx, driverID); err != nil {
			s.logger.Warn("heartbeat failed", "driver_id", driverID, "error", err)
		}

	case "booking:accept":
		var p bookingActionPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return
		}
		res, err := s.engine.OnAccept(ctx, p.BookingID, driverID)
		if err != nil {
			s.logger.Error("accept failed", "booking_id", p.BookingID, "driver_id", driverID, "error", err)
			res = models.ActionResult{BookingID: p.BookingID, Message: "Internal error, please retry"}
		}
		_ = session.Send("booking:accept:result", res)

	case "booking:reject":
		var p bookingActionPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return
		}
		res, err := s.engine.OnReject(ctx, p.BookingID, driverID)
		if err != nil {
			s.logger.Error("reject failed", "booking_id", p.BookingID, "driver_id", driverID, "error", err)
			res = models.ActionResult{BookingID: p.BookingID, Message: "Internal error, please retry"}
		}
		_ = session.Send("booking:reject:result", res)

	case "sendMessage":
		s.relayChat(f.Data, driverID, auth.RoleDriver)

	default:
		s.logger.Debug("unknown driver frame", "driver_id", driverID, "event", f.Event)
	}
}

func (s *Server) handleUserFrame(_ context.Context, _ *notify.Session, userID string, f frame) {
	switch f.Event {
	case "sendMessage":
		s.relayChat(f.Data, userID, auth.RoleUser)

	case "user:payment:conformation":
		var msg models.PaymentEvent
		if err := json.Unmarshal(f.Data, &msg); err != nil {
			return
		}
		if msg.DriverID == "" {
			return
		}
		if err := s.registry.Push(notify.DriverChannel(msg.DriverID), "payment:conformation", msg); err != nil {
			s.logger.Debug("payment relay failed", "user_id", userID, "driver_id", msg.DriverID, "error", err)
		}

	default:
		s.logger.Debug("unknown user frame", "user_id", userID, "event", f.Event)
	}
}

// relayChat forwards an in-ride chat message verbatim to the counterpart's
// channel.
func (s *Server) relayChat(data json.RawMessage, senderID, senderRole string) {
	var msg models.ChatMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	var target string
	if senderRole == auth.RoleDriver {
		if msg.UserID == "" {
			return
		}
		target = notify.UserChannel(msg.UserID)
		msg.DriverID = senderID
	} else {
		if msg.DriverID == "" {
			return
		}
		target = notify.DriverChannel(msg.DriverID)
		msg.UserID = senderID
	}
	if err := s.registry.Push(target, "receiveMessage", msg); err != nil {
		s.logger.Debug("chat relay failed", "target", target, "error", err)
	}
}
